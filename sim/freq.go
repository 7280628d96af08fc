package sim

import (
	"log"
	"math"
)

// Freq defines the type of frequency
type Freq float64

// Defines the unit of frequency
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// Period returns the time between two consecutive ticks
func (f Freq) Period() VTimeInSec {
	if f == 0 {
		log.Panic("frequency cannot be 0")
	}

	return VTimeInSec(1.0 / f)
}

// Cycle converts a time to the number of cycles passed since time 0.
func (f Freq) Cycle(time VTimeInSec) uint64 {
	if math.IsNaN(float64(time)) {
		log.Panic("invalid time")
	}

	return uint64(math.Round(float64(time) * float64(f)))
}

// CyclesInMicroseconds returns how many cycles pass in the given number of
// microseconds.
func (f Freq) CyclesInMicroseconds(us uint64) uint64 {
	return f.Cycle(VTimeInSec(float64(us) * 1e-6))
}

// Duration returns the time that n cycles take.
func (f Freq) Duration(n uint64) VTimeInSec {
	return VTimeInSec(float64(n)) * f.Period()
}

// Microseconds returns a duration given in microseconds as time.
func Microseconds(us uint64) VTimeInSec {
	return VTimeInSec(float64(us) * 1e-6)
}

// Milliseconds returns a duration given in milliseconds as time.
func Milliseconds(ms uint64) VTimeInSec {
	return VTimeInSec(float64(ms) * 1e-3)
}
