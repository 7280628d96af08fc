// Package hwsim simulates the hardware around the power-gating controllers:
// the idle-status banks, the sequencers that gate the engines and the traffic
// that keeps the engines busy.
package hwsim

import (
	"sync/atomic"

	"github.com/sarchlab/lpwr/pg"
)

// IdleBanks are simulated idle-status registers. A set bit reports an idle
// signal. They can be written from any goroutine.
type IdleBanks struct {
	words [pg.IdleBankCount]atomic.Uint32
}

// NewIdleBanks creates banks that report every signal as idle.
func NewIdleBanks() *IdleBanks {
	b := &IdleBanks{}
	for i := range b.words {
		b.words[i].Store(^uint32(0))
	}

	return b
}

// ReadIdleBank returns one bank.
func (b *IdleBanks) ReadIdleBank(bank int) uint32 {
	return b.words[bank].Load()
}

// SetBusy clears the idle signals in mask.
func (b *IdleBanks) SetBusy(mask pg.IdleBanks) {
	for i, m := range mask {
		if m != 0 {
			b.words[i].And(^m)
		}
	}
}

// SetIdle sets the idle signals in mask.
func (b *IdleBanks) SetIdle(mask pg.IdleBanks) {
	for i, m := range mask {
		if m != 0 {
			b.words[i].Or(m)
		}
	}
}

// IsIdle returns true if every signal in mask is idle.
func (b *IdleBanks) IsIdle(mask pg.IdleBanks) bool {
	for i, m := range mask {
		if b.words[i].Load()&m != m {
			return false
		}
	}

	return true
}

// Snapshot returns the current value of all the banks.
func (b *IdleBanks) Snapshot() pg.IdleBanks {
	var s pg.IdleBanks
	for i := range b.words {
		s[i] = b.words[i].Load()
	}

	return s
}
