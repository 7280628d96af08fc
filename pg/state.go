package pg

import (
	"strings"
	"sync/atomic"
)

// State is the state of a controller. The states are disjoint bit flags and
// exactly one of them is active at any time.
type State uint32

// The controller states.
const (
	StatePwrOn State = 1 << iota
	StateDisallow
	StateOn2Off
	StatePwrOff
	StateOff2On
)

func (s State) String() string {
	switch s {
	case StatePwrOn:
		return "PWR_ON"
	case StateDisallow:
		return "DISALLOW"
	case StateOn2Off:
		return "ON2OFF"
	case StatePwrOff:
		return "PWR_OFF"
	case StateOff2On:
		return "OFF2ON"
	default:
		return "UNKNOWN"
	}
}

// valid returns true if exactly one known state bit is set.
func (s State) valid() bool {
	return s != 0 && s&(s-1) == 0 && s <= StateOff2On
}

// PendingMask is the set of deferred actions that are applied when the
// controller next reaches PwrOn.
type PendingMask uint8

// The pending actions.
const (
	PendingDisallow PendingMask = 1 << iota
	PendingWakeup
	PendingThresholdUpdate
)

func (p PendingMask) String() string {
	if p == 0 {
		return "NONE"
	}

	names := make([]string, 0, 3)
	if p&PendingDisallow != 0 {
		names = append(names, "DISALLOW")
	}

	if p&PendingWakeup != 0 {
		names = append(names, "WAKEUP")
	}

	if p&PendingThresholdUpdate != 0 {
		names = append(names, "AP_THRESHOLD_UPDATE")
	}

	return strings.Join(names, "|")
}

// atomicState is the state field shared with interrupt context. It is only
// written by the task.
type atomicState struct {
	v atomic.Uint32
}

func (s *atomicState) Load() State {
	return State(s.v.Load())
}

func (s *atomicState) Store(st State) {
	s.v.Store(uint32(st))
}
