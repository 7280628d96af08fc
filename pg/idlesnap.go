package pg

import (
	"strings"
)

// SnapSource tells which non-idle-signal sources were pending when an
// idle-snap interrupt was raised.
type SnapSource uint8

// The idle-snap sources.
const (
	SnapSourceSWClient SnapSource = 1 << iota
	SnapSourceTimer
)

func (s SnapSource) String() string {
	switch s {
	case 0:
		return "IDLE_FLIP"
	case SnapSourceSWClient:
		return "SW_CLIENT"
	case SnapSourceTimer:
		return "TIMER"
	case SnapSourceSWClient | SnapSourceTimer:
		return "SW_CLIENT|TIMER"
	default:
		return "UNKNOWN"
	}
}

// IdleSnap is the content of one idle-snap interrupt.
type IdleSnap struct {
	Status IdleBanks
	Source SnapSource
}

// SnapReasonMask is the classification of an idle-snap.
type SnapReasonMask uint16

// The idle-snap reasons. Error reasons permanently disallow the controller.
const (
	SnapErrIdleFlipPoweringDown SnapReasonMask = 1 << iota
	SnapErrIdleFlipPwrOff
	SnapErrUnknown
	SnapWakeupIdleFlipPwrOff
	SnapWakeupSWClient
	SnapWakeupTimer
	SnapStale
)

// SnapErrMask contains all the error reasons.
const SnapErrMask = SnapErrIdleFlipPoweringDown |
	SnapErrIdleFlipPwrOff |
	SnapErrUnknown

// SnapWakeupMask contains all the wakeup reasons.
const SnapWakeupMask = SnapWakeupIdleFlipPwrOff |
	SnapWakeupSWClient |
	SnapWakeupTimer

var snapReasonNames = [...]string{
	"ERR_IDLE_FLIP_POWERING_DOWN",
	"ERR_IDLE_FLIP_PWR_OFF",
	"ERR_UNKNOWN",
	"WAKEUP_IDLE_FLIP_PWR_OFF",
	"WAKEUP_SW_CLIENT",
	"WAKEUP_TIMER",
	"STALE",
}

func (m SnapReasonMask) String() string {
	if m == 0 {
		return "NONE"
	}

	names := make([]string, 0, len(snapReasonNames))
	for i, n := range snapReasonNames {
		if m&(1<<i) != 0 {
			names = append(names, n)
		}
	}

	return strings.Join(names, "|")
}

// Classify turns an idle-snap into reasons, given the state the controller
// is in. An idle flip after the point of no return of an entry, or while
// gated on hardware that cannot hold traffic off, is an error. A snap that
// reaches a controller which is no longer going to, or in, PwrOff is stale.
func (r *Registry) Classify(id CtrlID, snap IdleSnap) (SnapReasonMask, error) {
	c, err := r.ctrl(id)
	if err != nil {
		return 0, err
	}

	return classify(c, c.state.Load(), snap), nil
}

func classify(c *ctrlState, st State, snap IdleSnap) SnapReasonMask {
	var reasons SnapReasonMask

	flipped := !c.idleMask.busy(snap.Status).Empty()

	switch st {
	case StatePwrOn, StateDisallow, StateOff2On:
		return SnapStale
	case StateOn2Off:
		if flipped {
			reasons |= SnapErrIdleFlipPoweringDown
		}
	case StatePwrOff:
		if flipped && c.idleFlipWakeup {
			reasons |= SnapWakeupIdleFlipPwrOff
		} else if flipped {
			reasons |= SnapErrIdleFlipPwrOff
		}
	}

	if snap.Source&SnapSourceSWClient != 0 {
		reasons |= SnapWakeupSWClient
	}

	if snap.Source&SnapSourceTimer != 0 {
		reasons |= SnapWakeupTimer
	}

	if reasons == 0 {
		reasons = SnapErrUnknown
	}

	return reasons
}

// HandleIdleSnap classifies an idle-snap and acts on it. Errors take priority
// over wakeups: they latch the controller into a permanent IDLE_SNAP disallow
// and are reported to the owner. Otherwise the controller is woken. A stale
// snap is only counted.
func (r *Registry) HandleIdleSnap(id CtrlID, snap IdleSnap) error {
	c, err := r.ctrl(id)
	if err != nil {
		return err
	}

	state := c.state.Load()
	c.idleStatusCache = snap.Status
	reasons := classify(c, state, snap)
	c.idleSnapReasonMask = reasons

	c.stats.update(func(st *Stats) { st.IdleSnapCount++ })

	r.invokeHook(HookPosIdleSnap, IdleSnapRecord{
		Time:    r.now(),
		Ctrl:    c.id,
		State:   state,
		Reasons: reasons,
	})

	if reasons == SnapStale {
		r.logf(c, "stale idle-snap in %s ignored", state)
		c.stats.update(func(st *Stats) { st.StaleIdleSnapCount++ })

		return nil
	}

	if reasons&SnapErrMask != 0 {
		r.escalateIdleSnap(c, reasons)
		return nil
	}

	r.dispatch(c, EventWakeup, 0)

	return nil
}

func (r *Registry) escalateIdleSnap(c *ctrlState, reasons SnapReasonMask) {
	r.logf(c, "idle-snap error %s, disallowing permanently", reasons)

	c.idleSnapErr = true
	r.disallow(c, ReasonIdleSnap)

	for _, f := range r.faultRep {
		f.ReportIdleSnapFault(c.id, reasons)
	}
}

// IdleSnapReasons returns the classification of the last idle-snap of a
// controller. It must be called on the task.
func (r *Registry) IdleSnapReasons(id CtrlID) (SnapReasonMask, error) {
	c, err := r.ctrl(id)
	if err != nil {
		return 0, err
	}

	return c.idleSnapReasonMask, nil
}

// IsIdleSnapLatched returns true if an idle-snap error keeps the controller
// disallowed.
func (r *Registry) IsIdleSnapLatched(id CtrlID) bool {
	c, err := r.ctrl(id)

	return err == nil && c.idleSnapErr
}

// ClearIdleSnapError is the corrective action of the owner after an
// idle-snap error. It releases the latch and allows IDLE_SNAP again.
func (r *Registry) ClearIdleSnapError(id CtrlID) error {
	c, err := r.ctrl(id)
	if err != nil {
		return err
	}

	if !c.idleSnapErr {
		return nil
	}

	c.idleSnapErr = false
	c.idleSnapReasonMask = 0
	r.allow(c, ReasonIdleSnap)

	return nil
}
