package pg

import "github.com/sarchlab/lpwr/sim"

// HookPosTransition is triggered when a controller changes its state. The
// item is a Transition.
var HookPosTransition = &sim.HookPos{Name: "PgTransition"}

// HookPosDisallowAck is triggered when disallow reasons are acknowledged. The
// item is an Ack.
var HookPosDisallowAck = &sim.HookPos{Name: "PgDisallowAck"}

// HookPosIdleSnap is triggered after an idle-snap is classified. The item is
// an IdleSnapRecord.
var HookPosIdleSnap = &sim.HookPos{Name: "PgIdleSnap"}

// HookPosWakeupDone is triggered when a wake request that arrived during exit
// has been satisfied. The item is the CtrlID.
var HookPosWakeupDone = &sim.HookPos{Name: "PgWakeupDone"}

// A Transition records one state change.
type Transition struct {
	Time  sim.VTimeInSec
	Ctrl  CtrlID
	From  State
	To    State
	Cause EventID
}

// An Ack records a disallow acknowledgement.
type Ack struct {
	Time       sim.VTimeInSec
	Ctrl       CtrlID
	Reasons    ReasonMask
	Superseded bool
}

// An IdleSnapRecord records one classified idle-snap.
type IdleSnapRecord struct {
	Time    sim.VTimeInSec
	Ctrl    CtrlID
	State   State
	Reasons SnapReasonMask
}

// Fatal returns true if the idle-snap permanently disallowed the controller.
func (rec IdleSnapRecord) Fatal() bool {
	return rec.Reasons&SnapErrMask != 0
}

func (r *Registry) setState(c *ctrlState, to State, cause EventID) {
	from := c.state.Load()
	if from == to {
		return
	}

	c.state.Store(to)

	if r.NumHooks() == 0 {
		return
	}

	r.InvokeHook(sim.HookCtx{
		Domain: r,
		Pos:    HookPosTransition,
		Item: Transition{
			Time:  r.now(),
			Ctrl:  c.id,
			From:  from,
			To:    to,
			Cause: cause,
		},
	})
}

func (r *Registry) invokeHook(pos *sim.HookPos, item any) {
	if r.NumHooks() == 0 {
		return
	}

	r.InvokeHook(sim.HookCtx{
		Domain: r,
		Pos:    pos,
		Item:   item,
	})
}
