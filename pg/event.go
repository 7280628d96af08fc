package pg

import (
	"fmt"

	"github.com/sarchlab/lpwr/sim"
)

// EventID identifies what happened to a controller.
type EventID uint8

// The events that drive the controller state machine.
const (
	EventCheckState EventID = iota
	EventPgOn
	EventPgOnDone
	EventEngRst
	EventCtxRestore
	EventDenyPgOn
	EventPoweredDown
	EventPoweringUp
	EventPoweredUp
	EventWakeup
	EventDisallow
	EventDisallowAck
	EventAllow

	numEvents
)

var eventNames = [numEvents]string{
	"CHECK_STATE",
	"PG_ON",
	"PG_ON_DONE",
	"ENG_RST",
	"CTX_RESTORE",
	"DENY_PG_ON",
	"POWERED_DOWN",
	"POWERING_UP",
	"POWERED_UP",
	"WAKEUP",
	"DISALLOW",
	"DISALLOW_ACK",
	"ALLOW",
}

func (id EventID) String() string {
	if id >= numEvents {
		return fmt.Sprintf("EVENT(%d)", uint8(id))
	}

	return eventNames[id]
}

// ackSuperseded marks a DisallowAck whose reasons were allowed again before
// the controller reached the Disallow state.
const ackSuperseded = 1 << 31

// A LogicEvent is one unit of work for the state machine of a controller.
type LogicEvent struct {
	*sim.EventBase

	CtrlID  CtrlID
	EventID EventID
	Data    uint32
}

// NewLogicEvent creates a LogicEvent.
func NewLogicEvent(
	time sim.VTimeInSec,
	handler sim.Handler,
	ctrlID CtrlID,
	eventID EventID,
	data uint32,
) *LogicEvent {
	return &LogicEvent{
		EventBase: sim.NewEventBase(time, handler),
		CtrlID:    ctrlID,
		EventID:   eventID,
		Data:      data,
	}
}

func (e *LogicEvent) String() string {
	return fmt.Sprintf("pg ctrl %d %s data=0x%x", e.CtrlID, e.EventID, e.Data)
}

// An IdleSnapEvent carries an idle-snap interrupt to the task.
type IdleSnapEvent struct {
	*sim.EventBase

	CtrlID CtrlID
	Snap   IdleSnap
}

func (e *IdleSnapEvent) String() string {
	return fmt.Sprintf("pg ctrl %d IDLE_SNAP source=%s", e.CtrlID, e.Snap.Source)
}

// autoWakeupEvent fires when a controller has stayed in PwrOff for its
// auto-wakeup interval.
type autoWakeupEvent struct {
	*sim.EventBase

	ctrlID    CtrlID
	residency uint32
}

// requestEvent runs a function on the task on behalf of another goroutine.
type requestEvent struct {
	*sim.EventBase

	fn func()
}
