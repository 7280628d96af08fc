package pg

import (
	"fmt"
	"log"
	"reflect"

	"github.com/sarchlab/lpwr/sim"
)

// A Registry owns all the controllers of the low power task. All the methods
// that change a controller must run on the task, i.e., from an event handler,
// an idle handler or before the engine starts. Post, PostAfter, PostIdleSnap,
// Request and the query methods can be called from any goroutine.
type Registry struct {
	sim.HookableBase

	engine     sim.Engine
	logger     *log.Logger
	idleReader IdleBankReader
	freq       sim.Freq
	policy     ThrashingPolicy
	limits     ThresholdLimits

	ctrls    [MaxCtrls]*ctrlState
	ctrlIDs  []CtrlID
	ackLsns  []AckListener
	faultRep []FaultReporter
}

func (r *Registry) ctrl(id CtrlID) (*ctrlState, error) {
	if int(id) >= MaxCtrls || r.ctrls[id] == nil {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCtrl, id)
	}

	return r.ctrls[id], nil
}

// CtrlIDs returns the IDs of all the registered controllers in ascending
// order.
func (r *Registry) CtrlIDs() []CtrlID {
	ids := make([]CtrlID, len(r.ctrlIDs))
	copy(ids, r.ctrlIDs)

	return ids
}

// Name returns the name of a controller.
func (r *Registry) Name(id CtrlID) string {
	c, err := r.ctrl(id)
	if err != nil {
		return ""
	}

	return c.name
}

// Engine returns the engine that services the controllers.
func (r *Registry) Engine() sim.Engine {
	return r.engine
}

// RegisterAckListener adds a listener of disallow acknowledgements.
func (r *Registry) RegisterAckListener(l AckListener) {
	r.ackLsns = append(r.ackLsns, l)
}

// RegisterFaultReporter adds an owner that is told about idle-snap errors.
func (r *Registry) RegisterFaultReporter(f FaultReporter) {
	r.faultRep = append(r.faultRep, f)
}

func (r *Registry) now() sim.VTimeInSec {
	return r.engine.CurrentTime()
}

func (r *Registry) nowUs() uint64 {
	return r.now().Microseconds()
}

// Post queues an event for a controller. It is safe to call from interrupt
// context.
func (r *Registry) Post(id CtrlID, eventID EventID, data uint32) error {
	if err := r.checkPost(id, eventID); err != nil {
		return err
	}

	r.post(id, eventID, data)

	return nil
}

// PostAfter queues an event that happens after the given delay.
func (r *Registry) PostAfter(
	delay sim.VTimeInSec,
	id CtrlID,
	eventID EventID,
	data uint32,
) error {
	if err := r.checkPost(id, eventID); err != nil {
		return err
	}

	r.engine.ScheduleNow(func(now sim.VTimeInSec) sim.Event {
		return NewLogicEvent(now+delay, r, id, eventID, data)
	})

	return nil
}

func (r *Registry) checkPost(id CtrlID, eventID EventID) error {
	if _, err := r.ctrl(id); err != nil {
		return err
	}

	if eventID >= numEvents {
		return fmt.Errorf("%w: %s", ErrInvalidEvent, eventID)
	}

	return nil
}

// PostIdleSnap queues an idle-snap interrupt of a controller.
func (r *Registry) PostIdleSnap(id CtrlID, snap IdleSnap) error {
	if _, err := r.ctrl(id); err != nil {
		return err
	}

	r.engine.ScheduleNow(func(now sim.VTimeInSec) sim.Event {
		return &IdleSnapEvent{
			EventBase: sim.NewEventBase(now, r),
			CtrlID:    id,
			Snap:      snap,
		}
	})

	return nil
}

// Request runs fn on the task. It lets other goroutines use the Allow and
// Disallow API.
func (r *Registry) Request(fn func()) {
	r.engine.ScheduleNow(func(now sim.VTimeInSec) sim.Event {
		return &requestEvent{
			EventBase: sim.NewEventBase(now, r),
			fn:        fn,
		}
	})
}

func (r *Registry) post(id CtrlID, eventID EventID, data uint32) {
	r.engine.ScheduleNow(func(now sim.VTimeInSec) sim.Event {
		return NewLogicEvent(now, r, id, eventID, data)
	})
}

// Handle processes the events of the controllers.
func (r *Registry) Handle(e sim.Event) error {
	switch e := e.(type) {
	case *LogicEvent:
		return r.handleLogicEvent(e)
	case *IdleSnapEvent:
		return r.HandleIdleSnap(e.CtrlID, e.Snap)
	case *autoWakeupEvent:
		r.handleAutoWakeup(e)
	case *requestEvent:
		e.fn()
	default:
		log.Panicf("cannot handle event of type %s", reflect.TypeOf(e))
	}

	return nil
}

func (r *Registry) handleLogicEvent(e *LogicEvent) error {
	c, err := r.ctrl(e.CtrlID)
	if err != nil {
		return err
	}

	if e.EventID >= numEvents {
		return fmt.Errorf("%w: ctrl %d %s", ErrInvalidEvent, e.CtrlID, e.EventID)
	}

	r.dispatch(c, e.EventID, e.Data)

	return nil
}

// dispatch runs the state machine of a controller. A callback of the
// controller may call back into the Allow and Disallow API, so a dispatch that
// arrives while the controller is already dispatching is queued instead.
func (r *Registry) dispatch(c *ctrlState, eventID EventID, data uint32) {
	if eventID == EventDisallowAck && !c.dispatching {
		// An ack changes no state and its listeners may use the API directly.
		r.onDisallowAck(c, data)
		return
	}

	if c.dispatching {
		r.post(c.id, eventID, data)
		return
	}

	c.dispatching = true
	defer func() { c.dispatching = false }()

	r.processEvent(c, eventID, data)
}

// OnIdle is the idle task. It runs when the engine has no other work and is
// the only role that may re-allow a controller disallowed for thrashing.
func (r *Registry) OnIdle(_ sim.VTimeInSec) {
	r.RunIdleTask()
}

func (r *Registry) logf(c *ctrlState, format string, args ...any) {
	r.logger.Printf("%.10f pg %s(%d): %s",
		r.now(), c.name, c.id, fmt.Sprintf(format, args...))
}

// State returns the current state of a controller. It is a lock-free read.
func (r *Registry) State(id CtrlID) (State, error) {
	c, err := r.ctrl(id)
	if err != nil {
		return 0, err
	}

	return c.state.Load(), nil
}

// IsFullyPowered returns true if the controller is neither gated nor on the
// way into or out of gating.
func (r *Registry) IsFullyPowered(id CtrlID) bool {
	st, err := r.State(id)
	if err != nil {
		return false
	}

	return st == StatePwrOn || st == StateDisallow
}

// IsEngaged returns true if the controller is gated.
func (r *Registry) IsEngaged(id CtrlID) bool {
	st, err := r.State(id)

	return err == nil && st == StatePwrOff
}

// IsInTransition returns true if the controller is entering or exiting.
func (r *Registry) IsInTransition(id CtrlID) bool {
	st, err := r.State(id)

	return err == nil && (st == StateOn2Off || st == StateOff2On)
}

// DisallowReasons returns the reasons that keep a controller powered. It is a
// lock-free read.
func (r *Registry) DisallowReasons(id CtrlID) (ReasonMask, error) {
	c, err := r.ctrl(id)
	if err != nil {
		return 0, err
	}

	return c.reasons(), nil
}

// ExtDisallowCount returns the number of outstanding DisallowExt calls.
func (r *Registry) ExtDisallowCount(id CtrlID) (int, error) {
	c, err := r.ctrl(id)
	if err != nil {
		return 0, err
	}

	return int(c.extDisallowCnt.Load()), nil
}

// EnabledMask returns the sub-features currently enabled on a controller.
func (r *Registry) EnabledMask(id CtrlID) (uint32, error) {
	c, err := r.ctrl(id)
	if err != nil {
		return 0, err
	}

	return c.enabledMask.Load(), nil
}

// Stats returns a copy of the statistics of a controller.
func (r *Registry) Stats(id CtrlID) (Stats, error) {
	c, err := r.ctrl(id)
	if err != nil {
		return Stats{}, err
	}

	return c.stats.get(), nil
}

// Pending returns the deferred actions of a controller. It must be called on
// the task.
func (r *Registry) Pending(id CtrlID) (PendingMask, error) {
	c, err := r.ctrl(id)
	if err != nil {
		return 0, err
	}

	return c.statePending, nil
}

// AckPendingReasons returns the disallow reasons that have not been
// acknowledged yet. It must be called on the task.
func (r *Registry) AckPendingReasons(id CtrlID) (ReasonMask, error) {
	c, err := r.ctrl(id)
	if err != nil {
		return 0, err
	}

	return c.disallowAckPendingMask, nil
}

// ReentrantReasons returns the disallow reasons that are still being
// processed. It must be called on the task.
func (r *Registry) ReentrantReasons(id CtrlID) (ReasonMask, error) {
	c, err := r.ctrl(id)
	if err != nil {
		return 0, err
	}

	return c.disallowReentrancyMask, nil
}
