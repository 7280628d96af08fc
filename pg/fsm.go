package pg

import (
	"log"

	"github.com/sarchlab/lpwr/sim"
)

func (r *Registry) processEvent(c *ctrlState, eventID EventID, data uint32) {
	switch eventID {
	case EventCheckState:
		r.onCheckState(c, eventID)
	case EventPgOn, EventPgOnDone:
		r.onPgOn(c, eventID)
	case EventEngRst:
		r.onEngRst(c)
	case EventCtxRestore:
		r.onCtxRestore(c)
	case EventDenyPgOn:
		r.onDenyPgOn(c)
	case EventPoweredDown:
		r.onPoweredDown(c)
	case EventPoweringUp:
		r.onPoweringUp(c)
	case EventPoweredUp:
		r.onPoweredUp(c)
	case EventWakeup:
		r.onWakeup(c)
	case EventDisallow:
		r.onDisallow(c)
	case EventDisallowAck:
		r.onDisallowAck(c, data)
	case EventAllow:
		r.onAllow(c)
	default:
		log.Panicf("pg: unknown event %d", eventID)
	}
}

func (r *Registry) ignore(c *ctrlState, eventID EventID) {
	r.logf(c, "%s ignored in %s", eventID, c.state.Load())
}

// canEngage checks every condition for leaving PwrOn toward PwrOff.
func (r *Registry) canEngage(c *ctrlState) bool {
	return c.reasons() == 0 &&
		c.statePending == 0 &&
		c.enabledMask.Load() != 0 &&
		r.isIdle(c)
}

func (r *Registry) onCheckState(c *ctrlState, cause EventID) {
	if c.state.Load() != StatePwrOn {
		r.ignore(c, cause)
		return
	}

	if !r.canEngage(c) {
		return
	}

	r.setState(c, StateOn2Off, cause)
	c.entryStartUs = r.nowUs()
	c.entryOK = false

	if err := c.ops.Entry(); err != nil {
		r.logf(c, "entry failed: %v", err)
		c.stats.update(func(st *Stats) {
			st.EntryFailCount++
			st.AbortCount++
		})

		r.enterPwrOn(c, cause, false)
		r.countAbort(c)

		return
	}

	c.entryOK = true

	if !c.hwSequenced {
		r.post(c.id, EventPgOn, 0)
	}
}

func (r *Registry) onPgOn(c *ctrlState, eventID EventID) {
	switch c.state.Load() {
	case StatePwrOn:
		if eventID == EventPgOn {
			r.onCheckState(c, eventID)
			return
		}

		r.ignore(c, eventID)
	case StateOn2Off:
		if !c.entryOK {
			r.ignore(c, eventID)
			return
		}

		if c.reasons() != 0 || c.statePending&PendingDisallow != 0 {
			r.beginExit(c, eventID)
			return
		}

		r.completeEntry(c, eventID)
	default:
		r.ignore(c, eventID)
	}
}

func (r *Registry) completeEntry(c *ctrlState, cause EventID) {
	now := r.nowUs()

	r.setState(c, StatePwrOff, cause)
	c.entryOK = false
	c.residencySeq++

	c.stats.update(func(st *Stats) {
		st.EntryCount++
		st.AvgEntryLatencyUs = rollingAverage(
			st.AvgEntryLatencyUs, now-c.entryStartUs, st.EntryCount)
	})

	r.policy.onEntry(&c.taskMgmt, now)
	r.armAutoWakeup(c)
}

func (r *Registry) armAutoWakeup(c *ctrlState) {
	if c.autoWakeupIntervalMs == 0 {
		return
	}

	r.engine.Schedule(&autoWakeupEvent{
		EventBase: sim.NewEventBase(
			r.now()+sim.Milliseconds(uint64(c.autoWakeupIntervalMs)), r),
		ctrlID:    c.id,
		residency: c.residencySeq,
	})
}

func (r *Registry) handleAutoWakeup(e *autoWakeupEvent) {
	c, err := r.ctrl(e.ctrlID)
	if err != nil {
		return
	}

	if c.state.Load() != StatePwrOff || c.residencySeq != e.residency {
		return
	}

	_ = r.HandleIdleSnap(c.id, IdleSnap{
		Status: r.readIdleBanks(),
		Source: SnapSourceTimer,
	})
}

// abortEntry gives up an entry in progress because the engine is needed
// again. It counts toward back-to-back aborts.
func (r *Registry) abortEntry(c *ctrlState, cause EventID) {
	c.stats.update(func(st *Stats) { st.AbortCount++ })
	r.beginExit(c, cause)
	r.countAbort(c)
}

func (r *Registry) countAbort(c *ctrlState) {
	if r.policy.onAbort(&c.taskMgmt) {
		r.thrashingDetected(c)
	}
}

// beginExit moves the controller to Off2On and ungates it.
func (r *Registry) beginExit(c *ctrlState, cause EventID) {
	from := c.state.Load()
	now := r.nowUs()

	r.setState(c, StateOff2On, cause)
	c.entryOK = false
	c.exitStartUs = now

	if from == StatePwrOff {
		resident := now - c.taskMgmt.sleepInfo.PrevTimeUs
		c.stats.update(func(st *Stats) {
			st.LastResidentTimeUs = resident
			st.TotalResidentTimeUs += resident
		})

		if r.policy.onExit(&c.taskMgmt, now) {
			r.thrashingDetected(c)
		}
	}

	r.exit(c)
}

func (r *Registry) exit(c *ctrlState) {
	c.exitStuck = false

	err := c.ops.Exit()
	if err == nil {
		r.post(c.id, EventPoweredUp, 0)
		return
	}

	r.logf(c, "exit failed: %v", err)
	c.stats.update(func(st *Stats) {
		st.ExitFailCount++
		st.AbortCount++
	})
	r.countAbort(c)

	if err = c.ops.Reset(); err != nil {
		r.logf(c, "reset after failed exit failed: %v", err)
		c.stats.update(func(st *Stats) { st.ResetFailCount++ })
		c.exitStuck = true

		return
	}

	r.post(c.id, EventPoweredUp, 0)
}

func (r *Registry) onWakeup(c *ctrlState) {
	switch c.state.Load() {
	case StatePwrOff:
		r.beginExit(c, EventWakeup)
	case StateOn2Off:
		r.abortEntry(c, EventWakeup)
	case StateOff2On:
		if c.exitStuck {
			r.exit(c)
			return
		}

		c.statePending |= PendingWakeup
	default:
		// Already powered.
	}
}

func (r *Registry) onDenyPgOn(c *ctrlState) {
	if c.state.Load() != StateOn2Off {
		r.ignore(c, EventDenyPgOn)
		return
	}

	r.abortEntry(c, EventDenyPgOn)
}

func (r *Registry) onEngRst(c *ctrlState) {
	state := c.state.Load()

	if err := c.ops.Reset(); err != nil {
		r.logf(c, "reset failed: %v", err)
		c.stats.update(func(st *Stats) { st.ResetFailCount++ })
	}

	switch state {
	case StatePwrOff:
		r.beginExit(c, EventEngRst)
	case StateOn2Off:
		r.abortEntry(c, EventEngRst)
	default:
		// The engine is powered, resetting it is enough.
	}
}

func (r *Registry) onCtxRestore(c *ctrlState) {
	if c.state.Load() != StateOff2On {
		r.ignore(c, EventCtxRestore)
		return
	}

	restorer, ok := c.ops.(ContextRestorer)
	if !ok {
		return
	}

	if err := restorer.RestoreContext(); err != nil {
		r.logf(c, "context restore failed: %v", err)
	}
}

func (r *Registry) onPoweredDown(c *ctrlState) {
	if c.state.Load() != StatePwrOff {
		r.ignore(c, EventPoweredDown)
		return
	}

	now := r.nowUs()
	c.stats.update(func(st *Stats) { st.PoweredDownAtUs = now })
}

func (r *Registry) onPoweringUp(c *ctrlState) {
	if c.state.Load() != StatePwrOff {
		r.ignore(c, EventPoweringUp)
		return
	}

	r.beginExit(c, EventPoweringUp)
}

func (r *Registry) onPoweredUp(c *ctrlState) {
	if c.state.Load() != StateOff2On {
		r.ignore(c, EventPoweredUp)
		return
	}

	now := r.nowUs()
	c.stats.update(func(st *Stats) {
		st.ExitCount++
		st.AvgExitLatencyUs = rollingAverage(
			st.AvgExitLatencyUs, now-c.exitStartUs, st.ExitCount)
	})

	r.enterPwrOn(c, EventPoweredUp, true)
}

// enterPwrOn moves the controller to PwrOn and applies the pending actions.
// With rearm, a CheckState is queued if the controller may gate again.
func (r *Registry) enterPwrOn(c *ctrlState, cause EventID, rearm bool) {
	r.setState(c, StatePwrOn, cause)

	if c.statePending&PendingWakeup != 0 {
		c.statePending &^= PendingWakeup
		r.invokeHook(HookPosWakeupDone, c.id)
	}

	if c.statePending&PendingThresholdUpdate != 0 {
		c.statePending &^= PendingThresholdUpdate
		c.thresholds = c.stagedThresholds
	}

	if c.statePending&PendingDisallow != 0 {
		c.statePending &^= PendingDisallow

		if c.reasons() != 0 {
			r.setState(c, StateDisallow, EventDisallow)
			r.ackPending(c)

			return
		}
	}

	if rearm && c.reasons() == 0 {
		r.post(c.id, EventCheckState, 0)
	}
}

func (r *Registry) onDisallow(c *ctrlState) {
	if c.reasons() == 0 {
		r.logf(c, "stale disallow ignored")
		return
	}

	switch c.state.Load() {
	case StatePwrOn:
		r.setState(c, StateDisallow, EventDisallow)
		r.ackPending(c)
	case StateDisallow:
		r.ackPending(c)
	case StateOn2Off, StateOff2On:
		c.statePending |= PendingDisallow
	case StatePwrOff:
		c.statePending |= PendingDisallow
		r.beginExit(c, EventDisallow)
	}
}

func (r *Registry) onAllow(c *ctrlState) {
	if c.reasons() != 0 {
		r.logf(c, "stale allow ignored")
		return
	}

	switch c.state.Load() {
	case StateDisallow:
		r.enterPwrOn(c, EventAllow, true)
	case StatePwrOn:
		r.post(c.id, EventCheckState, 0)
	default:
		c.statePending &^= PendingDisallow
	}
}
