package pg

import "fmt"

// Disallow forbids a controller from being gated for the given reasons. It
// returns true if the controller had no reason before, i.e., this call is the
// one that takes the controller out of gating. Reasons that are still being
// processed by an earlier call are duplicates and are ignored.
func (r *Registry) Disallow(id CtrlID, reasons ReasonMask) (bool, error) {
	c, err := r.ctrl(id)
	if err != nil {
		return false, err
	}

	if !reasons.Valid() {
		return false, fmt.Errorf("%w: %s", ErrInvalidReason, reasons)
	}

	return r.disallow(c, reasons), nil
}

// Allow clears disallow reasons. THRASHING can only be cleared by the idle
// task and IDLE_SNAP stays set while an idle-snap error is latched.
func (r *Registry) Allow(id CtrlID, reasons ReasonMask) error {
	c, err := r.ctrl(id)
	if err != nil {
		return err
	}

	if !reasons.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidReason, reasons)
	}

	if reasons&ReasonThrashing != 0 {
		return fmt.Errorf("%w: %s", ErrReasonOwned, ReasonThrashing)
	}

	if reasons&ReasonIdleSnap != 0 && c.idleSnapErr {
		return fmt.Errorf("%w: ctrl %d", ErrPermanentDisallow, id)
	}

	r.allow(c, reasons)

	return nil
}

func (r *Registry) disallow(c *ctrlState, reasons ReasonMask) bool {
	if dup := reasons & c.disallowReentrancyMask; dup != 0 {
		r.logf(c, "duplicate disallow %s ignored", dup)
		c.stats.update(func(st *Stats) { st.DuplicateDisallowCount++ })

		reasons &^= dup
	}

	current := c.reasons()
	newBits := reasons &^ current
	if newBits == 0 {
		return false
	}

	c.storeReasons(current | newBits)
	c.disallowReentrancyMask |= newBits
	c.disallowAckPendingMask |= newBits

	if newBits&ReasonRM != 0 {
		c.bRmDisallowed = true
	}

	if current != 0 {
		if c.state.Load() == StateDisallow {
			r.ackPending(c)
		}

		return false
	}

	r.dispatch(c, EventDisallow, 0)

	return true
}

func (r *Registry) allow(c *ctrlState, reasons ReasonMask) {
	current := c.reasons()
	cleared := reasons & current
	if cleared == 0 {
		r.logf(c, "allow %s without disallow ignored", reasons)
		return
	}

	remaining := current &^ cleared
	c.storeReasons(remaining)
	c.disallowReentrancyMask &^= cleared

	if cleared&ReasonRM != 0 {
		c.bRmDisallowed = false
	}

	if outstanding := cleared & c.disallowAckPendingMask; outstanding != 0 {
		c.disallowAckPendingMask &^= outstanding
		r.post(c.id, EventDisallowAck, uint32(outstanding)|ackSuperseded)
	}

	if remaining != 0 {
		return
	}

	if c.state.Load() == StatePwrOn {
		r.post(c.id, EventCheckState, 0)
		return
	}

	r.dispatch(c, EventAllow, 0)
}

// ackPending acknowledges all the reasons waiting for the controller to reach
// the Disallow state.
func (r *Registry) ackPending(c *ctrlState) {
	if c.disallowAckPendingMask == 0 {
		return
	}

	reasons := c.disallowAckPendingMask
	c.disallowAckPendingMask = 0
	r.post(c.id, EventDisallowAck, uint32(reasons))
}

func (r *Registry) onDisallowAck(c *ctrlState, data uint32) {
	reasons := ReasonMask(data &^ ackSuperseded)
	superseded := data&ackSuperseded != 0

	// A reason disallowed again after this ack was posted is in flight again.
	c.disallowReentrancyMask &^= reasons &^ c.disallowAckPendingMask

	r.invokeHook(HookPosDisallowAck, Ack{
		Time:       r.now(),
		Ctrl:       c.id,
		Reasons:    reasons,
		Superseded: superseded,
	})

	for _, l := range r.ackLsns {
		l.DisallowAcked(c.id, reasons, superseded)
	}

	if !superseded && reasons&ReasonSFM != 0 {
		r.applySubFeatures(c)
	}
}
