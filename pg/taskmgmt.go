package pg

// Defaults of the thrashing policy.
const (
	B2BAbortThresholdDefault  = 5
	B2BWakeupThresholdDefault = 5
	MinResidentTimeDefaultUs  = 200
	PoweredUpTimeDefaultUs    = 5000
)

// ThrashingPolicy decides when a controller enters and exits gating so often
// that it starves the rest of the system.
type ThrashingPolicy struct {
	// B2BAbortThreshold is the number of back-to-back aborted entries that
	// disallows the controller.
	B2BAbortThreshold uint8

	// B2BWakeupThreshold is the number of back-to-back short residencies
	// that disallows the controller.
	B2BWakeupThreshold uint8

	// A residency shorter than MinResidentTimeUs counts as a back-to-back
	// wakeup.
	MinResidentTimeUs uint64

	// Staying powered for longer than PoweredUpTimeUs clears the
	// back-to-back wakeup count.
	PoweredUpTimeUs uint64
}

// DefaultThrashingPolicy returns the default policy.
func DefaultThrashingPolicy() ThrashingPolicy {
	return ThrashingPolicy{
		B2BAbortThreshold:  B2BAbortThresholdDefault,
		B2BWakeupThreshold: B2BWakeupThresholdDefault,
		MinResidentTimeUs:  MinResidentTimeDefaultUs,
		PoweredUpTimeUs:    PoweredUpTimeDefaultUs,
	}
}

// ThrashingStatus is a copy of the thrashing bookkeeping of a controller.
type ThrashingStatus struct {
	SleepPrevTimeUs      uint64
	SleepDeltaTimeUs     uint64
	PoweredUpPrevTimeUs  uint64
	PoweredUpDeltaTimeUs uint64
	B2BAbortCount        uint8
	B2BWakeupCount       uint8
	Disallowed           bool
}

func saturatingInc(v uint8) uint8 {
	if v == ^uint8(0) {
		return v
	}

	return v + 1
}

// onEntry records a successful entry.
func (p ThrashingPolicy) onEntry(t *taskMgmt, nowUs uint64) {
	t.sleepInfo.PrevTimeUs = nowUs
	t.b2bAbortCount = 0

	if t.poweredUpInfo.PrevTimeUs == 0 {
		return
	}

	t.poweredUpInfo.DeltaTimeUs = nowUs - t.poweredUpInfo.PrevTimeUs
	if t.poweredUpInfo.DeltaTimeUs > p.PoweredUpTimeUs {
		t.b2bWakeupCount = 0
	}
}

// onExit records leaving PwrOff. It returns true if the controller is
// thrashing.
func (p ThrashingPolicy) onExit(t *taskMgmt, nowUs uint64) bool {
	t.sleepInfo.DeltaTimeUs = nowUs - t.sleepInfo.PrevTimeUs
	t.poweredUpInfo.PrevTimeUs = nowUs

	if t.sleepInfo.DeltaTimeUs < p.MinResidentTimeUs {
		t.b2bWakeupCount = saturatingInc(t.b2bWakeupCount)
	} else {
		t.b2bWakeupCount = 0
	}

	return t.b2bWakeupCount >= p.B2BWakeupThreshold
}

// onAbort records an aborted entry. It returns true if the controller is
// thrashing.
func (p ThrashingPolicy) onAbort(t *taskMgmt) bool {
	t.b2bAbortCount = saturatingInc(t.b2bAbortCount)

	return t.b2bAbortCount >= p.B2BAbortThreshold
}

func (r *Registry) thrashingDetected(c *ctrlState) {
	if c.taskMgmt.bDisallow {
		return
	}

	r.logf(c, "thrashing, b2b aborts %d, b2b wakeups %d",
		c.taskMgmt.b2bAbortCount, c.taskMgmt.b2bWakeupCount)

	c.taskMgmt.bDisallow = true
	c.stats.update(func(st *Stats) { st.ThrashingCount++ })
	r.disallow(c, ReasonThrashing)
}

// RunIdleTask re-allows every controller that was disallowed for thrashing.
// It must only run when no other work is pending.
func (r *Registry) RunIdleTask() {
	for _, id := range r.ctrlIDs {
		c := r.ctrls[id]
		if !c.taskMgmt.bDisallow {
			continue
		}

		c.taskMgmt.bDisallow = false
		c.taskMgmt.b2bAbortCount = 0
		c.taskMgmt.b2bWakeupCount = 0
		r.allow(c, ReasonThrashing)
	}
}

// Thrashing returns the thrashing bookkeeping of a controller. It must be
// called on the task.
func (r *Registry) Thrashing(id CtrlID) (ThrashingStatus, error) {
	c, err := r.ctrl(id)
	if err != nil {
		return ThrashingStatus{}, err
	}

	t := c.taskMgmt

	return ThrashingStatus{
		SleepPrevTimeUs:      t.sleepInfo.PrevTimeUs,
		SleepDeltaTimeUs:     t.sleepInfo.DeltaTimeUs,
		PoweredUpPrevTimeUs:  t.poweredUpInfo.PrevTimeUs,
		PoweredUpDeltaTimeUs: t.poweredUpInfo.DeltaTimeUs,
		B2BAbortCount:        t.b2bAbortCount,
		B2BWakeupCount:       t.b2bWakeupCount,
		Disallowed:           t.bDisallow,
	}, nil
}
