package pg

import "fmt"

// RequestSubFeatures sets the sub-features a client wants enabled. A
// sub-feature is enabled only when every client wants it. The enabled mask can
// only change while the controller is fully powered, so a controller that is
// gated or in transition is disallowed with SFM and the change is applied once
// the disallow is acknowledged.
func (r *Registry) RequestSubFeatures(
	id CtrlID,
	client Client,
	mask uint32,
) error {
	c, err := r.ctrl(id)
	if err != nil {
		return err
	}

	if client >= ClientCount {
		return fmt.Errorf("%w: client %d", ErrNotSupported, client)
	}

	if mask&^c.supportMask != 0 {
		return fmt.Errorf("%w: 0x%x, supported 0x%x",
			ErrInvalidMask, mask, c.supportMask)
	}

	c.enabledMaskClient[client] = mask

	requested := c.supportMask
	for _, m := range c.enabledMaskClient {
		requested &= m
	}

	c.requestedMask = requested

	if requested == c.enabledMask.Load() {
		return nil
	}

	switch c.state.Load() {
	case StatePwrOn:
		c.enabledMask.Store(requested)
		r.post(c.id, EventCheckState, 0)
	case StateDisallow:
		c.enabledMask.Store(requested)
	default:
		r.disallow(c, ReasonSFM)
	}

	return nil
}

// applySubFeatures commits the requested sub-features after an SFM disallow
// has been acknowledged.
func (r *Registry) applySubFeatures(c *ctrlState) {
	if c.reasons()&ReasonSFM == 0 {
		return
	}

	c.enabledMask.Store(c.requestedMask)
	r.allow(c, ReasonSFM)
}

// ThresholdsUs are idle thresholds in microseconds.
type ThresholdsUs struct {
	IdleUs uint64
	PPUUs  uint64
}

// ThresholdLimits bound the idle threshold in microseconds.
type ThresholdLimits struct {
	MinUs uint64
	MaxUs uint64
}

// DefaultThresholdLimits returns limits that accept any threshold up to one
// second.
func DefaultThresholdLimits() ThresholdLimits {
	return ThresholdLimits{MinUs: 1, MaxUs: 1000000}
}

// Thresholds are idle thresholds in hardware-clock cycles.
type Thresholds struct {
	IdleCycles uint64
	MinCycles  uint64
	MaxCycles  uint64
	PPUCycles  uint64
}

func (r *Registry) toCycles(t ThresholdsUs) Thresholds {
	idle := t.IdleUs
	if idle < r.limits.MinUs {
		idle = r.limits.MinUs
	}

	if idle > r.limits.MaxUs {
		idle = r.limits.MaxUs
	}

	return Thresholds{
		IdleCycles: r.freq.CyclesInMicroseconds(idle),
		MinCycles:  r.freq.CyclesInMicroseconds(r.limits.MinUs),
		MaxCycles:  r.freq.CyclesInMicroseconds(r.limits.MaxUs),
		PPUCycles:  r.freq.CyclesInMicroseconds(t.PPUUs),
	}
}

// SetThresholds updates the idle thresholds of a controller. The hardware
// counters are in use while the controller is gated or in transition, so the
// update is staged until the controller is back in PwrOn.
func (r *Registry) SetThresholds(id CtrlID, t ThresholdsUs) error {
	c, err := r.ctrl(id)
	if err != nil {
		return err
	}

	cycles := r.toCycles(t)

	switch c.state.Load() {
	case StatePwrOn, StateDisallow:
		c.thresholds = cycles
	default:
		c.stagedThresholds = cycles
		c.statePending |= PendingThresholdUpdate
	}

	return nil
}

// Thresholds returns the active idle thresholds of a controller. It must be
// called on the task.
func (r *Registry) Thresholds(id CtrlID) (Thresholds, error) {
	c, err := r.ctrl(id)
	if err != nil {
		return Thresholds{}, err
	}

	return c.thresholds, nil
}

// IdleThreshold returns the active idle threshold of a controller as time.
func (r *Registry) IdleThreshold(id CtrlID) (uint64, error) {
	t, err := r.Thresholds(id)
	if err != nil {
		return 0, err
	}

	return r.freq.Duration(t.IdleCycles).Microseconds(), nil
}
