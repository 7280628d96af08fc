package pg

import "fmt"

// DisallowExt takes a reference on the external disallow. The first
// reference disallows the controller with PMU_API.
func (r *Registry) DisallowExt(id CtrlID) error {
	c, err := r.ctrl(id)
	if err != nil {
		return err
	}

	if c.extDisallowCnt.Add(1) == 1 {
		r.disallow(c, ReasonPMUAPI)
	}

	return nil
}

// AllowExt drops a reference taken by DisallowExt. The last reference allows
// PMU_API again.
func (r *Registry) AllowExt(id CtrlID) error {
	c, err := r.ctrl(id)
	if err != nil {
		return err
	}

	if c.extDisallowCnt.Load() == 0 {
		return fmt.Errorf("%w: ctrl %d", ErrExtUnderflow, id)
	}

	if c.extDisallowCnt.Add(-1) == 0 {
		r.allow(c, ReasonPMUAPI)
	}

	return nil
}

// WakeExt wakes a gated controller, or aborts an entry in progress. A wake
// that arrives during exit is remembered until the controller is powered.
func (r *Registry) WakeExt(id CtrlID) error {
	c, err := r.ctrl(id)
	if err != nil {
		return err
	}

	r.dispatch(c, EventWakeup, 0)

	return nil
}

// RmDisallow is the disallow of the RM client.
func (r *Registry) RmDisallow(id CtrlID) (bool, error) {
	return r.Disallow(id, ReasonRM)
}

// RmAllow is the allow of the RM client.
func (r *Registry) RmAllow(id CtrlID) error {
	return r.Allow(id, ReasonRM)
}

// IsRmDisallowed returns true if RM currently disallows the controller.
func (r *Registry) IsRmDisallowed(id CtrlID) bool {
	c, err := r.ctrl(id)

	return err == nil && c.bRmDisallowed
}

// SelfDisallow lets a controller disallow itself, for example while
// reprogramming its own hardware.
func (r *Registry) SelfDisallow(id CtrlID) error {
	c, err := r.ctrl(id)
	if err != nil {
		return err
	}

	if c.bSelfDisallow {
		return nil
	}

	c.bSelfDisallow = true
	r.disallow(c, ReasonSelf)

	return nil
}

// SelfAllow undoes SelfDisallow.
func (r *Registry) SelfAllow(id CtrlID) error {
	c, err := r.ctrl(id)
	if err != nil {
		return err
	}

	if !c.bSelfDisallow {
		return nil
	}

	c.bSelfDisallow = false
	r.allow(c, ReasonSelf)

	return nil
}

// ParentDisallow disallows child on behalf of parent. The child stays
// disallowed with PARENT until every parent has allowed it.
func (r *Registry) ParentDisallow(child, parent CtrlID) error {
	c, err := r.ctrl(child)
	if err != nil {
		return err
	}

	if _, err = r.ctrl(parent); err != nil {
		return err
	}

	if child == parent {
		return fmt.Errorf("%w: ctrl %d cannot be its own parent",
			ErrNotSupported, child)
	}

	bit := uint32(1) << parent
	if c.parentDisallowMask&bit != 0 {
		return nil
	}

	first := c.parentDisallowMask == 0
	c.parentDisallowMask |= bit

	if first {
		r.disallow(c, ReasonParent)
	}

	return nil
}

// ParentAllow undoes ParentDisallow.
func (r *Registry) ParentAllow(child, parent CtrlID) error {
	c, err := r.ctrl(child)
	if err != nil {
		return err
	}

	if _, err = r.ctrl(parent); err != nil {
		return err
	}

	bit := uint32(1) << parent
	if c.parentDisallowMask&bit == 0 {
		return nil
	}

	c.parentDisallowMask &^= bit
	if c.parentDisallowMask == 0 {
		r.allow(c, ReasonParent)
	}

	return nil
}

// ParentMask returns the parents that currently disallow a controller.
func (r *Registry) ParentMask(id CtrlID) (uint32, error) {
	c, err := r.ctrl(id)
	if err != nil {
		return 0, err
	}

	return c.parentDisallowMask, nil
}

// HwReasons are the reasons hardware may set with HwDisallow.
const HwReasons = ReasonSVIntr | ReasonLpwrGrp | ReasonGRRG | ReasonDFPR

func checkHwReasons(reasons ReasonMask) error {
	if !reasons.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidReason, reasons)
	}

	if owned := reasons &^ HwReasons; owned != 0 {
		return fmt.Errorf("%w: %s", ErrReasonOwned, owned)
	}

	return nil
}

// HwDisallow disallows a controller on behalf of a hardware condition, such
// as an SV interrupt. Only the reasons that this call newly sets are tracked
// as hardware reasons, so that HwAllow never clears what software has set.
func (r *Registry) HwDisallow(id CtrlID, reasons ReasonMask) (bool, error) {
	c, err := r.ctrl(id)
	if err != nil {
		return false, err
	}

	if err := checkHwReasons(reasons); err != nil {
		return false, err
	}

	current := c.reasons()
	c.hwDisallowReasonMask &= current

	newBits := reasons &^ current
	if newBits == 0 {
		return false, nil
	}

	c.hwDisallowReasonMask |= newBits

	return r.disallow(c, newBits), nil
}

// HwAllow clears reasons set by HwDisallow.
func (r *Registry) HwAllow(id CtrlID, reasons ReasonMask) error {
	c, err := r.ctrl(id)
	if err != nil {
		return err
	}

	if err := checkHwReasons(reasons); err != nil {
		return err
	}

	c.hwDisallowReasonMask &= c.reasons()

	cleared := reasons & c.hwDisallowReasonMask
	if cleared == 0 {
		return nil
	}

	c.hwDisallowReasonMask &^= cleared
	r.allow(c, cleared)

	return nil
}
