package pg

// CtrlView is what other goroutines may see of a controller. It only
// contains the fields that are safe to read outside the task.
type CtrlView struct {
	ID               CtrlID `json:"id"`
	Name             string `json:"name"`
	State            string `json:"state"`
	DisallowReasons  string `json:"disallow_reasons"`
	DisallowMask     uint32 `json:"disallow_mask"`
	ExtDisallowCount int    `json:"ext_disallow_count"`
	EnabledMask      uint32 `json:"enabled_mask"`
	SupportMask      uint32 `json:"support_mask"`
	HoldoffMask      uint32 `json:"holdoff_mask"`
	Stats            Stats  `json:"stats"`
}

// View returns the view of a controller.
func (r *Registry) View(id CtrlID) (CtrlView, error) {
	c, err := r.ctrl(id)
	if err != nil {
		return CtrlView{}, err
	}

	reasons := c.reasons()

	return CtrlView{
		ID:               c.id,
		Name:             c.name,
		State:            c.state.Load().String(),
		DisallowReasons:  reasons.String(),
		DisallowMask:     uint32(reasons),
		ExtDisallowCount: int(c.extDisallowCnt.Load()),
		EnabledMask:      c.enabledMask.Load(),
		SupportMask:      c.supportMask,
		HoldoffMask:      c.holdoffMask,
		Stats:            c.stats.get(),
	}, nil
}
