package pg

// IdleBankCount is the number of hardware idle-status words.
const IdleBankCount = 3

// IdleBanks holds one word per idle-status bank.
type IdleBanks [IdleBankCount]uint32

// allIdle is returned when no hardware is attached.
var allIdle = IdleBanks{^uint32(0), ^uint32(0), ^uint32(0)}

// busy returns the signals in mask that status does not report as idle.
func (mask IdleBanks) busy(status IdleBanks) IdleBanks {
	var b IdleBanks
	for i := range mask {
		b[i] = mask[i] &^ status[i]
	}

	return b
}

// Empty returns true if no bit is set.
func (b IdleBanks) Empty() bool {
	for _, w := range b {
		if w != 0 {
			return false
		}
	}

	return true
}

func (r *Registry) readIdleBanks() IdleBanks {
	if r.idleReader == nil {
		return allIdle
	}

	var banks IdleBanks
	for i := range banks {
		banks[i] = r.idleReader.ReadIdleBank(i)
	}

	return banks
}

// IsIdle returns true if every idle signal the controller monitors is idle.
func (r *Registry) IsIdle(id CtrlID) (bool, error) {
	c, err := r.ctrl(id)
	if err != nil {
		return false, err
	}

	return r.isIdle(c), nil
}

func (r *Registry) isIdle(c *ctrlState) bool {
	return c.idleMask.busy(r.readIdleBanks()).Empty()
}

// Snapshot reads the idle banks and caches them for a later idle-snap
// classification.
func (r *Registry) Snapshot(id CtrlID) (IdleBanks, error) {
	c, err := r.ctrl(id)
	if err != nil {
		return IdleBanks{}, err
	}

	c.idleStatusCache = r.readIdleBanks()

	return c.idleStatusCache, nil
}
