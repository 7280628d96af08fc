package pg

// Powergatable is implemented by the subsystem that owns the hardware of a
// controller, such as a GC6, engine-idle or PSI sequencer. The state machine
// calls Entry when it starts gating, Exit when it ungates and Reset when the
// engine has to be reset. Implementations may poll hardware for a bounded
// time and report a timeout as an error. Errors are never fatal to the state
// machine.
type Powergatable interface {
	Entry() error
	Exit() error
	Reset() error
}

// A ContextRestorer is a Powergatable that restores engine context when the
// hardware asks for it during exit.
type ContextRestorer interface {
	RestoreContext() error
}

// IdleBankReader reads the raw hardware idle-status words. A set bit reports
// the signal as idle.
type IdleBankReader interface {
	ReadIdleBank(bank int) uint32
}

// IdleBankReaderFunc adapts a function into an IdleBankReader.
type IdleBankReaderFunc func(bank int) uint32

// ReadIdleBank calls f(bank).
func (f IdleBankReaderFunc) ReadIdleBank(bank int) uint32 {
	return f(bank)
}

// An AckListener is notified when the disallow reasons of a controller have
// been honored. Superseded is true when the reasons were allowed again before
// the controller reached the Disallow state.
type AckListener interface {
	DisallowAcked(id CtrlID, reasons ReasonMask, superseded bool)
}

// A FaultReporter is the owner of the controllers and is told when an
// idle-snap error permanently disallows a controller.
type FaultReporter interface {
	ReportIdleSnapFault(id CtrlID, reasons SnapReasonMask)
}
