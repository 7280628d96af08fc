package pg

import (
	"strconv"
	"sync/atomic"
)

// MaxCtrls is the number of controller slots of a Registry.
const MaxCtrls = 32

// CtrlID identifies a power-gateable controller.
type CtrlID uint8

func (id CtrlID) String() string {
	return strconv.Itoa(int(id))
}

// Client is a kind of software client that can enable and disable
// sub-features of a controller.
type Client uint8

// The clients of the sub-feature enablement masks.
const (
	ClientRM Client = iota
	ClientOSM
	ClientPerf
	ClientMCLK
	ClientEINotification

	ClientCount
)

// CtrlConfig describes one controller at build time.
type CtrlConfig struct {
	ID   CtrlID
	Name string

	// Ops is the owner of the gating hardware.
	Ops Powergatable

	// IdleMask selects the idle signals the controller monitors.
	IdleMask IdleBanks

	// HoldoffMask lists the engines whose traffic is held off while the
	// controller is gated.
	HoldoffMask uint32

	// SupportMask lists the sub-features the controller supports. All of
	// them are enabled initially.
	SupportMask uint32

	// AutoWakeupIntervalMs wakes a gated controller after this many
	// milliseconds. Zero disables the timer.
	AutoWakeupIntervalMs uint32

	// IdleFlipWakeup tells that the hardware holds off traffic while gated,
	// so that an idle flip in PwrOff is a legitimate wake request.
	IdleFlipWakeup bool

	// HWSequenced controllers wait for the hardware to raise PgOn or
	// PgOnDone after a successful entry instead of posting it themselves.
	HWSequenced bool

	// Thresholds are the initial idle thresholds.
	Thresholds ThresholdsUs
}

type timeSample struct {
	PrevTimeUs  uint64
	DeltaTimeUs uint64
}

type taskMgmt struct {
	sleepInfo      timeSample
	poweredUpInfo  timeSample
	b2bAbortCount  uint8
	b2bWakeupCount uint8
	bDisallow      bool
}

// ctrlState is the record of one controller. It is only written by the task.
// state, disallowReasonMask and extDisallowCnt may also be read from other
// goroutines.
type ctrlState struct {
	id   CtrlID
	name string
	ops  Powergatable

	state        atomicState
	statePending PendingMask

	disallowReasonMask     atomic.Uint32
	disallowAckPendingMask ReasonMask
	disallowReentrancyMask ReasonMask
	parentDisallowMask     uint32
	hwDisallowReasonMask   ReasonMask

	idleMask        IdleBanks
	idleStatusCache IdleBanks

	holdoffMask       uint32
	supportMask       uint32
	enabledMask       atomic.Uint32
	enabledMaskClient [ClientCount]uint32
	requestedMask     uint32

	taskMgmt taskMgmt

	idleSnapReasonMask   SnapReasonMask
	idleSnapErr          bool
	idleFlipWakeup       bool
	autoWakeupIntervalMs uint32
	residencySeq         uint32

	hwSequenced      bool
	thresholds       Thresholds
	stagedThresholds Thresholds

	bRmDisallowed  bool
	bSelfDisallow  bool
	extDisallowCnt atomic.Int32

	entryOK      bool
	exitStuck    bool
	dispatching  bool
	entryStartUs uint64
	exitStartUs  uint64

	stats statsRecorder
}

func newCtrlState(cfg CtrlConfig) *ctrlState {
	c := &ctrlState{
		id:                   cfg.ID,
		name:                 cfg.Name,
		ops:                  cfg.Ops,
		idleMask:             cfg.IdleMask,
		holdoffMask:          cfg.HoldoffMask,
		supportMask:          cfg.SupportMask,
		requestedMask:        cfg.SupportMask,
		idleFlipWakeup:       cfg.IdleFlipWakeup,
		autoWakeupIntervalMs: cfg.AutoWakeupIntervalMs,
		hwSequenced:          cfg.HWSequenced,
	}

	if c.name == "" {
		c.name = "PG" + cfg.ID.String()
	}

	for i := range c.enabledMaskClient {
		c.enabledMaskClient[i] = cfg.SupportMask
	}

	c.enabledMask.Store(cfg.SupportMask)
	c.state.Store(StatePwrOn)

	return c
}

func (c *ctrlState) reasons() ReasonMask {
	return ReasonMask(c.disallowReasonMask.Load())
}

func (c *ctrlState) storeReasons(m ReasonMask) {
	c.disallowReasonMask.Store(uint32(m))
}
