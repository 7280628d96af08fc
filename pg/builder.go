package pg

import (
	"fmt"
	"io"
	"log"
	"sort"

	"github.com/sarchlab/lpwr/sim"
)

// Builder can build a Registry.
type Builder struct {
	engine     sim.Engine
	logger     *log.Logger
	idleReader IdleBankReader
	freq       sim.Freq
	policy     ThrashingPolicy
	limits     ThresholdLimits
	ctrls      []CtrlConfig
	idleTask   bool
}

// MakeBuilder returns a Builder with the default thrashing policy, a 405 MHz
// threshold clock and the idle task enabled.
func MakeBuilder() Builder {
	return Builder{
		freq:     405 * sim.MHz,
		policy:   DefaultThrashingPolicy(),
		limits:   DefaultThresholdLimits(),
		idleTask: true,
	}
}

// WithEngine sets the engine that services the controllers.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithLogger sets the logger for diagnostics.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

// WithIdleBankReader sets the source of the hardware idle signals.
func (b Builder) WithIdleBankReader(reader IdleBankReader) Builder {
	b.idleReader = reader
	return b
}

// WithFreq sets the clock the idle thresholds are counted in.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithThrashingPolicy sets the thrashing policy.
func (b Builder) WithThrashingPolicy(policy ThrashingPolicy) Builder {
	b.policy = policy
	return b
}

// WithThresholdLimits sets the bounds of the idle thresholds.
func (b Builder) WithThresholdLimits(limits ThresholdLimits) Builder {
	b.limits = limits
	return b
}

// WithCtrl adds a controller.
func (b Builder) WithCtrl(cfg CtrlConfig) Builder {
	ctrls := make([]CtrlConfig, len(b.ctrls), len(b.ctrls)+1)
	copy(ctrls, b.ctrls)
	b.ctrls = append(ctrls, cfg)

	return b
}

// WithoutIdleTask does not register the idle task with the engine.
// RunIdleTask then has to be called explicitly.
func (b Builder) WithoutIdleTask() Builder {
	b.idleTask = false
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.engine == nil {
		panic("engine is not set")
	}

	if b.freq <= 0 {
		panic("threshold clock frequency must be positive")
	}

	if b.limits.MinUs > b.limits.MaxUs {
		panic("minimum threshold is larger than the maximum")
	}

	seen := make(map[CtrlID]bool)
	for _, cfg := range b.ctrls {
		if int(cfg.ID) >= MaxCtrls {
			panic(fmt.Sprintf("controller id %d out of range", cfg.ID))
		}

		if seen[cfg.ID] {
			panic(fmt.Sprintf("controller %d added twice", cfg.ID))
		}

		if cfg.Ops == nil {
			panic(fmt.Sprintf("controller %d has no powergatable", cfg.ID))
		}

		seen[cfg.ID] = true
	}
}

// Build creates the Registry and registers it with the engine.
func (b Builder) Build() *Registry {
	b.parametersMustBeValid()

	r := &Registry{
		engine:     b.engine,
		logger:     b.logger,
		idleReader: b.idleReader,
		freq:       b.freq,
		policy:     b.policy,
		limits:     b.limits,
	}

	if r.logger == nil {
		r.logger = log.New(io.Discard, "", 0)
	}

	for _, cfg := range b.ctrls {
		c := newCtrlState(cfg)
		c.thresholds = r.toCycles(cfg.Thresholds)
		r.ctrls[cfg.ID] = c
		r.ctrlIDs = append(r.ctrlIDs, cfg.ID)
	}

	sort.Slice(r.ctrlIDs, func(i, j int) bool {
		return r.ctrlIDs[i] < r.ctrlIDs[j]
	})

	if b.idleTask {
		b.engine.RegisterIdleHandler(r)
	}

	return r
}
