package hwsim

import (
	"math/rand"

	"github.com/sarchlab/lpwr/pg"
	"github.com/sarchlab/lpwr/sim"
)

// SequencerBuilder can build Sequencers.
type SequencerBuilder struct {
	kind             Kind
	engine           sim.Engine
	idle             *IdleBanks
	idleMask         pg.IdleBanks
	seed             int64
	entryLatency     sim.VTimeInSec
	powerDownLatency sim.VTimeInSec
	pollBudget       int
	maxPolls         int
	faultRate        float64
}

// MakeSequencerBuilder returns a SequencerBuilder for an engine-idle
// sequencer that never times out.
func MakeSequencerBuilder() SequencerBuilder {
	return SequencerBuilder{
		kind:             KindEI,
		seed:             1,
		entryLatency:     sim.Microseconds(10),
		powerDownLatency: sim.Microseconds(50),
		pollBudget:       100,
	}
}

// WithKind sets the gating style.
func (b SequencerBuilder) WithKind(kind Kind) SequencerBuilder {
	b.kind = kind
	return b
}

// WithEngine sets the engine that the hardware steps are scheduled on.
func (b SequencerBuilder) WithEngine(engine sim.Engine) SequencerBuilder {
	b.engine = engine
	return b
}

// WithIdleBanks sets the idle banks that a PSI sequencer checks.
func (b SequencerBuilder) WithIdleBanks(
	idle *IdleBanks,
	mask pg.IdleBanks,
) SequencerBuilder {
	b.idle = idle
	b.idleMask = mask

	return b
}

// WithSeed sets the seed of the random source.
func (b SequencerBuilder) WithSeed(seed int64) SequencerBuilder {
	b.seed = seed
	return b
}

// WithEntryLatency sets how long the hardware takes to finish an entry.
func (b SequencerBuilder) WithEntryLatency(t sim.VTimeInSec) SequencerBuilder {
	b.entryLatency = t
	return b
}

// WithPowerDownLatency sets how long after the entry a GC6 sequencer reports
// that the power is down.
func (b SequencerBuilder) WithPowerDownLatency(
	t sim.VTimeInSec,
) SequencerBuilder {
	b.powerDownLatency = t
	return b
}

// WithPolling sets the number of polls a step waits for the hardware and the
// largest number of polls the hardware may need. A maxPolls above the budget
// produces timeouts.
func (b SequencerBuilder) WithPolling(budget, maxPolls int) SequencerBuilder {
	b.pollBudget = budget
	b.maxPolls = maxPolls

	return b
}

// WithFaultRate sets the probability that a step fails.
func (b SequencerBuilder) WithFaultRate(rate float64) SequencerBuilder {
	b.faultRate = rate
	return b
}

func (b SequencerBuilder) parametersMustBeValid() {
	if b.engine == nil {
		panic("engine is not set")
	}

	if b.kind == KindPSI && b.idle == nil {
		panic("PSI sequencer needs idle banks")
	}

	if b.faultRate < 0 || b.faultRate > 1 {
		panic("fault rate must be within [0, 1]")
	}

	if b.pollBudget < 0 || b.maxPolls < 0 {
		panic("polls must not be negative")
	}
}

// Build creates a Sequencer for a controller.
func (b SequencerBuilder) Build(name string, ctrl pg.CtrlID) *Sequencer {
	b.parametersMustBeValid()

	return &Sequencer{
		name:             name,
		kind:             b.kind,
		ctrl:             ctrl,
		engine:           b.engine,
		idle:             b.idle,
		idleMask:         b.idleMask,
		rng:              rand.New(rand.NewSource(b.seed)),
		entryLatency:     b.entryLatency,
		powerDownLatency: b.powerDownLatency,
		pollBudget:       b.pollBudget,
		maxPolls:         b.maxPolls,
		faultRate:        b.faultRate,
	}
}
