package hwsim

import (
	"math/rand"

	"github.com/sarchlab/lpwr/sim"
)

// WorkloadBuilder can build Workloads.
type WorkloadBuilder struct {
	engine       sim.Engine
	ctrls        Controllers
	idle         *IdleBanks
	seed         int64
	end          sim.VTimeInSec
	swWakeRate   float64
	faultRate    float64
	clientPeriod sim.VTimeInSec
	traffic      []EngineTraffic
}

// MakeWorkloadBuilder returns a WorkloadBuilder for a 10 ms workload.
func MakeWorkloadBuilder() WorkloadBuilder {
	return WorkloadBuilder{
		seed: 1,
		end:  sim.Milliseconds(10),
	}
}

// WithEngine sets the engine the workload runs on.
func (b WorkloadBuilder) WithEngine(engine sim.Engine) WorkloadBuilder {
	b.engine = engine
	return b
}

// WithControllers sets the controllers that the workload notifies.
func (b WorkloadBuilder) WithControllers(ctrls Controllers) WorkloadBuilder {
	b.ctrls = ctrls
	return b
}

// WithIdleBanks sets the idle banks the engines flip.
func (b WorkloadBuilder) WithIdleBanks(idle *IdleBanks) WorkloadBuilder {
	b.idle = idle
	return b
}

// WithSeed sets the seed of the random source.
func (b WorkloadBuilder) WithSeed(seed int64) WorkloadBuilder {
	b.seed = seed
	return b
}

// WithDuration sets when the traffic stops.
func (b WorkloadBuilder) WithDuration(t sim.VTimeInSec) WorkloadBuilder {
	b.end = t
	return b
}

// WithSWWakeRate sets the probability that a burst that arrives while gated
// is also announced by a software client.
func (b WorkloadBuilder) WithSWWakeRate(rate float64) WorkloadBuilder {
	b.swWakeRate = rate
	return b
}

// WithFaultRate sets the probability that a burst that arrives while gated
// raises an idle-snap that cannot be explained.
func (b WorkloadBuilder) WithFaultRate(rate float64) WorkloadBuilder {
	b.faultRate = rate
	return b
}

// WithClientPeriod makes a perf client disallow or allow a random controller
// every period. Zero disables the client.
func (b WorkloadBuilder) WithClientPeriod(t sim.VTimeInSec) WorkloadBuilder {
	b.clientPeriod = t
	return b
}

// WithTraffic adds the traffic of one engine.
func (b WorkloadBuilder) WithTraffic(t EngineTraffic) WorkloadBuilder {
	traffic := make([]EngineTraffic, len(b.traffic), len(b.traffic)+1)
	copy(traffic, b.traffic)
	b.traffic = append(traffic, t)

	return b
}

func (b WorkloadBuilder) parametersMustBeValid() {
	if b.engine == nil {
		panic("engine is not set")
	}

	if b.ctrls == nil {
		panic("controllers are not set")
	}

	if b.idle == nil {
		panic("idle banks are not set")
	}

	for _, t := range b.traffic {
		if t.MeanBusy <= 0 || t.MeanIdle <= 0 {
			panic("busy and idle periods must be positive")
		}
	}
}

// Build creates the Workload.
func (b WorkloadBuilder) Build() *Workload {
	b.parametersMustBeValid()

	w := &Workload{
		engine:       b.engine,
		ctrls:        b.ctrls,
		idle:         b.idle,
		rng:          rand.New(rand.NewSource(b.seed)),
		end:          b.end,
		swWakeRate:   b.swWakeRate,
		faultRate:    b.faultRate,
		clientPeriod: b.clientPeriod,
	}

	for _, t := range b.traffic {
		w.traffic = append(w.traffic, &trafficState{EngineTraffic: t})
	}

	return w
}
