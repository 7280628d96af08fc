package simulation

import (
	"fmt"
	"io"
	"log"

	"github.com/rs/xid"

	"github.com/sarchlab/lpwr/datarecording"
	"github.com/sarchlab/lpwr/hwsim"
	"github.com/sarchlab/lpwr/monitoring"
	"github.com/sarchlab/lpwr/pg"
	"github.com/sarchlab/lpwr/pgtrace"
	"github.com/sarchlab/lpwr/sim"
)

// Builder can be used to build a simulation.
type Builder struct {
	ctrls           []CtrlSpec
	seed            int64
	duration        sim.VTimeInSec
	meanBusy        sim.VTimeInSec
	meanIdle        sim.VTimeInSec
	idleThresholdUs uint64
	swWakeRate      float64
	snapFaultRate   float64
	seqFaultRate    float64
	clientPeriod    sim.VTimeInSec
	faultRecovery   sim.VTimeInSec
	logger          *log.Logger
	logEvents       bool

	monitorOn      bool
	monitorPort    int
	recordingOn    bool
	outputFileName string
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		ctrls:           DefaultCtrlSpecs(),
		seed:            1,
		duration:        sim.Milliseconds(10),
		meanBusy:        sim.Microseconds(50),
		meanIdle:        sim.Microseconds(300),
		idleThresholdUs: 20,
		faultRecovery:   sim.Milliseconds(1),
		monitorOn:       true,
		recordingOn:     true,
	}
}

// WithCtrls sets the controllers of the run.
func (b Builder) WithCtrls(ctrls []CtrlSpec) Builder {
	b.ctrls = append([]CtrlSpec(nil), ctrls...)
	return b
}

// WithSeed sets the seed of all the random sources.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// WithDuration sets how long the traffic runs.
func (b Builder) WithDuration(t sim.VTimeInSec) Builder {
	b.duration = t
	return b
}

// WithTraffic sets the mean busy and idle periods of every engine.
func (b Builder) WithTraffic(meanBusy, meanIdle sim.VTimeInSec) Builder {
	b.meanBusy = meanBusy
	b.meanIdle = meanIdle

	return b
}

// WithIdleThresholdUs sets the initial idle threshold of every controller.
func (b Builder) WithIdleThresholdUs(us uint64) Builder {
	b.idleThresholdUs = us
	return b
}

// WithSWWakeRate sets how often a gated arrival is also announced by a
// software client.
func (b Builder) WithSWWakeRate(rate float64) Builder {
	b.swWakeRate = rate
	return b
}

// WithSnapFaultRate sets how often a gated arrival raises an idle-snap that
// cannot be explained.
func (b Builder) WithSnapFaultRate(rate float64) Builder {
	b.snapFaultRate = rate
	return b
}

// WithSequencerFaultRate sets how often a sequencer step fails.
func (b Builder) WithSequencerFaultRate(rate float64) Builder {
	b.seqFaultRate = rate
	return b
}

// WithClientPeriod lets a perf client toggle a random controller every
// period.
func (b Builder) WithClientPeriod(t sim.VTimeInSec) Builder {
	b.clientPeriod = t
	return b
}

// WithFaultRecovery sets how long a controller stays disallowed after an
// idle-snap fault. Zero keeps the controller disallowed.
func (b Builder) WithFaultRecovery(t sim.VTimeInSec) Builder {
	b.faultRecovery = t
	return b
}

// WithLogger sets the logger of the run.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

// WithEventLogging prints every event into the logger.
func (b Builder) WithEventLogging() Builder {
	b.logEvents = true
	return b
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithoutRecording does not create a database.
func (b Builder) WithoutRecording() Builder {
	b.recordingOn = false
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.recordingOn && b.outputFileName != "" {
		panic("output file cannot be set when recording is disabled")
	}

	if len(b.ctrls) == 0 {
		panic("no controller")
	}

	if len(b.ctrls) > pg.MaxCtrls {
		panic(fmt.Sprintf("at most %d controllers are supported", pg.MaxCtrls))
	}

	if b.duration <= 0 {
		panic("duration must be positive")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		id:            xid.New().String(),
		engine:        sim.NewSerialEngine(),
		idle:          hwsim.NewIdleBanks(),
		residency:     pgtrace.NewResidencyTracer(),
		logger:        b.logger,
		duration:      b.duration,
		faultRecovery: b.faultRecovery,
	}

	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}

	if b.logEvents {
		s.engine.AcceptHook(sim.NewEventLogger(s.logger))
	}

	b.buildCtrls(s)
	b.buildWorkload(s)

	if b.recordingOn {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "pgsim_" + s.id
		}

		s.dataRecorder = datarecording.New(outputPath)
		s.dbTracer = pgtrace.NewDBTracer(s.engine, s.registry, s.dataRecorder)
		s.registry.AcceptHook(s.dbTracer)
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
		s.monitor.RegisterEngine(s.engine)
		s.monitor.RegisterRegistry(s.registry)
		s.monitor.RegisterResidencyTracer(s.residency)
		if s.dbTracer != nil {
			s.monitor.RegisterTracer(s.dbTracer)
		}
		s.monitorPort = s.monitor.StartServer()
	}

	return s
}

// idleMaskOf gives every controller its own idle signal.
func idleMaskOf(i int) pg.IdleBanks {
	var mask pg.IdleBanks
	mask[i/32] = 1 << (i % 32)

	return mask
}

func (b Builder) buildCtrls(s *Simulation) {
	rb := pg.MakeBuilder().
		WithEngine(s.engine).
		WithIdleBankReader(s.idle).
		WithLogger(s.logger)

	for i, spec := range b.ctrls {
		id := pg.CtrlID(i)

		seq := hwsim.MakeSequencerBuilder().
			WithKind(spec.Kind).
			WithEngine(s.engine).
			WithIdleBanks(s.idle, idleMaskOf(i)).
			WithSeed(b.seed + int64(i)).
			WithFaultRate(b.seqFaultRate).
			Build(spec.Name, id)
		s.sequencers = append(s.sequencers, seq)

		rb = rb.WithCtrl(pg.CtrlConfig{
			ID:                   id,
			Name:                 spec.Name,
			Ops:                  seq,
			IdleMask:             idleMaskOf(i),
			SupportMask:          0x1,
			AutoWakeupIntervalMs: spec.AutoWakeupMs,
			IdleFlipWakeup:       true,
			HWSequenced:          spec.Kind.HWSequenced(),
			Thresholds:           pg.ThresholdsUs{IdleUs: b.idleThresholdUs},
		})
	}

	s.registry = rb.Build()
	s.registry.AcceptHook(s.residency)
	s.registry.RegisterFaultReporter(s)

	for _, seq := range s.sequencers {
		seq.SetPoster(s.registry)
	}
}

func (b Builder) buildWorkload(s *Simulation) {
	wb := hwsim.MakeWorkloadBuilder().
		WithEngine(s.engine).
		WithControllers(s.registry).
		WithIdleBanks(s.idle).
		WithSeed(b.seed).
		WithDuration(b.duration).
		WithSWWakeRate(b.swWakeRate).
		WithFaultRate(b.snapFaultRate).
		WithClientPeriod(b.clientPeriod)

	for i := range b.ctrls {
		wb = wb.WithTraffic(hwsim.EngineTraffic{
			Ctrl:     pg.CtrlID(i),
			IdleMask: idleMaskOf(i),
			MeanBusy: b.meanBusy,
			MeanIdle: b.meanIdle,
		})
	}

	s.workload = wb.Build()
}
