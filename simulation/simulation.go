// Package simulation assembles a complete power-gating run: an engine, the
// controllers, their simulated hardware, a traffic workload, the tracers and
// the monitor.
package simulation

import (
	"log"
	"reflect"

	"github.com/sarchlab/lpwr/datarecording"
	"github.com/sarchlab/lpwr/hwsim"
	"github.com/sarchlab/lpwr/monitoring"
	"github.com/sarchlab/lpwr/pg"
	"github.com/sarchlab/lpwr/pgtrace"
	"github.com/sarchlab/lpwr/sim"
)

type teardownEvent struct {
	*sim.EventBase
}

type clearFaultEvent struct {
	*sim.EventBase
	ctrl pg.CtrlID
}

// A Simulation owns everything a run needs.
type Simulation struct {
	id     string
	engine *sim.SerialEngine
	logger *log.Logger

	registry   *pg.Registry
	idle       *hwsim.IdleBanks
	sequencers []*hwsim.Sequencer
	workload   *hwsim.Workload

	residency    *pgtrace.ResidencyTracer
	dataRecorder datarecording.DataRecorder
	dbTracer     *pgtrace.DBTracer
	monitor      *monitoring.Monitor
	monitorPort  int

	duration      sim.VTimeInSec
	faultRecovery sim.VTimeInSec
	faults        []Fault
}

// Fault is an idle-snap fault reported by the controllers.
type Fault struct {
	Time    sim.VTimeInSec
	Ctrl    pg.CtrlID
	Reasons pg.SnapReasonMask
}

// ID returns the unique ID of the run.
func (s *Simulation) ID() string {
	return s.id
}

// GetEngine returns the engine used in the simulation.
func (s *Simulation) GetEngine() sim.Engine {
	return s.engine
}

// GetRegistry returns the controllers.
func (s *Simulation) GetRegistry() *pg.Registry {
	return s.registry
}

// GetIdleBanks returns the simulated idle signals.
func (s *Simulation) GetIdleBanks() *hwsim.IdleBanks {
	return s.idle
}

// Sequencers returns the simulated hardware of the controllers, indexed by
// controller ID.
func (s *Simulation) Sequencers() []*hwsim.Sequencer {
	return s.sequencers
}

// GetDataRecorder returns the data recorder used in the simulation. It is nil
// if recording is disabled.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetDBTracer returns the tracer that records into the database.
func (s *Simulation) GetDBTracer() *pgtrace.DBTracer {
	return s.dbTracer
}

// GetResidencyTracer returns the tracer of the state residency.
func (s *Simulation) GetResidencyTracer() *pgtrace.ResidencyTracer {
	return s.residency
}

// GetMonitor returns the monitor used in the simulation.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorPort returns the port of the monitoring server, or 0 if there is no
// monitor.
func (s *Simulation) MonitorPort() int {
	return s.monitorPort
}

// Faults returns the idle-snap faults reported so far.
func (s *Simulation) Faults() []Fault {
	return append([]Fault(nil), s.faults...)
}

// ReportIdleSnapFault logs the fault and, if a recovery time is set, clears
// it after that time.
func (s *Simulation) ReportIdleSnapFault(id pg.CtrlID, reasons pg.SnapReasonMask) {
	now := s.engine.CurrentTime()

	s.logger.Printf("%.10f sim: idle-snap fault on %s(%d): %s",
		now, s.registry.Name(id), id, reasons)
	s.faults = append(s.faults, Fault{Time: now, Ctrl: id, Reasons: reasons})

	if s.faultRecovery == 0 || now >= s.duration {
		return
	}

	s.engine.Schedule(&clearFaultEvent{
		EventBase: sim.NewEventBase(now+s.faultRecovery, s),
		ctrl:      id,
	})
}

// Handle processes the events of the run itself.
func (s *Simulation) Handle(e sim.Event) error {
	switch e := e.(type) {
	case *teardownEvent:
		return s.teardown()
	case *clearFaultEvent:
		if e.Time() >= s.duration {
			return nil
		}

		return s.registry.ClearIdleSnapError(e.ctrl)
	default:
		log.Panicf("cannot handle event of type %s", reflect.TypeOf(e))
	}

	return nil
}

// teardown keeps every controller powered so that the timers of the
// controllers stop and the engine runs out of events.
func (s *Simulation) teardown() error {
	for _, id := range s.registry.CtrlIDs() {
		if _, err := s.registry.RmDisallow(id); err != nil {
			return err
		}
	}

	s.logger.Printf("%.10f sim: teardown", s.engine.CurrentTime())

	return nil
}

type progressHook struct {
	bar *monitoring.ProgressBar
}

func (h progressHook) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(sim.Event)
	if !ok {
		return
	}

	h.bar.SetFinished(evt.Time().Microseconds())
}

// Run runs the traffic for the configured duration, tears the controllers
// down and reports the result.
func (s *Simulation) Run() (*Report, error) {
	if s.monitor != nil {
		bar := s.monitor.CreateProgressBar(
			"Simulated µs", s.duration.Microseconds())
		s.engine.AcceptHook(progressHook{bar: bar})
		defer s.monitor.CompleteProgressBar(bar)
	}

	s.workload.Start()
	s.engine.Schedule(&teardownEvent{
		EventBase: sim.NewEventBase(s.duration, s),
	})

	if err := s.engine.Run(); err != nil {
		return nil, err
	}

	report := s.report()

	if s.dataRecorder != nil {
		s.recordSummary(report)
	}

	return report, nil
}

// Terminate closes the database.
func (s *Simulation) Terminate() {
	if s.dataRecorder == nil {
		return
	}

	if err := s.dataRecorder.Close(); err != nil {
		s.logger.Printf("sim: closing the database: %v", err)
	}
}
