package hwsim

import (
	"log"
	"math/rand"
	"reflect"
	"sync"

	"github.com/sarchlab/lpwr/pg"
	"github.com/sarchlab/lpwr/sim"
)

// Controllers is what the workload needs from the power-gating controllers.
type Controllers interface {
	Poster
	PostIdleSnap(id pg.CtrlID, snap pg.IdleSnap) error
	State(id pg.CtrlID) (pg.State, error)
	IdleThreshold(id pg.CtrlID) (uint64, error)
	Disallow(id pg.CtrlID, reasons pg.ReasonMask) (bool, error)
	Allow(id pg.CtrlID, reasons pg.ReasonMask) error
}

// EngineTraffic describes the traffic of the engine behind one controller.
// Busy and idle periods are exponentially distributed.
type EngineTraffic struct {
	Ctrl     pg.CtrlID
	IdleMask pg.IdleBanks
	MeanBusy sim.VTimeInSec
	MeanIdle sim.VTimeInSec
}

// WorkloadStats counts what the workload did.
type WorkloadStats struct {
	Bursts        uint64
	GatedArrivals uint64
	IdleSnaps     uint64
	PgOns         uint64
	ClientToggles uint64
}

type trafficState struct {
	EngineTraffic

	idleSeq    uint64
	clientHeld bool
}

type burstStartEvent struct {
	*sim.EventBase
	engine int
}

type burstEndEvent struct {
	*sim.EventBase
	engine int
}

type idleTimerEvent struct {
	*sim.EventBase
	engine int
	seq    uint64
}

type clientEvent struct {
	*sim.EventBase
}

// A Workload keeps the engines busy in bursts. A burst that arrives while the
// controller is gated raises an idle-snap. An engine that stays idle for the
// idle threshold of its controller raises PgOn.
type Workload struct {
	engine sim.Engine
	ctrls  Controllers
	idle   *IdleBanks
	rng    *rand.Rand

	traffic      []*trafficState
	end          sim.VTimeInSec
	swWakeRate   float64
	faultRate    float64
	clientPeriod sim.VTimeInSec

	lock  sync.Mutex
	stats WorkloadStats
}

// Stats returns a copy of the counters.
func (w *Workload) Stats() WorkloadStats {
	w.lock.Lock()
	defer w.lock.Unlock()

	return w.stats
}

// Start schedules the first idle period of every engine.
func (w *Workload) Start() {
	now := w.engine.CurrentTime()

	for i := range w.traffic {
		w.engine.Schedule(&burstEndEvent{
			EventBase: sim.NewEventBase(now, w),
			engine:    i,
		})
	}

	if w.clientPeriod > 0 && len(w.traffic) > 0 {
		w.engine.Schedule(&clientEvent{
			EventBase: sim.NewEventBase(now+w.clientPeriod, w),
		})
	}
}

// Handle processes the workload events.
func (w *Workload) Handle(e sim.Event) error {
	w.lock.Lock()
	defer w.lock.Unlock()

	switch e := e.(type) {
	case *burstStartEvent:
		w.startBurst(e)
	case *burstEndEvent:
		w.endBurst(e)
	case *idleTimerEvent:
		w.idleTimerExpired(e)
	case *clientEvent:
		w.toggleClient(e)
	default:
		log.Panicf("cannot handle event of type %s", reflect.TypeOf(e))
	}

	return nil
}

func (w *Workload) duration(mean sim.VTimeInSec) sim.VTimeInSec {
	return sim.VTimeInSec(w.rng.ExpFloat64()) * mean
}

func (w *Workload) startBurst(e *burstStartEvent) {
	now := e.Time()
	if now >= w.end {
		return
	}

	t := w.traffic[e.engine]
	t.idleSeq++
	w.idle.SetBusy(t.IdleMask)
	w.stats.Bursts++

	w.notifyController(t)

	w.engine.Schedule(&burstEndEvent{
		EventBase: sim.NewEventBase(now+w.duration(t.MeanBusy), w),
		engine:    e.engine,
	})
}

func (w *Workload) notifyController(t *trafficState) {
	st, err := w.ctrls.State(t.Ctrl)
	if err != nil {
		log.Panic(err)
	}

	switch st {
	case pg.StatePwrOff:
		w.stats.GatedArrivals++

		snap := pg.IdleSnap{Status: w.idle.Snapshot()}
		if w.rng.Float64() < w.swWakeRate {
			snap.Source |= pg.SnapSourceSWClient
		}

		if w.rng.Float64() < w.faultRate {
			snap = pg.IdleSnap{Status: allIdleBanks}
		}

		w.stats.IdleSnaps++
		if err := w.ctrls.PostIdleSnap(t.Ctrl, snap); err != nil {
			log.Panic(err)
		}
	case pg.StateOn2Off:
		w.stats.GatedArrivals++
		if err := w.ctrls.Post(t.Ctrl, pg.EventWakeup, 0); err != nil {
			log.Panic(err)
		}
	}
}

var allIdleBanks = pg.IdleBanks{^uint32(0), ^uint32(0), ^uint32(0)}

func (w *Workload) endBurst(e *burstEndEvent) {
	now := e.Time()
	t := w.traffic[e.engine]

	t.idleSeq++
	w.idle.SetIdle(t.IdleMask)

	thresholdUs, err := w.ctrls.IdleThreshold(t.Ctrl)
	if err != nil {
		log.Panic(err)
	}

	w.engine.Schedule(&idleTimerEvent{
		EventBase: sim.NewEventBase(now+sim.Microseconds(thresholdUs), w),
		engine:    e.engine,
		seq:       t.idleSeq,
	})

	w.engine.Schedule(&burstStartEvent{
		EventBase: sim.NewEventBase(now+w.duration(t.MeanIdle), w),
		engine:    e.engine,
	})
}

func (w *Workload) idleTimerExpired(e *idleTimerEvent) {
	t := w.traffic[e.engine]
	if e.seq != t.idleSeq {
		return
	}

	w.stats.PgOns++
	if err := w.ctrls.Post(t.Ctrl, pg.EventPgOn, 0); err != nil {
		log.Panic(err)
	}
}

// toggleClient lets a perf client disallow and allow a random controller.
func (w *Workload) toggleClient(e *clientEvent) {
	now := e.Time()
	if now >= w.end {
		for _, t := range w.traffic {
			w.releaseClient(t)
		}

		return
	}

	t := w.traffic[w.rng.Intn(len(w.traffic))]
	if t.clientHeld {
		w.releaseClient(t)
	} else {
		if _, err := w.ctrls.Disallow(t.Ctrl, pg.ReasonPerf); err != nil {
			log.Panic(err)
		}

		t.clientHeld = true
	}

	w.stats.ClientToggles++

	w.engine.Schedule(&clientEvent{
		EventBase: sim.NewEventBase(now+w.clientPeriod, w),
	})
}

func (w *Workload) releaseClient(t *trafficState) {
	if !t.clientHeld {
		return
	}

	if err := w.ctrls.Allow(t.Ctrl, pg.ReasonPerf); err != nil {
		log.Panic(err)
	}

	t.clientHeld = false
}
