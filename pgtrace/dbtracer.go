// Package pgtrace provides hooks that observe the power-gating controllers.
package pgtrace

import (
	"sync"

	"github.com/sarchlab/lpwr/datarecording"
	"github.com/sarchlab/lpwr/pg"
	"github.com/sarchlab/lpwr/sim"
)

// The tables that a DBTracer writes.
const (
	TransitionTable = "pg_transition"
	AckTable        = "pg_ack"
	IdleSnapTable   = "pg_idle_snap"
	WakeupDoneTable = "pg_wakeup_done"
)

// TransitionEntry is a row of TransitionTable.
type TransitionEntry struct {
	Time      float64
	Ctrl      int
	Name      string
	FromState string
	ToState   string
	Cause     string
}

// AckEntry is a row of AckTable.
type AckEntry struct {
	Time       float64
	Ctrl       int
	Name       string
	Reasons    string
	Mask       uint32
	Superseded bool
}

// IdleSnapEntry is a row of IdleSnapTable.
type IdleSnapEntry struct {
	Time    float64
	Ctrl    int
	Name    string
	State   string
	Reasons string
	Fatal   bool
}

// WakeupDoneEntry is a row of WakeupDoneTable.
type WakeupDoneEntry struct {
	Time float64
	Ctrl int
	Name string
}

// CtrlNamer tells the name of a controller.
type CtrlNamer interface {
	Name(id pg.CtrlID) string
}

// DBTracer is a hook that stores what happens to the controllers into a
// DataRecorder.
type DBTracer struct {
	mu         sync.Mutex
	timeTeller sim.TimeTeller
	namer      CtrlNamer
	backend    datarecording.DataRecorder

	isTracing bool
	count     int
}

// NewDBTracer creates a DBTracer and creates its tables in the backend. The
// tracer starts enabled.
func NewDBTracer(
	timeTeller sim.TimeTeller,
	namer CtrlNamer,
	backend datarecording.DataRecorder,
) *DBTracer {
	t := &DBTracer{
		timeTeller: timeTeller,
		namer:      namer,
		backend:    backend,
		isTracing:  true,
	}

	backend.CreateTable(TransitionTable, TransitionEntry{})
	backend.CreateTable(AckTable, AckEntry{})
	backend.CreateTable(IdleSnapTable, IdleSnapEntry{})
	backend.CreateTable(WakeupDoneTable, WakeupDoneEntry{})

	return t
}

// StartTracing resumes recording.
func (t *DBTracer) StartTracing() {
	t.mu.Lock()
	t.isTracing = true
	t.mu.Unlock()
}

// StopTracing pauses recording and flushes what has been recorded.
func (t *DBTracer) StopTracing() {
	t.mu.Lock()
	t.isTracing = false
	t.mu.Unlock()

	t.backend.Flush()
}

// IsTracing returns true if the tracer is recording.
func (t *DBTracer) IsTracing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.isTracing
}

// Count returns the number of rows recorded.
func (t *DBTracer) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.count
}

// Func records the item of a controller hook.
func (t *DBTracer) Func(ctx sim.HookCtx) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.isTracing {
		return
	}

	switch ctx.Pos {
	case pg.HookPosTransition:
		tr := ctx.Item.(pg.Transition)
		t.insert(TransitionTable, TransitionEntry{
			Time:      float64(tr.Time),
			Ctrl:      int(tr.Ctrl),
			Name:      t.namer.Name(tr.Ctrl),
			FromState: tr.From.String(),
			ToState:   tr.To.String(),
			Cause:     tr.Cause.String(),
		})
	case pg.HookPosDisallowAck:
		ack := ctx.Item.(pg.Ack)
		t.insert(AckTable, AckEntry{
			Time:       float64(ack.Time),
			Ctrl:       int(ack.Ctrl),
			Name:       t.namer.Name(ack.Ctrl),
			Reasons:    ack.Reasons.String(),
			Mask:       uint32(ack.Reasons),
			Superseded: ack.Superseded,
		})
	case pg.HookPosIdleSnap:
		rec := ctx.Item.(pg.IdleSnapRecord)
		t.insert(IdleSnapTable, IdleSnapEntry{
			Time:    float64(rec.Time),
			Ctrl:    int(rec.Ctrl),
			Name:    t.namer.Name(rec.Ctrl),
			State:   rec.State.String(),
			Reasons: rec.Reasons.String(),
			Fatal:   rec.Fatal(),
		})
	case pg.HookPosWakeupDone:
		id := ctx.Item.(pg.CtrlID)
		t.insert(WakeupDoneTable, WakeupDoneEntry{
			Time: float64(t.timeTeller.CurrentTime()),
			Ctrl: int(id),
			Name: t.namer.Name(id),
		})
	}
}

func (t *DBTracer) insert(table string, entry any) {
	t.backend.InsertData(table, entry)
	t.count++
}
