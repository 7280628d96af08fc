package pgtrace

import (
	"sync"

	"github.com/sarchlab/lpwr/pg"
	"github.com/sarchlab/lpwr/sim"
)

type residency struct {
	state   pg.State
	since   sim.VTimeInSec
	inState map[pg.State]sim.VTimeInSec
	entries int
}

// ResidencyTracer accumulates how long each controller stays in each state.
// Controllers it has not seen a transition of are taken as powered since
// time 0.
type ResidencyTracer struct {
	mu   sync.Mutex
	ctrl map[pg.CtrlID]*residency
}

// NewResidencyTracer creates a ResidencyTracer.
func NewResidencyTracer() *ResidencyTracer {
	return &ResidencyTracer{
		ctrl: make(map[pg.CtrlID]*residency),
	}
}

func (t *ResidencyTracer) get(id pg.CtrlID) *residency {
	r, ok := t.ctrl[id]
	if !ok {
		r = &residency{
			state:   pg.StatePwrOn,
			inState: make(map[pg.State]sim.VTimeInSec),
		}
		t.ctrl[id] = r
	}

	return r
}

// Func accounts for one transition.
func (t *ResidencyTracer) Func(ctx sim.HookCtx) {
	if ctx.Pos != pg.HookPosTransition {
		return
	}

	tr := ctx.Item.(pg.Transition)

	t.mu.Lock()
	defer t.mu.Unlock()

	r := t.get(tr.Ctrl)
	r.inState[r.state] += tr.Time - r.since
	r.state = tr.To
	r.since = tr.Time

	if tr.To == pg.StatePwrOff {
		r.entries++
	}
}

// Residency returns the time a controller has spent in each state up to now.
func (t *ResidencyTracer) Residency(
	id pg.CtrlID,
	now sim.VTimeInSec,
) map[pg.State]sim.VTimeInSec {
	t.mu.Lock()
	defer t.mu.Unlock()

	r := t.get(id)

	out := make(map[pg.State]sim.VTimeInSec, len(r.inState)+1)
	for st, d := range r.inState {
		out[st] = d
	}

	if now > r.since {
		out[r.state] += now - r.since
	}

	return out
}

// GatedFraction returns the share of time up to now that a controller spent
// in PwrOff.
func (t *ResidencyTracer) GatedFraction(id pg.CtrlID, now sim.VTimeInSec) float64 {
	if now <= 0 {
		return 0
	}

	res := t.Residency(id, now)

	return float64(res[pg.StatePwrOff] / now)
}

// Entries returns how many times a controller reached PwrOff.
func (t *ResidencyTracer) Entries(id pg.CtrlID) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.get(id).entries
}
