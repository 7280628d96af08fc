package simulation

import (
	"fmt"
	"io"

	"github.com/sarchlab/lpwr/hwsim"
	"github.com/sarchlab/lpwr/pg"
	"github.com/sarchlab/lpwr/sim"
)

// SummaryTable is the table that keeps one row per controller at the end of
// a run.
const SummaryTable = "pg_summary"

// SummaryEntry is a row of SummaryTable.
type SummaryEntry struct {
	Ctrl          int
	Name          string
	Kind          string
	FinalState    string
	Entries       uint32
	Exits         uint32
	Aborts        uint32
	EntryFails    uint32
	ExitFails     uint32
	IdleSnaps     uint32
	StaleSnaps    uint32
	Thrashing     uint32
	Timeouts      uint64
	GatedFraction float64
}

// CtrlReport is the result of one controller.
type CtrlReport struct {
	ID            pg.CtrlID
	Name          string
	Kind          hwsim.Kind
	State         pg.State
	Stats         pg.Stats
	Sequencer     hwsim.SequencerStats
	GatedFraction float64
}

// Report is the result of a run.
type Report struct {
	ID       string
	SimTime  sim.VTimeInSec
	Ctrls    []CtrlReport
	Workload hwsim.WorkloadStats
	Faults   int
}

func (s *Simulation) report() *Report {
	now := s.engine.CurrentTime()

	r := &Report{
		ID:       s.id,
		SimTime:  now,
		Workload: s.workload.Stats(),
		Faults:   len(s.faults),
	}

	for i, id := range s.registry.CtrlIDs() {
		st, _ := s.registry.State(id)
		stats, _ := s.registry.Stats(id)

		r.Ctrls = append(r.Ctrls, CtrlReport{
			ID:            id,
			Name:          s.registry.Name(id),
			Kind:          s.sequencers[i].Kind(),
			State:         st,
			Stats:         stats,
			Sequencer:     s.sequencers[i].Stats(),
			GatedFraction: s.residency.GatedFraction(id, s.duration),
		})
	}

	return r
}

func (s *Simulation) recordSummary(r *Report) {
	s.dataRecorder.CreateTable(SummaryTable, SummaryEntry{})

	for _, c := range r.Ctrls {
		s.dataRecorder.InsertData(SummaryTable, SummaryEntry{
			Ctrl:          int(c.ID),
			Name:          c.Name,
			Kind:          c.Kind.String(),
			FinalState:    c.State.String(),
			Entries:       c.Stats.EntryCount,
			Exits:         c.Stats.ExitCount,
			Aborts:        c.Stats.AbortCount,
			EntryFails:    c.Stats.EntryFailCount,
			ExitFails:     c.Stats.ExitFailCount,
			IdleSnaps:     c.Stats.IdleSnapCount,
			StaleSnaps:    c.Stats.StaleIdleSnapCount,
			Thrashing:     c.Stats.ThrashingCount,
			Timeouts:      c.Sequencer.Timeouts,
			GatedFraction: c.GatedFraction,
		})
	}

	s.dataRecorder.Flush()
}

// Print writes the report as a table.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "run %s, %.6f s simulated, %d bursts, %d faults\n",
		r.ID, r.SimTime, r.Workload.Bursts, r.Faults)
	fmt.Fprintf(w, "%-3s %-8s %-4s %8s %8s %8s %8s %8s %7s\n",
		"ID", "NAME", "KIND", "ENTRIES", "EXITS", "ABORTS", "FAILS",
		"THRASH", "GATED")

	for _, c := range r.Ctrls {
		fails := c.Stats.EntryFailCount + c.Stats.ExitFailCount +
			c.Stats.ResetFailCount

		fmt.Fprintf(w, "%-3d %-8s %-4s %8d %8d %8d %8d %8d %6.1f%%\n",
			c.ID, c.Name, c.Kind, c.Stats.EntryCount, c.Stats.ExitCount,
			c.Stats.AbortCount, fails, c.Stats.ThrashingCount,
			c.GatedFraction*100)
	}
}
