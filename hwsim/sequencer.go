package hwsim

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"reflect"
	"strings"
	"sync"

	"github.com/sarchlab/lpwr/pg"
	"github.com/sarchlab/lpwr/sim"
)

// ErrTimeout is returned by a sequencer step whose hardware did not respond
// within the polling budget.
var ErrTimeout = errors.New("hwsim: poll timeout")

// ErrFault is returned when a sequencer step fails for a reason other than a
// timeout.
var ErrFault = errors.New("hwsim: sequencer fault")

// Kind is the gating style of a sequencer.
type Kind uint8

// The sequencer kinds.
const (
	// KindEI gates an engine when it is idle. The controller completes the
	// entry itself.
	KindEI Kind = iota

	// KindGC6 gates the whole chip. The hardware reports the end of the
	// entry, then the power-down, and asks for a context restore on exit.
	KindGC6

	// KindPSI gates a power rail. The hardware may deny the entry if the
	// engine became busy in the meantime.
	KindPSI
)

func (k Kind) String() string {
	switch k {
	case KindEI:
		return "EI"
	case KindGC6:
		return "GC6"
	case KindPSI:
		return "PSI"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind converts a name such as "gc6" to a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "EI":
		return KindEI, nil
	case "GC6":
		return KindGC6, nil
	case "PSI":
		return KindPSI, nil
	default:
		return 0, fmt.Errorf("hwsim: unknown sequencer kind %q", name)
	}
}

// HWSequenced returns true if the hardware of this kind reports the end of
// the entry.
func (k Kind) HWSequenced() bool {
	return k != KindEI
}

// Poster sends events to the controllers.
type Poster interface {
	Post(id pg.CtrlID, eventID pg.EventID, data uint32) error
}

// SequencerStats counts what a sequencer did.
type SequencerStats struct {
	Entries  uint64
	Exits    uint64
	Resets   uint64
	Restores uint64
	Timeouts uint64
	Faults   uint64
	Denies   uint64
}

type entryDoneEvent struct {
	*sim.EventBase
	seq uint64
}

type poweredDownEvent struct {
	*sim.EventBase
	seq uint64
}

// A Sequencer is the simulated owner of the gating hardware of one
// controller. It implements pg.Powergatable and pg.ContextRestorer.
type Sequencer struct {
	name     string
	kind     Kind
	ctrl     pg.CtrlID
	engine   sim.Engine
	idle     *IdleBanks
	idleMask pg.IdleBanks
	rng      *rand.Rand

	entryLatency     sim.VTimeInSec
	powerDownLatency sim.VTimeInSec
	pollBudget       int
	maxPolls         int
	faultRate        float64

	lock     sync.Mutex
	poster   Poster
	entrySeq uint64
	stats    SequencerStats
}

// Name returns the name of the sequencer.
func (s *Sequencer) Name() string {
	return s.name
}

// Kind returns the gating style of the sequencer.
func (s *Sequencer) Kind() Kind {
	return s.kind
}

// SetPoster connects the sequencer to the controllers.
func (s *Sequencer) SetPoster(p Poster) {
	s.lock.Lock()
	s.poster = p
	s.lock.Unlock()
}

// Stats returns a copy of the counters.
func (s *Sequencer) Stats() SequencerStats {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.stats
}

// poll emulates busy-waiting on a hardware status bit. The bit comes up after
// a random number of polls and the wait gives up after the budget.
func (s *Sequencer) poll(what string) error {
	polls := 0
	if s.maxPolls > 0 {
		polls = s.rng.Intn(s.maxPolls + 1)
	}

	if polls > s.pollBudget {
		s.stats.Timeouts++
		return fmt.Errorf("%w: %s %s after %d polls",
			ErrTimeout, s.name, what, s.pollBudget)
	}

	if s.faultRate > 0 && s.rng.Float64() < s.faultRate {
		s.stats.Faults++
		return fmt.Errorf("%w: %s %s", ErrFault, s.name, what)
	}

	return nil
}

// Entry starts gating the engine.
func (s *Sequencer) Entry() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.poll("entry"); err != nil {
		return err
	}

	s.stats.Entries++
	s.entrySeq++

	if s.kind.HWSequenced() {
		s.engine.Schedule(&entryDoneEvent{
			EventBase: sim.NewEventBase(
				s.engine.CurrentTime()+s.entryLatency, s),
			seq: s.entrySeq,
		})
	}

	return nil
}

// Exit ungates the engine.
func (s *Sequencer) Exit() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.entrySeq++

	if err := s.poll("exit"); err != nil {
		return err
	}

	s.stats.Exits++

	if s.kind == KindGC6 {
		s.post(pg.EventCtxRestore)
	}

	return nil
}

// Reset brings the engine back to a known state.
func (s *Sequencer) Reset() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.entrySeq++

	if err := s.poll("reset"); err != nil {
		return err
	}

	s.stats.Resets++

	return nil
}

// RestoreContext reloads the engine context after a GC6 exit.
func (s *Sequencer) RestoreContext() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.stats.Restores++

	return nil
}

func (s *Sequencer) post(eventID pg.EventID) {
	if s.poster == nil {
		return
	}

	if err := s.poster.Post(s.ctrl, eventID, 0); err != nil {
		log.Printf("%s: cannot post %s: %v", s.name, eventID, err)
	}
}

// Handle completes the hardware steps that take time.
func (s *Sequencer) Handle(e sim.Event) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	switch e := e.(type) {
	case *entryDoneEvent:
		s.completeEntry(e)
	case *poweredDownEvent:
		if e.seq == s.entrySeq {
			s.post(pg.EventPoweredDown)
		}
	default:
		log.Panicf("cannot handle event of type %s", reflect.TypeOf(e))
	}

	return nil
}

func (s *Sequencer) completeEntry(e *entryDoneEvent) {
	if e.seq != s.entrySeq {
		return
	}

	if s.kind == KindPSI && !s.idle.IsIdle(s.idleMask) {
		s.stats.Denies++
		s.post(pg.EventDenyPgOn)

		return
	}

	s.post(pg.EventPgOnDone)

	if s.kind == KindGC6 {
		s.engine.Schedule(&poweredDownEvent{
			EventBase: sim.NewEventBase(
				e.Time()+s.powerDownLatency, s),
			seq: e.seq,
		})
	}
}
