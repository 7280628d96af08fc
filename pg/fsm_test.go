package pg

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/lpwr/sim"
)

type restorableOps struct {
	*MockPowergatable
	*MockContextRestorer
}

var _ = Describe("State machine", func() {
	const (
		swCtrl CtrlID = 3
		hwCtrl CtrlID = 4
	)

	var (
		mockCtrl *gomock.Controller
		engine   *sim.SerialEngine
		idle     *fakeIdle
		ops      *MockPowergatable
		hwOps    *MockPowergatable
		rec      *pgRecorder
		r        *Registry
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = sim.NewSerialEngine()
		idle = newFakeIdle()
		ops = NewMockPowergatable(mockCtrl)
		hwOps = NewMockPowergatable(mockCtrl)
		rec = &pgRecorder{}

		r = MakeBuilder().
			WithEngine(engine).
			WithIdleBankReader(idle).
			WithCtrl(CtrlConfig{
				ID:          swCtrl,
				Name:        "GR",
				Ops:         ops,
				IdleMask:    IdleBanks{0x1},
				SupportMask: 0x1,
			}).
			WithCtrl(CtrlConfig{
				ID:          hwCtrl,
				Ops:         hwOps,
				IdleMask:    IdleBanks{0x2},
				SupportMask: 0x1,
				HWSequenced: true,
			}).
			Build()
		r.AcceptHook(rec)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	gate := func() {
		ops.EXPECT().Entry().Return(nil)
		Expect(r.Post(swCtrl, EventCheckState, 0)).To(Succeed())
		Expect(engine.Run()).To(Succeed())
		Expect(mustState(r, swCtrl)).To(Equal(StatePwrOff))
	}

	startHwEntry := func() {
		hwOps.EXPECT().Entry().Return(nil)
		Expect(r.Post(hwCtrl, EventCheckState, 0)).To(Succeed())
		Expect(engine.Run()).To(Succeed())
		Expect(mustState(r, hwCtrl)).To(Equal(StateOn2Off))
	}

	It("should start powered", func() {
		Expect(r.CtrlIDs()).To(Equal([]CtrlID{swCtrl, hwCtrl}))
		Expect(r.Name(swCtrl)).To(Equal("GR"))
		Expect(r.Name(hwCtrl)).To(Equal("PG4"))

		for _, id := range r.CtrlIDs() {
			Expect(mustState(r, id)).To(Equal(StatePwrOn))
			Expect(r.IsFullyPowered(id)).To(BeTrue())
		}
	})

	It("should gate an idle controller", func() {
		gate()

		Expect(r.IsEngaged(swCtrl)).To(BeTrue())
		Expect(mustStats(r, swCtrl).EntryCount).To(Equal(uint32(1)))
		Expect(rec.transitions).To(Equal([]Transition{
			{Ctrl: swCtrl, From: StatePwrOn, To: StateOn2Off,
				Cause: EventCheckState},
			{Ctrl: swCtrl, From: StateOn2Off, To: StatePwrOff,
				Cause: EventPgOn},
		}))
	})

	It("should not gate a busy controller", func() {
		idle.setBusy()

		Expect(r.Post(swCtrl, EventCheckState, 0)).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		Expect(mustState(r, swCtrl)).To(Equal(StatePwrOn))
		Expect(rec.transitions).To(BeEmpty())
	})

	It("should only look at the monitored idle signals", func() {
		idle.banks = IdleBanks{0x1, 0, 0}

		Expect(r.IsIdle(swCtrl)).To(BeTrue())
		Expect(r.IsIdle(hwCtrl)).To(BeFalse())
	})

	It("should wake a gated controller", func() {
		gate()
		idle.setBusy()

		ops.EXPECT().Exit().Return(nil)
		Expect(r.Post(swCtrl, EventWakeup, 0)).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		Expect(mustState(r, swCtrl)).To(Equal(StatePwrOn))
		Expect(mustStats(r, swCtrl).ExitCount).To(Equal(uint32(1)))
		Expect(rec.statesOf(swCtrl)).To(Equal([]State{
			StateOn2Off, StatePwrOff, StateOff2On, StatePwrOn,
		}))
	})

	It("should gate again after waking if idle", func() {
		gate()

		ops.EXPECT().Exit().Return(nil)
		ops.EXPECT().Entry().Return(nil)
		Expect(r.Post(swCtrl, EventWakeup, 0)).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		Expect(mustState(r, swCtrl)).To(Equal(StatePwrOff))
		Expect(mustStats(r, swCtrl).EntryCount).To(Equal(uint32(2)))
	})

	It("should stay powered if the entry fails", func() {
		ops.EXPECT().Entry().Return(errors.New("timeout"))

		Expect(r.Post(swCtrl, EventCheckState, 0)).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		stats := mustStats(r, swCtrl)
		Expect(mustState(r, swCtrl)).To(Equal(StatePwrOn))
		Expect(stats.EntryFailCount).To(Equal(uint32(1)))
		Expect(stats.AbortCount).To(Equal(uint32(1)))
		Expect(stats.EntryCount).To(BeZero())
		Expect(mustThrashing(r, swCtrl).B2BAbortCount).To(Equal(uint8(1)))
	})

	It("should treat PgOn in PwrOn as a check", func() {
		ops.EXPECT().Entry().Return(nil)

		Expect(r.Post(swCtrl, EventPgOn, 0)).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		Expect(mustState(r, swCtrl)).To(Equal(StatePwrOff))
	})

	Context("hardware sequenced", func() {
		It("should wait for the hardware to finish the entry", func() {
			startHwEntry()

			Expect(r.IsInTransition(hwCtrl)).To(BeTrue())
			Expect(r.Post(hwCtrl, EventPgOnDone, 0)).To(Succeed())
			Expect(engine.Run()).To(Succeed())

			Expect(mustState(r, hwCtrl)).To(Equal(StatePwrOff))
		})

		It("should abort when the hardware denies the entry", func() {
			startHwEntry()
			idle.setBusy()

			hwOps.EXPECT().Exit().Return(nil)
			Expect(r.Post(hwCtrl, EventDenyPgOn, 0)).To(Succeed())
			Expect(engine.Run()).To(Succeed())

			Expect(mustState(r, hwCtrl)).To(Equal(StatePwrOn))
			Expect(mustStats(r, hwCtrl).AbortCount).To(Equal(uint32(1)))
			Expect(mustThrashing(r, hwCtrl).B2BAbortCount).To(Equal(uint8(1)))
		})

		It("should abort when woken during the entry", func() {
			startHwEntry()
			idle.setBusy()

			hwOps.EXPECT().Exit().Return(nil)
			Expect(r.Post(hwCtrl, EventWakeup, 0)).To(Succeed())
			Expect(engine.Run()).To(Succeed())

			Expect(mustState(r, hwCtrl)).To(Equal(StatePwrOn))
			Expect(mustStats(r, hwCtrl).AbortCount).To(Equal(uint32(1)))
		})

		It("should back out of an entry that got disallowed", func() {
			startHwEntry()

			first, err := r.Disallow(hwCtrl, ReasonRM)
			Expect(err).NotTo(HaveOccurred())
			Expect(first).To(BeTrue())
			Expect(mustState(r, hwCtrl)).To(Equal(StateOn2Off))
			Expect(mustPending(r, hwCtrl)).To(Equal(PendingDisallow))

			hwOps.EXPECT().Exit().Return(nil)
			Expect(r.Post(hwCtrl, EventPgOnDone, 0)).To(Succeed())
			Expect(engine.Run()).To(Succeed())

			Expect(mustState(r, hwCtrl)).To(Equal(StateDisallow))
			Expect(mustStats(r, hwCtrl).AbortCount).To(BeZero())
			Expect(mustThrashing(r, hwCtrl).B2BAbortCount).To(BeZero())
		})
	})

	Context("exit", func() {
		It("should fall back to a reset if the exit fails", func() {
			gate()
			idle.setBusy()

			gomock.InOrder(
				ops.EXPECT().Exit().Return(errors.New("timeout")),
				ops.EXPECT().Reset().Return(nil),
			)
			Expect(r.Post(swCtrl, EventWakeup, 0)).To(Succeed())
			Expect(engine.Run()).To(Succeed())

			Expect(mustState(r, swCtrl)).To(Equal(StatePwrOn))
			Expect(mustStats(r, swCtrl).ExitFailCount).To(Equal(uint32(1)))
			Expect(mustStats(r, swCtrl).AbortCount).To(Equal(uint32(1)))
			Expect(mustThrashing(r, swCtrl).B2BAbortCount).To(Equal(uint8(1)))
		})

		It("should retry on the next wakeup if the reset fails too", func() {
			gate()
			idle.setBusy()

			ops.EXPECT().Exit().Return(errors.New("timeout"))
			ops.EXPECT().Reset().Return(errors.New("timeout"))
			Expect(r.Post(swCtrl, EventWakeup, 0)).To(Succeed())
			Expect(engine.Run()).To(Succeed())

			Expect(mustState(r, swCtrl)).To(Equal(StateOff2On))
			Expect(mustStats(r, swCtrl).ResetFailCount).To(Equal(uint32(1)))

			ops.EXPECT().Exit().Return(nil)
			Expect(r.Post(swCtrl, EventWakeup, 0)).To(Succeed())
			Expect(engine.Run()).To(Succeed())

			Expect(mustState(r, swCtrl)).To(Equal(StatePwrOn))
		})

		It("should remember a wakeup that arrives during the exit", func() {
			gate()
			idle.setBusy()

			ops.EXPECT().Exit().DoAndReturn(func() error {
				Expect(r.Post(swCtrl, EventWakeup, 0)).To(Succeed())
				return nil
			})
			Expect(r.WakeExt(swCtrl)).To(Succeed())
			Expect(engine.Run()).To(Succeed())

			Expect(mustState(r, swCtrl)).To(Equal(StatePwrOn))
			Expect(mustPending(r, swCtrl)).To(BeZero())
			Expect(rec.wakeupsDone).To(Equal([]CtrlID{swCtrl}))
		})

		It("should reset the engine on EngRst", func() {
			gate()
			idle.setBusy()

			gomock.InOrder(
				ops.EXPECT().Reset().Return(nil),
				ops.EXPECT().Exit().Return(nil),
			)
			Expect(r.Post(swCtrl, EventEngRst, 0)).To(Succeed())
			Expect(engine.Run()).To(Succeed())

			Expect(mustState(r, swCtrl)).To(Equal(StatePwrOn))
		})

		It("should ungate when the hardware powers up", func() {
			gate()
			idle.setBusy()

			Expect(r.PostAfter(sim.Microseconds(30), swCtrl,
				EventPoweredDown, 0)).To(Succeed())
			Expect(engine.Run()).To(Succeed())

			Expect(mustState(r, swCtrl)).To(Equal(StatePwrOff))
			Expect(mustStats(r, swCtrl).PoweredDownAtUs).To(Equal(uint64(30)))

			ops.EXPECT().Exit().Return(nil)
			Expect(r.Post(swCtrl, EventPoweringUp, 0)).To(Succeed())
			Expect(engine.Run()).To(Succeed())

			Expect(mustState(r, swCtrl)).To(Equal(StatePwrOn))
			Expect(mustStats(r, swCtrl).LastResidentTimeUs).
				To(Equal(uint64(30)))
		})

		It("should restore context when asked", func() {
			mock := NewMockPowergatable(mockCtrl)
			restorer := NewMockContextRestorer(mockCtrl)
			engine = sim.NewSerialEngine()
			r = MakeBuilder().
				WithEngine(engine).
				WithCtrl(CtrlConfig{
					ID:          6,
					Ops:         restorableOps{mock, restorer},
					SupportMask: 0x1,
				}).
				Build()

			mock.EXPECT().Entry().Return(nil)
			Expect(r.Post(6, EventCheckState, 0)).To(Succeed())
			Expect(engine.Run()).To(Succeed())

			gomock.InOrder(
				mock.EXPECT().Exit().DoAndReturn(func() error {
					Expect(r.Post(6, EventCtxRestore, 0)).To(Succeed())
					return nil
				}),
				restorer.EXPECT().RestoreContext().Return(nil),
				mock.EXPECT().Entry().Return(nil),
			)
			Expect(r.Post(6, EventWakeup, 0)).To(Succeed())
			Expect(engine.Run()).To(Succeed())

			Expect(mustState(r, 6)).To(Equal(StatePwrOff))
		})
	})

	It("should ignore events that do not apply to the state", func() {
		for _, id := range []EventID{
			EventPgOnDone, EventDenyPgOn, EventCtxRestore,
			EventPoweredDown, EventPoweringUp, EventPoweredUp, EventWakeup,
		} {
			Expect(r.Post(swCtrl, id, 0)).To(Succeed())
		}

		Expect(engine.Run()).To(Succeed())

		Expect(mustState(r, swCtrl)).To(Equal(StatePwrOn))
		Expect(rec.transitions).To(BeEmpty())
	})

	It("should reject events it does not know", func() {
		err := r.Handle(NewLogicEvent(0, r, swCtrl, EventID(99), 0))
		Expect(err).To(MatchError(ErrInvalidEvent))

		err = r.Handle(NewLogicEvent(0, r, 9, EventCheckState, 0))
		Expect(err).To(MatchError(ErrInvalidCtrl))

		Expect(r.Post(9, EventCheckState, 0)).To(MatchError(ErrInvalidCtrl))
		Expect(r.Post(swCtrl, numEvents, 0)).To(MatchError(ErrInvalidEvent))
		Expect(r.PostAfter(sim.Microseconds(10), swCtrl, EventID(99), 0)).
			To(MatchError(ErrInvalidEvent))

		Expect(engine.Run()).To(Succeed())
		Expect(mustState(r, swCtrl)).To(Equal(StatePwrOn))
		Expect(rec.transitions).To(BeEmpty())
	})

	It("should run requests on the task", func() {
		done := false
		r.Request(func() {
			_, err := r.Disallow(swCtrl, ReasonPerf)
			Expect(err).NotTo(HaveOccurred())
			done = true
		})

		Expect(engine.Run()).To(Succeed())

		Expect(done).To(BeTrue())
		Expect(mustState(r, swCtrl)).To(Equal(StateDisallow))
	})

	It("should wake up a controller when its timer fires", func() {
		auto := NewMockPowergatable(mockCtrl)
		engine = sim.NewSerialEngine()
		r = MakeBuilder().
			WithEngine(engine).
			WithIdleBankReader(idle).
			WithCtrl(CtrlConfig{
				ID:                   7,
				Ops:                  auto,
				IdleMask:             IdleBanks{0x1},
				SupportMask:          0x1,
				AutoWakeupIntervalMs: 2,
			}).
			Build()

		auto.EXPECT().Entry().Return(nil)
		auto.EXPECT().Exit().DoAndReturn(func() error {
			idle.setBusy()
			return nil
		})
		Expect(r.Post(7, EventCheckState, 0)).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		reasons, _ := r.IdleSnapReasons(7)
		Expect(mustState(r, 7)).To(Equal(StatePwrOn))
		Expect(reasons).To(Equal(SnapWakeupTimer))
		Expect(mustStats(r, 7).LastResidentTimeUs).To(Equal(uint64(2000)))
	})
})
