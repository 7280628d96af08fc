package pg

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/lpwr/sim"
)

var _ = Describe("ThrashingPolicy", func() {
	var (
		p ThrashingPolicy
		t taskMgmt
	)

	BeforeEach(func() {
		p = DefaultThrashingPolicy()
		t = taskMgmt{}
	})

	It("should count back-to-back aborts", func() {
		for i := 0; i < B2BAbortThresholdDefault-1; i++ {
			Expect(p.onAbort(&t)).To(BeFalse())
		}

		Expect(p.onAbort(&t)).To(BeTrue())
		Expect(t.b2bAbortCount).To(Equal(uint8(B2BAbortThresholdDefault)))
	})

	It("should clear the abort count on a successful entry", func() {
		p.onAbort(&t)
		p.onAbort(&t)

		p.onEntry(&t, 100)

		Expect(t.b2bAbortCount).To(BeZero())
		Expect(t.sleepInfo.PrevTimeUs).To(Equal(uint64(100)))
	})

	It("should count short residencies", func() {
		p.onEntry(&t, 1000)

		Expect(p.onExit(&t, 1100)).To(BeFalse())
		Expect(t.b2bWakeupCount).To(Equal(uint8(1)))
		Expect(t.sleepInfo.DeltaTimeUs).To(Equal(uint64(100)))
		Expect(t.poweredUpInfo.PrevTimeUs).To(Equal(uint64(1100)))
	})

	It("should clear the wakeup count on a long residency", func() {
		t.b2bWakeupCount = 3
		p.onEntry(&t, 1000)

		Expect(p.onExit(&t, 1000+MinResidentTimeDefaultUs)).To(BeFalse())
		Expect(t.b2bWakeupCount).To(BeZero())
	})

	It("should clear the wakeup count after a long powered period", func() {
		t.b2bWakeupCount = 3
		t.poweredUpInfo.PrevTimeUs = 1000

		p.onEntry(&t, 1000+PoweredUpTimeDefaultUs+1)

		Expect(t.b2bWakeupCount).To(BeZero())
		Expect(t.poweredUpInfo.DeltaTimeUs).
			To(Equal(uint64(PoweredUpTimeDefaultUs + 1)))
	})

	It("should keep the wakeup count after a short powered period", func() {
		t.b2bWakeupCount = 3
		t.poweredUpInfo.PrevTimeUs = 1000

		p.onEntry(&t, 1000+PoweredUpTimeDefaultUs)

		Expect(t.b2bWakeupCount).To(Equal(uint8(3)))
	})

	It("should saturate the counters", func() {
		t.b2bAbortCount = 255

		Expect(p.onAbort(&t)).To(BeTrue())
		Expect(t.b2bAbortCount).To(Equal(uint8(255)))
	})
})

var _ = Describe("Thrashing", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *sim.SerialEngine
		ops      *MockPowergatable
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = sim.NewSerialEngine()
		ops = NewMockPowergatable(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	build := func(b Builder) *Registry {
		return b.
			WithEngine(engine).
			WithCtrl(CtrlConfig{ID: 2, Ops: ops, SupportMask: 0x1}).
			Build()
	}

	It("should disallow a controller whose entries keep failing", func() {
		r := build(MakeBuilder().WithoutIdleTask())

		ops.EXPECT().Entry().
			Return(errors.New("timeout")).
			Times(B2BAbortThresholdDefault)
		for i := 0; i < B2BAbortThresholdDefault; i++ {
			Expect(r.Post(2, EventCheckState, 0)).To(Succeed())
		}
		Expect(engine.Run()).To(Succeed())

		Expect(mustState(r, 2)).To(Equal(StateDisallow))
		Expect(mustReasons(r, 2)).To(Equal(ReasonThrashing))
		Expect(mustStats(r, 2).ThrashingCount).To(Equal(uint32(1)))
		Expect(mustThrashing(r, 2).Disallowed).To(BeTrue())
		Expect(r.Allow(2, ReasonThrashing)).To(MatchError(ErrReasonOwned))

		r.RunIdleTask()

		Expect(mustReasons(r, 2)).To(BeZero())
		Expect(mustState(r, 2)).To(Equal(StatePwrOn))
		Expect(mustThrashing(r, 2)).To(Equal(ThrashingStatus{}))
	})

	It("should not disallow after a successful entry", func() {
		r := build(MakeBuilder().WithoutIdleTask())

		gomock.InOrder(
			ops.EXPECT().Entry().Return(errors.New("timeout")).Times(3),
			ops.EXPECT().Entry().Return(nil),
		)
		for i := 0; i < 4; i++ {
			Expect(r.Post(2, EventCheckState, 0)).To(Succeed())
		}
		Expect(engine.Run()).To(Succeed())

		Expect(mustState(r, 2)).To(Equal(StatePwrOff))
		Expect(mustThrashing(r, 2).B2BAbortCount).To(BeZero())
	})

	It("should disallow a controller whose exits keep failing", func() {
		r := build(MakeBuilder().WithoutIdleTask())

		ops.EXPECT().Entry().Return(nil)
		Expect(r.Post(2, EventCheckState, 0)).To(Succeed())
		Expect(engine.Run()).To(Succeed())
		Expect(mustState(r, 2)).To(Equal(StatePwrOff))

		ops.EXPECT().Exit().
			Return(errors.New("timeout")).
			Times(B2BAbortThresholdDefault)
		ops.EXPECT().Reset().
			Return(errors.New("timeout")).
			Times(B2BAbortThresholdDefault)
		for i := 0; i < B2BAbortThresholdDefault; i++ {
			Expect(r.WakeExt(2)).To(Succeed())
			Expect(engine.Run()).To(Succeed())
		}

		Expect(mustState(r, 2)).To(Equal(StateOff2On))
		Expect(mustReasons(r, 2)).To(Equal(ReasonThrashing))
		Expect(mustThrashing(r, 2).Disallowed).To(BeTrue())
		Expect(mustThrashing(r, 2).B2BWakeupCount).To(Equal(uint8(1)))

		stats := mustStats(r, 2)
		Expect(stats.ExitFailCount).To(Equal(uint32(B2BAbortThresholdDefault)))
		Expect(stats.AbortCount).To(Equal(uint32(B2BAbortThresholdDefault)))
		Expect(stats.ThrashingCount).To(Equal(uint32(1)))
	})

	It("should disallow a controller that keeps waking up early", func() {
		r := build(MakeBuilder().WithoutIdleTask())

		ops.EXPECT().Entry().Return(nil).Times(B2BWakeupThresholdDefault)
		ops.EXPECT().Exit().Return(nil).Times(B2BWakeupThresholdDefault)

		Expect(r.Post(2, EventCheckState, 0)).To(Succeed())
		for i := 1; i <= B2BWakeupThresholdDefault; i++ {
			delay := sim.Microseconds(uint64(i * 100))
			Expect(r.PostAfter(delay, 2, EventWakeup, 0)).To(Succeed())
		}
		Expect(engine.Run()).To(Succeed())

		Expect(mustState(r, 2)).To(Equal(StateDisallow))
		Expect(mustReasons(r, 2)).To(Equal(ReasonThrashing))
		Expect(mustThrashing(r, 2).B2BWakeupCount).
			To(Equal(uint8(B2BWakeupThresholdDefault)))
	})

	It("should re-allow from the idle task", func() {
		r := build(MakeBuilder())

		gomock.InOrder(
			ops.EXPECT().Entry().
				Return(errors.New("timeout")).
				Times(B2BAbortThresholdDefault),
			ops.EXPECT().Entry().Return(nil),
		)
		for i := 0; i < B2BAbortThresholdDefault; i++ {
			Expect(r.Post(2, EventCheckState, 0)).To(Succeed())
		}
		Expect(engine.Run()).To(Succeed())

		Expect(mustState(r, 2)).To(Equal(StatePwrOff))
		Expect(mustReasons(r, 2)).To(BeZero())
		Expect(mustStats(r, 2).ThrashingCount).To(Equal(uint32(1)))
	})

	It("should use a custom policy", func() {
		policy := DefaultThrashingPolicy()
		policy.B2BAbortThreshold = 1
		r := build(MakeBuilder().
			WithoutIdleTask().
			WithThrashingPolicy(policy))

		ops.EXPECT().Entry().Return(errors.New("timeout"))
		Expect(r.Post(2, EventCheckState, 0)).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		Expect(mustReasons(r, 2)).To(Equal(ReasonThrashing))
	})
})
