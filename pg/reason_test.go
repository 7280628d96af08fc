package pg

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ReasonMask", func() {
	It("should print reason names", func() {
		Expect(ReasonMask(0).String()).To(Equal("NONE"))
		Expect((ReasonRM | ReasonThrashing).String()).To(Equal("RM|THRASHING"))
		Expect((ReasonDFPR | 1<<20).String()).To(Equal("DFPR|0x100000"))
	})

	It("should parse reason names", func() {
		Expect(ParseReason("idle_snap")).To(Equal(ReasonIdleSnap))
		Expect(ParseReason(" GR_RG ")).To(Equal(ReasonGRRG))

		_, err := ParseReason("nope")
		Expect(err).To(MatchError(ErrInvalidReason))
	})

	It("should tell valid masks", func() {
		Expect(ReasonAll.Valid()).To(BeTrue())
		Expect(ReasonAll.Count()).To(Equal(13))
		Expect(ReasonMask(0).Valid()).To(BeFalse())
		Expect((ReasonAll + 1).Valid()).To(BeFalse())
		Expect((ReasonRM | ReasonSFM).Has(ReasonSFM)).To(BeTrue())
	})
})

var _ = Describe("State", func() {
	It("should be a single flag", func() {
		for _, st := range []State{
			StatePwrOn, StateDisallow, StateOn2Off, StatePwrOff, StateOff2On,
		} {
			Expect(st.valid()).To(BeTrue())
		}

		Expect((StatePwrOn | StatePwrOff).valid()).To(BeFalse())
		Expect(State(0).valid()).To(BeFalse())
		Expect(State(0).String()).To(Equal("UNKNOWN"))
	})

	It("should print pending actions", func() {
		Expect((PendingDisallow | PendingThresholdUpdate).String()).
			To(Equal("DISALLOW|AP_THRESHOLD_UPDATE"))
	})

	It("should print events", func() {
		Expect(EventDisallowAck.String()).To(Equal("DISALLOW_ACK"))
		Expect(EventID(50).String()).To(Equal("EVENT(50)"))
	})
})
