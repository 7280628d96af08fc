package pg

import (
	"fmt"
	"math/bits"
	"strings"
)

// ReasonMask is a set of reasons that forbid a controller from being power
// gated.
type ReasonMask uint32

// The disallow reasons.
const (
	ReasonRM ReasonMask = 1 << iota
	ReasonPMUAPI
	ReasonParent
	ReasonSVIntr
	ReasonThrashing
	ReasonSFM
	ReasonThreshold
	ReasonIdleSnap
	ReasonPerf
	ReasonSelf
	ReasonLpwrGrp
	ReasonGRRG
	ReasonDFPR

	reasonEnd
)

// ReasonAll contains every known reason.
const ReasonAll = reasonEnd - 1

var reasonNames = [...]string{
	"RM",
	"PMU_API",
	"PARENT",
	"SV_INTR",
	"THRASHING",
	"SFM",
	"THRESHOLD",
	"IDLE_SNAP",
	"PERF",
	"SELF",
	"LPWR_GRP",
	"GR_RG",
	"DFPR",
}

// Has returns true if all the reasons in r are set in m.
func (m ReasonMask) Has(r ReasonMask) bool {
	return m&r == r
}

// Count returns the number of reasons in the mask.
func (m ReasonMask) Count() int {
	return bits.OnesCount32(uint32(m))
}

// Valid returns true if the mask is not empty and only contains known
// reasons.
func (m ReasonMask) Valid() bool {
	return m != 0 && m&^ReasonAll == 0
}

func (m ReasonMask) String() string {
	if m == 0 {
		return "NONE"
	}

	names := make([]string, 0, m.Count())
	for i, name := range reasonNames {
		if m&(1<<i) != 0 {
			names = append(names, name)
		}
	}

	if rest := m &^ ReasonAll; rest != 0 {
		names = append(names, fmt.Sprintf("0x%x", uint32(rest)))
	}

	return strings.Join(names, "|")
}

// ParseReason converts a reason name, such as "RM" or "THRASHING", to its
// mask.
func ParseReason(name string) (ReasonMask, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range reasonNames {
		if n == upper {
			return 1 << i, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidReason, name)
}
