package simulation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/lpwr/hwsim"
)

// CtrlSpec describes one controller of a run.
type CtrlSpec struct {
	Name         string
	Kind         hwsim.Kind
	AutoWakeupMs uint32
}

// DefaultCtrlSpecs returns a chip with a GC6 graphics controller, two
// engine-idle video controllers and a PSI memory rail.
func DefaultCtrlSpecs() []CtrlSpec {
	return []CtrlSpec{
		{Name: "GR", Kind: hwsim.KindGC6},
		{Name: "NVD", Kind: hwsim.KindEI},
		{Name: "NVENC", Kind: hwsim.KindEI},
		{Name: "MS", Kind: hwsim.KindPSI},
	}
}

// ParseCtrlSpecs parses a comma separated list of controllers. Each
// controller is written as name:kind or name:kind:autoWakeupMs, for example
// "GR:gc6:5,NVD:ei".
func ParseCtrlSpecs(s string) ([]CtrlSpec, error) {
	var specs []CtrlSpec

	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		fields := strings.Split(item, ":")
		if len(fields) < 2 || len(fields) > 3 || fields[0] == "" {
			return nil, fmt.Errorf("simulation: bad controller %q", item)
		}

		kind, err := hwsim.ParseKind(fields[1])
		if err != nil {
			return nil, err
		}

		spec := CtrlSpec{Name: fields[0], Kind: kind}

		if len(fields) == 3 {
			ms, err := strconv.ParseUint(fields[2], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("simulation: bad auto wakeup in %q: %w",
					item, err)
			}

			spec.AutoWakeupMs = uint32(ms)
		}

		specs = append(specs, spec)
	}

	if len(specs) == 0 {
		return nil, fmt.Errorf("simulation: no controller in %q", s)
	}

	return specs, nil
}
