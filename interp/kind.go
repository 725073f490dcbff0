package interp

import "fmt"

// GradientKind selects the scalar quantity a gradient model differentiates
// with respect to the input: the target class probability, its raw logit,
// or the loss against the target label. The three produce differently
// scaled maps; outputs are not calibrated for comparison across kinds.
type GradientKind int

const (
	GradientOfProbability GradientKind = iota
	GradientOfLogit
	GradientOfLoss
)

func (k GradientKind) String() string {
	switch k {
	case GradientOfProbability:
		return "probability"
	case GradientOfLogit:
		return "logit"
	case GradientOfLoss:
		return "loss"
	default:
		return "unknown"
	}
}

// ParseGradientKind maps a user-facing kind name to its constant.
func ParseGradientKind(s string) (GradientKind, error) {
	switch s {
	case "probability":
		return GradientOfProbability, nil
	case "logit":
		return GradientOfLogit, nil
	case "loss":
		return GradientOfLoss, nil
	default:
		return 0, fmt.Errorf("interp: unknown gradient kind %q", s)
	}
}
