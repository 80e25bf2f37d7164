package runs

import (
	"fmt"
	"math"
	"strings"

	"gobogey/domain/core"

	"gonum.org/v1/gonum/stat/distuv"
)

// ZType selects the normal approximation used for the runs statistic.
type ZType string

const (
	ZStandard   ZType = "std"
	ZContinuity ZType = "cc"
)

// ParseZType accepts "std" or "cc"; empty means continuity corrected.
func ParseZType(s string) (ZType, error) {
	switch ZType(strings.ToLower(strings.TrimSpace(s))) {
	case ZContinuity, "":
		return ZContinuity, nil
	case ZStandard:
		return ZStandard, nil
	}
	return "", fmt.Errorf("unknown z statistic type %q (want std or cc)", s)
}

// Statistic is the outcome of one Wald-Wolfowitz runs test.
type Statistic struct {
	Runs      int
	N         int
	Mean      float64 // expected runs under randomness
	StdErr    float64
	Z         float64
	POneSided float64
	PTwoSided float64
}

// TwoCategory runs the classic two-category test.
//
//	muR = 2*n1*n2/n + 1
//	seR = sqrt(2*n1*n2*(2*n1*n2 - n) / (n^2 * (n-1)))
func TwoCategory(runs, n1, n2 int, zType ZType) (Statistic, error) {
	n := n1 + n2
	if n <= 1 {
		return Statistic{}, core.NewUndefinedStatisticError(runs, n, "n <= 1")
	}
	a, b, nf := float64(n1), float64(n2), float64(n)

	product := 2 * a * b
	variance := (product * (product - nf)) / (nf * nf * (nf - 1))
	mean := product/nf + 1

	return finish(runs, n, mean, variance, zType)
}

// ThreeCategory runs the k=3 extension. Zero counts are allowed; with one
// empty category it reduces to TwoCategory.
//
//	S   = n1^2 + n2^2 + n3^2
//	muR = (n*(n+1) - S) / n
//	seR = sqrt((S*(S + n*(n+1)) - 2*n*(n1^3+n2^3+n3^3) - n^3) / (n^2*(n-1)))
func ThreeCategory(runs, n1, n2, n3 int, zType ZType) (Statistic, error) {
	n := n1 + n2 + n3
	if n <= 1 {
		return Statistic{}, core.NewUndefinedStatisticError(runs, n, "n <= 1")
	}
	a, b, c, nf := float64(n1), float64(n2), float64(n3), float64(n)

	squares := a*a + b*b + c*c
	cubes := a*a*a + b*b*b + c*c*c
	variance := (squares*(squares+nf*(nf+1)) - 2*nf*cubes - nf*nf*nf) / (nf * nf * (nf - 1))
	mean := (nf*(nf+1) - squares) / nf

	return finish(runs, n, mean, variance, zType)
}

// Test dispatches on the number of distinct labels in enc.
func Test(enc Encoding, zType ZType) (Statistic, error) {
	switch len(enc.Categories) {
	case 0:
		return Statistic{}, core.ErrDegenerateSequence
	case 1:
		return Statistic{}, core.ErrInsufficientRuns
	case 2:
		return TwoCategory(enc.Runs, enc.Count(enc.Categories[0]), enc.Count(enc.Categories[1]), zType)
	case 3:
		return ThreeCategory(enc.Runs, enc.Count(enc.Categories[0]), enc.Count(enc.Categories[1]), enc.Count(enc.Categories[2]), zType)
	}
	return Statistic{}, core.NewUndefinedStatisticError(enc.Runs, enc.Length, fmt.Sprintf("%d categories not supported", len(enc.Categories)))
}

// PValues converts z to one- and two-sided p-values under the standard normal.
// The two-sided value is capped at 1.
func PValues(z float64) (oneSided, twoSided float64) {
	oneSided = distuv.UnitNormal.Survival(math.Abs(z))
	return oneSided, math.Min(1, 2*oneSided)
}

func finish(runs, n int, mean, variance float64, zType ZType) (Statistic, error) {
	if math.IsNaN(variance) || variance <= 0 {
		return Statistic{}, core.NewUndefinedStatisticError(runs, n, "zero variance")
	}
	stdErr := math.Sqrt(variance)

	r := float64(runs)
	var z float64
	switch zType {
	case ZStandard:
		z = (r - mean) / stdErr
	default:
		if r >= mean {
			z = (r - mean - 0.5) / stdErr
		} else {
			z = (r - mean + 0.5) / stdErr
		}
	}
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return Statistic{}, core.NewUndefinedStatisticError(runs, n, "non-finite z")
	}

	one, two := PValues(z)
	return Statistic{
		Runs:      runs,
		N:         n,
		Mean:      mean,
		StdErr:    stdErr,
		Z:         z,
		POneSided: one,
		PTwoSided: two,
	}, nil
}
