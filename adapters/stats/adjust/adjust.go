package adjust

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gobogey/domain/core"
)

// Method is a multiple-comparisons correction procedure.
type Method string

const (
	None       Method = "none"
	Bonferroni Method = "bonferroni"
	Holm       Method = "holm"
	Hochberg   Method = "hochberg"
	Hommel     Method = "hommel"
	BH         Method = "BH" // Benjamini-Hochberg false discovery rate
	BY         Method = "BY" // Benjamini-Yekutieli, valid under dependence
)

// Methods lists the supported procedures in R's order.
var Methods = []Method{Holm, Hochberg, Hommel, Bonferroni, BH, BY, None}

// ParseMethod accepts the spellings R's p.adjust accepts ("fdr" is BH).
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return None, nil
	case "bonferroni":
		return Bonferroni, nil
	case "holm":
		return Holm, nil
	case "hochberg":
		return Hochberg, nil
	case "hommel":
		return Hommel, nil
	case "bh", "fdr", "benjamini-hochberg":
		return BH, nil
	case "by", "benjamini-yekutieli":
		return BY, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnknownMethod, s)
}

// Adjust corrects p for multiple comparisons. Nil entries are treated as
// missing: they come back nil and do not count toward the number of tests.
// The result has the same length and order as p.
func Adjust(method Method, p []*float64) ([]*float64, error) {
	out := make([]*float64, len(p))

	var present []float64
	var index []int
	for i, v := range p {
		if v == nil || math.IsNaN(*v) {
			continue
		}
		if *v < 0 || *v > 1 {
			return nil, fmt.Errorf("p-value %v at index %d outside [0, 1]", *v, i)
		}
		present = append(present, *v)
		index = append(index, i)
	}

	adjusted, err := AdjustValues(method, present)
	if err != nil {
		return nil, err
	}
	for k, i := range index {
		v := adjusted[k]
		out[i] = &v
	}
	return out, nil
}

// Valid reports whether m is one of Methods.
func (m Method) Valid() bool {
	for _, known := range Methods {
		if m == known {
			return true
		}
	}
	return false
}

// AdjustValues corrects a dense slice of p-values.
func AdjustValues(method Method, p []float64) ([]float64, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownMethod, method)
	}
	n := len(p)
	if n <= 1 {
		return append([]float64(nil), p...), nil
	}
	if method == Hommel && n == 2 {
		method = Hochberg
	}

	switch method {
	case None:
		return append([]float64(nil), p...), nil
	case Bonferroni:
		out := make([]float64, n)
		for i, v := range p {
			out[i] = math.Min(1, float64(n)*v)
		}
		return out, nil
	case Holm:
		return holm(p), nil
	case Hochberg:
		return stepUp(p, func(i int) float64 { return float64(n - i + 1) }), nil
	case BH:
		return stepUp(p, func(i int) float64 { return float64(n) / float64(i) }), nil
	case BY:
		q := 0.0
		for k := 1; k <= n; k++ {
			q += 1 / float64(k)
		}
		return stepUp(p, func(i int) float64 { return q * float64(n) / float64(i) }), nil
	}
	return hommel(p), nil
}

// holm is the step-down procedure: cumulative max of (n-i+1)*p(i) over
// ascending p.
func holm(p []float64) []float64 {
	n := len(p)
	order := ascending(p)
	out := make([]float64, n)
	running := 0.0
	for rank, idx := range order {
		running = math.Max(running, float64(n-rank)*p[idx])
		out[idx] = math.Min(1, running)
	}
	return out
}

// stepUp walks p from largest to smallest taking the cumulative min of
// factor(i)*p(i), where i is the 1-based ascending rank.
func stepUp(p []float64, factor func(i int) float64) []float64 {
	n := len(p)
	order := ascending(p)
	out := make([]float64, n)
	running := math.Inf(1)
	for k := n - 1; k >= 0; k-- {
		idx := order[k]
		running = math.Min(running, factor(k+1)*p[idx])
		out[idx] = math.Min(1, running)
	}
	return out
}

func hommel(p []float64) []float64 {
	n := len(p)
	order := ascending(p)
	sorted := make([]float64, n)
	for k, idx := range order {
		sorted[k] = p[idx]
	}

	start := math.Inf(1)
	for i, v := range sorted {
		start = math.Min(start, float64(n)*v/float64(i+1))
	}
	q := make([]float64, n)
	pa := make([]float64, n)
	for i := range q {
		q[i] = start
		pa[i] = start
	}

	for m := n - 1; m >= 2; m-- {
		// 0-based: i1 = [0, n-m], i2 = [n-m+1, n-1]
		q1 := math.Inf(1)
		for k := n - m + 1; k < n; k++ {
			q1 = math.Min(q1, float64(m)*sorted[k]/float64(k-(n-m+1)+2))
		}
		for i := 0; i <= n-m; i++ {
			q[i] = math.Min(float64(m)*sorted[i], q1)
		}
		for i := n - m + 1; i < n; i++ {
			q[i] = q[n-m]
		}
		for i := range pa {
			pa[i] = math.Max(pa[i], q[i])
		}
	}

	out := make([]float64, n)
	for k, idx := range order {
		out[idx] = math.Max(pa[k], sorted[k])
	}
	return out
}

// ascending returns indices of p sorted by value, ties in original order.
func ascending(p []float64) []int {
	idx := make([]int, len(p))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return p[idx[a]] < p[idx[b]] })
	return idx
}
