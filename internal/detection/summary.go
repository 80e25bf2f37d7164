package detection

import (
	"fmt"
	"sort"
	"strings"

	"gobogey/domain/bogey"

	"github.com/montanaflynn/stats"
)

// Distribution summarizes one numeric column of a batch.
type Distribution struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"q25"`
	Median float64 `json:"median"`
	Q75    float64 `json:"q75"`
	Max    float64 `json:"max"`
}

// Summary is the batch-level overview printed after a run.
type Summary struct {
	Pairs               int                 `json:"pairs"`
	ByState             map[bogey.State]int `json:"by_state"`
	SignificantRaw      int                 `json:"significant_raw"`
	SignificantAdjusted int                 `json:"significant_adjusted"`
	MatchesPerPair      Distribution        `json:"matches_per_pair"`
	ZStep1              Distribution        `json:"z_step1"`
	ZStep2              Distribution        `json:"z_step2"`
	// Bogeys lists complete pairs whose adjusted step 2 p-value is below alpha.
	Bogeys []*bogey.Record `json:"-"`
}

// Summarize computes batch statistics at significance level alpha.
func Summarize(b *Batch, alpha float64) (Summary, error) {
	s := Summary{Pairs: len(b.Records), ByState: make(map[bogey.State]int)}

	var matches, z1, z2 []float64
	for _, r := range b.Records {
		s.ByState[r.State]++
		matches = append(matches, float64(r.Matches()))
		if r.Step1.Z != nil {
			z1 = append(z1, *r.Step1.Z)
		}
		if r.Step2.Z != nil {
			z2 = append(z2, *r.Step2.Z)
		}
		if r.Step1.POneSided != nil && *r.Step1.POneSided < alpha {
			s.SignificantRaw++
		}
		if r.Significant(alpha) {
			s.SignificantAdjusted++
		}
		if p := r.Adjusted.POneSidedStep2; r.State == bogey.StateComplete && p != nil && *p < alpha {
			s.Bogeys = append(s.Bogeys, r)
		}
	}

	var err error
	if s.MatchesPerPair, err = describe(matches); err != nil {
		return s, fmt.Errorf("matches per pair: %w", err)
	}
	if s.ZStep1, err = describe(z1); err != nil {
		return s, fmt.Errorf("step 1 z: %w", err)
	}
	if s.ZStep2, err = describe(z2); err != nil {
		return s, fmt.Errorf("step 2 z: %w", err)
	}

	sort.SliceStable(s.Bogeys, func(i, j int) bool {
		return *s.Bogeys[i].Adjusted.POneSidedStep2 < *s.Bogeys[j].Adjusted.POneSidedStep2
	})
	return s, nil
}

// describe returns the zero Distribution for empty data. Quartiles are the
// medians of the lower and upper halves, so two or three values are enough.
func describe(data []float64) (Distribution, error) {
	d := Distribution{Count: len(data)}
	if len(data) == 0 {
		return d, nil
	}

	var err error
	if d.Mean, err = stats.Mean(data); err != nil {
		return d, err
	}
	if d.Min, err = stats.Min(data); err != nil {
		return d, err
	}
	if d.Max, err = stats.Max(data); err != nil {
		return d, err
	}
	if d.Median, err = stats.Median(data); err != nil {
		return d, err
	}
	if len(data) > 1 {
		if d.StdDev, err = stats.StandardDeviationSample(data); err != nil {
			return d, err
		}
		q, err := stats.Quartile(data)
		if err != nil {
			return d, err
		}
		d.Q25, d.Q75 = q.Q1, q.Q3
	} else {
		d.Q25, d.Q75 = d.Median, d.Median
	}
	return d, nil
}

// String renders the summary as the console block printed after a run.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pairs evaluated:        %d\n", s.Pairs)
	for _, st := range []bogey.State{bogey.StateComplete, bogey.StateStep1Only, bogey.StateNotSignificant, bogey.StateInconclusive} {
		fmt.Fprintf(&b, "  %-20s  %d\n", st, s.ByState[st])
	}
	fmt.Fprintf(&b, "step 1 significant:     %d raw, %d adjusted\n", s.SignificantRaw, s.SignificantAdjusted)
	fmt.Fprintf(&b, "matches per pair:       median %.0f, max %.0f\n", s.MatchesPerPair.Median, s.MatchesPerPair.Max)
	if s.ZStep1.Count > 0 {
		fmt.Fprintf(&b, "step 1 z:               mean %.3f, median %.3f, IQR [%.3f, %.3f]\n",
			s.ZStep1.Mean, s.ZStep1.Median, s.ZStep1.Q25, s.ZStep1.Q75)
	}
	if s.ZStep2.Count > 0 {
		fmt.Fprintf(&b, "step 2 z:               mean %.3f, median %.3f, IQR [%.3f, %.3f]\n",
			s.ZStep2.Mean, s.ZStep2.Median, s.ZStep2.Q25, s.ZStep2.Q75)
	}
	fmt.Fprintf(&b, "bogey pairs:            %d\n", len(s.Bogeys))
	for _, r := range s.Bogeys {
		fmt.Fprintf(&b, "  %-40s  UW %d / UL %d  p_adj %.4g\n",
			r.Pair, r.Step2.Count(bogey.UpsetWin), r.Step2.Count(bogey.UpsetLoss), *r.Adjusted.POneSidedStep2)
	}
	return b.String()
}
