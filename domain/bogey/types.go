package bogey

import (
	"fmt"
	"strings"
	"time"

	"gobogey/domain/core"
	"gobogey/domain/match"
)

// Label is a categorical match outcome relative to an ordered pair.
type Label string

const (
	Upset     Label = "U"
	NonUpset  Label = "N"
	UpsetWin  Label = "UW"
	UpsetLoss Label = "UL"
)

// ParseLabel checks s against the outcome alphabet.
func ParseLabel(s string) (Label, error) {
	switch l := Label(strings.TrimSpace(s)); l {
	case Upset, NonUpset, UpsetWin, UpsetLoss:
		return l, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnknownLabel, s)
}

// Observation is one labelled match in a pair's chronological sequence.
type Observation struct {
	Date  time.Time `json:"date"`
	Label Label     `json:"label"`
}

// Labels strips dates from a sequence.
func Labels(obs []Observation) []Label {
	labels := make([]Label, len(obs))
	for i, o := range obs {
		labels[i] = o.Label
	}
	return labels
}

// FormatSequence renders observations as "(2019-01-14, U) (2019-05-02, N)".
func FormatSequence(obs []Observation) string {
	parts := make([]string, len(obs))
	for i, o := range obs {
		parts[i] = fmt.Sprintf("(%s, %s)", o.Date.Format("2006-01-02"), o.Label)
	}
	return strings.Join(parts, " ")
}

// State is the terminal state a pair reached in the two-step protocol.
type State string

const (
	StateInconclusive   State = "inconclusive"    // step 1 could not be assessed
	StateNotSignificant State = "not_significant" // step 1 p >= alpha
	StateStep1Only      State = "step1_only"      // step 1 significant, step 2 not assessable
	StateComplete       State = "complete"        // both steps computed
)

// StageResult holds one runs test. Z and the p-values are nil when the stage
// was not performed or was inconclusive.
type StageResult struct {
	Performed    bool          `json:"performed"`
	Runs         int           `json:"runs"`
	Counts       map[Label]int `json:"counts,omitempty"`
	Total        int           `json:"total"`
	Mean         *float64      `json:"mean,omitempty"`
	StdErr       *float64      `json:"std_err,omitempty"`
	Z            *float64      `json:"z,omitempty"`
	POneSided    *float64      `json:"p_one_sided,omitempty"`
	PTwoSided    *float64      `json:"p_two_sided,omitempty"`
	Inconclusive string        `json:"inconclusive,omitempty"`
}

// Defined reports whether the stage produced a usable statistic.
func (s StageResult) Defined() bool { return s.Performed && s.Z != nil }

// Count returns the tally for label, zero when absent.
func (s StageResult) Count(label Label) int {
	if s.Counts == nil {
		return 0
	}
	return s.Counts[label]
}

// Shares are the derived upset percentages of a pair, as fractions in [0, 1].
type Shares struct {
	UpsetWinOfUpsets   *float64 `json:"uw_of_upsets,omitempty"`
	UpsetWinOfMatches  *float64 `json:"uw_of_matches,omitempty"`
	UpsetLossOfMatches *float64 `json:"ul_of_matches,omitempty"`
}

// Expectation compares the wins the market (or rating) expected with the wins observed.
type Expectation struct {
	ExpectedWinsP1 float64 `json:"expected_wins_p1"`
	ExpectedWinsP2 float64 `json:"expected_wins_p2"`
	ActualWinsP1   int     `json:"actual_wins_p1"`
	ActualWinsP2   int     `json:"actual_wins_p2"`
}

// Adjusted carries the multiple-comparisons corrected p-values of a record.
type Adjusted struct {
	Method         string   `json:"method"`
	POneSidedStep1 *float64 `json:"p_val_1_s1_adj,omitempty"`
	PTwoSidedStep1 *float64 `json:"p_val_2_s1_adj,omitempty"`
	POneSidedStep2 *float64 `json:"p_val_1_s2_adj,omitempty"`
	PTwoSidedStep2 *float64 `json:"p_val_2_s2_adj,omitempty"`
}

// Record is the evaluation of one competitor pair.
type Record struct {
	Pair        match.Pair    `json:"pair"`
	State       State         `json:"state"`
	Historical  []Observation `json:"historical"`
	Upsets      []Observation `json:"upsets"`
	Step1       StageResult   `json:"step1"`
	Step2       StageResult   `json:"step2"`
	Shares      Shares        `json:"shares"`
	Expectation Expectation   `json:"expectation"`
	Adjusted    Adjusted      `json:"adjusted"`
}

// Matches is the number of historical matches of the pair.
func (r *Record) Matches() int { return len(r.Historical) }

// Significant reports whether step 1 rejected randomness at alpha after adjustment,
// falling back to the raw p-value when no adjustment was applied.
func (r *Record) Significant(alpha float64) bool {
	p := r.Adjusted.POneSidedStep1
	if p == nil {
		p = r.Step1.POneSided
	}
	return p != nil && *p < alpha
}

// Float returns a pointer to v; used for the nullable numeric fields.
func Float(v float64) *float64 { return &v }
