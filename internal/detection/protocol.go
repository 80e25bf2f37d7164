package detection

import (
	"fmt"
	"strings"

	"gobogey/adapters/stats/runs"
	"gobogey/domain/bogey"
	"gobogey/domain/core"
	"gobogey/domain/match"
	"gobogey/internal"
)

// Step2Mode selects the runs test applied to the upset sub-sequence.
type Step2Mode string

const (
	// Step2TwoCategory tests the upset-only {UW, UL} sequence.
	Step2TwoCategory Step2Mode = "two"
	// Step2ThreeCategory tests the full {N, UW, UL} sequence with the k=3 statistic.
	Step2ThreeCategory Step2Mode = "three"
)

// ParseStep2Mode accepts "two" or "three"; empty means two.
func ParseStep2Mode(s string) (Step2Mode, error) {
	switch Step2Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Step2TwoCategory, "":
		return Step2TwoCategory, nil
	case Step2ThreeCategory:
		return Step2ThreeCategory, nil
	}
	return "", fmt.Errorf("unknown step 2 mode %q (want two or three)", s)
}

// Settings are the statistical knobs of the two-step protocol.
type Settings struct {
	Alpha     float64
	ZType     runs.ZType
	Step2Mode Step2Mode
}

// DefaultSettings returns alpha 0.05, continuity-corrected z and a two-category step 2.
// The correction applies to both steps; set ZType to runs.ZStandard for the
// uncorrected (R - mu) / se statistic.
func DefaultSettings() Settings {
	return Settings{
		Alpha:     0.05,
		ZType:     runs.ZContinuity,
		Step2Mode: Step2TwoCategory,
	}
}

// Protocol runs the two-step bogey test on one competitor pair.
//
// Step 1 tests whether upsets and non-upsets are randomly ordered over all
// matches. Only when that is rejected at Alpha does step 2 test the ordering
// of upset wins and upset losses. Statistical dead ends (a single run, zero
// variance) end the pair in an inconclusive state instead of failing.
type Protocol struct {
	settings   Settings
	classifier *runs.Classifier
	logger     *internal.Logger
}

// NewProtocol wires a protocol. A nil logger uses internal.DefaultLogger.
func NewProtocol(settings Settings, classifier *runs.Classifier, logger *internal.Logger) *Protocol {
	if classifier == nil {
		classifier = runs.NewClassifier(match.BasisOdds)
	}
	return &Protocol{
		settings:   settings,
		classifier: classifier,
		logger:     logger.With("Protocol"),
	}
}

// Settings returns the protocol configuration.
func (p *Protocol) Settings() Settings { return p.settings }

// sequences is every per-match view of a pair, built in one pass.
type sequences struct {
	historical  []bogey.Observation // {U, N}
	upsetTypes  []bogey.Observation // {UW, UL, N} from P1's perspective
	upsets      []bogey.Observation // {UW, UL} only
	expectation bogey.Expectation
}

func (p *Protocol) buildSequences(pair match.Pair, matches []match.Match) (*sequences, error) {
	seq := &sequences{
		historical: make([]bogey.Observation, 0, len(matches)),
		upsetTypes: make([]bogey.Observation, 0, len(matches)),
	}

	for _, m := range match.SortChronologically(matches) {
		hist, err := p.classifier.ClassifyHistorical(pair, m)
		if err != nil {
			return nil, err
		}
		kind, err := p.classifier.ClassifyUpsetType(pair, m)
		if err != nil {
			return nil, err
		}
		expected, err := p.classifier.ExpectedWin(m, pair.P1)
		if err != nil {
			return nil, err
		}

		seq.historical = append(seq.historical, bogey.Observation{Date: m.Date, Label: hist})
		seq.upsetTypes = append(seq.upsetTypes, bogey.Observation{Date: m.Date, Label: kind})
		if kind != bogey.NonUpset {
			seq.upsets = append(seq.upsets, bogey.Observation{Date: m.Date, Label: kind})
		}

		seq.expectation.ExpectedWinsP1 += expected
		seq.expectation.ExpectedWinsP2 += 1 - expected
		if m.Winner == pair.P1 {
			seq.expectation.ActualWinsP1++
		} else {
			seq.expectation.ActualWinsP2++
		}
	}
	return seq, nil
}

// Evaluate runs the protocol for pair over its historical matches.
// It returns core.ErrNoHistoricalData when matches is empty and a
// core.ErrMalformedMatch error when a match breaks the classifier
// preconditions; every other outcome is reported through the record state.
func (p *Protocol) Evaluate(pair match.Pair, matches []match.Match) (*bogey.Record, error) {
	if len(matches) == 0 {
		return nil, core.ErrNoHistoricalData
	}

	seq, err := p.buildSequences(pair, matches)
	if err != nil {
		return nil, fmt.Errorf("pair %s: %w", pair, err)
	}

	record := &bogey.Record{
		Pair:        pair,
		Historical:  seq.historical,
		Upsets:      seq.upsets,
		Expectation: seq.expectation,
		Shares:      shares(seq.upsets, len(seq.historical)),
	}

	// Step 1: upsets vs non-upsets over every match.
	record.Step1 = p.runStage(bogey.Labels(seq.historical), func(enc runs.Encoding) (runs.Statistic, error) {
		return runs.TwoCategory(enc.Runs, enc.Count(bogey.Upset), enc.Count(bogey.NonUpset), p.settings.ZType)
	})
	if !record.Step1.Defined() {
		record.State = bogey.StateInconclusive
		p.logger.Trace("%s: step 1 inconclusive (%s)", pair, record.Step1.Inconclusive)
		return record, nil
	}
	if *record.Step1.POneSided >= p.settings.Alpha {
		record.State = bogey.StateNotSignificant
		return record, nil
	}

	// Step 2: how the upsets split between the two players.
	switch p.settings.Step2Mode {
	case Step2ThreeCategory:
		record.Step2 = p.runStage(bogey.Labels(seq.upsetTypes), func(enc runs.Encoding) (runs.Statistic, error) {
			return runs.ThreeCategory(enc.Runs, enc.Count(bogey.NonUpset), enc.Count(bogey.UpsetWin), enc.Count(bogey.UpsetLoss), p.settings.ZType)
		})
	default:
		record.Step2 = p.runStage(bogey.Labels(seq.upsets), func(enc runs.Encoding) (runs.Statistic, error) {
			return runs.TwoCategory(enc.Runs, enc.Count(bogey.UpsetWin), enc.Count(bogey.UpsetLoss), p.settings.ZType)
		})
	}

	if record.Step2.Defined() {
		record.State = bogey.StateComplete
	} else {
		record.State = bogey.StateStep1Only
	}
	p.logger.Debug("%s: step 1 p=%.4f, state %s", pair, *record.Step1.POneSided, record.State)
	return record, nil
}

// runStage encodes labels and applies test, turning every recoverable
// failure into an inconclusive stage.
func (p *Protocol) runStage(labels []bogey.Label, test func(runs.Encoding) (runs.Statistic, error)) bogey.StageResult {
	stage := bogey.StageResult{Performed: true, Total: len(labels)}

	enc, err := runs.Encode(labels)
	if err != nil {
		stage.Inconclusive = err.Error()
		return stage
	}
	stage.Runs = enc.Runs
	stage.Counts = enc.Counts

	if enc.Constant() {
		stage.Inconclusive = core.ErrInsufficientRuns.Error()
		return stage
	}

	stat, err := test(enc)
	if err != nil {
		stage.Inconclusive = err.Error()
		return stage
	}

	stage.Mean = bogey.Float(stat.Mean)
	stage.StdErr = bogey.Float(stat.StdErr)
	stage.Z = bogey.Float(stat.Z)
	stage.POneSided = bogey.Float(stat.POneSided)
	stage.PTwoSided = bogey.Float(stat.PTwoSided)
	return stage
}

func shares(upsets []bogey.Observation, matches int) bogey.Shares {
	var uw, ul int
	for _, o := range upsets {
		if o.Label == bogey.UpsetWin {
			uw++
		} else {
			ul++
		}
	}

	var s bogey.Shares
	if uw+ul > 0 {
		s.UpsetWinOfUpsets = bogey.Float(float64(uw) / float64(uw+ul))
	}
	if matches > 0 {
		s.UpsetWinOfMatches = bogey.Float(float64(uw) / float64(matches))
		s.UpsetLossOfMatches = bogey.Float(float64(ul) / float64(matches))
	}
	return s
}
