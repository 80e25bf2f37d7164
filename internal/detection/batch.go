package detection

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"gobogey/adapters/stats/adjust"
	"gobogey/adapters/stats/runs"
	"gobogey/domain/bogey"
	"gobogey/domain/core"
	"gobogey/domain/match"
	"gobogey/internal"

	"golang.org/x/sync/errgroup"
)

// Options configures an Evaluator.
type Options struct {
	Settings
	AdjustMethod adjust.Method
	UpsetBasis   match.UpsetBasis
	Workers      int
	// ProgressEvery logs progress after that many evaluated pairs; 0 disables it.
	ProgressEvery int
}

// DefaultOptions returns DefaultSettings with BH adjustment, the odds basis
// and one worker per CPU.
func DefaultOptions() Options {
	return Options{
		Settings:      DefaultSettings(),
		AdjustMethod:  adjust.BH,
		UpsetBasis:    match.BasisOdds,
		Workers:       runtime.NumCPU(),
		ProgressEvery: 1000,
	}
}

// Candidates restricts which identities are paired. A nil side means every
// identity observed in the match table.
type Candidates struct {
	Left  []string
	Right []string
}

// Single returns candidates for exactly one pair.
func Single(a, b string) Candidates {
	return Candidates{Left: []string{a}, Right: []string{b}}
}

// BatchStats counts what happened to the candidate pairs.
type BatchStats struct {
	Candidates     int                 `json:"candidates"`
	SelfPairs      int                 `json:"self_pairs"`
	Duplicates     int                 `json:"duplicates"`
	WithoutHistory int                 `json:"without_history"`
	Evaluated      int                 `json:"evaluated"`
	ByState        map[bogey.State]int `json:"by_state"`
}

// Batch is the outcome of one evaluation run.
type Batch struct {
	ID           core.RunID       `json:"id"`
	CreatedAt    time.Time        `json:"created_at"`
	Fingerprint  core.Hash        `json:"fingerprint"`
	Settings     Settings         `json:"settings"`
	AdjustMethod adjust.Method    `json:"adjust_method"`
	UpsetBasis   match.UpsetBasis `json:"upset_basis"`
	MatchCount   int              `json:"match_count"`
	Records      []*bogey.Record  `json:"records"`
	Stats        BatchStats       `json:"stats"`
	Duration     time.Duration    `json:"duration"`
}

// Evaluator runs the protocol over every candidate pair of a match table.
type Evaluator struct {
	opts     Options
	protocol *Protocol
	logger   *internal.Logger
}

// NewEvaluator builds an evaluator; non-positive Workers fall back to one.
func NewEvaluator(opts Options, logger *internal.Logger) *Evaluator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.AdjustMethod == "" {
		opts.AdjustMethod = adjust.None
	}
	classifier := runs.NewClassifier(opts.UpsetBasis)
	return &Evaluator{
		opts:     opts,
		protocol: NewProtocol(opts.Settings, classifier, logger),
		logger:   logger.With("Evaluator"),
	}
}

// Options returns the evaluator configuration.
func (e *Evaluator) Options() Options { return e.opts }

// Pairs expands candidates into the distinct pairs with at least one match,
// in first-encounter order. Self pairs and repeats of an already listed
// pair are dropped before any work is scheduled.
func (e *Evaluator) Pairs(part *Partition, candidates Candidates) ([]match.Pair, BatchStats) {
	left, right := candidates.Left, candidates.Right
	if left == nil {
		left = part.Identities()
	}
	if right == nil {
		right = part.Identities()
	}

	stats := BatchStats{ByState: make(map[bogey.State]int)}
	seen := make(map[match.Pair]struct{})
	var pairs []match.Pair

	for _, a := range left {
		for _, b := range right {
			stats.Candidates++
			pair := match.NewPair(a, b)
			if pair.IsSelf() {
				stats.SelfPairs++
				continue
			}
			if !part.Has(pair) {
				stats.WithoutHistory++
				continue
			}
			if _, dup := seen[pair]; dup {
				stats.Duplicates++
				continue
			}
			seen[pair] = struct{}{}
			pairs = append(pairs, pair)
		}
	}
	return pairs, stats
}

// Evaluate runs the two-step protocol on every candidate pair and applies
// the configured p-value adjustment across the batch. A malformed match
// aborts the whole batch; statistical dead ends only mark their pair.
func (e *Evaluator) Evaluate(ctx context.Context, matches []match.Match, candidates Candidates) (*Batch, error) {
	start := time.Now()
	part := NewPartition(matches)
	pairs, stats := e.Pairs(part, candidates)

	e.logger.Info("evaluating %d pairs from %d matches (%d workers, step 2 %s, %s)",
		len(pairs), len(matches), e.opts.Workers, e.opts.Step2Mode, e.opts.AdjustMethod)

	records := make([]*bogey.Record, len(pairs))
	var done int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)

dispatch:
	for i, pair := range pairs {
		select {
		case <-gctx.Done():
			break dispatch
		default:
		}

		i, pair := i, pair
		g.Go(func() error {
			record, err := e.protocol.Evaluate(pair, part.Matches(pair))
			if err != nil {
				return err
			}
			records[i] = record

			n := atomic.AddInt64(&done, 1)
			if e.opts.ProgressEvery > 0 && n%int64(e.opts.ProgressEvery) == 0 {
				e.logger.Info("evaluated %d/%d pairs", n, len(pairs))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := AdjustRecords(records, e.opts.AdjustMethod); err != nil {
		return nil, fmt.Errorf("adjusting p-values: %w", err)
	}

	for _, r := range records {
		stats.ByState[r.State]++
	}
	stats.Evaluated = len(records)

	batch := &Batch{
		ID:           core.NewRunID(),
		CreatedAt:    start.UTC(),
		Fingerprint:  e.fingerprint(len(matches), candidates),
		Settings:     e.opts.Settings,
		AdjustMethod: e.opts.AdjustMethod,
		UpsetBasis:   e.protocol.classifier.Basis(),
		MatchCount:   len(matches),
		Records:      records,
		Stats:        stats,
		Duration:     time.Since(start),
	}

	e.logger.Info("run %s: %d pairs in %v (%d complete, %d step-1 only, %d not significant, %d inconclusive)",
		batch.ID, stats.Evaluated, batch.Duration.Round(time.Millisecond),
		stats.ByState[bogey.StateComplete], stats.ByState[bogey.StateStep1Only],
		stats.ByState[bogey.StateNotSignificant], stats.ByState[bogey.StateInconclusive])
	return batch, nil
}

func (e *Evaluator) fingerprint(matchCount int, candidates Candidates) core.Hash {
	return core.ComputeSettingsHash(map[string]interface{}{
		"alpha":         e.opts.Alpha,
		"z_type":        e.opts.ZType,
		"step2_mode":    e.opts.Step2Mode,
		"adjust_method": e.opts.AdjustMethod,
		"upset_basis":   e.protocol.classifier.Basis(),
		"matches":       matchCount,
		"left":          candidates.Left,
		"right":         candidates.Right,
	})
}

// AdjustRecords corrects the four p-value families of a batch in place.
// Each family is adjusted on its own; records without a value in a family
// keep a nil adjusted value and do not count towards its size.
func AdjustRecords(records []*bogey.Record, method adjust.Method) error {
	families := []struct {
		raw func(*bogey.Record) *float64
		set func(*bogey.Record, *float64)
	}{
		{
			raw: func(r *bogey.Record) *float64 { return r.Step1.POneSided },
			set: func(r *bogey.Record, p *float64) { r.Adjusted.POneSidedStep1 = p },
		},
		{
			raw: func(r *bogey.Record) *float64 { return r.Step1.PTwoSided },
			set: func(r *bogey.Record, p *float64) { r.Adjusted.PTwoSidedStep1 = p },
		},
		{
			raw: func(r *bogey.Record) *float64 { return r.Step2.POneSided },
			set: func(r *bogey.Record, p *float64) { r.Adjusted.POneSidedStep2 = p },
		},
		{
			raw: func(r *bogey.Record) *float64 { return r.Step2.PTwoSided },
			set: func(r *bogey.Record, p *float64) { r.Adjusted.PTwoSidedStep2 = p },
		},
	}

	for _, f := range families {
		raw := make([]*float64, len(records))
		for i, r := range records {
			raw[i] = f.raw(r)
		}
		adjusted, err := adjust.Adjust(method, raw)
		if err != nil {
			return err
		}
		for i, r := range records {
			f.set(r, adjusted[i])
		}
	}
	for _, r := range records {
		r.Adjusted.Method = string(method)
	}
	return nil
}
