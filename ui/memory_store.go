package ui

import (
	"context"
	"sort"
	"sync"

	"gobogey/adapters/postgres"
	"gobogey/domain/bogey"
	"gobogey/domain/core"
	"gobogey/domain/match"
	"gobogey/internal/detection"
	"gobogey/internal/errors"
)

// MemoryStore keeps batches in process; serve uses it when no database is
// configured.
type MemoryStore struct {
	mu      sync.RWMutex
	runs    map[core.RunID]*postgres.RunRow
	batches map[core.RunID]*detection.Batch
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:    make(map[core.RunID]*postgres.RunRow),
		batches: make(map[core.RunID]*detection.Batch),
	}
}

// SaveBatch adds batch to the store.
func (m *MemoryStore) SaveBatch(_ context.Context, batch *detection.Batch) error {
	run, err := postgres.NewRunRow(batch)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.runs[batch.ID]; exists {
		return errors.InvalidInput("run " + batch.ID.String() + " already stored")
	}
	m.runs[batch.ID] = run
	m.batches[batch.ID] = batch
	return nil
}

// ListRuns returns up to limit runs, newest first.
func (m *MemoryStore) ListRuns(_ context.Context, limit int) ([]postgres.RunRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make([]postgres.RunRow, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, *r)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// GetRun returns the run with id or a NotFound error.
func (m *MemoryStore) GetRun(_ context.Context, id core.RunID) (*postgres.RunRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, errors.NotFound("run " + id.String())
	}
	return run, nil
}

// GetRecords returns the records of a run, optionally only those whose
// adjusted step 1 p-value is below the run alpha.
func (m *MemoryStore) GetRecords(_ context.Context, id core.RunID, significantOnly bool) ([]*bogey.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	batch, ok := m.batches[id]
	if !ok {
		return nil, errors.NotFound("run " + id.String())
	}
	if !significantOnly {
		return batch.Records, nil
	}

	var out []*bogey.Record
	for _, r := range batch.Records {
		if p := r.Adjusted.POneSidedStep1; p != nil && *p < batch.Settings.Alpha {
			out = append(out, r)
		}
	}
	return out, nil
}

// GetPair returns the record of pair in run id.
func (m *MemoryStore) GetPair(_ context.Context, id core.RunID, pair match.Pair) (*bogey.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	batch, ok := m.batches[id]
	if !ok {
		return nil, errors.NotFound("run " + id.String())
	}
	for _, r := range batch.Records {
		if r.Pair == pair {
			return r, nil
		}
	}
	return nil, errors.NotFound("pair " + pair.String() + " in run " + id.String())
}
