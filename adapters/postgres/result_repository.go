package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gobogey/domain/bogey"
	"gobogey/domain/core"
	"gobogey/domain/match"
	"gobogey/internal/detection"
	apperrors "gobogey/internal/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// RunRow is one stored batch run.
type RunRow struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	Fingerprint  string         `db:"fingerprint" json:"fingerprint"`
	Alpha        float64        `db:"alpha" json:"alpha"`
	ZType        string         `db:"z_type" json:"z_type"`
	Step2Mode    string         `db:"step2_mode" json:"step2_mode"`
	AdjustMethod string         `db:"adjust_method" json:"adjust_method"`
	UpsetBasis   string         `db:"upset_basis" json:"upset_basis"`
	MatchCount   int            `db:"match_count" json:"match_count"`
	PairCount    int            `db:"pair_count" json:"pair_count"`
	DurationMS   int64          `db:"duration_ms" json:"duration_ms"`
	Stats        types.JSONText `db:"stats" json:"stats,omitempty"`
}

// resultRow mirrors bogey_results. The flat columns serve queries; record
// holds the full evaluation.
type resultRow struct {
	RunID       uuid.UUID       `db:"run_id"`
	Position    int             `db:"position"`
	Player1     string          `db:"player1"`
	Player2     string          `db:"player2"`
	State       string          `db:"state"`
	NumMatches  int             `db:"num_matches"`
	NumRunsS1   int             `db:"num_runs_s1"`
	NumNonUpset int             `db:"num_non_upset"`
	NumUpsets   int             `db:"num_upsets"`
	ZS1         sql.NullFloat64 `db:"ww_z_s1"`
	P1S1        sql.NullFloat64 `db:"p_val_1_s1"`
	P2S1        sql.NullFloat64 `db:"p_val_2_s1"`
	NumRunsS2   sql.NullInt64   `db:"num_runs_s2"`
	NumUW       sql.NullInt64   `db:"num_uw"`
	NumUL       sql.NullInt64   `db:"num_ul"`
	ZS2         sql.NullFloat64 `db:"ww_z_s2"`
	P1S2        sql.NullFloat64 `db:"p_val_1_s2"`
	P2S2        sql.NullFloat64 `db:"p_val_2_s2"`
	P1S1Adj     sql.NullFloat64 `db:"p_val_1_s1_adj"`
	P2S1Adj     sql.NullFloat64 `db:"p_val_2_s1_adj"`
	P1S2Adj     sql.NullFloat64 `db:"p_val_1_s2_adj"`
	P2S2Adj     sql.NullFloat64 `db:"p_val_2_s2_adj"`
	RecordJSON  []byte          `db:"record"`
}

// ResultRepository persists batch runs and their per-pair records.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository creates a new PostgreSQL result repository
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// SaveBatch stores a run and all of its records in one transaction.
func (r *ResultRepository) SaveBatch(ctx context.Context, batch *detection.Batch) error {
	run, err := NewRunRow(batch)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO bogey_runs (id, created_at, fingerprint, alpha, z_type, step2_mode,
			adjust_method, upset_basis, match_count, pair_count, duration_ms, stats)
		VALUES (:id, :created_at, :fingerprint, :alpha, :z_type, :step2_mode,
			:adjust_method, :upset_basis, :match_count, :pair_count, :duration_ms, :stats)
	`, run)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return apperrors.InvalidInput(fmt.Sprintf("run %s already stored", batch.ID))
		}
		return apperrors.DatabaseError("failed to insert run", err)
	}

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO bogey_results (run_id, position, player1, player2, state, num_matches,
			num_runs_s1, num_non_upset, num_upsets, ww_z_s1, p_val_1_s1, p_val_2_s1,
			num_runs_s2, num_uw, num_ul, ww_z_s2, p_val_1_s2, p_val_2_s2,
			p_val_1_s1_adj, p_val_2_s1_adj, p_val_1_s2_adj, p_val_2_s2_adj, record)
		VALUES (:run_id, :position, :player1, :player2, :state, :num_matches,
			:num_runs_s1, :num_non_upset, :num_upsets, :ww_z_s1, :p_val_1_s1, :p_val_2_s1,
			:num_runs_s2, :num_uw, :num_ul, :ww_z_s2, :p_val_1_s2, :p_val_2_s2,
			:p_val_1_s1_adj, :p_val_2_s1_adj, :p_val_1_s2_adj, :p_val_2_s2_adj, :record)
	`)
	if err != nil {
		return apperrors.DatabaseError("failed to prepare result insert", err)
	}
	defer stmt.Close()

	for i, rec := range batch.Records {
		row, err := toResultRow(run.ID, i, rec)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return apperrors.DatabaseError(fmt.Sprintf("failed to insert result for %s", rec.Pair), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.DatabaseError("failed to commit run", err)
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (r *ResultRepository) ListRuns(ctx context.Context, limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []RunRow
	err := r.db.SelectContext(ctx, &runs, `
		SELECT id, created_at, fingerprint, alpha, z_type, step2_mode, adjust_method,
			upset_basis, match_count, pair_count, duration_ms, stats
		FROM bogey_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, apperrors.DatabaseError("failed to list runs", err)
	}
	return runs, nil
}

// GetRun returns one run or a NOT_FOUND error.
func (r *ResultRepository) GetRun(ctx context.Context, id core.RunID) (*RunRow, error) {
	var run RunRow
	err := r.db.GetContext(ctx, &run, `
		SELECT id, created_at, fingerprint, alpha, z_type, step2_mode, adjust_method,
			upset_basis, match_count, pair_count, duration_ms, stats
		FROM bogey_runs
		WHERE id = $1
	`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("run " + id.String())
	}
	if err != nil {
		return nil, apperrors.DatabaseError("failed to get run", err)
	}
	return &run, nil
}

// GetRecords returns the records of a run in evaluation order. With
// significantOnly, only pairs whose adjusted step 1 p-value is below the
// run's alpha are returned.
func (r *ResultRepository) GetRecords(ctx context.Context, id core.RunID, significantOnly bool) ([]*bogey.Record, error) {
	run, err := r.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}

	query := `SELECT record FROM bogey_results WHERE run_id = $1`
	args := []interface{}{run.ID}
	if significantOnly {
		query += ` AND p_val_1_s1_adj < $2`
		args = append(args, run.Alpha)
	}
	query += ` ORDER BY position`

	var blobs [][]byte
	if err := r.db.SelectContext(ctx, &blobs, query, args...); err != nil {
		return nil, apperrors.DatabaseError("failed to get results", err)
	}

	records := make([]*bogey.Record, 0, len(blobs))
	for _, b := range blobs {
		rec, err := decodeRecord(b)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// GetPair returns one pair of a run; the players may be given in any order.
func (r *ResultRepository) GetPair(ctx context.Context, id core.RunID, pair match.Pair) (*bogey.Record, error) {
	var blob []byte
	err := r.db.GetContext(ctx, &blob, `
		SELECT record FROM bogey_results
		WHERE run_id = $1 AND player1 = $2 AND player2 = $3
	`, id.String(), pair.P1, pair.P2)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound(fmt.Sprintf("pair %s in run %s", pair, id))
	}
	if err != nil {
		return nil, apperrors.DatabaseError("failed to get pair", err)
	}
	return decodeRecord(blob)
}

// NewRunRow summarizes a batch the way it is stored in bogey_runs.
func NewRunRow(batch *detection.Batch) (*RunRow, error) {
	id, err := uuid.Parse(batch.ID.String())
	if err != nil {
		return nil, apperrors.InvalidInput("run id is not a UUID: " + batch.ID.String())
	}
	stats, err := json.Marshal(batch.Stats)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run stats: %w", err)
	}
	return &RunRow{
		ID:           id,
		CreatedAt:    batch.CreatedAt,
		Fingerprint:  batch.Fingerprint.String(),
		Alpha:        batch.Settings.Alpha,
		ZType:        string(batch.Settings.ZType),
		Step2Mode:    string(batch.Settings.Step2Mode),
		AdjustMethod: string(batch.AdjustMethod),
		UpsetBasis:   string(batch.UpsetBasis),
		MatchCount:   batch.MatchCount,
		PairCount:    len(batch.Records),
		DurationMS:   batch.Duration.Milliseconds(),
		Stats:        types.JSONText(stats),
	}, nil
}

func toResultRow(runID uuid.UUID, position int, rec *bogey.Record) (*resultRow, error) {
	blob, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record %s: %w", rec.Pair, err)
	}
	row := &resultRow{
		RunID:       runID,
		Position:    position,
		Player1:     rec.Pair.P1,
		Player2:     rec.Pair.P2,
		State:       string(rec.State),
		NumMatches:  rec.Matches(),
		NumRunsS1:   rec.Step1.Runs,
		NumNonUpset: rec.Step1.Count(bogey.NonUpset),
		NumUpsets:   rec.Step1.Count(bogey.Upset),
		ZS1:         nullFloat(rec.Step1.Z),
		P1S1:        nullFloat(rec.Step1.POneSided),
		P2S1:        nullFloat(rec.Step1.PTwoSided),
		ZS2:         nullFloat(rec.Step2.Z),
		P1S2:        nullFloat(rec.Step2.POneSided),
		P2S2:        nullFloat(rec.Step2.PTwoSided),
		P1S1Adj:     nullFloat(rec.Adjusted.POneSidedStep1),
		P2S1Adj:     nullFloat(rec.Adjusted.PTwoSidedStep1),
		P1S2Adj:     nullFloat(rec.Adjusted.POneSidedStep2),
		P2S2Adj:     nullFloat(rec.Adjusted.PTwoSidedStep2),
		RecordJSON:  blob,
	}
	if rec.Step2.Performed {
		row.NumRunsS2 = sql.NullInt64{Int64: int64(rec.Step2.Runs), Valid: true}
		row.NumUW = sql.NullInt64{Int64: int64(rec.Step2.Count(bogey.UpsetWin)), Valid: true}
		row.NumUL = sql.NullInt64{Int64: int64(rec.Step2.Count(bogey.UpsetLoss)), Valid: true}
	}
	return row, nil
}

func decodeRecord(blob []byte) (*bogey.Record, error) {
	var rec bogey.Record
	if err := json.Unmarshal(blob, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &rec, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
