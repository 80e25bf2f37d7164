package migration

import (
	"context"

	"gobogey/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order. Every step is
// idempotent.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	for _, step := range r.Steps() {
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			return errors.DatabaseError("migration step "+step.Name+" failed", err)
		}
	}
	return nil
}

// Step is one named DDL statement.
type Step struct {
	Name string
	SQL  string
}

// Steps lists the schema in application order.
func (r *MigrationRunner) Steps() []Step {
	return []Step{
		{Name: "create bogey_runs", SQL: createRunsTable},
		{Name: "create bogey_results", SQL: createResultsTable},
		{Name: "create indexes", SQL: createIndexes},
	}
}

const createRunsTable = `
	CREATE TABLE IF NOT EXISTS bogey_runs (
		id UUID PRIMARY KEY,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		fingerprint VARCHAR(64) NOT NULL,
		alpha DOUBLE PRECISION NOT NULL,
		z_type VARCHAR(8) NOT NULL,
		step2_mode VARCHAR(8) NOT NULL,
		adjust_method VARCHAR(16) NOT NULL,
		upset_basis VARCHAR(8) NOT NULL,
		match_count INTEGER NOT NULL,
		pair_count INTEGER NOT NULL,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		stats JSONB
	)
`

const createResultsTable = `
	CREATE TABLE IF NOT EXISTS bogey_results (
		id BIGSERIAL PRIMARY KEY,
		run_id UUID NOT NULL REFERENCES bogey_runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		player1 TEXT NOT NULL,
		player2 TEXT NOT NULL,
		state VARCHAR(20) NOT NULL,
		num_matches INTEGER NOT NULL,
		num_runs_s1 INTEGER NOT NULL,
		num_non_upset INTEGER NOT NULL,
		num_upsets INTEGER NOT NULL,
		ww_z_s1 DOUBLE PRECISION,
		p_val_1_s1 DOUBLE PRECISION,
		p_val_2_s1 DOUBLE PRECISION,
		num_runs_s2 INTEGER,
		num_uw INTEGER,
		num_ul INTEGER,
		ww_z_s2 DOUBLE PRECISION,
		p_val_1_s2 DOUBLE PRECISION,
		p_val_2_s2 DOUBLE PRECISION,
		p_val_1_s1_adj DOUBLE PRECISION,
		p_val_2_s1_adj DOUBLE PRECISION,
		p_val_1_s2_adj DOUBLE PRECISION,
		p_val_2_s2_adj DOUBLE PRECISION,
		record JSONB NOT NULL,
		UNIQUE (run_id, player1, player2)
	)
`

const createIndexes = `
	CREATE INDEX IF NOT EXISTS idx_bogey_runs_created_at ON bogey_runs(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_bogey_results_run_position ON bogey_results(run_id, position);
	CREATE INDEX IF NOT EXISTS idx_bogey_results_significant ON bogey_results(run_id, p_val_1_s1_adj)
		WHERE p_val_1_s1_adj IS NOT NULL;
`
