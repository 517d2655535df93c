package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"price_watcher/internal/domain"
)

type RunStateStore struct {
	db *sqlx.DB
}

func NewRunStateStore(db *sqlx.DB) *RunStateStore {
	return &RunStateStore{db: db}
}

func (s *RunStateStore) Get(ctx context.Context, job string) (*domain.RunState, error) {
	var state domain.RunState
	query := `
		SELECT id, job, last_run_id, last_started_at, last_finished_at,
			last_processed, last_failed, total_processed
		FROM run_state
		WHERE job = $1`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &state, query, job)
	if errors.Is(err, sql.ErrNoRows) {
		// jobs that never ran start from zero
		return &domain.RunState{Job: job}, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *RunStateStore) Update(ctx context.Context, state *domain.RunState) error {
	query := `
		INSERT INTO run_state (job, last_run_id, last_started_at, last_finished_at,
			last_processed, last_failed, total_processed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (job) DO UPDATE SET
			last_run_id = EXCLUDED.last_run_id,
			last_started_at = EXCLUDED.last_started_at,
			last_finished_at = EXCLUDED.last_finished_at,
			last_processed = EXCLUDED.last_processed,
			last_failed = EXCLUDED.last_failed,
			total_processed = EXCLUDED.total_processed`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		state.Job,
		state.LastRunID,
		state.LastStartedAt,
		state.LastFinishedAt,
		state.LastProcessed,
		state.LastFailed,
		state.TotalProcessed,
	)
	return err
}
