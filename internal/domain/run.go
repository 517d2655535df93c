package domain

import "time"

// RunReport holds the outcome of one batch run.
type RunReport struct {
	RunID     string        `json:"runId"`
	Trackers  int           `json:"trackers"`
	Total     int           `json:"total"`
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Errors    []string      `json:"errors,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// RunState is the persisted bookkeeping for a scheduled job.
type RunState struct {
	ID             int64     `db:"id"`
	Job            string    `db:"job"`
	LastRunID      string    `db:"last_run_id"`
	LastStartedAt  time.Time `db:"last_started_at"`
	LastFinishedAt time.Time `db:"last_finished_at"`
	LastProcessed  int       `db:"last_processed"`
	LastFailed     int       `db:"last_failed"`
	TotalProcessed int64     `db:"total_processed"`
}
