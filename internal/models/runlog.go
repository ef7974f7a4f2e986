package models

import "time"

// RunLog is an append-only record of a reconciliation job execution.
type RunLog struct {
	ID         int64      `json:"id" db:"id"`
	OrgID      *string    `json:"org_id,omitempty" db:"org_id"`
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt time.Time  `json:"finished_at" db:"finished_at"`
	Processed  int        `json:"processed" db:"processed"`
	Created    int        `json:"created" db:"created"`
	Reconciled int        `json:"reconciled" db:"reconciled"`
	Errors     []string   `json:"errors" db:"errors"`
}

// RunSummary is the job result returned to the scheduler and the CLI.
type RunSummary struct {
	Processed  int      `json:"processed"`
	Created    int      `json:"created"`
	Reconciled int      `json:"reconciled"`
	Errors     []string `json:"errors"`
}
