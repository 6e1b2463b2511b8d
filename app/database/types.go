package database

import (
	"time"
)

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

type Run struct {
	ID           int64      `json:"id"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Scraped      int        `json:"scraped"`
	Candidates   int        `json:"candidates"`
	Published    int        `json:"published"`
	Failed       int        `json:"failed"`
	Pruned       int        `json:"pruned"`
	SourceErrors int        `json:"source_errors"`
	Status       string     `json:"status"`
}

// RunSummary is what a finished run reports back.
type RunSummary struct {
	FinishedAt   time.Time
	Scraped      int
	Candidates   int
	Published    int
	Failed       int
	Pruned       int
	SourceErrors int
	Status       string
}

type Publication struct {
	ID          int64     `json:"id"`
	RunID       int64     `json:"run_id"`
	Fingerprint string    `json:"fingerprint"`
	SourceTag   string    `json:"source_tag"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
	Persisted   bool      `json:"persisted"` // false when the ledger write failed
}

type Stats struct {
	Runs             int        `json:"runs"`
	Publications     int        `json:"publications"`
	NotPersisted     int        `json:"not_persisted"`
	LastRunAt        *time.Time `json:"last_run_at,omitempty"`
	LastRunStatus    string     `json:"last_run_status,omitempty"`
	PublishedLastDay int        `json:"published_last_day"`
}
