package database

import (
	"time"
)

type HistoryRepository interface {
	StartRun(startedAt time.Time) (int64, error)
	FinishRun(runID int64, summary RunSummary) error
	RecordPublication(publication Publication) error

	ListRuns(limit int) ([]Run, error)
	ListPublications(limit int) ([]Publication, error)
	Stats(now time.Time) (Stats, error)
}
