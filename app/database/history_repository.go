package database

import (
	"database/sql"
	"fmt"
	"time"
)

const timeFormat = time.RFC3339Nano

type SQLHistoryRepository struct {
	db *DB
}

func NewHistoryRepository(db *DB) *SQLHistoryRepository {
	return &SQLHistoryRepository{db: db}
}

func (r *SQLHistoryRepository) StartRun(startedAt time.Time) (int64, error) {
	result, err := r.db.Exec(`
		INSERT INTO runs (started_at, status)
		VALUES (?, ?)
	`, formatTime(startedAt), RunStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}
	return id, nil
}

func (r *SQLHistoryRepository) FinishRun(runID int64, summary RunSummary) error {
	result, err := r.db.Exec(`
		UPDATE runs
		SET finished_at = ?, scraped = ?, candidates = ?, published = ?,
		    failed = ?, pruned = ?, source_errors = ?, status = ?
		WHERE id = ?
	`, formatTime(summary.FinishedAt), summary.Scraped, summary.Candidates, summary.Published,
		summary.Failed, summary.Pruned, summary.SourceErrors, summary.Status, runID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated run: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %d not found", runID)
	}
	return nil
}

func (r *SQLHistoryRepository) RecordPublication(p Publication) error {
	_, err := r.db.Exec(`
		INSERT INTO publications (run_id, fingerprint, source_tag, title, link, published_at, persisted)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.RunID, p.Fingerprint, p.SourceTag, p.Title, p.Link, formatTime(p.PublishedAt), p.Persisted)
	if err != nil {
		return fmt.Errorf("failed to insert publication: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (r *SQLHistoryRepository) ListRuns(limit int) ([]Run, error) {
	rows, err := r.db.Query(`
		SELECT id, started_at, finished_at, scraped, candidates, published,
		       failed, pruned, source_errors, status
		FROM runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var run Run
		var startedAt string
		var finishedAt sql.NullString

		err := rows.Scan(
			&run.ID, &startedAt, &finishedAt, &run.Scraped, &run.Candidates, &run.Published,
			&run.Failed, &run.Pruned, &run.SourceErrors, &run.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}

		if run.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if finishedAt.Valid {
			t, err := parseTime(finishedAt.String)
			if err != nil {
				return nil, err
			}
			run.FinishedAt = &t
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}

	return runs, nil
}

// ListPublications returns the most recent publications first.
func (r *SQLHistoryRepository) ListPublications(limit int) ([]Publication, error) {
	rows, err := r.db.Query(`
		SELECT id, run_id, fingerprint, source_tag, title, link, published_at, persisted
		FROM publications
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list publications: %w", err)
	}
	defer rows.Close()

	publications := make([]Publication, 0)
	for rows.Next() {
		var p Publication
		var publishedAt string

		err := rows.Scan(&p.ID, &p.RunID, &p.Fingerprint, &p.SourceTag, &p.Title, &p.Link, &publishedAt, &p.Persisted)
		if err != nil {
			return nil, fmt.Errorf("failed to scan publication row: %w", err)
		}

		if p.PublishedAt, err = parseTime(publishedAt); err != nil {
			return nil, err
		}

		publications = append(publications, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating publication rows: %w", err)
	}

	return publications, nil
}

func (r *SQLHistoryRepository) Stats(now time.Time) (Stats, error) {
	var stats Stats

	err := r.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM runs),
			(SELECT COUNT(*) FROM publications),
			(SELECT COUNT(*) FROM publications WHERE persisted = 0),
			(SELECT COUNT(*) FROM publications WHERE published_at >= ?)
	`, formatTime(now.Add(-24*time.Hour))).Scan(&stats.Runs, &stats.Publications, &stats.NotPersisted, &stats.PublishedLastDay)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to get stats: %w", err)
	}

	var startedAt, status string
	err = r.db.QueryRow(`SELECT started_at, status FROM runs ORDER BY id DESC LIMIT 1`).Scan(&startedAt, &status)
	switch {
	case err == sql.ErrNoRows:
		return stats, nil
	case err != nil:
		return Stats{}, fmt.Errorf("failed to get last run: %w", err)
	}

	lastRunAt, err := parseTime(startedAt)
	if err != nil {
		return Stats{}, err
	}
	stats.LastRunAt = &lastRunAt
	stats.LastRunStatus = status

	return stats, nil
}

// formatTime renders UTC with fixed precision so stored values sort as text.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored time %q: %w", value, err)
	}
	return t, nil
}
