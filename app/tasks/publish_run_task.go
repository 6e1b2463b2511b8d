package tasks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bgnews/newsrelay/app/database"
	"github.com/bgnews/newsrelay/app/post"
	"github.com/bgnews/newsrelay/app/publish"
	"github.com/bgnews/newsrelay/app/source"
	"github.com/bgnews/newsrelay/app/tracker"
)

type Collector interface {
	Collect(ctx context.Context) ([]post.Item, []source.SourceError)
}

// RunResult counts what one run did.
type RunResult struct {
	Pruned       int
	Scraped      int
	Candidates   int
	Published    int
	Failed       int
	NotPersisted int
	SourceErrors int
}

type PublishRunTask struct {
	Task
	collector Collector
	tracker   *tracker.Tracker
	publisher publish.Publisher
	history   database.HistoryRepository
	delay     Delay
	now       func() time.Time

	Result RunResult
}

// NewPublishRunTask builds the run. history may be nil.
func NewPublishRunTask(collector Collector, tr *tracker.Tracker, publisher publish.Publisher, history database.HistoryRepository, delay Delay) *PublishRunTask {
	return &PublishRunTask{
		Task:      NewTask(TaskTypePublishRun),
		collector: collector,
		tracker:   tr,
		publisher: publisher,
		history:   history,
		delay:     delay,
		now:       time.Now,
	}
}

func (t *PublishRunTask) Execute(ctx context.Context) error {
	t.Start()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	runID := t.startHistory()

	err := t.run(ctx, runID)

	status := database.RunStatusCompleted
	if err != nil {
		status = database.RunStatusFailed
	}
	t.finishHistory(runID, status)

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"pruned", t.Result.Pruned,
		"scraped", t.Result.Scraped,
		"candidates", t.Result.Candidates,
		"published", t.Result.Published,
		"failed", t.Result.Failed,
		"not_persisted", t.Result.NotPersisted,
		"source_errors", t.Result.SourceErrors)

	return err
}

func (t *PublishRunTask) run(ctx context.Context, runID int64) error {
	t.Result.Pruned = t.tracker.Prepare()
	if t.Result.Pruned > 0 {
		slog.Info("Ledger pruned", "removed", t.Result.Pruned, "remaining", t.tracker.Len())
	}

	items, sourceErrs := t.collector.Collect(ctx)
	t.Result.Scraped = len(items)
	t.Result.SourceErrors = len(sourceErrs)

	if err := ctx.Err(); err != nil {
		return err
	}

	candidates := t.tracker.FilterUnpublished(items)
	t.Result.Candidates = len(candidates)
	if skipped := len(items) - len(candidates); skipped > 0 {
		slog.Info("Skipped already published items", "count", skipped)
	}

	if len(candidates) == 0 {
		slog.Info("No new items to publish")
		return nil
	}

	for i, item := range candidates {
		if i > 0 {
			if err := t.delay.Wait(ctx); err != nil {
				return err
			}
		}

		// The ledger may have changed since filtering
		if t.tracker.IsPublished(item) {
			continue
		}

		if err := t.publisher.Publish(ctx, item); err != nil {
			t.Result.Failed++
			slog.Error("Failed to publish item", "source", item.SourceTag, "item", item.Summary(60), "error", err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		t.Result.Published++
		persisted := true
		if err := t.tracker.MarkPublished(item); err != nil {
			persisted = false
			t.Result.NotPersisted++
			slog.Error("Published item not persisted to ledger, it may be republished after restart",
				"fingerprint", t.tracker.Fingerprint(item),
				"error", err)
		}

		slog.Info("Item published", "source", item.SourceTag, "item", item.Summary(60))
		t.recordPublication(runID, item, persisted)
	}

	return nil
}

func (t *PublishRunTask) startHistory() int64 {
	if t.history == nil {
		return 0
	}
	runID, err := t.history.StartRun(t.now())
	if err != nil {
		slog.Warn("Failed to record run start", "error", err)
		return 0
	}
	return runID
}

func (t *PublishRunTask) finishHistory(runID int64, status string) {
	if t.history == nil || runID == 0 {
		return
	}
	err := t.history.FinishRun(runID, database.RunSummary{
		FinishedAt:   t.now(),
		Scraped:      t.Result.Scraped,
		Candidates:   t.Result.Candidates,
		Published:    t.Result.Published,
		Failed:       t.Result.Failed,
		Pruned:       t.Result.Pruned,
		SourceErrors: t.Result.SourceErrors,
		Status:       status,
	})
	if err != nil {
		slog.Warn("Failed to record run result", "run_id", runID, "error", err)
	}
}

func (t *PublishRunTask) recordPublication(runID int64, item post.Item, persisted bool) {
	if t.history == nil || runID == 0 {
		return
	}
	err := t.history.RecordPublication(database.Publication{
		RunID:       runID,
		Fingerprint: t.tracker.Fingerprint(item),
		SourceTag:   item.SourceTag,
		Title:       item.Title,
		Link:        item.CanonicalURL,
		PublishedAt: t.now(),
		Persisted:   persisted,
	})
	if err != nil {
		slog.Warn("Failed to record publication", "run_id", runID, "error", err)
	}
}

// IsInterrupted reports whether err means the run was cancelled by a signal.
func IsInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
