package tracker

import (
	"errors"
	"fmt"
	"time"

	"github.com/bgnews/newsrelay/app/fingerprint"
	"github.com/bgnews/newsrelay/app/ledger"
	"github.com/bgnews/newsrelay/app/post"
)

// ErrNotPersisted is returned by MarkPublished when the item was published and
// recorded in memory but the ledger could not be written to disk.
var ErrNotPersisted = errors.New("publication not persisted")

type Fingerprinter interface {
	Fingerprint(item post.Item) string
}

// Tracker decides which items still need publishing. It is not safe for
// concurrent use; the pipeline lock guarantees a single user.
type Tracker struct {
	store     *ledger.Store
	generator Fingerprinter
	retention time.Duration
}

func New(store *ledger.Store, generator Fingerprinter, retention time.Duration) *Tracker {
	if generator == nil {
		generator = fingerprint.NewGenerator(nil)
	}
	return &Tracker{
		store:     store,
		generator: generator,
		retention: retention,
	}
}

// Prepare evicts entries older than the retention window. Call it once per run
// before filtering.
func (t *Tracker) Prepare() int {
	return t.store.Prune(t.retention)
}

func (t *Tracker) Fingerprint(item post.Item) string {
	return t.generator.Fingerprint(item)
}

// FilterUnpublished keeps items whose fingerprint is not in the ledger, in input
// order. Items sharing a fingerprint within the batch collapse to the first one.
func (t *Tracker) FilterUnpublished(items []post.Item) []post.Item {
	seen := make(map[string]struct{}, len(items))
	fresh := make([]post.Item, 0, len(items))

	for _, item := range items {
		fp := t.generator.Fingerprint(item)
		if t.store.Contains(fp) {
			continue
		}
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		fresh = append(fresh, item)
	}

	return fresh
}

func (t *Tracker) IsPublished(item post.Item) bool {
	return t.store.Contains(t.generator.Fingerprint(item))
}

// MarkPublished records the item as published now and persists the ledger
// before returning.
func (t *Tracker) MarkPublished(item post.Item) error {
	fp := t.generator.Fingerprint(item)
	if err := t.store.Record(fp); err != nil {
		return fmt.Errorf("%w: %v", ErrNotPersisted, err)
	}
	return nil
}

func (t *Tracker) Len() int {
	return t.store.Len()
}
