package ledger

import (
	"fmt"
	"log/slog"
	"time"
)

// Store is the in-memory ledger of one run together with where it is persisted.
// Only the holder of the pipeline lock may use a Store.
type Store struct {
	path    string
	entries Entries
	now     func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open loads the ledger at path. Unreadable or corrupt ledgers are replaced by
// an empty one with a warning; re-publishing once beats not publishing at all.
func Open(path string, opts ...Option) *Store {
	s := &Store{
		path: path,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	entries, err := Load(path)
	if err != nil {
		slog.Warn("Ledger could not be loaded, starting empty", "path", path, "error", err)
	}
	s.entries = entries

	slog.Debug("Ledger loaded", "path", path, "entries", len(entries))
	return s
}

func (s *Store) Path() string {
	return s.path
}

// Prune drops entries older than retention and returns how many were removed.
func (s *Store) Prune(retention time.Duration) int {
	before := len(s.entries)
	s.entries = s.entries.Prune(s.now().Add(-retention))
	return before - len(s.entries)
}

func (s *Store) Contains(fingerprint string) bool {
	return s.entries.Contains(fingerprint)
}

// Record marks fingerprint as published now and persists the whole ledger
// immediately. The in-memory entry is kept even when persisting fails.
func (s *Store) Record(fingerprint string) error {
	s.entries = s.entries.Record(fingerprint, s.now())

	if err := Save(s.path, s.entries); err != nil {
		return fmt.Errorf("failed to persist %s: %w", fingerprint, err)
	}
	return nil
}

// Flush persists the current entries, e.g. after pruning.
func (s *Store) Flush() error {
	return Save(s.path, s.entries)
}

func (s *Store) Len() int {
	return len(s.entries)
}

func (s *Store) Snapshot() Entries {
	snapshot := make(Entries, len(s.entries))
	for fp, ts := range s.entries {
		snapshot[fp] = ts
	}
	return snapshot
}
