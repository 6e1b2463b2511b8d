package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
)

// TimeFormat is fixed width and zero padded, so lexical order of the
// formatted UTC timestamps equals chronological order.
const TimeFormat = "2006-01-02T15:04:05.000000Z07:00"

var ErrCorrupt = errors.New("ledger is corrupt")

// Entries maps a fingerprint to the time it was published.
type Entries map[string]string

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// Load reads the persisted ledger. A missing file is a first run and yields an
// empty mapping. Any other failure also yields an empty mapping together with the
// error, so callers can warn and carry on publishing.
func Load(path string) (Entries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Entries{}, nil
		}
		return Entries{}, fmt.Errorf("failed to read ledger: %w", err)
	}

	var entries Entries
	if err := json.Unmarshal(data, &entries); err != nil {
		return Entries{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if entries == nil {
		// "null" decodes without error
		return Entries{}, nil
	}

	return entries, nil
}

// Save overwrites the persisted ledger atomically.
func Save(path string, entries Entries) error {
	if entries == nil {
		entries = Entries{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}

	return nil
}

// Prune returns the entries recorded at or after cutoff.
func (e Entries) Prune(cutoff time.Time) Entries {
	cutoffStr := FormatTime(cutoff)

	pruned := make(Entries, len(e))
	for fp, ts := range e {
		if ts >= cutoffStr {
			pruned[fp] = ts
		}
	}
	return pruned
}

func (e Entries) Contains(fingerprint string) bool {
	_, ok := e[fingerprint]
	return ok
}

// Record returns a copy of the entries with fingerprint set to at.
func (e Entries) Record(fingerprint string, at time.Time) Entries {
	updated := make(Entries, len(e)+1)
	for fp, ts := range e {
		updated[fp] = ts
	}
	updated[fingerprint] = FormatTime(at)
	return updated
}
