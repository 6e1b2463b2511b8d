package api

import (
	"time"

	"github.com/bgnews/newsrelay/app/database"
	"github.com/bgnews/newsrelay/app/source"
)

type Handler struct {
	ledgerPath  string
	retention   time.Duration
	history     database.HistoryRepository
	configCache *source.ConfigCache
	now         func() time.Time
}

type LedgerEntry struct {
	Fingerprint string `json:"fingerprint"`
	PublishedAt string `json:"published_at"`
	ExpiresAt   string `json:"expires_at,omitempty"`
}
