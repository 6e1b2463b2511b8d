package api

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bgnews/newsrelay/app/database"
	"github.com/bgnews/newsrelay/app/ledger"
	"github.com/bgnews/newsrelay/app/source"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

func NewHandler(ledgerPath string, retention time.Duration, history database.HistoryRepository, configCache *source.ConfigCache) *Handler {
	return &Handler{
		ledgerPath:  ledgerPath,
		retention:   retention,
		history:     history,
		configCache: configCache,
		now:         time.Now,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": h.now().In(time.Local).Format(time.RFC3339),
	}

	if entries, err := ledger.Load(h.ledgerPath); err == nil {
		health["ledger_entries"] = len(entries)
	} else {
		health["ledger_error"] = err.Error()
	}

	if h.configCache != nil {
		health["loaded_sources"] = h.configCache.GetConfigCount()
	}

	c.JSON(http.StatusOK, health)
}

// GetLedger reads the ledger straight from disk. It takes no lock: the file is
// replaced atomically, so a reader sees either the old or the new version.
func (h *Handler) GetLedger(c *gin.Context) {
	entries, err := ledger.Load(h.ledgerPath)
	if err != nil {
		slog.Error("Ledger read error", "path", h.ledgerPath, "error", err)
		message := "Ledger unreadable"
		if errors.Is(err, ledger.ErrCorrupt) {
			message = "Ledger corrupt"
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
		return
	}

	result := make([]LedgerEntry, 0, len(entries))
	for fp, ts := range entries {
		entry := LedgerEntry{Fingerprint: fp, PublishedAt: ts}
		if at, err := time.Parse(ledger.TimeFormat, ts); err == nil && h.retention > 0 {
			entry.ExpiresAt = ledger.FormatTime(at.Add(h.retention))
		}
		result = append(result, entry)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].PublishedAt > result[j].PublishedAt
	})

	c.JSON(http.StatusOK, gin.H{
		"entries": result,
		"total":   len(result),
	})
}

func (h *Handler) GetRuns(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	runs, err := h.history.ListRuns(limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"total": len(runs),
	})
}

func (h *Handler) GetPublications(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	publications, err := h.history.ListPublications(limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_publications", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"publications": publications,
		"total":        len(publications),
	})
}

// GetPublicationsFeed serves the same history as GetPublications as RSS.
func (h *Handler) GetPublicationsFeed(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	publications, err := h.history.ListPublications(limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_publications", "error", err)
		c.String(http.StatusInternalServerError, "Database error")
		return
	}

	selfLink := "http://" + c.Request.Host + c.Request.URL.Path
	body := NewRSSGenerator().Run(selfLink, publications, h.now())
	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(body))
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.history.Stats(h.now())
	if err != nil {
		slog.Error("Database error", "operation", "stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultLimit, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, true
}
