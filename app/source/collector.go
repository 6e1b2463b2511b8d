package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/bgnews/newsrelay/app/fingerprint"
	"github.com/bgnews/newsrelay/app/post"
)

type Collector struct {
	configCache *ConfigCache
	fetcher     *Fetcher
	feedParser  *FeedParser
	htmlScraper *HTMLScraper
	filterer    *Filterer
	extractor   *ContentExtractor
	now         func() time.Time
}

func NewCollector(configCache *ConfigCache, fetcher *Fetcher) *Collector {
	return &Collector{
		configCache: configCache,
		fetcher:     fetcher,
		feedParser:  NewFeedParser(),
		htmlScraper: NewHTMLScraper(),
		filterer:    NewFilterer(),
		extractor:   NewContentExtractor(),
		now:         time.Now,
	}
}

// Collect gathers candidate items from every enabled source in name order. A
// failing source is reported and skipped; it never aborts the others.
func (c *Collector) Collect(ctx context.Context) ([]post.Item, []SourceError) {
	var items []post.Item
	var errs []SourceError

	for _, config := range c.configCache.GetEnabledConfigs() {
		if ctx.Err() != nil {
			errs = append(errs, SourceError{Source: config.Name, Err: ctx.Err()})
			continue
		}

		collected, err := c.collectSource(ctx, config)
		if err != nil {
			slog.Error("Failed to collect source", "source", config.Name, "url", config.URL, "error", err)
			errs = append(errs, SourceError{Source: config.Name, Err: err})
			continue
		}

		items = append(items, collected...)
	}

	return items, errs
}

func (c *Collector) collectSource(ctx context.Context, config *Config) ([]post.Item, error) {
	timeout := time.Duration(config.Settings.Timeout) * time.Second

	data, err := c.fetcher.Fetch(ctx, config.URL, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source: %w", err)
	}

	var scraped []post.Item
	switch config.Type {
	case TypeHTML:
		scraped, err = c.htmlScraper.Run(data, config)
	default:
		scraped, err = c.feedParser.Run(data, config)
	}
	if err != nil {
		return nil, err
	}

	now := c.now()
	recent := scraped
	if config.Settings.RecentOnly {
		recent = make([]post.Item, 0, len(scraped))
		for _, item := range scraped {
			if IsRecent(item, now, config.Settings.RecentDays) {
				recent = append(recent, item)
			}
		}
	}

	if config.Settings.ExtractContent {
		for i := range recent {
			c.extractLead(ctx, config, &recent[i], timeout)
		}
	}

	matching := c.filterer.Run(recent, config)

	kept := make([]post.Item, 0, len(matching))
	for _, item := range matching {
		if utf8.RuneCountInString(item.Text) < config.Settings.MinTextLength {
			continue
		}
		kept = append(kept, item)
	}

	slog.Info("Source collected",
		"source", config.Name,
		"scraped", len(scraped),
		"recent", len(recent),
		"matching", len(kept))

	return kept, nil
}

// extractLead replaces the listing text with the article text when the
// article page can be fetched. Failures keep the listing text.
func (c *Collector) extractLead(ctx context.Context, config *Config, item *post.Item, timeout time.Duration) {
	if item.CanonicalURL == "" {
		return
	}

	data, err := c.fetcher.Fetch(ctx, item.CanonicalURL, timeout)
	if err != nil {
		slog.Warn("Failed to fetch article", "source", config.Name, "url", item.CanonicalURL, "error", err)
		return
	}

	lead, err := c.extractor.Run(data, item.CanonicalURL)
	if err != nil {
		slog.Warn("Failed to extract article", "source", config.Name, "url", item.CanonicalURL, "error", err)
		return
	}

	item.Text = joinNonEmpty(item.Title, lead)
}

// RegisterIDPatterns adds the id_pattern of every loaded source to the
// fingerprint extractor table under the source's name.
func (cc *ConfigCache) RegisterIDPatterns(extractors *fingerprint.Extractors) error {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	for name, config := range cc.cache {
		if config.IDPattern == "" {
			continue
		}
		if err := extractors.RegisterPattern(name, config.IDPattern); err != nil {
			return fmt.Errorf("source %s: %w", name, err)
		}
	}
	return nil
}
