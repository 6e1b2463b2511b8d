package source

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/bgnews/newsrelay/app/post"
)

type FeedParser struct {
	gofeedParser *gofeed.Parser
}

func NewFeedParser() *FeedParser {
	return &FeedParser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *FeedParser) Run(data []byte, config *Config) ([]post.Item, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	now := time.Now().UTC()
	items := make([]post.Item, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		items = append(items, p.normalizeItem(item, config, now))
		if config.Settings.MaxItems > 0 && len(items) >= config.Settings.MaxItems {
			break
		}
	}

	return items, nil
}

func (p *FeedParser) normalizeItem(item *gofeed.Item, config *Config, now time.Time) post.Item {
	normalized := post.Item{
		CanonicalURL: strings.TrimSpace(item.Link),
		Title:        strings.TrimSpace(item.Title),
		SourceTag:    config.Name,
		SourceName:   config.Label(),
		ScrapedAt:    now,
	}

	description := plainText(item.Description)
	if description == "" {
		description = plainText(item.Content)
	}
	normalized.Text = joinNonEmpty(normalized.Title, description)

	if item.PublishedParsed != nil {
		published := item.PublishedParsed.UTC()
		normalized.PublishedAt = &published
		normalized.Time = published.Format("2006-01-02 15:04")
	} else if item.UpdatedParsed != nil {
		updated := item.UpdatedParsed.UTC()
		normalized.PublishedAt = &updated
		normalized.Time = updated.Format("2006-01-02 15:04")
	}

	if item.Image != nil && item.Image.URL != "" {
		normalized.Images = append(normalized.Images, item.Image.URL)
	}
	for _, enclosure := range item.Enclosures {
		if enclosure != nil && strings.HasPrefix(enclosure.Type, "image/") && !slices.Contains(normalized.Images, enclosure.URL) {
			normalized.Images = append(normalized.Images, enclosure.URL)
		}
	}

	return normalized
}

// plainText strips markup from feed descriptions.
func plainText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}
	if !strings.Contains(fragment, "<") {
		return collapseSpaces(fragment)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapseSpaces(fragment)
	}
	return collapseSpaces(doc.Text())
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
