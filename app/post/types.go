package post

import (
	"time"
)

// Item is a single publishable unit produced by a source.
type Item struct {
	CanonicalURL string
	Text         string
	SourceTag    string // config name of the source that produced the item
	SourceName   string
	Title        string
	Time         string // relative time marker as scraped, e.g. "3 godziny temu"
	PublishedAt  *time.Time
	Images       []string
	ScrapedAt    time.Time
}

// Summary returns a short single-line preview for logs.
func (i Item) Summary(limit int) string {
	text := i.Text
	if text == "" {
		text = i.Title
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
