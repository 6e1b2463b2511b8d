package source

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"

	"github.com/bgnews/newsrelay/app/post"
)

var validFilterFields = map[string]bool{
	"text":   true,
	"title":  true,
	"link":   true,
	"source": true,
}

type Filterer struct {
	fold cases.Caser
}

func NewFilterer() *Filterer {
	return &Filterer{fold: cases.Fold()}
}

// Run returns the items that pass every filter of the source, in order.
func (f *Filterer) Run(items []post.Item, config *Config) []post.Item {
	if len(config.Filters) == 0 {
		return items
	}

	kept := make([]post.Item, 0, len(items))
	for _, item := range items {
		if isFiltered, reason := f.applyFilters(item, config.Filters); isFiltered {
			slog.Debug("Item filtered", "source", config.Name, "reason", reason, "item", item.Summary(60))
			continue
		}
		kept = append(kept, item)
	}

	return kept
}

func (f *Filterer) applyFilters(item post.Item, filters []Filter) (bool, string) {
	for _, filter := range filters {
		value := f.getFieldValue(item, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if f.matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return true, fmt.Sprintf("Excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
			}
		}
	}

	return false, ""
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(f.fold.String(value), f.fold.String(pattern))
}

func (f *Filterer) getFieldValue(item post.Item, field string) string {
	switch field {
	case "text":
		return item.Title + " " + item.Text
	case "title":
		return item.Title
	case "link":
		return item.CanonicalURL
	case "source":
		return item.SourceTag + " " + item.SourceName
	default:
		return ""
	}
}
