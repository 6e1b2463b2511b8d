package fingerprint

import (
	"fmt"
	"regexp"
	"sync"
)

// IDExtractor pulls a stable article ID out of a source URL.
type IDExtractor func(rawURL string) (string, bool)

// Extractors maps a source tag to the function extracting its article IDs.
type Extractors struct {
	mu    sync.RWMutex
	table map[string]IDExtractor
}

var builtinPatterns = map[string]string{
	// dziennik.walbrzych.pl/article-slug/ ; stops at / or ? so fbclid is ignored
	"dziennik": `dziennik\.walbrzych\.pl/([^/?#]+)`,
	// /dba/aktualnosci/bieza/163631,Title.html
	"policja": `/(\d+),`,
	// /pl/12_wiadomosci/45678_tytul.html
	"tvwalbrzych": `/pl/\d+_[^/]+/(\d+)_`,
}

// NewExtractors returns a table preloaded with the built-in sources.
func NewExtractors() *Extractors {
	e := &Extractors{table: make(map[string]IDExtractor)}
	for tag, pattern := range builtinPatterns {
		e.table[tag] = PatternExtractor(regexp.MustCompile(pattern))
	}
	return e
}

// PatternExtractor builds an extractor returning the first capture group of re.
func PatternExtractor(re *regexp.Regexp) IDExtractor {
	return func(rawURL string) (string, bool) {
		match := re.FindStringSubmatch(rawURL)
		if len(match) < 2 || match[1] == "" {
			return "", false
		}
		return match[1], true
	}
}

func (e *Extractors) Register(tag string, extractor IDExtractor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.table[tag] = extractor
}

// RegisterPattern compiles pattern and registers it for tag. The pattern must
// contain exactly one capture group.
func (e *Extractors) RegisterPattern(tag, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid id pattern for %s: %w", tag, err)
	}
	if re.NumSubexp() != 1 {
		return fmt.Errorf("id pattern for %s must have exactly one capture group, got %d", tag, re.NumSubexp())
	}

	e.Register(tag, PatternExtractor(re))
	return nil
}

// Extract returns "<tag>_<id>" when tag has an extractor matching rawURL.
func (e *Extractors) Extract(tag, rawURL string) (string, bool) {
	if tag == "" {
		return "", false
	}

	e.mu.RLock()
	extractor, ok := e.table[tag]
	e.mu.RUnlock()
	if !ok {
		return "", false
	}

	id, ok := extractor(rawURL)
	if !ok {
		return "", false
	}
	return tag + "_" + id, true
}

func (e *Extractors) Tags() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	tags := make([]string, 0, len(e.table))
	for tag := range e.table {
		tags = append(tags, tag)
	}
	return tags
}
