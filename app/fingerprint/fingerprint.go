package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/bgnews/newsrelay/app/post"
)

const DefaultPrefixLength = 200

type Generator struct {
	extractors   *Extractors
	prefixLength int
}

func NewGenerator(extractors *Extractors) *Generator {
	if extractors == nil {
		extractors = NewExtractors()
	}
	return &Generator{
		extractors:   extractors,
		prefixLength: DefaultPrefixLength,
	}
}

// Fingerprint derives the identity of an item. Source-specific article IDs win
// over the normalized URL, which wins over a hash of the text prefix.
//
// Items with neither URL nor text all hash the empty prefix and therefore share
// one fingerprint; sources drop such items before they reach the tracker.
func (g *Generator) Fingerprint(item post.Item) string {
	if item.CanonicalURL != "" {
		if id, ok := g.extractors.Extract(item.SourceTag, item.CanonicalURL); ok {
			return id
		}
		if normalized := NormalizeURL(item.CanonicalURL); normalized != "" {
			return normalized
		}
	}

	return TextHash(item.Text, g.prefixLength)
}

// TextHash returns the hex MD5 digest of the first prefixLength characters of text.
func TextHash(text string, prefixLength int) string {
	runes := []rune(text)
	if len(runes) > prefixLength {
		runes = runes[:prefixLength]
	}

	sum := md5.Sum([]byte(string(runes)))
	return hex.EncodeToString(sum[:])
}

// NormalizeURL strips the query string, the fragment and trailing slashes so that
// tracking parameters (fbclid, utm_*) do not change an article's identity.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		// Not an absolute URL, fall back to plain string trimming
		if idx := strings.IndexAny(raw, "?#"); idx >= 0 {
			raw = raw[:idx]
		}
		return strings.TrimRight(raw, "/")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	// RawPath keeps encoded separators such as %2F inside a segment
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = strings.TrimRight(u.RawPath, "/")

	return u.String()
}
