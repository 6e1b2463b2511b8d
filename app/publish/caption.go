package publish

import (
	"regexp"
	"strings"

	"github.com/bgnews/newsrelay/app/post"
)

const (
	DefaultHeader        = "📰 Boguszów News"
	DefaultMaxTextLength = 500
	unknownTime          = "Nieznana godzina"
)

var DefaultHashtags = []string{"#BoguszówGorce", "#Boguszów", "#DolnyŚląsk"}

var urlPattern = regexp.MustCompile(`https?://\S+`)

type CaptionOptions struct {
	Header        string
	Preamble      []string // lines right after the header, e.g. an appeal
	Hashtags      []string
	MaxTextLength int
}

func DefaultCaptionOptions() CaptionOptions {
	return CaptionOptions{
		Header:        DefaultHeader,
		Hashtags:      DefaultHashtags,
		MaxTextLength: DefaultMaxTextLength,
	}
}

// CleanText removes URLs, collapses whitespace and caps the result at limit
// characters.
func CleanText(text string, limit int) string {
	text = urlPattern.ReplaceAllString(text, "")
	text = strings.Join(strings.Fields(text), " ")

	if limit > 0 {
		runes := []rune(text)
		if len(runes) > limit {
			text = strings.TrimSpace(string(runes[:limit]))
		}
	}
	return text
}

// Caption renders the message body for an item.
func Caption(item post.Item, opts CaptionOptions) string {
	var lines []string

	if opts.Header != "" {
		lines = append(lines, opts.Header)
	}
	lines = append(lines, opts.Preamble...)

	source := item.SourceName
	if source == "" {
		source = item.SourceTag
	}
	if source != "" {
		lines = append(lines, "📍 "+source)
	}

	when := item.Time
	if when == "" {
		when = unknownTime
	}
	lines = append(lines, "⏰ "+when)

	if text := CleanText(item.Text, opts.MaxTextLength); text != "" {
		lines = append(lines, "", text)
	}

	if item.CanonicalURL != "" {
		lines = append(lines, "", "🔗 "+item.CanonicalURL)
	}

	if len(opts.Hashtags) > 0 {
		lines = append(lines, "", strings.Join(opts.Hashtags, " "))
	}

	return strings.Join(lines, "\n")
}
