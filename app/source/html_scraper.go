package source

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/bgnews/newsrelay/app/post"
)

type HTMLScraper struct{}

func NewHTMLScraper() *HTMLScraper {
	return &HTMLScraper{}
}

// Run extracts listing items using the source's selectors. Links and images
// are resolved against the source URL.
func (s *HTMLScraper) Run(data []byte, config *Config) ([]post.Item, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid source URL: %w", err)
	}

	sel := config.Selectors
	now := time.Now().UTC()
	items := make([]post.Item, 0)

	doc.Find(sel.Item).EachWithBreak(func(_ int, node *goquery.Selection) bool {
		item := post.Item{
			SourceTag:  config.Name,
			SourceName: config.Label(),
			ScrapedAt:  now,
			Title:      selectText(node, sel.Title),
			Time:       selectText(node, sel.Time),
		}

		body := selectText(node, sel.Text)
		if sel.Text == "" {
			body = collapseSpaces(node.Text())
		}
		if body == item.Title {
			body = ""
		}
		item.Text = joinNonEmpty(item.Title, body)

		if href := selectAttr(node, sel.Link, "a[href]", "href"); href != "" {
			item.CanonicalURL = resolve(base, href)
		}

		if sel.Image != "" {
			node.Find(sel.Image).Each(func(_ int, img *goquery.Selection) {
				src, ok := img.Attr("src")
				if !ok || strings.HasPrefix(src, "data:") {
					src, _ = img.Attr("data-src")
				}
				if src != "" {
					item.Images = append(item.Images, resolve(base, src))
				}
			})
		}

		if item.Text == "" && item.CanonicalURL == "" {
			return true
		}

		items = append(items, item)
		return config.Settings.MaxItems <= 0 || len(items) < config.Settings.MaxItems
	})

	return items, nil
}

func selectText(node *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return collapseSpaces(node.Find(selector).First().Text())
}

// selectAttr reads attr from the first match of selector, or of fallback when
// selector is empty. The item node itself is used when it is the link.
func selectAttr(node *goquery.Selection, selector, fallback, attr string) string {
	if selector == "" {
		if v, ok := node.Attr(attr); ok {
			return strings.TrimSpace(v)
		}
		selector = fallback
	}
	v, _ := node.Find(selector).First().Attr(attr)
	return strings.TrimSpace(v)
}

func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
