package api

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"time"

	"github.com/bgnews/newsrelay/app/cfg"
	"github.com/bgnews/newsrelay/app/database"
)

// RSSGenerator renders publication history as an RSS 2.0 channel.
type RSSGenerator struct{}

func NewRSSGenerator() *RSSGenerator {
	return &RSSGenerator{}
}

func (g *RSSGenerator) Run(selfLink string, publications []database.Publication, now time.Time) string {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", "newsrelay publications", 4)
	g.writeElement(&buf, "link", selfLink, 4)
	g.writeElement(&buf, "description", "Items published by newsrelay", 4)
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	lastBuildDate := now
	if len(publications) > 0 {
		lastBuildDate = publications[0].PublishedAt
	}
	g.writeElement(&buf, "lastBuildDate", lastBuildDate.In(time.Local).Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("newsrelay/%s", cfg.GetVersion()), 4)

	for _, p := range publications {
		g.writeItem(&buf, p)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String()
}

func (g *RSSGenerator) writeItem(buf *bytes.Buffer, p database.Publication) {
	buf.WriteString("    <item>\n")

	buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(p.Fingerprint)))
	xml.EscapeText(buf, []byte(p.Fingerprint))
	buf.WriteString("</guid>\n")

	title := p.Title
	if title == "" {
		title = p.Fingerprint
	}
	g.writeElement(buf, "title", title, 6)
	g.writeElement(buf, "link", p.Link, 6)
	g.writeElement(buf, "category", p.SourceTag, 6)
	g.writeElement(buf, "pubDate", p.PublishedAt.In(time.Local).Format(time.RFC1123Z), 6)

	buf.WriteString("    </item>\n")
}

func (g *RSSGenerator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *RSSGenerator) isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}
