package digest

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"time"
)

// Channel describes the RSS channel wrapping a rendered digest.
type Channel struct {
	Title       string
	Link        string
	SelfLink    string
	Description string
	Generator   string
}

type Generator struct {
	now func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// Run renders entries as an RSS 2.0 document. Every item carries its
// publisher and quality tier as categories.
func (g *Generator) Run(channel Channel, entries []Entry) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", cmp.Or(channel.Title, "News digest"), 4)
	g.writeElement(&buf, "link", channel.Link, 4)
	g.writeElement(&buf, "description", cmp.Or(channel.Description, "Deduplicated news digest"), 4)

	if channel.SelfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(channel.SelfLink)))
	}

	lastBuildDate := g.now().In(time.Local)
	if len(entries) > 0 && !entries[0].PublishedAt.IsZero() {
		lastBuildDate = entries[0].PublishedAt
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", channel.Generator, 4)

	for _, entry := range entries {
		g.writeItem(&buf, entry)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, entry Entry) {
	buf.WriteString("    <item>\n")

	if entry.ID != "" {
		buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(entry.ID)))
		xml.EscapeText(buf, []byte(entry.ID))
		buf.WriteString("</guid>\n")
	}

	g.writeElement(buf, "title", entry.Title, 6)
	g.writeElement(buf, "link", entry.Link, 6)
	g.writeElement(buf, "description", cmp.Or(entry.Summary, "No description available"), 6)

	if !entry.PublishedAt.IsZero() {
		g.writeElement(buf, "pubDate", entry.PublishedAt.Format(time.RFC1123Z), 6)
	}

	g.writeElement(buf, "category", entry.Source, 6)
	if entry.Quality.Tier != "" {
		buf.WriteString("      <category domain=\"quality\">")
		xml.EscapeText(buf, []byte(entry.Quality.Tier))
		buf.WriteString("</category>\n")
	}

	for _, category := range entry.Categories {
		g.writeElement(buf, "category", category, 6)
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
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

func (g *Generator) isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}
