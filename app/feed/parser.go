package feed

import (
	"bytes"
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// Parser is safe for concurrent use. gofeed parsers keep per-document state,
// so each Run gets its own.
type Parser struct {
	newFeedParser func() *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		newFeedParser: gofeed.NewParser,
	}
}

// Run parses an RSS, Atom or JSON feed document. Source and Feed are left
// empty on the returned articles; the loader fills them from the config.
func (p *Parser) Run(data []byte) (*Metadata, []Article, error) {
	feed, err := p.newFeedParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:       feed.Title,
		Link:        feed.Link,
		Description: feed.Description,
		Language:    feed.Language,
		PublishedAt: feed.PublishedParsed,
	}

	articles := make([]Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		articles = append(articles, p.normalizeItem(item))
	}

	return metadata, articles, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Article {
	article := Article{
		Title:      strings.TrimSpace(htmlToText(item.Title)),
		Summary:    htmlToText(cmp.Or(item.Description, item.Content)),
		Link:       item.Link,
		Categories: item.Categories,
	}

	if item.PublishedParsed != nil {
		article.PublishedAt = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		article.PublishedAt = *item.UpdatedParsed
	}

	article.ID = cmp.Or(item.GUID, item.Link, contentHash(article))

	return article
}

func contentHash(a Article) string {
	content := fmt.Sprintf("%s|%s", a.Title, a.Summary)

	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// htmlToText strips markup and collapses whitespace. Plain text passes
// through with whitespace collapsed.
func htmlToText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	if !strings.Contains(trimmed, "<") {
		return strings.Join(strings.Fields(trimmed), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
	if err != nil {
		return strings.Join(strings.Fields(trimmed), " ")
	}

	doc.Find("script, style, noscript").Remove()
	// Block boundaries would otherwise glue adjacent words together.
	doc.Find("p, br, div, li, h1, h2, h3, h4, h5, h6, td, blockquote").AppendHtml(" ")

	return strings.Join(strings.Fields(doc.Text()), " ")
}
