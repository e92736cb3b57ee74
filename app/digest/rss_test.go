package digest

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/news-comb/app/feed"
	"github.com/lysyi3m/news-comb/app/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rssDoc struct {
	Channel struct {
		Title         string `xml:"title"`
		LastBuildDate string `xml:"lastBuildDate"`
		Items         []struct {
			GUID       string `xml:"guid"`
			Title      string `xml:"title"`
			Link       string `xml:"link"`
			PubDate    string `xml:"pubDate"`
			Categories []struct {
				Domain string `xml:"domain,attr"`
				Value  string `xml:",chardata"`
			} `xml:"category"`
		} `xml:"item"`
	} `xml:"channel"`
}

func TestGeneratorRun(t *testing.T) {
	published := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	entries := []Entry{
		{
			Article: feed.Article{
				ID:          "https://example.com/a",
				Title:       "Rates & <markets>",
				Summary:     "Summary",
				Link:        "https://example.com/a",
				Source:      "Bloomberg",
				PublishedAt: published,
				Categories:  []string{"Economy"},
			},
			Quality: source.Rate("Bloomberg"),
		},
		{
			Article: feed.Article{ID: "plain-id", Title: "No date"},
			Quality: source.Default().Fallback(),
		},
	}

	out, err := NewGenerator().Run(Channel{Title: "Digest", Link: "http://localhost", SelfLink: "http://localhost/feed.xml"}, entries)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, out, `<guid isPermaLink="true">https://example.com/a</guid>`)
	assert.Contains(t, out, `<guid isPermaLink="false">plain-id</guid>`)
	assert.Contains(t, out, `<description>No description available</description>`)
	assert.Contains(t, out, `rel="self"`)

	var doc rssDoc
	require.NoError(t, xml.Unmarshal([]byte(out), &doc))

	assert.Equal(t, "Digest", doc.Channel.Title)
	assert.Equal(t, published.Format(time.RFC1123Z), doc.Channel.LastBuildDate)
	require.Len(t, doc.Channel.Items, 2)

	first := doc.Channel.Items[0]
	assert.Equal(t, "Rates & <markets>", first.Title)
	assert.Equal(t, published.Format(time.RFC1123Z), first.PubDate)
	require.Len(t, first.Categories, 3)
	assert.Equal(t, "Bloomberg", first.Categories[0].Value)
	assert.Equal(t, "quality", first.Categories[1].Domain)
	assert.Equal(t, "premium", first.Categories[1].Value)
	assert.Equal(t, "Economy", first.Categories[2].Value)

	assert.Empty(t, doc.Channel.Items[1].PubDate)
}

func TestGeneratorEmpty(t *testing.T) {
	g := NewGenerator()
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.Local)
	g.now = func() time.Time { return now }

	out, err := g.Run(Channel{}, nil)
	require.NoError(t, err)

	var doc rssDoc
	require.NoError(t, xml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "News digest", doc.Channel.Title)
	assert.Equal(t, now.Format(time.RFC1123Z), doc.Channel.LastBuildDate)
	assert.Empty(t, doc.Channel.Items)
}
