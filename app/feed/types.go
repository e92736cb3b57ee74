package feed

import (
	"time"
)

// Feed processing types

type Metadata struct {
	Title       string
	Link        string
	Description string
	Language    string
	PublishedAt *time.Time
}

// Article is one item of an ingested feed. Summary is plain text; HTML from
// the feed document is reduced before it lands here.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Link        string    `json:"link,omitempty"`
	Source      string    `json:"source"`
	Feed        string    `json:"feed,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Categories  []string  `json:"categories,omitempty"`
}

func (a Article) ArticleTitle() string   { return a.Title }
func (a Article) ArticleSummary() string { return a.Summary }

// Configuration types

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	Source   string         `yaml:"source"` // publisher display name used for rating
	File     string         `yaml:"file"`   // snapshot path, relative to the feeds dir
	Settings ConfigSettings `yaml:"settings"`
	Filters  []ConfigFilter `yaml:"filters"`
}

type ConfigSettings struct {
	Enabled         bool `yaml:"enabled"`
	RefreshInterval int  `yaml:"refresh_interval"` // seconds
	MaxItems        int  `yaml:"max_items"`
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
