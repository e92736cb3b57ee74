// Package digest assembles ingested feed articles into one deduplicated,
// quality-annotated list and answers queries over it.
package digest

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/lysyi3m/news-comb/app/dedup"
	"github.com/lysyi3m/news-comb/app/feed"
	"github.com/lysyi3m/news-comb/app/metrics"
	"github.com/lysyi3m/news-comb/app/similarity"
	"github.com/lysyi3m/news-comb/app/source"
)

// Entry is an article annotated with its publisher's quality.
type Entry struct {
	feed.Article
	Quality   source.Quality `json:"quality"`
	TierColor string         `json:"tier_color"`
}

type Stats struct {
	Feeds   int       `json:"feeds"`
	Input   int       `json:"input"`
	Exact   int       `json:"exact_duplicates"`
	Similar int       `json:"similar_duplicates"`
	Output  int       `json:"output"`
	BuiltAt time.Time `json:"built_at"`
}

type Options struct {
	Fingerprinter dedup.Fingerprinter
	// SimilarityThreshold enables the title-similarity pass when > 0.
	SimilarityThreshold float64
}

// Query selects entries from the digest. Zero values mean "no constraint".
type Query struct {
	Text    string
	MinTier source.Tier
	Limit   int
}

type Digest struct {
	rater *source.Rater
	opts  Options
	now   func() time.Time

	mu      sync.RWMutex
	feeds   map[string][]feed.Article
	entries []Entry
	stats   Stats
}

func New(rater *source.Rater, opts Options) *Digest {
	if rater == nil {
		rater = source.Default()
	}
	if opts.Fingerprinter.MaxTokens == 0 {
		opts.Fingerprinter = dedup.Default
	}
	return &Digest{
		rater: rater,
		opts:  opts,
		now:   time.Now,
		feeds: make(map[string][]feed.Article),
	}
}

// Annotate runs the ingestion pipeline on one batch without touching the
// stored digest: fingerprint dedup, optional similarity pass, then rating.
// Order is preserved.
func (d *Digest) Annotate(articles []feed.Article) ([]Entry, Stats) {
	unique := dedup.DeduplicateWith(d.opts.Fingerprinter, articles)
	kept := dedup.DeduplicateSimilar(unique, d.opts.SimilarityThreshold)

	entries := make([]Entry, 0, len(kept))
	for _, a := range kept {
		q := d.rater.Rate(a.Source)
		entries = append(entries, Entry{
			Article:   a,
			Quality:   q,
			TierColor: source.TierColor(q.Tier),
		})
	}

	stats := Stats{
		Input:   len(articles),
		Exact:   dedup.NewStats(len(articles), len(unique)).Dropped,
		Similar: dedup.NewStats(len(unique), len(kept)).Dropped,
		Output:  len(entries),
	}
	return entries, stats
}

// SetFeed replaces one feed's articles and rebuilds the digest.
func (d *Digest) SetFeed(name string, articles []feed.Article) Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.feeds[name] = slices.Clone(articles)
	return d.rebuild()
}

// RemoveFeed drops a feed from the digest, e.g. after it was disabled.
func (d *Digest) RemoveFeed(name string) Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.feeds, name)
	return d.rebuild()
}

// Replace swaps all feeds at once.
func (d *Digest) Replace(feeds map[string][]feed.Article) Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.feeds = make(map[string][]feed.Article, len(feeds))
	for name, articles := range feeds {
		d.feeds[name] = slices.Clone(articles)
	}
	return d.rebuild()
}

// rebuild must be called with mu held. Feeds are concatenated in name order so
// the first-seen winner of a duplicate group is stable between runs.
func (d *Digest) rebuild() Stats {
	var all []feed.Article
	for _, name := range slices.Sorted(maps.Keys(d.feeds)) {
		all = append(all, d.feeds[name]...)
	}

	entries, stats := d.Annotate(all)
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})

	stats.Feeds = len(d.feeds)
	stats.BuiltAt = d.now()

	d.entries = entries
	d.stats = stats

	metrics.RecordDigest(stats.Output, stats.Exact, stats.Similar)

	return stats
}

func (d *Digest) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stats
}

// Entries returns a copy of the current digest, newest first.
func (d *Digest) Entries() []Entry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.entries)
}

// Query filters by tier, then ranks by title similarity when Text is set.
func (d *Digest) Query(q Query) []Entry {
	d.mu.RLock()
	candidates := make([]Entry, 0, len(d.entries))
	for _, e := range d.entries {
		if q.MinTier == "" || e.Quality.Tier.AtLeast(q.MinTier) {
			candidates = append(candidates, e)
		}
	}
	d.mu.RUnlock()

	result := candidates
	if q.Text != "" {
		titles := make([]string, len(candidates))
		for i, e := range candidates {
			titles[i] = e.Title
		}

		matches := similarity.Rank(q.Text, titles)
		result = make([]Entry, 0, len(matches))
		for _, m := range matches {
			result = append(result, candidates[m.Index])
		}
	}

	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result
}
