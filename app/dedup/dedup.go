// Package dedup collapses near-duplicate articles coming from several feeds
// into one representative per fingerprint.
package dedup

import (
	"github.com/lysyi3m/news-comb/app/similarity"
)

// Article is any record exposing a title and a summary.
type Article interface {
	ArticleTitle() string
	ArticleSummary() string
}

// Stats describes one deduplication pass.
type Stats struct {
	Input   int
	Output  int
	Dropped int
}

// NewStats builds Stats from slice lengths before and after a pass.
func NewStats(in, out int) Stats {
	return Stats{Input: in, Output: out, Dropped: in - out}
}

// Deduplicate keeps the first article of every fingerprint, in input order.
// The input slice is left untouched and survivors are returned as-is.
func Deduplicate[T Article](articles []T) []T {
	return DeduplicateWith(Default, articles)
}

// DeduplicateWith is Deduplicate with custom fingerprint constants.
func DeduplicateWith[T Article](f Fingerprinter, articles []T) []T {
	return deduplicate(f, articles, articleFields[T])
}

// DeduplicateFunc is Deduplicate for records that cannot implement Article.
func DeduplicateFunc[T any](items []T, fields func(T) (title, summary string)) []T {
	return deduplicate(Default, items, fields)
}

func deduplicate[T any](f Fingerprinter, items []T, fields func(T) (string, string)) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))

	for _, item := range items {
		title, summary := fields(item)
		key := f.Fingerprint(title, summary)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}

	return out
}

func articleFields[T Article](a T) (string, string) {
	return a.ArticleTitle(), a.ArticleSummary()
}

// DeduplicateSimilar drops every article whose title is at least threshold
// similar (Jaccard) to the title of an earlier survivor. A threshold <= 0
// disables the pass.
func DeduplicateSimilar[T Article](articles []T, threshold float64) []T {
	out := make([]T, 0, len(articles))
	if threshold <= 0 {
		return append(out, articles...)
	}

	for _, candidate := range articles {
		title := candidate.ArticleTitle()
		duplicate := false
		for _, kept := range out {
			if similarity.Jaccard(title, kept.ArticleTitle()) >= threshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, candidate)
		}
	}

	return out
}
