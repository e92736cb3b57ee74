// Package source rates publishers by credibility so clients can rank and
// badge articles.
package source

import (
	"fmt"
	"sort"
)

// Tier is a credibility bucket derived from a source score.
type Tier string

const (
	TierPremium    Tier = "premium"
	TierReliable   Tier = "reliable"
	TierStandard   Tier = "standard"
	TierUnverified Tier = "unverified"
)

// UnknownSource is the table name used for publishers without an entry.
const UnknownSource = "Unknown"

// Quality is the credibility annotation attached to an article.
type Quality struct {
	Score       int    `json:"score" yaml:"score"`
	Tier        Tier   `json:"tier" yaml:"tier"`
	Description string `json:"description" yaml:"description"`
}

type threshold struct {
	min         int
	tier        Tier
	description string
}

// Evaluated top-down; the last entry catches everything.
var thresholds = []threshold{
	{95, TierPremium, "Premium verified source"},
	{85, TierReliable, "Highly reliable source"},
	{70, TierStandard, "Standard source"},
	{0, TierUnverified, "Unverified source"},
}

// ForScore derives the tier annotation from a numeric score.
func ForScore(score int) Quality {
	for _, t := range thresholds {
		if score >= t.min {
			return Quality{Score: score, Tier: t.tier, Description: t.description}
		}
	}
	last := thresholds[len(thresholds)-1]
	return Quality{Score: score, Tier: last.tier, Description: last.description}
}

// Rank orders tiers from most (3) to least (0) trusted. Unknown tiers rank -1.
func (t Tier) Rank() int {
	switch t {
	case TierPremium:
		return 3
	case TierReliable:
		return 2
	case TierStandard:
		return 1
	case TierUnverified:
		return 0
	default:
		return -1
	}
}

// AtLeast reports whether t is as trusted as min.
func (t Tier) AtLeast(min Tier) bool {
	return t.Rank() >= min.Rank()
}

// ParseTier validates a tier name.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if t.Rank() < 0 {
		return "", fmt.Errorf("unknown tier %q", s)
	}
	return t, nil
}

var tierColors = map[Tier]string{
	TierPremium:    "emerald",
	TierReliable:   "blue",
	TierStandard:   "amber",
	TierUnverified: "gray",
}

// TierColor returns the UI colour token for a tier.
func TierColor(t Tier) string {
	if c, ok := tierColors[t]; ok {
		return c
	}
	return tierColors[TierUnverified]
}

// Rater looks publishers up in an immutable table.
type Rater struct {
	table    map[string]Quality
	fallback Quality
}

// NewRater builds a rater from publisher scores. Tiers are derived from the
// scores; publishers missing from scores get fallback.
func NewRater(scores map[string]int, fallback Quality) *Rater {
	table := make(map[string]Quality, len(scores))
	for name, score := range scores {
		table[name] = ForScore(score)
	}
	return &Rater{table: table, fallback: fallback}
}

// Rate returns the quality for an exact publisher name.
func (r *Rater) Rate(name string) Quality {
	if q, ok := r.table[name]; ok {
		return q
	}
	return r.fallback
}

// Known reports whether name has its own table entry.
func (r *Rater) Known(name string) bool {
	_, ok := r.table[name]
	return ok
}

// Entry is one row of the rating table.
type Entry struct {
	Name string `json:"name"`
	Quality
}

// Sources lists the table, best score first, then by name.
func (r *Rater) Sources() []Entry {
	entries := make([]Entry, 0, len(r.table))
	for name, q := range r.table {
		entries = append(entries, Entry{Name: name, Quality: q})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// Fallback is the quality returned for unrated publishers.
func (r *Rater) Fallback() Quality {
	return r.fallback
}
