// Package similarity implements a plain lexical overlap metric.
//
// Words are lowercased and split on whitespace, nothing else. Unlike the
// dedup normalizer, punctuation stays attached and short words count.
package similarity

import (
	"sort"
	"strings"
)

// Jaccard returns |A∩B| / |A∪B| over the lowercased word sets of a and b.
// Two empty inputs score 0.
func Jaccard(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)

	if len(setA) > len(setB) {
		setA, setB = setB, setA
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Match is one ranked document.
type Match struct {
	Index int
	Score float64
}

// Rank scores every doc against query and returns the non-zero matches,
// best first. Ties keep document order.
func Rank(query string, docs []string) []Match {
	matches := make([]Match, 0, len(docs))
	for i, doc := range docs {
		if score := Jaccard(query, doc); score > 0 {
			matches = append(matches, Match{Index: i, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}
