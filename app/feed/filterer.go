package feed

import (
	"strings"
)

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run returns the articles that pass every filter of feedConfig and the
// number that were dropped.
func (f *Filterer) Run(articles []Article, feedConfig *Config) ([]Article, int) {
	if feedConfig == nil || len(feedConfig.Filters) == 0 {
		return articles, 0
	}

	kept := make([]Article, 0, len(articles))
	for _, article := range articles {
		if f.isFiltered(article, feedConfig.Filters) {
			continue
		}
		kept = append(kept, article)
	}

	return kept, len(articles) - len(kept)
}

func (f *Filterer) isFiltered(article Article, filters []ConfigFilter) bool {
	for _, filter := range filters {
		value := f.getFieldValue(article, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return true
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if f.matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return true
			}
		}
	}

	return false
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(article Article, field string) string {
	switch field {
	case "title":
		return article.Title
	case "summary":
		return article.Summary
	case "link":
		return article.Link
	case "categories":
		return strings.Join(article.Categories, " ")
	default:
		return ""
	}
}
