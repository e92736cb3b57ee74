package feed

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Loader turns a feed config into articles: read snapshot, parse, filter,
// cap at max_items.
type Loader struct {
	configCache *ConfigCache
	parser      *Parser
	filterer    *Filterer
	concurrency int
}

// Result is the outcome of loading one feed.
type Result struct {
	Feed     string
	Articles []Article
	Total    int
	Filtered int
}

func NewLoader(configCache *ConfigCache, parser *Parser, filterer *Filterer, concurrency int) *Loader {
	return &Loader{
		configCache: configCache,
		parser:      parser,
		filterer:    filterer,
		concurrency: max(1, concurrency),
	}
}

func (l *Loader) Load(ctx context.Context, feedConfig *Config) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	path := l.configCache.SnapshotPath(feedConfig)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}

	metadata, articles, err := l.parser.Run(data)
	if err != nil {
		return nil, err
	}

	total := len(articles)
	articles, filtered := l.filterer.Run(articles, feedConfig)

	if limit := feedConfig.Settings.MaxItems; limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}

	source := cmp.Or(feedConfig.Source, metadata.Title)
	for i := range articles {
		articles[i].Source = source
		articles[i].Feed = feedConfig.Name
	}

	return &Result{
		Feed:     feedConfig.Name,
		Articles: articles,
		Total:    total,
		Filtered: filtered,
	}, nil
}

// LoadAll loads every enabled feed concurrently. A feed that fails is logged
// and left out; only cancellation aborts the whole run.
func (l *Loader) LoadAll(ctx context.Context) (map[string]*Result, error) {
	configs := l.configCache.GetEnabledConfigs()
	results := make(map[string]*Result, len(configs))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for name, feedConfig := range configs {
		g.Go(func() error {
			result, err := l.Load(gCtx, feedConfig)
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				slog.Warn("Failed to load feed", "feed", name, "error", err)
				return nil
			}

			mu.Lock()
			results[name] = result
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
