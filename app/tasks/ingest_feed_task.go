package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/news-comb/app/feed"
	"github.com/lysyi3m/news-comb/app/metrics"
)

// IngestFeedTask re-reads one feed snapshot and pushes its articles into the
// digest. The feed config is looked up when the task runs, so a queued or
// retried task honours a reload that happened after it was enqueued.
type IngestFeedTask struct {
	Task
	configCache *feed.ConfigCache
	loader      *feed.Loader
	sink        DigestSink
}

func NewIngestFeedTask(feedName string, configCache *feed.ConfigCache, loader *feed.Loader, sink DigestSink) *IngestFeedTask {
	return &IngestFeedTask{
		Task:        NewTask(TaskTypeIngestFeed, feedName),
		configCache: configCache,
		loader:      loader,
		sink:        sink,
	}
}

func (t *IngestFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	feedConfig, ok := t.currentConfig()
	if !ok {
		return nil
	}

	result, err := t.loader.Load(ctx, feedConfig)
	if err != nil {
		return fmt.Errorf("failed to load feed: %w", err)
	}

	// The config may have been disabled while the snapshot was loading.
	if _, ok := t.currentConfig(); !ok {
		return nil
	}

	stats := t.sink.SetFeed(t.FeedName, result.Articles)
	metrics.RecordIngest(t.FeedName, len(result.Articles), result.Filtered)

	slog.Info("Task completed",
		"type", "IngestFeed",
		"feed", t.FeedName,
		"duration", t.GetDuration(),
		"total", result.Total,
		"filtered", result.Filtered,
		"kept", len(result.Articles),
		"digest", stats.Output)

	return nil
}

// currentConfig returns the cached config when the feed is still enabled.
// Otherwise the feed is dropped from the digest.
func (t *IngestFeedTask) currentConfig() (*feed.Config, bool) {
	feedConfig, err := t.configCache.GetConfig(t.FeedName)
	if err != nil || !feedConfig.Settings.Enabled {
		slog.Debug("Feed disabled or removed, skipping", "feed", t.FeedName)
		t.sink.RemoveFeed(t.FeedName)
		return nil, false
	}
	return feedConfig, true
}
