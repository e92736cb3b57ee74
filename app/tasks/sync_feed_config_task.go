package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/news-comb/app/feed"
)

// SyncFeedConfigTask re-reads a feed's yml file. A feed that is now disabled
// is removed from the digest.
type SyncFeedConfigTask struct {
	Task
	configCache *feed.ConfigCache
	sink        DigestSink
}

func NewSyncFeedConfigTask(feedName string, configCache *feed.ConfigCache, sink DigestSink) *SyncFeedConfigTask {
	return &SyncFeedConfigTask{
		Task:        NewTask(TaskTypeSyncFeedConfig, feedName),
		configCache: configCache,
		sink:        sink,
	}
}

func (t *SyncFeedConfigTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	feedConfig, err := t.configCache.LoadConfig(t.FeedName)
	if err != nil {
		return fmt.Errorf("failed to reload feed config: %w", err)
	}

	if !feedConfig.Settings.Enabled {
		t.sink.RemoveFeed(t.FeedName)
	}

	slog.Info("Task completed",
		"type", "SyncFeedConfig",
		"feed", t.FeedName,
		"enabled", feedConfig.Settings.Enabled,
		"duration", t.GetDuration())

	return nil
}
