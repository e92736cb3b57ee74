package tasks

import (
	"github.com/lysyi3m/news-comb/app/digest"
	"github.com/lysyi3m/news-comb/app/feed"
)

// TaskSchedulerInterface is what the HTTP layer needs from the scheduler.
//
//	scheduler := NewScheduler(configCache, loader, digest, interval, workerCount)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewIngestFeedTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// DigestSink receives ingested articles. *digest.Digest implements it.
type DigestSink interface {
	SetFeed(name string, articles []feed.Article) digest.Stats
	RemoveFeed(name string) digest.Stats
	Replace(feeds map[string][]feed.Article) digest.Stats
}

var _ DigestSink = (*digest.Digest)(nil)
