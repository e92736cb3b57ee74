package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/news-comb/app/feed"
	"github.com/lysyi3m/news-comb/app/metrics"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	taskQueueSize = 300
	taskTimeout   = 5 * time.Minute
)

type Scheduler struct {
	configCache *feed.ConfigCache
	loader      *feed.Loader
	sink        DigestSink
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	mu        sync.Mutex
	nextFetch map[string]time.Time
	now       func() time.Time
}

func NewScheduler(configCache *feed.ConfigCache, loader *feed.Loader, sink DigestSink,
	interval time.Duration, workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		configCache: configCache,
		loader:      loader,
		sink:        sink,
		interval:    interval,
		workerCount: max(1, workerCount),
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, taskQueueSize),
		nextFetch:   make(map[string]time.Time),
		now:         time.Now,
	}
}

// Prime loads every enabled feed synchronously and replaces the digest, so
// the first request after startup already sees data. Feeds loaded here are not
// due again until their refresh interval has passed.
func (s *Scheduler) Prime(ctx context.Context) error {
	results, err := s.loader.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to prime digest: %w", err)
	}

	feeds := make(map[string][]feed.Article, len(results))
	for name, result := range results {
		feeds[name] = result.Articles
		metrics.RecordIngest(name, len(result.Articles), result.Filtered)
	}
	stats := s.sink.Replace(feeds)

	now := s.now()
	s.mu.Lock()
	for name, feedConfig := range s.configCache.GetEnabledConfigs() {
		if _, ok := results[name]; ok {
			s.nextFetch[name] = now.Add(refreshInterval(feedConfig))
		}
	}
	s.mu.Unlock()

	slog.Info("Digest primed", "feeds", stats.Feeds, "input", stats.Input, "output", stats.Output)
	return nil
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

// Stop cancels running tasks and waits for workers. The queue is left open so
// a late retry cannot send on a closed channel.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// IngestNow reloads a feed's config in place and queues a fresh ingest. A feed
// that is now disabled is dropped from the digest and nil is returned.
func (s *Scheduler) IngestNow(ctx context.Context, feedName string) (TaskInterface, error) {
	syncTask := NewSyncFeedConfigTask(feedName, s.configCache, s.sink)
	syncTask.Start()
	if err := syncTask.Execute(ctx); err != nil {
		return nil, err
	}

	feedConfig, err := s.configCache.GetConfig(feedName)
	if err != nil {
		return nil, err
	}
	if !feedConfig.Settings.Enabled {
		return nil, nil
	}

	ingestTask := NewIngestFeedTask(feedName, s.configCache, s.loader, s.sink)
	if err := s.EnqueueTask(ingestTask); err != nil {
		return nil, fmt.Errorf("failed to enqueue ingest task: %w", err)
	}

	s.mu.Lock()
	s.nextFetch[feedName] = s.now().Add(refreshInterval(feedConfig))
	s.mu.Unlock()

	return ingestTask, nil
}

func (s *Scheduler) enqueueTasks() {
	feedConfigs := s.configCache.GetEnabledConfigs()
	if len(feedConfigs) == 0 {
		slog.Debug("No enabled feed configurations found")
		return
	}

	slog.Debug("Processing enabled feed configurations for task scheduling", "count", len(feedConfigs))

	now := s.now()
	for _, feedConfig := range feedConfigs {
		s.mu.Lock()
		next, seen := s.nextFetch[feedConfig.Name]
		due := !seen || !next.After(now)
		if due {
			s.nextFetch[feedConfig.Name] = now.Add(refreshInterval(feedConfig))
		}
		s.mu.Unlock()

		if !due {
			slog.Debug("Feed not due for refresh yet", "feed", feedConfig.Name, "next_fetch_at", next)
			continue
		}

		ingestTask := NewIngestFeedTask(feedConfig.Name, s.configCache, s.loader, s.sink)
		if err := s.EnqueueTask(ingestTask); err != nil {
			slog.Warn("Failed to enqueue IngestFeedTask", "feed", feedConfig.Name, "error", err)
			s.mu.Lock()
			delete(s.nextFetch, feedConfig.Name)
			s.mu.Unlock()
		}
	}
}

func refreshInterval(feedConfig *feed.Config) time.Duration {
	return time.Duration(feedConfig.Settings.RefreshInterval) * time.Second
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	metrics.RecordTask(string(task.GetType()), err, task.GetDuration())

	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := task.RetryDelay()

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "feed", task.GetFeedName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	go func() {
		timer := time.NewTimer(retryDelay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-timer.C:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}
