package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/news-comb/app/digest"
	"github.com/lysyi3m/news-comb/app/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshot = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Wire</title>
  <item><guid>1</guid><title>Fed raises interest rates</title><description>Policy tightening continues</description></item>
  <item><guid>2</guid><title>Oil prices slide lower</title><description>Supply glut weighs on crude</description></item>
</channel></rss>`

type fixture struct {
	dir    string
	cache  *feed.ConfigCache
	loader *feed.Loader
	digest *digest.Digest
}

func newFixture(t *testing.T, configs map[string]string) *fixture {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wire.xml"), []byte(snapshot), 0o644))
	for name, content := range configs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yml"), []byte(content), 0o644))
	}

	cache := feed.NewConfigCache(dir)
	require.NoError(t, cache.Run())

	return &fixture{
		dir:    dir,
		cache:  cache,
		loader: feed.NewLoader(cache, feed.NewParser(), feed.NewFilterer(), 2),
		digest: digest.New(nil, digest.Options{}),
	}
}

func (f *fixture) scheduler(interval time.Duration) *Scheduler {
	return NewScheduler(f.cache, f.loader, f.digest, interval, 2)
}

type countingTask struct {
	Task
	calls   atomic.Int32
	failFor int32
}

func (c *countingTask) Execute(context.Context) error {
	n := c.calls.Add(1)
	if n <= c.failFor {
		return errors.New("transient")
	}
	return nil
}

func TestIngestFeedTask(t *testing.T) {
	f := newFixture(t, map[string]string{
		"wire": "source: Reuters\nfile: wire.xml\nsettings:\n  enabled: true",
	})
	task := NewIngestFeedTask("wire", f.cache, f.loader, f.digest)
	task.Start()
	require.NoError(t, task.Execute(context.Background()))

	entries := f.digest.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Reuters", entries[0].Source)
	assert.Equal(t, 97, entries[0].Quality.Score)
	assert.Equal(t, TaskTypeIngestFeed, task.GetType())
}

func TestIngestFeedTaskDisabledIsNoop(t *testing.T) {
	f := newFixture(t, map[string]string{"off": "file: wire.xml"})
	task := NewIngestFeedTask("off", f.cache, f.loader, f.digest)
	require.NoError(t, task.Execute(context.Background()))
	assert.Empty(t, f.digest.Entries())
}

func TestIngestFeedTaskMissingSnapshot(t *testing.T) {
	f := newFixture(t, map[string]string{"ghost": "file: nope.xml\nsettings:\n  enabled: true"})
	task := NewIngestFeedTask("ghost", f.cache, f.loader, f.digest)
	assert.Error(t, task.Execute(context.Background()))
}

func TestIngestFeedTaskCancelled(t *testing.T) {
	f := newFixture(t, map[string]string{"wire": "file: wire.xml\nsettings:\n  enabled: true"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	task := NewIngestFeedTask("wire", f.cache, f.loader, f.digest)
	assert.ErrorIs(t, task.Execute(ctx), context.Canceled)
}

func TestSyncFeedConfigTaskRemovesDisabledFeed(t *testing.T) {
	f := newFixture(t, map[string]string{"wire": "file: wire.xml\nsettings:\n  enabled: true"})
	require.NoError(t, NewIngestFeedTask("wire", f.cache, f.loader, f.digest).Execute(context.Background()))
	require.Len(t, f.digest.Entries(), 2)

	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "wire.yml"), []byte("file: wire.xml\nsettings:\n  enabled: false"), 0o644))

	task := NewSyncFeedConfigTask("wire", f.cache, f.digest)
	require.NoError(t, task.Execute(context.Background()))

	assert.Empty(t, f.digest.Entries())
	reloaded, _ := f.cache.GetConfig("wire")
	assert.False(t, reloaded.Settings.Enabled)
}

func TestQueuedIngestAfterFeedDisabled(t *testing.T) {
	f := newFixture(t, map[string]string{"wire": "file: wire.xml\nsettings:\n  enabled: true"})
	queued := NewIngestFeedTask("wire", f.cache, f.loader, f.digest)

	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "wire.yml"), []byte("file: wire.xml\nsettings:\n  enabled: false"), 0o644))
	require.NoError(t, NewSyncFeedConfigTask("wire", f.cache, f.digest).Execute(context.Background()))
	require.Empty(t, f.digest.Entries())

	require.NoError(t, queued.Execute(context.Background()))

	assert.Empty(t, f.digest.Entries())
	assert.Zero(t, f.digest.Stats().Feeds)
}

func TestIngestFeedTaskUsesReloadedConfig(t *testing.T) {
	f := newFixture(t, map[string]string{"wire": "source: Reuters\nfile: wire.xml\nsettings:\n  enabled: true"})
	queued := NewIngestFeedTask("wire", f.cache, f.loader, f.digest)

	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "wire.yml"), []byte("source: Bloomberg\nfile: wire.xml\nsettings:\n  enabled: true"), 0o644))
	_, err := f.cache.LoadConfig("wire")
	require.NoError(t, err)

	require.NoError(t, queued.Execute(context.Background()))

	entries := f.digest.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Bloomberg", entries[0].Source)
}

func TestSyncFeedConfigTaskMissingFile(t *testing.T) {
	f := newFixture(t, nil)
	task := NewSyncFeedConfigTask("missing", f.cache, f.digest)
	assert.Error(t, task.Execute(context.Background()))
}

func TestSchedulerPrime(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a": "source: Bloomberg\nfile: wire.xml\nsettings:\n  enabled: true",
		"b": "source: Reuters\nfile: wire.xml\nsettings:\n  enabled: true",
	})
	s := f.scheduler(time.Hour)

	require.NoError(t, s.Prime(context.Background()))

	// Both feeds carry the same items, so the earlier feed name wins.
	entries := f.digest.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Bloomberg", entries[0].Source)
	assert.Equal(t, 2, f.digest.Stats().Feeds)
	assert.Len(t, s.nextFetch, 2)
}

func TestSchedulerStartIngestsDueFeeds(t *testing.T) {
	f := newFixture(t, map[string]string{"wire": "file: wire.xml\nsettings:\n  enabled: true"})
	s := f.scheduler(50 * time.Millisecond)
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return len(f.digest.Entries()) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerSkipsFeedsNotDue(t *testing.T) {
	f := newFixture(t, map[string]string{"wire": "file: wire.xml\nsettings:\n  enabled: true"})
	s := f.scheduler(time.Hour)
	s.nextFetch["wire"] = time.Now().Add(time.Hour)

	s.enqueueTasks()
	assert.Empty(t, s.taskQueue)

	s.nextFetch["wire"] = time.Now().Add(-time.Second)
	s.enqueueTasks()
	assert.Len(t, s.taskQueue, 1)
	assert.True(t, s.nextFetch["wire"].After(time.Now()))
}

func TestSchedulerIngestNow(t *testing.T) {
	f := newFixture(t, map[string]string{"wire": "file: wire.xml\nsettings:\n  enabled: true"})
	s := f.scheduler(time.Hour)

	task, err := s.IngestNow(context.Background(), "wire")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, TaskTypeIngestFeed, task.GetType())
	assert.Len(t, s.taskQueue, 1)

	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "wire.yml"), []byte("file: wire.xml"), 0o644))
	task, err = s.IngestNow(context.Background(), "wire")
	require.NoError(t, err)
	assert.Nil(t, task)

	_, err = s.IngestNow(context.Background(), "unknown")
	assert.Error(t, err)
}

func TestSchedulerEnqueueAfterStop(t *testing.T) {
	f := newFixture(t, nil)
	s := f.scheduler(time.Hour)
	s.Start()
	s.Stop()

	err := s.EnqueueTask(&countingTask{Task: NewTask(TaskTypeIngestFeed, "x")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSchedulerQueueFull(t *testing.T) {
	f := newFixture(t, nil)
	s := f.scheduler(time.Hour)

	for range taskQueueSize {
		require.NoError(t, s.EnqueueTask(&countingTask{Task: NewTask(TaskTypeIngestFeed, "x")}))
	}
	assert.Error(t, s.EnqueueTask(&countingTask{Task: NewTask(TaskTypeIngestFeed, "x")}))
}

func TestSchedulerRetriesFailedTask(t *testing.T) {
	f := newFixture(t, nil)
	s := f.scheduler(time.Hour)
	s.Start()
	defer s.Stop()

	task := &countingTask{Task: NewTask(TaskTypeIngestFeed, "flaky"), failFor: 1}
	require.NoError(t, s.EnqueueTask(task))

	require.Eventually(t, func() bool {
		return task.calls.Load() == 2
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1, task.GetRetryCount())
}

func TestTaskRetryAccounting(t *testing.T) {
	task := NewTask(TaskTypeSyncFeedConfig, "wire")
	assert.Equal(t, "wire", task.GetFeedName())
	assert.Zero(t, task.GetDuration())
	other := NewTask(TaskTypeSyncFeedConfig, "wire")
	assert.NotEqual(t, task.GetID(), other.GetID())

	for range DefaultMaxRetries {
		assert.True(t, task.CanRetry())
		task.IncrementRetryCount()
	}
	assert.False(t, task.CanRetry())

	task.Start()
	assert.False(t, task.StartedAt.IsZero())
}

func TestTaskRetryDelay(t *testing.T) {
	task := NewTask(TaskTypeIngestFeed, "backoff")

	expected := []time.Duration{
		time.Second, time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 30 * time.Second, 30 * time.Second,
	}
	for i, want := range expected {
		assert.Equal(t, want, task.RetryDelay(), "retry %d", i)
		task.IncrementRetryCount()
	}
}
