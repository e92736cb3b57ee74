package tasks

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

type TaskType string

const (
	TaskTypeIngestFeed     TaskType = "ingest_feed"
	TaskTypeSyncFeedConfig TaskType = "sync_feed_config"
)

const (
	DefaultMaxRetries = 3

	baseRetryDelay = time.Second
	maxRetryDelay  = 30 * time.Second
)

// TaskInterface is a unit of work run by a scheduler worker.
type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetFeedName() string
	GetRetryCount() int
	GetMaxRetries() int
	IncrementRetryCount()
	CanRetry() bool
	RetryDelay() time.Duration
	Start()
	GetDuration() time.Duration
}

var taskSeq atomic.Uint64

// Task carries the bookkeeping shared by every task type. Concrete tasks
// embed it and add Execute.
type Task struct {
	ID         string
	Type       TaskType
	FeedName   string
	RetryCount int
	MaxRetries int
	StartedAt  time.Time
}

func NewTask(taskType TaskType, feedName string) Task {
	return Task{
		ID:         fmt.Sprintf("%s-%s-%d", taskType, feedName, taskSeq.Add(1)),
		Type:       taskType,
		FeedName:   feedName,
		MaxRetries: DefaultMaxRetries,
	}
}

func (t *Task) GetID() string       { return t.ID }
func (t *Task) GetType() TaskType   { return t.Type }
func (t *Task) GetFeedName() string { return t.FeedName }
func (t *Task) GetRetryCount() int  { return t.RetryCount }
func (t *Task) GetMaxRetries() int  { return t.MaxRetries }

func (t *Task) IncrementRetryCount() {
	t.RetryCount++
}

func (t *Task) CanRetry() bool {
	return t.RetryCount < t.MaxRetries
}

// RetryDelay doubles with every retry already taken, capped at maxRetryDelay.
func (t *Task) RetryDelay() time.Duration {
	if t.RetryCount <= 0 {
		return baseRetryDelay
	}
	return min(baseRetryDelay<<uint(t.RetryCount-1), maxRetryDelay)
}

// Start marks the beginning of an attempt. Each retry restarts the clock.
func (t *Task) Start() {
	t.StartedAt = time.Now()
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt.IsZero() {
		return 0
	}
	return time.Since(t.StartedAt)
}
