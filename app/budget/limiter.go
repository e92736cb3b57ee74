// Package budget caps how many expensive "today" requests are made per
// calendar day. The counter lives in an injected key/value store and resets
// lazily the first time it is touched on a new day.
package budget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/news-comb/app/storage"
)

// Defaults applied when no Option overrides them.
const (
	DefaultMax = 2
	DefaultKey = "today_request_budget"

	dateLayout = "2006-01-02"
)

// State is the persisted record.
type State struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Status is a point-in-time view of the limiter.
type Status struct {
	Date      string `json:"date"`
	Count     int    `json:"count"`
	Remaining int    `json:"remaining"`
	Max       int    `json:"max"`
	Allowed   bool   `json:"allowed"`
	Persisted bool   `json:"persisted"`
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithMax sets the daily request cap. Negative values are ignored.
func WithMax(n int) Option {
	return func(l *Limiter) {
		if n >= 0 {
			l.max = n
		}
	}
}

// WithKey sets the storage key of the budget record. Empty keys are ignored.
func WithKey(key string) Option {
	return func(l *Limiter) {
		if key != "" {
			l.key = key
		}
	}
}

// WithLocation sets the zone whose calendar day the budget follows.
func WithLocation(loc *time.Location) Option {
	return func(l *Limiter) {
		if loc != nil {
			l.loc = loc
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// Limiter is safe for concurrent use. A nil store disables the budget.
type Limiter struct {
	store storage.Store
	max   int
	key   string
	loc   *time.Location
	now   func() time.Time

	mu sync.Mutex
}

// New builds a limiter over store with DefaultMax and DefaultKey unless
// overridden by opts.
func New(store storage.Store, opts ...Option) *Limiter {
	l := &Limiter{
		store: store,
		max:   DefaultMax,
		key:   DefaultKey,
		loc:   time.Local,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Max is the configured daily cap.
func (l *Limiter) Max() int { return l.max }

func (l *Limiter) today() string {
	return l.now().In(l.loc).Format(dateLayout)
}

// CanMakeRequest reports whether another request fits in today's budget.
func (l *Limiter) CanMakeRequest(ctx context.Context) bool {
	if l.store == nil {
		return true
	}
	state := l.read(ctx)
	if state.Date != l.today() {
		return true
	}
	return state.Count < l.max
}

// Remaining returns how many requests are left today, never negative.
func (l *Limiter) Remaining(ctx context.Context) int {
	if l.store == nil {
		return l.max
	}
	return l.remaining(l.read(ctx), l.today())
}

func (l *Limiter) remaining(state State, today string) int {
	if state.Date != today {
		return l.max
	}
	return max(0, l.max-state.Count)
}

// IncrementRequest records one request against today. Malformed state counts
// as a fresh day. A store that cannot be read or written aborts the increment
// and the error is returned, so an unreachable record is never overwritten
// with a count of 1. Updater stores behave the same way.
func (l *Limiter) IncrementRequest(ctx context.Context) error {
	if l.store == nil {
		return nil
	}

	today := l.today()

	if u, ok := l.store.(storage.Updater); ok {
		return u.Update(ctx, l.key, func(cur string, found bool) (string, error) {
			var state State
			if found {
				state = decode(cur, l.key)
			}
			return encode(advance(state, today))
		})
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.load(ctx)
	if err != nil {
		return fmt.Errorf("failed to read request budget: %w", err)
	}

	next, err := encode(advance(state, today))
	if err != nil {
		return err
	}
	return l.store.Set(ctx, l.key, next)
}

// Status is computed from a single read so its fields agree with each other.
func (l *Limiter) Status(ctx context.Context) Status {
	today := l.today()
	if l.store == nil {
		return Status{Date: today, Remaining: l.max, Max: l.max, Allowed: true}
	}

	state := l.read(ctx)
	count := 0
	if state.Date == today {
		count = state.Count
	}
	remaining := l.remaining(state, today)
	return Status{
		Date:      today,
		Count:     count,
		Remaining: remaining,
		Max:       l.max,
		Allowed:   state.Date != today || state.Count < l.max,
		Persisted: true,
	}
}

func advance(state State, today string) State {
	if state.Date != today {
		return State{Date: today, Count: 1}
	}
	return State{Date: today, Count: state.Count + 1}
}

// read is the lenient path used by the query methods: any failure is logged
// and counts as an empty record.
func (l *Limiter) read(ctx context.Context) State {
	state, err := l.load(ctx)
	if err != nil {
		slog.Warn("Failed to read request budget", "key", l.key, "error", err)
		return State{}
	}
	return state
}

// load reports store failures. A missing key is an empty record.
func (l *Limiter) load(ctx context.Context) (State, error) {
	raw, err := l.store.Get(ctx, l.key)
	if errors.Is(err, storage.ErrNotFound) {
		return State{}, nil
	}
	if err != nil {
		return State{}, err
	}
	return decode(raw, l.key), nil
}

func decode(raw, key string) State {
	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		slog.Warn("Request budget state is malformed, treating as empty", "key", key, "error", err)
		return State{}
	}
	if state.Count < 0 {
		state.Count = 0
	}
	return state
}

func encode(state State) (string, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
