// Package storage provides small key/value backends for state that has to
// outlive a single request, such as the daily request budget.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("key not found")

// Store is a string key/value capability.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// UpdateFunc receives the current value (found=false when missing) and
// returns the value to write.
type UpdateFunc func(current string, found bool) (string, error)

// Updater is implemented by stores that can run a read-modify-write without
// another writer interleaving.
type Updater interface {
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// Options selects and configures a backend.
type Options struct {
	Backend   string // none | memory | file | sqlite | redis
	Path      string // file and sqlite
	RedisAddr string
	RedisDB   int
	TTL       time.Duration // redis only; 0 keeps keys forever
}

const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Open builds the configured backend. BackendNone yields a nil Store, which
// consumers treat as "no persisted storage". The returned close func is never
// nil.
func Open(ctx context.Context, opts Options) (Store, func() error, error) {
	noop := func() error { return nil }

	switch opts.Backend {
	case "", BackendNone:
		return nil, noop, nil
	case BackendMemory:
		return NewMemoryStore(), noop, nil
	case BackendFile:
		s, err := NewFileStore(opts.Path)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case BackendSQLite:
		s, err := NewSQLiteStore(opts.Path)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case BackendRedis:
		s, err := NewRedisStore(ctx, opts.RedisAddr, opts.RedisDB, opts.TTL)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
