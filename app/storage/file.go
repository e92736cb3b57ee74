package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

var (
	_ Store   = (*FileStore)(nil)
	_ Updater = (*FileStore)(nil)
)

// FileStore keeps all keys in one JSON object on disk. Writes go through a
// temp file and rename so readers never see a half-written file.
type FileStore struct {
	filePath string
	items    map[string]string
	mu       sync.Mutex
}

// NewFileStore loads filePath if it exists. A file that cannot be parsed is
// logged and replaced on the next write.
func NewFileStore(filePath string) (*FileStore, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}

	fs := &FileStore{
		filePath: filePath,
		items:    make(map[string]string),
	}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileStore) load() error {
	data, err := os.ReadFile(fs.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}

	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, &fs.items); err != nil {
		slog.Warn("State file is corrupt, starting empty", "path", fs.filePath, "error", err)
		fs.items = make(map[string]string)
	}
	return nil
}

func (fs *FileStore) save() error {
	data, err := json.MarshalIndent(fs.items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(fs.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(fs.filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state file: %w", err)
	}

	if err := os.Rename(tmpName, fs.filePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

func (fs *FileStore) Get(_ context.Context, key string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	v, ok := fs.items[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (fs *FileStore) Set(_ context.Context, key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	prev, had := fs.items[key]
	fs.items[key] = value
	if err := fs.save(); err != nil {
		fs.restore(key, prev, had)
		return err
	}
	return nil
}

func (fs *FileStore) Update(_ context.Context, key string, fn UpdateFunc) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	cur, found := fs.items[key]
	next, err := fn(cur, found)
	if err != nil {
		return err
	}

	fs.items[key] = next
	if err := fs.save(); err != nil {
		fs.restore(key, cur, found)
		return err
	}
	return nil
}

func (fs *FileStore) restore(key, prev string, had bool) {
	if had {
		fs.items[key] = prev
	} else {
		delete(fs.items, key)
	}
}
