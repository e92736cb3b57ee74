package feed

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	defaultRefreshInterval = 3600
	defaultMaxItems        = 100
)

var configExtensions = []string{".yml", ".yaml"}

var filterFields = []string{"title", "summary", "link", "categories"}

// ConfigCache holds the parsed feed definitions of one directory, keyed by
// file name without extension.
type ConfigCache struct {
	feedsDir string

	mu      sync.RWMutex
	configs map[string]*Config
}

func NewConfigCache(feedsDir string) *ConfigCache {
	return &ConfigCache{
		feedsDir: feedsDir,
		configs:  make(map[string]*Config),
	}
}

// Run loads every definition in the directory. A missing directory is an
// empty cache. Broken files are reported together; the valid ones stay loaded.
func (cc *ConfigCache) Run() error {
	entries, err := os.ReadDir(cc.feedsDir)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("Feeds directory does not exist", "dir", cc.feedsDir)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read feeds directory: %w", err)
	}

	var errs []error
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || !slices.Contains(configExtensions, ext) {
			continue
		}

		feedName := strings.TrimSuffix(entry.Name(), ext)
		feedConfig, err := cc.LoadConfig(feedName)
		if err != nil {
			errs = append(errs, fmt.Errorf("error loading %s: %w", entry.Name(), err))
			continue
		}

		slog.Debug("Configuration loaded",
			"feed", feedName,
			"source", feedConfig.Source,
			"enabled", feedConfig.Settings.Enabled,
			"refresh_interval", feedConfig.Settings.RefreshInterval)
	}

	return errors.Join(errs...)
}

// LoadConfig (re)reads one definition from disk and replaces the cached copy.
func (cc *ConfigCache) LoadConfig(feedName string) (*Config, error) {
	path, err := cc.configPath(feedName)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	feedConfig := &Config{}
	if err := yaml.Unmarshal(data, feedConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	feedConfig.Name = feedName
	feedConfig.applyDefaults()

	if err := feedConfig.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	cc.mu.Lock()
	cc.configs[feedName] = feedConfig
	cc.mu.Unlock()

	return feedConfig, nil
}

func (cc *ConfigCache) GetConfig(feedName string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	if feedConfig, ok := cc.configs[feedName]; ok {
		return feedConfig, nil
	}
	return nil, fmt.Errorf("feed config with name '%s' not found", feedName)
}

func (cc *ConfigCache) GetConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return maps.Clone(cc.configs)
}

func (cc *ConfigCache) GetEnabledConfigs() map[string]*Config {
	enabled := cc.GetConfigs()
	maps.DeleteFunc(enabled, func(_ string, c *Config) bool {
		return !c.Settings.Enabled
	})
	return enabled
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.configs)
}

// SnapshotPath resolves the config's snapshot file. Absolute paths are kept
// as written.
func (cc *ConfigCache) SnapshotPath(feedConfig *Config) string {
	if filepath.IsAbs(feedConfig.File) {
		return feedConfig.File
	}
	return filepath.Join(cc.feedsDir, feedConfig.File)
}

func (cc *ConfigCache) configPath(feedName string) (string, error) {
	for _, ext := range configExtensions {
		path := filepath.Join(cc.feedsDir, feedName+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no configuration file for feed '%s' in %s", feedName, cc.feedsDir)
}

func (c *Config) applyDefaults() {
	if c.Settings.RefreshInterval == 0 {
		c.Settings.RefreshInterval = defaultRefreshInterval
	}
	if c.Settings.MaxItems == 0 {
		c.Settings.MaxItems = defaultMaxItems
	}
}

func (c *Config) validate() error {
	switch {
	case c.Name == "":
		return errors.New("feed name is required")
	case c.File == "":
		return errors.New("snapshot file is required")
	case c.Settings.RefreshInterval < 0:
		return errors.New("refresh interval must be non-negative")
	case c.Settings.MaxItems < 0:
		return errors.New("max items must be non-negative")
	}

	for i, filter := range c.Filters {
		if !slices.Contains(filterFields, filter.Field) {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}
