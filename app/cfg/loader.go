package cfg

import (
	"cmp"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/lysyi3m/news-comb/app/storage"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Application configuration
	FeedsDir          string `long:"feeds-dir" env:"FEEDS_DIR" default:"./feeds" description:"Directory containing feed configuration files and snapshots"`
	SourcesFile       string `long:"sources-file" env:"SOURCES_FILE" description:"YAML source quality table (defaults to the built-in table)"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://news.example.com)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for feed ingestion"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"30" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Digest configuration
	SimilarityThreshold float64 `long:"similarity-threshold" env:"SIMILARITY_THRESHOLD" default:"0" description:"Drop articles whose title Jaccard similarity to an earlier one reaches this value (0 disables)"`

	// Request budget configuration
	BudgetMax int    `long:"budget-max" env:"BUDGET_MAX" default:"2" description:"Maximum expensive requests per calendar day"`
	BudgetKey string `long:"budget-key" env:"BUDGET_KEY" default:"today_request_budget" description:"Storage key of the request budget record"`

	// Storage configuration
	StorageBackend string        `long:"storage" env:"STORAGE_BACKEND" default:"file" choice:"none" choice:"memory" choice:"file" choice:"sqlite" choice:"redis" description:"Backend for the request budget record"`
	StoragePath    string        `long:"storage-path" env:"STORAGE_PATH" default:"./data/state.json" description:"File or SQLite database path"`
	RedisAddr      string        `long:"redis-addr" env:"REDIS_ADDR" default:"localhost:6379" description:"Redis address"`
	RedisDB        int           `long:"redis-db" env:"REDIS_DB" default:"0" description:"Redis database number"`
	RedisTTL       time.Duration `long:"redis-ttl" env:"REDIS_TTL" default:"48h" description:"Expiry of the budget record in Redis (0 keeps it forever)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone defining the budget's calendar day (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load parses the process arguments and environment.
func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs is Load for an explicit argument list. It returns (nil, nil)
// when help was requested.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validate(&raw); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Cfg{
		FeedsDir:            raw.FeedsDir,
		SourcesFile:         raw.SourcesFile,
		Port:                raw.Port,
		BaseUrl:             raw.BaseUrl,
		WorkerCount:         raw.WorkerCount,
		SchedulerInterval:   raw.SchedulerInterval,
		APIAccessKey:        raw.APIAccessKey,
		SimilarityThreshold: raw.SimilarityThreshold,
		BudgetMax:           raw.BudgetMax,
		BudgetKey:           raw.BudgetKey,
		StorageBackend:      raw.StorageBackend,
		StoragePath:         raw.StoragePath,
		RedisAddr:           raw.RedisAddr,
		RedisDB:             raw.RedisDB,
		RedisTTL:            raw.RedisTTL,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
	}

	globalCfg = cfg

	return cfg, nil
}

func validate(raw *rawCfg) error {
	nonNegativeFields := map[string]int{
		"budget max": raw.BudgetMax,
		"redis db":   raw.RedisDB,
	}
	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	positiveFields := map[string]int{
		"worker count":       raw.WorkerCount,
		"scheduler interval": raw.SchedulerInterval,
	}
	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	if raw.SimilarityThreshold < 0 || raw.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be between 0 and 1")
	}

	return nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// StorageOptions maps the storage settings onto storage.Options.
func (c *Cfg) StorageOptions() storage.Options {
	return storage.Options{
		Backend:   c.StorageBackend,
		Path:      c.StoragePath,
		RedisAddr: c.RedisAddr,
		RedisDB:   c.RedisDB,
		TTL:       c.RedisTTL,
	}
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			slog.Debug("Timezone configured", "timezone", timezone)
		}
	}
	return nil
}
