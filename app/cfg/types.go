package cfg

import "time"

type Cfg struct {
	// Application configuration
	FeedsDir          string
	SourcesFile       string
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Digest configuration
	SimilarityThreshold float64

	// Request budget configuration
	BudgetMax int
	BudgetKey string

	// Storage configuration
	StorageBackend string
	StoragePath    string
	RedisAddr      string
	RedisDB        int
	RedisTTL       time.Duration

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
