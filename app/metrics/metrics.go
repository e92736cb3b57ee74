// Package metrics provides Prometheus metrics for news-comb.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "newscomb"

var (
	// ArticlesIngested counts parsed articles per feed that survived filtering.
	ArticlesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_ingested_total",
			Help:      "Total number of articles ingested from feed snapshots",
		},
		[]string{"feed"},
	)

	// ArticlesFiltered counts articles dropped by feed filters.
	ArticlesFiltered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_filtered_total",
			Help:      "Total number of articles dropped by feed filters",
		},
		[]string{"feed"},
	)

	// DuplicatesDropped counts articles removed by on-demand deduplication
	// requests.
	DuplicatesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_dropped_total",
			Help:      "Total number of articles removed as duplicates",
		},
		[]string{"stage"},
	)

	// DigestSize is the number of articles in the current digest.
	DigestSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "digest_articles",
			Help:      "Number of articles in the current digest",
		},
	)

	// DigestDuplicates is the number of duplicates removed by the last digest
	// rebuild, per stage. Rebuilds re-run dedup over every feed, so this is a
	// gauge rather than a counter.
	DigestDuplicates = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "digest_duplicates",
			Help:      "Number of duplicates removed in the current digest",
		},
		[]string{"stage"},
	)

	// BudgetRequests counts budget checks by outcome.
	BudgetRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_requests_total",
			Help:      "Total number of request budget consumptions by result",
		},
		[]string{"result"},
	)

	// TaskDuration measures background task duration.
	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of background tasks in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"type", "status"},
	)
)

// RecordIngest records the outcome of loading one feed.
func RecordIngest(feed string, kept, filtered int) {
	ArticlesIngested.WithLabelValues(feed).Add(float64(kept))
	ArticlesFiltered.WithLabelValues(feed).Add(float64(filtered))
}

// RecordDedup records how many articles a dedup stage removed.
func RecordDedup(stage string, dropped int) {
	if dropped > 0 {
		DuplicatesDropped.WithLabelValues(stage).Add(float64(dropped))
	}
}

// RecordDigest records the shape of a freshly rebuilt digest.
func RecordDigest(size, exact, similar int) {
	DigestSize.Set(float64(size))
	DigestDuplicates.WithLabelValues("exact").Set(float64(exact))
	DigestDuplicates.WithLabelValues("similar").Set(float64(similar))
}

// RecordBudget records a consume attempt; result is "allowed", "denied" or "error".
func RecordBudget(result string) {
	BudgetRequests.WithLabelValues(result).Inc()
}

// RecordTask records a finished task.
func RecordTask(taskType string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	TaskDuration.WithLabelValues(taskType, status).Observe(duration.Seconds())
}
