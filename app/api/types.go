package api

import (
	"context"

	"github.com/lysyi3m/news-comb/app/budget"
	"github.com/lysyi3m/news-comb/app/digest"
	"github.com/lysyi3m/news-comb/app/feed"
	"github.com/lysyi3m/news-comb/app/source"
	"github.com/lysyi3m/news-comb/app/tasks"
)

type GeneratorInterface interface {
	Run(channel digest.Channel, entries []digest.Entry) (string, error)
}

var _ GeneratorInterface = (*digest.Generator)(nil)

// FeedReloader re-reads one feed on demand. *tasks.Scheduler implements it.
type FeedReloader interface {
	IngestNow(ctx context.Context, feedName string) (tasks.TaskInterface, error)
}

var _ FeedReloader = (*tasks.Scheduler)(nil)

type Handler struct {
	digest      *digest.Digest
	rater       *source.Rater
	limiter     *budget.Limiter
	configCache *feed.ConfigCache
	reloader    FeedReloader
	generator   GeneratorInterface
	baseURL     string
	version     string
}

// ArticleInput is one article submitted for deduplication.
type ArticleInput struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Source      string `json:"source"`
	Link        string `json:"link"`
	PublishedAt string `json:"published_at"`
}

type SimilarityRequest struct {
	A string `json:"a"`
	B string `json:"b"`
}
