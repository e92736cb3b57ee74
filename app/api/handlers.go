package api

import (
	"cmp"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/news-comb/app/budget"
	"github.com/lysyi3m/news-comb/app/digest"
	"github.com/lysyi3m/news-comb/app/feed"
	"github.com/lysyi3m/news-comb/app/metrics"
	"github.com/lysyi3m/news-comb/app/similarity"
	"github.com/lysyi3m/news-comb/app/source"
)

func NewHandler(d *digest.Digest, rater *source.Rater, limiter *budget.Limiter,
	configCache *feed.ConfigCache, reloader FeedReloader, baseURL, version string) *Handler {
	return &Handler{
		digest:      d,
		rater:       rater,
		limiter:     limiter,
		configCache: configCache,
		reloader:    reloader,
		generator:   digest.NewGenerator(),
		baseURL:     baseURL,
		version:     version,
	}
}

func (h *Handler) GetArticles(c *gin.Context) {
	query, err := parseQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries := h.digest.Query(query)

	c.JSON(http.StatusOK, gin.H{
		"articles": entries,
		"total":    len(entries),
		"stats":    h.digest.Stats(),
	})
}

func parseQuery(c *gin.Context) (digest.Query, error) {
	query := digest.Query{Text: c.Query("q")}

	if raw := c.Query("min_tier"); raw != "" {
		tier, err := source.ParseTier(raw)
		if err != nil {
			return query, err
		}
		query.MinTier = tier
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return query, fmt.Errorf("invalid limit %q", raw)
		}
		query.Limit = limit
	}

	return query, nil
}

func (h *Handler) GetDigestFeed(c *gin.Context) {
	query, err := parseQuery(c)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	entries := h.digest.Query(query)
	baseURL := cmp.Or(h.baseURL, "http://"+c.Request.Host)

	rss, err := h.generator.Run(digest.Channel{
		Title:     "News Comb digest",
		Link:      baseURL,
		SelfLink:  baseURL + "/feed.xml",
		Generator: fmt.Sprintf("News-Comb/%s", h.version),
	}, entries)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	stats := h.digest.Stats()
	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(entries)))
	if !stats.BuiltAt.IsZero() {
		c.Header("X-Last-Updated", stats.BuiltAt.Format(time.RFC3339))
	}

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp":             time.Now().In(time.Local).Format(time.RFC3339),
		"loaded_configurations": h.configCache.GetConfigCount(),
		"digest":                h.digest.Stats(),
		"budget_remaining":      h.limiter.Remaining(c.Request.Context()),
	}

	c.JSON(http.StatusOK, health)
}

// APIDeduplicate runs the ingestion pipeline on a caller-supplied batch:
// deduplicate, then annotate with source quality. The stored digest is not
// touched.
func (h *Handler) APIDeduplicate(c *gin.Context) {
	var inputs []ArticleInput
	if err := c.ShouldBindJSON(&inputs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	articles := make([]feed.Article, 0, len(inputs))
	for i, in := range inputs {
		article := feed.Article{
			ID:      cmp.Or(in.ID, in.Link, strconv.Itoa(i)),
			Title:   in.Title,
			Summary: in.Summary,
			Source:  in.Source,
			Link:    in.Link,
		}
		if in.PublishedAt != "" {
			published, err := time.Parse(time.RFC3339, in.PublishedAt)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid published_at at index %d", i)})
				return
			}
			article.PublishedAt = published
		}
		articles = append(articles, article)
	}

	entries, stats := h.digest.Annotate(articles)
	metrics.RecordDedup("api", stats.Exact+stats.Similar)

	c.JSON(http.StatusOK, gin.H{
		"articles": entries,
		"stats":    stats,
	})
}

func (h *Handler) APISimilarity(c *gin.Context) {
	var req SimilarityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"score": similarity.Jaccard(req.A, req.B)})
}

func (h *Handler) APIListSources(c *gin.Context) {
	sources := h.rater.Sources()

	c.JSON(http.StatusOK, gin.H{
		"sources":  sources,
		"total":    len(sources),
		"fallback": h.rater.Fallback(),
	})
}

func (h *Handler) APIGetSource(c *gin.Context) {
	name := c.Param("name")
	quality := h.rater.Rate(name)

	c.JSON(http.StatusOK, gin.H{
		"name":       name,
		"known":      h.rater.Known(name),
		"quality":    quality,
		"tier_color": source.TierColor(quality.Tier),
	})
}

func (h *Handler) APIGetBudget(c *gin.Context) {
	c.JSON(http.StatusOK, h.limiter.Status(c.Request.Context()))
}

// APIConsumeBudget spends one request from today's budget, or answers 429
// when nothing is left.
func (h *Handler) APIConsumeBudget(c *gin.Context) {
	ctx := c.Request.Context()

	if !h.limiter.CanMakeRequest(ctx) {
		metrics.RecordBudget("denied")
		c.JSON(http.StatusTooManyRequests, h.limiter.Status(ctx))
		return
	}

	if err := h.limiter.IncrementRequest(ctx); err != nil {
		metrics.RecordBudget("error")
		slog.Error("Failed to record request", "operation", "budget_increment", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record request"})
		return
	}

	metrics.RecordBudget("allowed")
	c.JSON(http.StatusOK, h.limiter.Status(ctx))
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	feeds := make([]map[string]interface{}, 0, len(configs))
	for _, name := range slices.Sorted(maps.Keys(configs)) {
		feedConfig := configs[name]
		feeds = append(feeds, map[string]interface{}{
			"name":             feedConfig.Name,
			"source":           feedConfig.Source,
			"file":             feedConfig.File,
			"enabled":          feedConfig.Settings.Enabled,
			"max_items":        feedConfig.Settings.MaxItems,
			"refresh_interval": (time.Duration(feedConfig.Settings.RefreshInterval) * time.Second).String(),
			"filters":          len(feedConfig.Filters),
			"quality":          h.rater.Rate(feedConfig.Source),
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"feeds": feeds,
		"total": len(feeds),
	})
}

func (h *Handler) APIReloadFeed(c *gin.Context) {
	name := c.Param("name")

	if _, err := h.configCache.GetConfig(name); err != nil {
		slog.Error("Feed configuration not found", "feed", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed configuration not found"})
		return
	}

	task, err := h.reloader.IngestNow(c.Request.Context(), name)
	if err != nil {
		slog.Error("Error reloading feed", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reload feed",
			"details": err.Error(),
		})
		return
	}

	response := gin.H{
		"success": true,
		"feed":    name,
	}
	if task != nil {
		response["message"] = "Configuration reloaded and ingest task enqueued"
		response["task"] = gin.H{"id": task.GetID(), "type": task.GetType()}
	} else {
		response["message"] = "Configuration reloaded; feed is disabled and was removed from the digest"
	}

	c.JSON(http.StatusOK, response)
}
