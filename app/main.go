package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/news-comb/app/api"
	"github.com/lysyi3m/news-comb/app/budget"
	"github.com/lysyi3m/news-comb/app/cfg"
	"github.com/lysyi3m/news-comb/app/dedup"
	"github.com/lysyi3m/news-comb/app/digest"
	"github.com/lysyi3m/news-comb/app/feed"
	"github.com/lysyi3m/news-comb/app/source"
	"github.com/lysyi3m/news-comb/app/storage"
	"github.com/lysyi3m/news-comb/app/tasks"
)

func main() {
	appConfig, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appConfig == nil {
		// Help was shown
		return
	}

	setupLogger(appConfig.Debug)

	if err := run(appConfig); err != nil {
		slog.Error("News Comb server stopped with error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

func run(appConfig *cfg.Cfg) error {
	slog.Info("Starting News Comb server", "version", appConfig.Version, "timezone", appConfig.Timezone)

	rater := source.Default()
	if appConfig.SourcesFile != "" {
		loaded, err := source.LoadFile(appConfig.SourcesFile)
		if err != nil {
			return fmt.Errorf("failed to load source table: %w", err)
		}
		rater = loaded
		slog.Info("Source table loaded", "file", appConfig.SourcesFile, "sources", len(rater.Sources()))
	}

	ctx := context.Background()

	store, closeStore, err := storage.Open(ctx, appConfig.StorageOptions())
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			slog.Error("Failed to close storage", "error", err)
		}
	}()
	if store == nil {
		slog.Warn("Request budget is not persisted; every request is allowed")
	}

	limiter := budget.New(store,
		budget.WithMax(appConfig.BudgetMax),
		budget.WithKey(appConfig.BudgetKey),
		budget.WithLocation(time.Local),
	)
	slog.Info("Request budget configured",
		"backend", appConfig.StorageBackend,
		"max", limiter.Max(),
		"remaining", limiter.Remaining(ctx))

	configCache := feed.NewConfigCache(appConfig.FeedsDir)
	if err := configCache.Run(); err != nil {
		return fmt.Errorf("failed to load feed configurations: %w", err)
	}
	slog.Info("Feed configurations loaded", "dir", appConfig.FeedsDir, "count", configCache.GetConfigCount())

	loader := feed.NewLoader(configCache, feed.NewParser(), feed.NewFilterer(), appConfig.WorkerCount)

	newsDigest := digest.New(rater, digest.Options{
		Fingerprinter:       dedup.Default,
		SimilarityThreshold: appConfig.SimilarityThreshold,
	})

	scheduler := tasks.NewScheduler(configCache, loader, newsDigest,
		time.Duration(appConfig.SchedulerInterval)*time.Second, appConfig.WorkerCount)
	if err := scheduler.Prime(ctx); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(newsDigest, rater, limiter, configCache, scheduler,
		appConfig.BaseUrl, appConfig.Version)
	server := api.NewServer(apiHandler, appConfig.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appConfig.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appConfig.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case runErr = <-serverErrChan:
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return runErr
}
