package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lysyi3m/rss-mirror/app/cfg"
	"github.com/lysyi3m/rss-mirror/app/database"
	"github.com/lysyi3m/rss-mirror/app/feed"
	"github.com/lysyi3m/rss-mirror/app/tasks"
)

func main() {
	os.Exit(run())
}

func run() int {
	appCfg, err := cfg.Load()
	if err != nil {
		return 1
	}
	if appCfg == nil {
		return 0
	}

	setupLogging(appCfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "path", appCfg.DBPath, "error", err)
		return 1
	}
	defer db.Close()

	if _, _, err := database.RunMigrations(db); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return 1
	}

	sources, err := feed.NewSourceLoader(appCfg.FeedsFile).Run()
	if err != nil {
		slog.Error("Failed to load feed sources", "path", appCfg.FeedsFile, "error", err)
		return 1
	}

	slog.Info("Starting update", "version", appCfg.Version, "feeds", len(sources))

	fetcher := feed.NewFetcher(&http.Client{}, appCfg.UserAgent, appCfg.Timeout, appCfg.MaxBodySize)
	runner := tasks.NewRunner(db, fetcher, feed.NewParser(), feed.NewFilterer(), feed.NewContentExtractor())

	summary, err := runner.Run(ctx, sources)

	slog.Info("Update finished",
		"duration", summary.Duration,
		"feeds", summary.Feeds,
		"failed_feeds", summary.FailedFeeds,
		"entries", summary.Entries,
		"filtered", summary.Filtered,
		"malformed", summary.Malformed,
		"new", summary.Created,
		"mirrored", summary.Mirrored,
		"unfetched", summary.Failed,
		"retried", summary.Retried)

	if err != nil {
		slog.Error("Update aborted", "error", err)
		return 1
	}

	return 0
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
