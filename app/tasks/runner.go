package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/rss-mirror/app/database"
	"github.com/lysyi3m/rss-mirror/app/feed"
)

// Summary aggregates the results of one run over all sources.
type Summary struct {
	Feeds       int
	FailedFeeds int
	FeedResult
	Duration time.Duration
}

// Runner processes sources one after another. A feed that fails is rolled
// back and skipped; a consistency error or cancellation stops the run.
type Runner struct {
	db        database.Transactor
	fetcher   PageFetcher
	parser    *feed.Parser
	filterer  *feed.Filterer
	extractor *feed.ContentExtractor
	rewriter  *feed.Rewriter
}

func NewRunner(db database.Transactor, fetcher PageFetcher, parser *feed.Parser, filterer *feed.Filterer, extractor *feed.ContentExtractor) *Runner {
	return &Runner{
		db:        db,
		fetcher:   fetcher,
		parser:    parser,
		filterer:  filterer,
		extractor: extractor,
		rewriter:  feed.NewRewriter(fetcher),
	}
}

func (r *Runner) Run(ctx context.Context, sources []feed.Source) (*Summary, error) {
	started := time.Now()
	summary := &Summary{}

	slog.Debug("Processing feed sources", "count", len(sources))

	for _, source := range sources {
		select {
		case <-ctx.Done():
			summary.Duration = time.Since(started)
			return summary, ctx.Err()
		default:
		}

		task := NewUpdateFeedTask(source, r.db, r.fetcher, r.parser, r.filterer, r.extractor, r.rewriter)
		ok, err := r.executeTask(ctx, task)
		if err != nil {
			summary.Duration = time.Since(started)
			return summary, err
		}

		summary.Feeds++
		if !ok {
			summary.FailedFeeds++
			continue
		}
		summary.add(task.Result)
	}

	summary.Duration = time.Since(started)
	return summary, nil
}

// executeTask reports whether the feed was stored. The error is set only when
// the whole run has to stop.
func (r *Runner) executeTask(ctx context.Context, task TaskInterface) (bool, error) {
	task.Start()

	err := task.Execute(ctx)
	if err == nil {
		return true, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		slog.Warn("Run cancelled, feed rolled back", "feed", task.GetFeedName(), "error", err)
		return false, ctxErr
	}

	if errors.Is(err, database.ErrStoreConsistency) {
		slog.Error("Store consistency failure, stopping run", "type", string(task.GetType()), "feed", task.GetFeedName(), "error", err)
		return false, fmt.Errorf("feed %s: %w", task.GetFeedName(), err)
	}

	slog.Error("Task execution failed", "type", string(task.GetType()), "id", task.GetID(), "feed", task.GetFeedName(), "duration", task.GetDuration(), "error", err)
	return false, nil
}

func (s *Summary) add(result FeedResult) {
	s.Entries += result.Entries
	s.Filtered += result.Filtered
	s.Malformed += result.Malformed
	s.Created += result.Created
	s.Mirrored += result.Mirrored
	s.Failed += result.Failed
	s.Retried += result.Retried
}
