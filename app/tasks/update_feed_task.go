package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss-mirror/app/database"
	"github.com/lysyi3m/rss-mirror/app/feed"
)

// FeedResult counts what happened to one feed during a run.
type FeedResult struct {
	Entries   int // entries in the feed document
	Filtered  int
	Malformed int
	Created   int // stub rows inserted
	Mirrored  int
	Failed    int // mirroring attempts left as stubs
	Retried   int // stubs attempted that were not in the document
}

// UpdateFeedTask fetches one source, records its feed and posts, and gives
// every stub of the feed one mirroring attempt. All writes for the feed share
// one transaction.
type UpdateFeedTask struct {
	Task
	Source feed.Source
	Result FeedResult

	db        database.Transactor
	fetcher   PageFetcher
	parser    *feed.Parser
	filterer  *feed.Filterer
	extractor *feed.ContentExtractor
	rewriter  *feed.Rewriter
}

func NewUpdateFeedTask(source feed.Source, db database.Transactor, fetcher PageFetcher, parser *feed.Parser, filterer *feed.Filterer, extractor *feed.ContentExtractor, rewriter *feed.Rewriter) *UpdateFeedTask {
	return &UpdateFeedTask{
		Task:      NewTask(TaskTypeUpdateFeed, source.URL),
		Source:    source,
		db:        db,
		fetcher:   fetcher,
		parser:    parser,
		filterer:  filterer,
		extractor: extractor,
		rewriter:  rewriter,
	}
}

func (t *UpdateFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	feedURL := feed.NormalizeURL(t.Source.URL)

	resp, err := t.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	metadata, entries, err := t.parser.Run(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	t.Result = FeedResult{Entries: len(entries)}

	entries = t.filterer.Run(entries, &t.Source)
	if limit := t.Source.Settings.MaxEntries; limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	err = t.db.InTransaction(func(repos *database.Repositories) error {
		return t.storeFeed(ctx, repos, feedURL, metadata, entries)
	})
	if err != nil {
		return fmt.Errorf("failed to update feed %s: %w", feedURL, err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"feed", t.FeedName,
		"duration", t.GetDuration(),
		"total", t.Result.Entries,
		"filtered", t.Result.Filtered,
		"malformed", t.Result.Malformed,
		"new", t.Result.Created,
		"mirrored", t.Result.Mirrored,
		"failed", t.Result.Failed,
		"retried", t.Result.Retried)

	return nil
}

func (t *UpdateFeedTask) storeFeed(ctx context.Context, repos *database.Repositories, feedURL string, metadata *feed.Metadata, entries []feed.Entry) error {
	// Counters restart with the transaction so a rolled back attempt reports nothing.
	result := FeedResult{Entries: t.Result.Entries}

	feedRow, created, err := repos.Feeds.UpsertFeed(metadata.Title, feedURL)
	if err != nil {
		return err
	}
	if created {
		slog.Debug("Feed registered", "feed", feedURL, "feed_id", feedRow.ID, "title", feedRow.Title)
	}

	contentStore := feed.NewContentStore(repos.Files)
	attempted := make(map[int64]bool)

	for _, entry := range entries {
		if entry.IsFiltered {
			result.Filtered++
			slog.Debug("Entry filtered", "feed", feedURL, "title", entry.Title, "reason", entry.FilterReason)
			continue
		}

		stub, err := NewPostFromEntry(feedRow.ID, entry)
		if err != nil {
			if errors.Is(err, feed.ErrMalformedEntry) {
				result.Malformed++
				slog.Warn("Skipping malformed entry", "feed", feedURL, "error", err)
				continue
			}
			return err
		}

		post, isNew, err := repos.Posts.EnsurePost(stub)
		if err != nil {
			return err
		}
		if isNew {
			result.Created++
		}
		if post.Fetched {
			continue
		}

		attempted[post.ID] = true
		if err := t.mirror(ctx, repos, contentStore, post, &result); err != nil {
			return err
		}
	}

	stubs, err := repos.Posts.GetUnfetchedPosts(feedRow.ID)
	if err != nil {
		return err
	}

	for i := range stubs {
		if attempted[stubs[i].ID] {
			continue
		}
		result.Retried++
		if err := t.mirror(ctx, repos, contentStore, &stubs[i], &result); err != nil {
			return err
		}
	}

	t.Result = result
	return nil
}

// mirror runs one mirroring attempt. Fetch failures are counted and logged;
// storage errors and cancellation are returned.
func (t *UpdateFeedTask) mirror(ctx context.Context, repos *database.Repositories, contentStore *feed.ContentStore, post *database.Post, result *FeedResult) error {
	task := NewMirrorPostTask(t.FeedName, post, t.Source.Settings.ExtractContent, t.fetcher, t.extractor, t.rewriter, contentStore, repos.Posts)
	task.Start()

	err := task.Execute(ctx)
	if err == nil {
		result.Mirrored++
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var fetchErr *feed.FetchError
	if errors.As(err, &fetchErr) {
		result.Failed++
		slog.Warn("Post left unfetched", "feed", t.FeedName, "post_id", post.ID, "url", post.Link, "error", err)
		return nil
	}

	return err
}
