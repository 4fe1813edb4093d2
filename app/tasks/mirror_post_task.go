package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/rss-mirror/app/database"
	"github.com/lysyi3m/rss-mirror/app/feed"
)

const (
	untitledPost  = "(no title)"
	unknownAuthor = "(unknown)"
)

// NewPostFromEntry builds the stub row for a feed entry. Entries without a
// link cannot be mirrored and are rejected with feed.ErrMalformedEntry.
func NewPostFromEntry(feedID int64, entry feed.Entry) (database.NewPost, error) {
	if strings.TrimSpace(entry.Link) == "" {
		return database.NewPost{}, fmt.Errorf("%w: entry %q has no link", feed.ErrMalformedEntry, entry.Title)
	}

	title := strings.TrimSpace(entry.Title)
	if title == "" {
		title = untitledPost
	}

	author := strings.TrimSpace(entry.Author)
	if author == "" {
		author = unknownAuthor
	}

	return database.NewPost{
		FeedID:    feedID,
		Title:     title,
		Author:    author,
		Link:      entry.Link,
		Date:      entry.Updated,
		Timestamp: entry.Timestamp(),
	}, nil
}

// MirrorPostTask moves one stub post to the mirrored state: the post page is
// fetched, its assets are stored and the rewritten document is saved. Failed
// fetches leave the stub untouched for the next run.
type MirrorPostTask struct {
	Task
	Post *database.Post

	extractContent bool
	fetcher        PageFetcher
	extractor      *feed.ContentExtractor
	rewriter       *feed.Rewriter
	contentStore   *feed.ContentStore
	postRepo       database.PostRepository
}

func NewMirrorPostTask(feedName string, post *database.Post, extractContent bool, fetcher PageFetcher, extractor *feed.ContentExtractor, rewriter *feed.Rewriter, contentStore *feed.ContentStore, postRepo database.PostRepository) *MirrorPostTask {
	return &MirrorPostTask{
		Task:           NewTask(TaskTypeMirrorPost, feedName),
		Post:           post,
		extractContent: extractContent,
		fetcher:        fetcher,
		extractor:      extractor,
		rewriter:       rewriter,
		contentStore:   contentStore,
		postRepo:       postRepo,
	}
}

func (t *MirrorPostTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if t.Post.Fetched {
		return nil
	}

	resp, err := t.fetcher.Fetch(ctx, t.Post.Link)
	if err != nil {
		return fmt.Errorf("failed to fetch post page: %w", err)
	}

	page, contentType := resp.Body, resp.ContentType

	if t.extractContent {
		decoded := feed.DecodeDocument(resp.Body, resp.ContentType)
		article, err := t.extractor.Run([]byte(decoded), resp.URL)
		if err != nil {
			slog.Warn("Content extraction failed, mirroring full page", "post_id", t.Post.ID, "url", t.Post.Link, "error", err)
		} else {
			page, contentType = []byte(article), "text/html; charset=utf-8"
		}
	}

	document, err := t.rewriter.Run(ctx, page, contentType, resp.URL, t.contentStore.ForPost(t.Post.ID))
	if err != nil {
		return fmt.Errorf("failed to rewrite post page: %w", err)
	}

	updated, err := t.postRepo.MarkMirrored(t.Post.ID, document)
	if err != nil {
		return fmt.Errorf("failed to store mirrored post: %w", err)
	}

	if updated {
		t.Post.Fetched = true
		t.Post.Data = &document
	}

	slog.Debug("Task completed",
		"type", t.GetType(),
		"feed", t.FeedName,
		"post_id", t.Post.ID,
		"url", t.Post.Link,
		"duration", t.GetDuration(),
		"size", len(document))

	return nil
}
