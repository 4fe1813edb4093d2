package database

import (
	"database/sql"
	"errors"
	"fmt"
)

var _ FeedRepository = (*FeedRepo)(nil)

// FeedRepo handles database operations for feeds
type FeedRepo struct {
	db Querier
}

func NewFeedRepo(db Querier) *FeedRepo {
	return &FeedRepo{db: db}
}

// UpsertFeed returns the feed stored for feedURL, inserting it when absent.
// A changed non-empty title is written back so renamed feeds keep their posts.
// The boolean reports whether a new row was created.
func (r *FeedRepo) UpsertFeed(title, feedURL string) (*Feed, bool, error) {
	existing, err := r.GetFeedByURL(feedURL)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check existing feed: %w", err)
	}

	if existing != nil {
		if title != "" && existing.Title != title {
			_, err := r.db.Exec(`UPDATE feeds SET title = ? WHERE id = ?`, title, existing.ID)
			if err != nil {
				return nil, false, fmt.Errorf("failed to update feed title: %w", err)
			}
			existing.Title = title
		}
		return existing, false, nil
	}

	_, err = r.db.Exec(`
		INSERT INTO feeds (title, feed_url)
		VALUES (?, ?)
		ON CONFLICT (feed_url) DO NOTHING
	`, title, feedURL)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert feed: %w", err)
	}

	feed, err := r.GetFeedByURL(feedURL)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read back feed: %w", err)
	}
	if feed == nil {
		return nil, false, fmt.Errorf("%w: feed %s missing after insert", ErrStoreConsistency, feedURL)
	}

	return feed, true, nil
}

func (r *FeedRepo) GetFeed(id int64) (*Feed, error) {
	var feed Feed
	err := r.db.QueryRow(`
		SELECT id, title, feed_url
		FROM feeds
		WHERE id = ?
	`, id).Scan(&feed.ID, &feed.Title, &feed.URL)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	return &feed, nil
}

func (r *FeedRepo) GetFeedByURL(feedURL string) (*Feed, error) {
	var feed Feed
	err := r.db.QueryRow(`
		SELECT id, title, feed_url
		FROM feeds
		WHERE feed_url = ?
	`, feedURL).Scan(&feed.ID, &feed.Title, &feed.URL)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed by URL: %w", err)
	}

	return &feed, nil
}

// GetFeedSummaries returns every feed with its post and unread counts, ordered by title.
func (r *FeedRepo) GetFeedSummaries() ([]FeedSummary, error) {
	rows, err := r.db.Query(`
		SELECT feeds.id, feeds.title, feeds.feed_url,
		       COUNT(posts.id),
		       COALESCE(SUM(CASE WHEN posts.read = 0 THEN 1 ELSE 0 END), 0)
		FROM feeds
		LEFT JOIN posts ON posts.feed_id = feeds.id
		GROUP BY feeds.id
		ORDER BY feeds.title, feeds.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get feed summaries: %w", err)
	}
	defer rows.Close()

	summaries := []FeedSummary{}
	for rows.Next() {
		var s FeedSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.URL, &s.PostCount, &s.UnreadCount); err != nil {
			return nil, fmt.Errorf("failed to scan feed summary row: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed summary rows: %w", err)
	}

	return summaries, nil
}

func (r *FeedRepo) GetFeedCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM feeds").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get feed count: %w", err)
	}
	return count, nil
}
