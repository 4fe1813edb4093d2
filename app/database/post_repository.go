package database

import (
	"database/sql"
	"errors"
	"fmt"
)

var _ PostRepository = (*PostRepo)(nil)

const postColumns = `id, feed_id, title, author, link, date, timestamp, fetched, read, data`

// PostRepo handles database operations for posts
type PostRepo struct {
	db Querier
}

func NewPostRepo(db Querier) *PostRepo {
	return &PostRepo{db: db}
}

// EnsurePost returns the post matching (FeedID, Title, Date), inserting a stub
// row when none exists. The boolean reports whether the stub was created.
func (r *PostRepo) EnsurePost(post NewPost) (*Post, bool, error) {
	res, err := r.db.Exec(`
		INSERT INTO posts (feed_id, title, author, link, date, timestamp, fetched, read, data)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0, NULL)
		ON CONFLICT (feed_id, title, date) DO NOTHING
	`, post.FeedID, post.Title, post.Author, post.Link, post.Date, post.Timestamp)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert post: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	stored, err := r.FindPost(post.FeedID, post.Title, post.Date)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read back post: %w", err)
	}
	if stored == nil {
		return nil, false, fmt.Errorf("%w: post %q missing after insert", ErrStoreConsistency, post.Title)
	}

	return stored, affected > 0, nil
}

func (r *PostRepo) FindPost(feedID int64, title, date string) (*Post, error) {
	post, err := scanPost(r.db.QueryRow(`
		SELECT `+postColumns+`
		FROM posts
		WHERE feed_id = ? AND title = ? AND date = ?
	`, feedID, title, date))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	return post, nil
}

func (r *PostRepo) GetPost(id int64) (*Post, error) {
	post, err := scanPost(r.db.QueryRow(`
		SELECT `+postColumns+`
		FROM posts
		WHERE id = ?
	`, id))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return post, nil
}

// MarkMirrored stores the rewritten document and flips fetched. Mirrored posts
// are terminal, so the update only applies to stubs; the boolean reports
// whether a row changed.
func (r *PostRepo) MarkMirrored(postID int64, data string) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE posts
		SET fetched = 1, data = ?
		WHERE id = ? AND fetched = 0
	`, data, postID)
	if err != nil {
		return false, fmt.Errorf("failed to mark post mirrored: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected > 0, nil
}

func (r *PostRepo) MarkRead(postID int64) (bool, error) {
	res, err := r.db.Exec(`UPDATE posts SET read = 1 WHERE id = ?`, postID)
	if err != nil {
		return false, fmt.Errorf("failed to mark post read: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected > 0, nil
}

// GetUnfetchedPosts returns the stub rows of a feed in insertion order.
func (r *PostRepo) GetUnfetchedPosts(feedID int64) ([]Post, error) {
	rows, err := r.db.Query(`
		SELECT `+postColumns+`
		FROM posts
		WHERE feed_id = ? AND fetched = 0
		ORDER BY id
	`, feedID)
	if err != nil {
		return nil, fmt.Errorf("failed to get unfetched posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// GetMirroredPosts returns the newest mirrored posts of a feed.
func (r *PostRepo) GetMirroredPosts(feedID int64, limit int) ([]Post, error) {
	rows, err := r.db.Query(`
		SELECT `+postColumns+`
		FROM posts
		WHERE feed_id = ? AND fetched = 1
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, feedID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get mirrored posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

func (r *PostRepo) GetPostSummaries(feedID int64) ([]PostSummary, error) {
	rows, err := r.db.Query(`
		SELECT id, title, author, link, date, timestamp, fetched, read
		FROM posts
		WHERE feed_id = ?
		ORDER BY timestamp DESC, id DESC
	`, feedID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post summaries: %w", err)
	}
	defer rows.Close()

	summaries := []PostSummary{}
	for rows.Next() {
		var s PostSummary
		err := rows.Scan(&s.ID, &s.Title, &s.Author, &s.Link, &s.Date, &s.Timestamp, &s.Fetched, &s.Read)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post summary row: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post summary rows: %w", err)
	}

	return summaries, nil
}

// GetPostStats returns total, mirrored and unread post counts
func (r *PostRepo) GetPostStats() (total, mirrored, unread int, err error) {
	err = r.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN fetched = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN read = 0 THEN 1 ELSE 0 END), 0)
		FROM posts
	`).Scan(&total, &mirrored, &unread)

	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to get post stats: %w", err)
	}

	return total, mirrored, unread, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*Post, error) {
	var post Post
	var data sql.NullString
	err := row.Scan(
		&post.ID, &post.FeedID, &post.Title, &post.Author, &post.Link,
		&post.Date, &post.Timestamp, &post.Fetched, &post.Read, &data,
	)
	if err != nil {
		return nil, err
	}
	if data.Valid {
		post.Data = &data.String
	}
	return &post, nil
}

func scanPosts(rows *sql.Rows) ([]Post, error) {
	var posts []Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, *post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}
