package database

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	version, dirty, err := RunMigrations(db)
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(1), version)

	return db
}

func TestNewConnection_EmptyPath(t *testing.T) {
	_, err := NewConnection("")
	assert.Error(t, err)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	version, dirty, err := RunMigrations(db)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestFeedRepo_UpsertFeed(t *testing.T) {
	repos := setupTestDB(t).Repositories()

	feed, created, err := repos.Feeds.UpsertFeed("Example", "http://example.com/feed.xml")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, feed.ID)

	again, created, err := repos.Feeds.UpsertFeed("Example", "http://example.com/feed.xml")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, feed.ID, again.ID)

	renamed, created, err := repos.Feeds.UpsertFeed("Example Renamed", "http://example.com/feed.xml")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, feed.ID, renamed.ID)
	assert.Equal(t, "Example Renamed", renamed.Title)

	count, err := repos.Feeds.GetFeedCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, err := repos.Feeds.GetFeed(feed.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Example Renamed", stored.Title)

	missing, err := repos.Feeds.GetFeed(feed.ID + 100)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPostRepo_EnsurePostIsIdempotent(t *testing.T) {
	repos := setupTestDB(t).Repositories()
	feed, _, err := repos.Feeds.UpsertFeed("Example", "http://example.com/feed.xml")
	require.NoError(t, err)

	stub := NewPost{
		FeedID:    feed.ID,
		Title:     "Hello",
		Author:    "someone",
		Link:      "http://example.com/hello",
		Date:      "Mon, 03 Jul 2023 10:00:00 GMT",
		Timestamp: 1688378400,
	}

	first, created, err := repos.Posts.EnsurePost(stub)
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, first.Fetched)
	assert.Nil(t, first.Data)

	second, created, err := repos.Posts.EnsurePost(stub)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	stub.Date = "Tue, 04 Jul 2023 10:00:00 GMT"
	third, created, err := repos.Posts.EnsurePost(stub)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, third.ID)

	total, mirrored, unread, err := repos.Posts.GetPostStats()
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 0, mirrored)
	assert.Equal(t, 2, unread)
}

func TestPostRepo_MarkMirroredIsTerminal(t *testing.T) {
	repos := setupTestDB(t).Repositories()
	feed, _, err := repos.Feeds.UpsertFeed("Example", "http://example.com/feed.xml")
	require.NoError(t, err)
	post, _, err := repos.Posts.EnsurePost(NewPost{FeedID: feed.ID, Title: "Hello", Link: "http://example.com/hello"})
	require.NoError(t, err)

	stubs, err := repos.Posts.GetUnfetchedPosts(feed.ID)
	require.NoError(t, err)
	require.Len(t, stubs, 1)

	changed, err := repos.Posts.MarkMirrored(post.ID, "<p>first</p>")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repos.Posts.MarkMirrored(post.ID, "<p>second</p>")
	require.NoError(t, err)
	assert.False(t, changed)

	stored, err := repos.Posts.GetPost(post.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Data)
	assert.True(t, stored.Fetched)
	assert.Equal(t, "<p>first</p>", *stored.Data)

	stubs, err = repos.Posts.GetUnfetchedPosts(feed.ID)
	require.NoError(t, err)
	assert.Empty(t, stubs)

	mirrored, err := repos.Posts.GetMirroredPosts(feed.ID, 10)
	require.NoError(t, err)
	assert.Len(t, mirrored, 1)
}

func TestPostRepo_MarkRead(t *testing.T) {
	repos := setupTestDB(t).Repositories()
	feed, _, err := repos.Feeds.UpsertFeed("Example", "http://example.com/feed.xml")
	require.NoError(t, err)
	post, _, err := repos.Posts.EnsurePost(NewPost{FeedID: feed.ID, Title: "Hello"})
	require.NoError(t, err)

	changed, err := repos.Posts.MarkRead(post.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repos.Posts.MarkRead(post.ID + 100)
	require.NoError(t, err)
	assert.False(t, changed)

	summaries, err := repos.Feeds.GetFeedSummaries()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].PostCount)
	assert.Equal(t, 0, summaries[0].UnreadCount)

	posts, err := repos.Posts.GetPostSummaries(feed.ID)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.True(t, posts[0].Read)
}

func TestFileRepo_InsertAndLink(t *testing.T) {
	repos := setupTestDB(t).Repositories()

	require.NoError(t, repos.Files.InsertFile(1, "abc", "image/png", []byte("png")))
	require.NoError(t, repos.Files.InsertFile(2, "abc", "image/png", []byte("png")))

	count, err := repos.Files.GetFileCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	file, err := repos.Files.GetFileByDigest("abc")
	require.NoError(t, err)
	require.NotNil(t, file)
	assert.Equal(t, int64(1), file.PostID)
	assert.Nil(t, file.Data)

	full, err := repos.Files.GetFile(file.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), full.Data)
	assert.Equal(t, "image/png", full.ContentType)

	added, err := repos.Files.LinkPostFile(1, file.ID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repos.Files.LinkPostFile(1, file.ID)
	require.NoError(t, err)
	assert.False(t, added)

	links, err := repos.Files.GetLinkCount()
	require.NoError(t, err)
	assert.Equal(t, 1, links)

	ids, err := repos.Files.GetPostFileIDs(1)
	require.NoError(t, err)
	assert.Equal(t, []int64{file.ID}, ids)

	missing, err := repos.Files.GetFileByDigest("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInTransaction_RollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	boom := errors.New("boom")

	err := db.InTransaction(func(repos *Repositories) error {
		if _, _, err := repos.Feeds.UpsertFeed("Example", "http://example.com/feed.xml"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	count, err := db.Repositories().Feeds.GetFeedCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	err = db.InTransaction(func(repos *Repositories) error {
		_, _, err := repos.Feeds.UpsertFeed("Example", "http://example.com/feed.xml")
		return err
	})
	require.NoError(t, err)

	count, err = db.Repositories().Feeds.GetFeedCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
