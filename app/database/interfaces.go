package database

type FeedRepository interface {
	GetFeed(id int64) (*Feed, error)
	GetFeedByURL(feedURL string) (*Feed, error)
	GetFeedSummaries() ([]FeedSummary, error)
	GetFeedCount() (int, error)

	UpsertFeed(title, feedURL string) (*Feed, bool, error)
}

type PostRepository interface {
	GetPost(id int64) (*Post, error)
	FindPost(feedID int64, title, date string) (*Post, error)
	GetPostSummaries(feedID int64) ([]PostSummary, error)
	GetMirroredPosts(feedID int64, limit int) ([]Post, error)
	GetUnfetchedPosts(feedID int64) ([]Post, error)
	GetPostStats() (int, int, int, error)

	EnsurePost(post NewPost) (*Post, bool, error)
	MarkMirrored(postID int64, data string) (bool, error)
	MarkRead(postID int64) (bool, error)
}

type FileRepository interface {
	GetFile(id int64) (*File, error)
	GetFileByDigest(digest string) (*File, error)
	GetPostFileIDs(postID int64) ([]int64, error)
	GetFileCount() (int, error)
	GetLinkCount() (int, error)

	InsertFile(postID int64, digest, contentType string, data []byte) error
	LinkPostFile(postID, fileID int64) (bool, error)
}

// Transactor runs a unit of work inside one transaction.
type Transactor interface {
	InTransaction(fn func(repos *Repositories) error) error
}

var _ Transactor = (*DB)(nil)
