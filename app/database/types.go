package database

// NewPost carries the fields of a stub row created on first sight of an entry.
type NewPost struct {
	FeedID    int64
	Title     string
	Author    string
	Link      string
	Date      string
	Timestamp int64
}

// FeedSummary is the feed index row served to readers.
type FeedSummary struct {
	ID          int64  `json:"feed_id"`
	Title       string `json:"feed_title"`
	URL         string `json:"feed_url"`
	PostCount   int    `json:"post_count"`
	UnreadCount int    `json:"unread_count"`
}

// PostSummary is a post row without its mirrored document.
type PostSummary struct {
	ID        int64  `json:"post_id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Link      string `json:"link"`
	Date      string `json:"date"`
	Timestamp int64  `json:"timestamp"`
	Fetched   bool   `json:"fetched"`
	Read      bool   `json:"read"`
}
