package database

// Feed represents a subscribed feed. Its identity is the feed URL.
type Feed struct {
	ID    int64
	Title string
	URL   string
}

// Post represents a feed entry. Identity is (FeedID, Title, Date).
// Data is nil until the post has been mirrored.
type Post struct {
	ID        int64
	FeedID    int64
	Title     string
	Author    string
	Link      string
	Date      string // display date as published by the feed
	Timestamp int64  // Unix seconds, 0 when the feed gave no parseable date
	Fetched   bool
	Read      bool
	Data      *string
}

// File is an immutable, content-addressed asset. Digest is the hex SHA-256 of Data.
type File struct {
	ID          int64
	PostID      int64 // post that first referenced the file
	Digest      string
	ContentType string
	Data        []byte
}
