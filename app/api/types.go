package api

import (
	"time"

	"github.com/lysyi3m/rss-mirror/app/database"
	"github.com/lysyi3m/rss-mirror/app/feed"
)

type GeneratorInterface interface {
	Run(feed database.Feed, posts []database.Post) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

// DefaultFeedPosts caps the number of posts rendered into one RSS document.
const DefaultFeedPosts = 100

type Handler struct {
	feedRepo  database.FeedRepository
	postRepo  database.PostRepository
	fileRepo  database.FileRepository
	generator GeneratorInterface
	version   string
	location  *time.Location
}

type resultSet[T any] struct {
	ResultSet []T `json:"ResultSet"`
}
