package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/rss-mirror/app/feed"
)

// TaskInterface is implemented by every unit of work the runner executes.
type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetFeedName() string
	Start()
	GetDuration() time.Duration
}

// PageFetcher retrieves feed documents, post pages and assets.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*feed.Response, error)
}

var (
	_ TaskInterface = (*UpdateFeedTask)(nil)
	_ TaskInterface = (*MirrorPostTask)(nil)
	_ PageFetcher   = (*feed.Fetcher)(nil)
)
