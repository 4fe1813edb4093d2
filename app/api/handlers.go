package api

import (
	"cmp"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-mirror/app/database"
)

func NewHandler(repos *database.Repositories, generator GeneratorInterface, version string, location *time.Location) *Handler {
	if location == nil {
		location = time.UTC
	}
	return &Handler{
		feedRepo:  repos.Feeds,
		postRepo:  repos.Posts,
		fileRepo:  repos.Files,
		generator: generator,
		version:   version,
		location:  location,
	}
}

// parseID reads a positive integer path parameter. Anything else, including
// the unavailable-asset placeholder, is reported as not found.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.Status(http.StatusNotFound)
		return 0, false
	}
	return id, true
}

func (h *Handler) GetPost(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	post, err := h.postRepo.GetPost(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_post", "post_id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if post == nil || !post.Fetched || post.Data == nil {
		c.Status(http.StatusNotFound)
		return
	}

	if !post.Read {
		if _, err := h.postRepo.MarkRead(id); err != nil {
			slog.Error("Database error", "operation", "mark_read", "post_id", id, "error", err)
		}
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(*post.Data))
}

func (h *Handler) GetFile(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	file, err := h.fileRepo.GetFile(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_file", "file_id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if file == nil {
		c.Status(http.StatusNotFound)
		return
	}

	// Files are content addressed and never change.
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Header("ETag", strconv.Quote(file.Digest))
	c.Data(http.StatusOK, cmp.Or(file.ContentType, "application/octet-stream"), file.Data)
}

func (h *Handler) ListFeeds(c *gin.Context) {
	summaries, err := h.feedRepo.GetFeedSummaries()
	if err != nil {
		slog.Error("Database error", "operation", "get_feed_summaries", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, resultSet[database.FeedSummary]{ResultSet: summaries})
}

func (h *Handler) ListPosts(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	feed, err := h.feedRepo.GetFeed(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if feed == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return
	}

	posts, err := h.postRepo.GetPostSummaries(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_post_summaries", "feed_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, resultSet[database.PostSummary]{ResultSet: posts})
}

func (h *Handler) GetFeedRSS(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	feed, err := h.feedRepo.GetFeed(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed_id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if feed == nil {
		c.Status(http.StatusNotFound)
		return
	}

	posts, err := h.postRepo.GetMirroredPosts(id, DefaultFeedPosts)
	if err != nil {
		slog.Error("Database error", "operation", "get_mirrored_posts", "feed_id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(*feed, posts)
	if err != nil {
		slog.Error("RSS generation error", "feed_id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(posts)))
	c.Header("X-Feed-Id", strconv.FormatInt(feed.ID, 10))

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(h.location).Format(time.RFC3339),
	}

	if feedCount, err := h.feedRepo.GetFeedCount(); err == nil {
		health["feeds"] = feedCount
	}

	if total, mirrored, unread, err := h.postRepo.GetPostStats(); err == nil {
		health["posts"] = map[string]int{
			"total":    total,
			"mirrored": mirrored,
			"unread":   unread,
		}
	}

	if fileCount, err := h.fileRepo.GetFileCount(); err == nil {
		health["files"] = fileCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     "RSS Mirror",
		"version":     h.version,
		"description": "Local mirror of syndicated posts with content-addressed assets",
		"endpoints": map[string]string{
			"health": "/health",
			"feeds":  "/json/feeds",
			"posts":  "/json/feed/<id>",
			"rss":    "/feeds/<id>/rss",
			"post":   "/post/<id>",
			"file":   "/file/<id>",
		},
	})
}
