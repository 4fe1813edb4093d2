package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/gabriel-vasile/mimetype"

	"github.com/lysyi3m/rss-mirror/app/database"
)

// AssetStore persists asset bytes on behalf of one post and returns the
// identifier used in local references.
type AssetStore interface {
	Store(data []byte, contentType string) (int64, error)
}

// ContentStore keeps one file row per unique content digest.
type ContentStore struct {
	files database.FileRepository
}

func NewContentStore(files database.FileRepository) *ContentStore {
	return &ContentStore{files: files}
}

// ForPost binds the store to a post so stored files are linked to it.
func (s *ContentStore) ForPost(postID int64) AssetStore {
	return &postAssets{store: s, postID: postID}
}

type postAssets struct {
	store  *ContentStore
	postID int64
}

func (a *postAssets) Store(data []byte, contentType string) (int64, error) {
	return a.store.Store(a.postID, data, contentType)
}

func (s *ContentStore) Store(postID int64, data []byte, contentType string) (int64, error) {
	digest := Digest(data)

	file, err := s.files.GetFileByDigest(digest)
	if err != nil {
		return 0, fmt.Errorf("failed to look up file: %w", err)
	}

	if file == nil {
		if contentType == "" {
			contentType = mimetype.Detect(data).String()
		}

		if err := s.files.InsertFile(postID, digest, contentType, data); err != nil {
			return 0, fmt.Errorf("failed to store file: %w", err)
		}

		file, err = s.files.GetFileByDigest(digest)
		if err != nil {
			return 0, fmt.Errorf("failed to read back file: %w", err)
		}
		if file == nil {
			return 0, fmt.Errorf("%w: file %s missing after insert", database.ErrStoreConsistency, digest)
		}

		slog.Debug("File stored", "file_id", file.ID, "post_id", postID, "content_type", contentType, "size", len(data))
	}

	if _, err := s.files.LinkPostFile(postID, file.ID); err != nil {
		return 0, fmt.Errorf("failed to link file to post: %w", err)
	}

	return file.ID, nil
}

// Digest returns the hex SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
