package feed

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/lysyi3m/rss-mirror/app/database"
)

func setupTestRepositories(t *testing.T) *database.Repositories {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "feed.sqlite3"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db.Repositories()
}

func TestContentStore_DeduplicatesByDigest(t *testing.T) {
	repos := setupTestRepositories(t)
	store := NewContentStore(repos.Files)

	first, err := store.ForPost(1).Store([]byte("same bytes"), "image/png")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	again, err := store.ForPost(1).Store([]byte("same bytes"), "image/png")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	other, err := store.ForPost(2).Store([]byte("same bytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if first != again || first != other {
		t.Errorf("Expected one id for identical bytes, got: %d, %d, %d", first, again, other)
	}

	files, _ := repos.Files.GetFileCount()
	if files != 1 {
		t.Errorf("Expected 1 file row, got: %d", files)
	}

	links, _ := repos.Files.GetLinkCount()
	if links != 2 {
		t.Errorf("Expected 2 post links, got: %d", links)
	}

	stored, _ := repos.Files.GetFile(first)
	if stored.PostID != 1 {
		t.Errorf("Expected file to keep its first post, got: %d", stored.PostID)
	}
	if stored.ContentType != "image/png" {
		t.Errorf("Expected first content type to be kept, got: %s", stored.ContentType)
	}
	if stored.Digest != Digest([]byte("same bytes")) {
		t.Errorf("Unexpected digest: %s", stored.Digest)
	}
}

func TestContentStore_SniffsMissingContentType(t *testing.T) {
	repos := setupTestRepositories(t)
	store := NewContentStore(repos.Files)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	id, err := store.Store(1, png, "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	stored, _ := repos.Files.GetFile(id)
	if stored.ContentType != "image/png" {
		t.Errorf("Expected sniffed type image/png, got: %s", stored.ContentType)
	}
}

type vanishingFiles struct {
	database.FileRepository
}

func (v vanishingFiles) GetFileByDigest(string) (*database.File, error) {
	return nil, nil
}

func (v vanishingFiles) InsertFile(int64, string, string, []byte) error {
	return nil
}

func TestContentStore_ConsistencyError(t *testing.T) {
	store := NewContentStore(vanishingFiles{})

	_, err := store.Store(1, []byte("data"), "text/plain")
	if !errors.Is(err, database.ErrStoreConsistency) {
		t.Errorf("Expected ErrStoreConsistency, got: %v", err)
	}
}

func TestDigest(t *testing.T) {
	// sha256("abc")
	expected := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Digest([]byte("abc")); got != expected {
		t.Errorf("Expected %s, got: %s", expected, got)
	}
}
