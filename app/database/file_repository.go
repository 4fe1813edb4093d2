package database

import (
	"database/sql"
	"errors"
	"fmt"
)

var _ FileRepository = (*FileRepo)(nil)

// FileRepo handles database operations for content-addressed files and
// their post associations.
type FileRepo struct {
	db Querier
}

func NewFileRepo(db Querier) *FileRepo {
	return &FileRepo{db: db}
}

// GetFileByDigest looks a file up by digest. Data is not loaded.
func (r *FileRepo) GetFileByDigest(digest string) (*File, error) {
	var file File
	err := r.db.QueryRow(`
		SELECT id, post_id, hash, content_type
		FROM files
		WHERE hash = ?
	`, digest).Scan(&file.ID, &file.PostID, &file.Digest, &file.ContentType)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file by digest: %w", err)
	}

	return &file, nil
}

func (r *FileRepo) GetFile(id int64) (*File, error) {
	var file File
	err := r.db.QueryRow(`
		SELECT id, post_id, hash, content_type, data
		FROM files
		WHERE id = ?
	`, id).Scan(&file.ID, &file.PostID, &file.Digest, &file.ContentType, &file.Data)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	return &file, nil
}

// InsertFile writes a new file row. A row with the same digest is left untouched.
func (r *FileRepo) InsertFile(postID int64, digest, contentType string, data []byte) error {
	if data == nil {
		data = []byte{}
	}

	_, err := r.db.Exec(`
		INSERT INTO files (post_id, hash, content_type, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (hash) DO NOTHING
	`, postID, digest, contentType, data)
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}

	return nil
}

// LinkPostFile records the (postID, fileID) association unless it is already
// present. The boolean reports whether a row was added.
func (r *FileRepo) LinkPostFile(postID, fileID int64) (bool, error) {
	var exists int
	err := r.db.QueryRow(`
		SELECT 1 FROM post_file_link WHERE post_id = ? AND file_id = ?
	`, postID, fileID).Scan(&exists)

	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("failed to check post file link: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO post_file_link (post_id, file_id)
		VALUES (?, ?)
		ON CONFLICT (post_id, file_id) DO NOTHING
	`, postID, fileID)
	if err != nil {
		return false, fmt.Errorf("failed to link post file: %w", err)
	}

	return true, nil
}

func (r *FileRepo) GetPostFileIDs(postID int64) ([]int64, error) {
	rows, err := r.db.Query(`
		SELECT file_id FROM post_file_link
		WHERE post_id = ?
		ORDER BY file_id
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post files: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan post file row: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post file rows: %w", err)
	}

	return ids, nil
}

func (r *FileRepo) GetFileCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM files").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get file count: %w", err)
	}
	return count, nil
}

func (r *FileRepo) GetLinkCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM post_file_link").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get post file link count: %w", err)
	}
	return count, nil
}
