package database

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrStoreConsistency reports a write that could not be read back. It means
// the store is corrupted or unreachable and the run must stop.
var ErrStoreConsistency = errors.New("store consistency error")

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

type DB struct {
	*sql.DB
}

// NewConnection opens the SQLite database at path. Readers and the mirroring
// run share the file, so WAL journaling and a busy timeout are always set.
func NewConnection(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite allows a single writer; one connection keeps transactions serialized.
	conn.SetMaxOpenConns(1)

	return &DB{DB: conn}, nil
}

// Repositories groups the repositories bound to one Querier.
type Repositories struct {
	Feeds FeedRepository
	Posts PostRepository
	Files FileRepository
}

func NewRepositories(q Querier) *Repositories {
	return &Repositories{
		Feeds: NewFeedRepo(q),
		Posts: NewPostRepo(q),
		Files: NewFileRepo(q),
	}
}

// Repositories returns repositories that run outside of any transaction.
func (db *DB) Repositories() *Repositories {
	return NewRepositories(db.DB)
}

// InTransaction runs fn with repositories bound to a single transaction. The
// transaction is committed when fn returns nil and rolled back otherwise.
func (db *DB) InTransaction(fn func(repos *Repositories) error) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(NewRepositories(tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
