// Package localstore opens the device's SQLite database and vends the
// repositories that make up the local record store.
package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/dmitrijs2005/gophgallery/internal/client/migrations"
	"github.com/dmitrijs2005/gophgallery/internal/client/repositories/folders"
	"github.com/dmitrijs2005/gophgallery/internal/client/repositories/images"
	"github.com/dmitrijs2005/gophgallery/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophgallery/internal/client/repositories/queue"
	"github.com/dmitrijs2005/gophgallery/internal/client/repositories/users"
	"github.com/dmitrijs2005/gophgallery/internal/dbx"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Repos is the set of repositories bound to one DBTX.
type Repos struct {
	Images   images.Repository
	Folders  folders.Repository
	Queue    queue.Repository
	Metadata metadata.Repository
	Users    users.Repository
}

// NewRepos binds SQLite repositories to db, which may be a *sql.DB or a *sql.Tx.
func NewRepos(db dbx.DBTX) Repos {
	return Repos{
		Images:   images.NewSQLiteRepository(db),
		Folders:  folders.NewSQLiteRepository(db),
		Queue:    queue.NewSQLiteRepository(db),
		Metadata: metadata.NewSQLiteRepository(db),
		Users:    users.NewSQLiteRepository(db),
	}
}

// Store owns the database handle. Its embedded Repos run outside any
// transaction; use Tx for multi-statement invariants.
type Store struct {
	Repos
	db *sql.DB
}

// Open opens (creating if needed) the database at path and migrates it.
// The pool holds a single connection so writes are serialised.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open local store: %w", err)
	}
	if err := migrations.Up(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{Repos: NewRepos(db), db: db}, nil
}

// Tx runs fn with repositories bound to one transaction.
func (s *Store) Tx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, NewRepos(tx))
	})
}

// DB exposes the handle for diagnostics and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func dsn(path string) string {
	if path == ":memory:" {
		return path
	}
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	return "file:" + path + "?" + q.Encode()
}
