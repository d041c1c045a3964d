// Package folders persists folder records in the local SQLite store.
package folders

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/client/models"
)

type Repository interface {
	// Put inserts a folder or replaces the one with the same ID.
	Put(ctx context.Context, f *models.FolderRecord) error

	// Get returns a folder or common.ErrNotFound. ImageCount is left zero.
	Get(ctx context.Context, id string) (*models.FolderRecord, error)

	// List returns the owner's folders ordered by name.
	List(ctx context.Context, ownerID string) ([]models.FolderRecord, error)

	// Delete removes a folder or returns common.ErrNotFound.
	Delete(ctx context.Context, id string) error

	MarkSynced(ctx context.Context, id string, at time.Time) error
}
