// Package images persists image records and their payloads in the local
// SQLite store.
package images

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/client/models"
)

// Repository describes CRUD and query operations for ImageRecord objects.
type Repository interface {
	// Put inserts a record or replaces the one with the same ID.
	Put(ctx context.Context, r *models.ImageRecord) error

	// Get returns a record with its payload, or common.ErrNotFound.
	Get(ctx context.Context, id string) (*models.ImageRecord, error)

	// List returns one newest-first page of the owner's images. An empty
	// folderID lists every folder.
	List(ctx context.Context, ownerID, folderID string, limit, offset int) (models.ImagePage, error)

	// Search is List filtered to prompts containing query, ignoring case.
	Search(ctx context.Context, ownerID, query string, limit, offset int) (models.ImagePage, error)

	// ListAll returns every image of the owner without payloads.
	ListAll(ctx context.Context, ownerID string) ([]models.ImageRecord, error)

	// Delete removes the record and its payload, or returns common.ErrNotFound.
	Delete(ctx context.Context, id string) error

	CountByFolder(ctx context.Context, folderID string) (int, error)

	// CountByFolders returns image counts keyed by folder ID for one owner.
	CountByFolders(ctx context.Context, ownerID string) (map[string]int, error)

	// MarkSynced records the mirror URL and flips the status to synced.
	MarkSynced(ctx context.Context, id, remoteURL string, at time.Time) error

	// DeleteUnsyncedOlderThan removes never-mirrored images created before
	// cutoff and returns how many went.
	DeleteUnsyncedOlderThan(ctx context.Context, ownerID string, cutoff time.Time) (int, error)
}
