// Package images stores mirrored image records in PostgreSQL.
package images

import (
	"context"

	"github.com/dmitrijs2005/gophgallery/internal/server/models"
)

type Repository interface {
	// Upsert inserts img or updates it in place. Updating an image that
	// belongs to another owner fails with common.ErrForbidden; the storage
	// key and creation time of an existing row never change.
	Upsert(ctx context.Context, img *models.Image) (*models.Image, error)
	Get(ctx context.Context, id string) (*models.Image, error)
	// List returns the owner's images newest first and the total count.
	List(ctx context.Context, ownerID, folderID string, limit, offset int) ([]models.Image, int, error)
	MarkUploaded(ctx context.Context, ownerID, id string) error
	// Delete removes the row and returns it; common.ErrNotFound if absent.
	Delete(ctx context.Context, ownerID, id string) (*models.Image, error)
	CountByFolder(ctx context.Context, ownerID, folderID string) (int, error)
}
