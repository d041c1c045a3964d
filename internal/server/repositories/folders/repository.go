// Package folders stores mirrored folders in PostgreSQL.
package folders

import (
	"context"

	"github.com/dmitrijs2005/gophgallery/internal/server/models"
)

type Repository interface {
	// Upsert fails with common.ErrForbidden when the id belongs to another owner.
	Upsert(ctx context.Context, f *models.Folder) (*models.Folder, error)
	List(ctx context.Context, ownerID string) ([]models.Folder, error)
	// Delete returns common.ErrNotFound if the owner has no such folder.
	Delete(ctx context.Context, ownerID, id string) error
}
