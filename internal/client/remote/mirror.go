// Package remote talks to the cloud mirror of the gallery. Every failure is
// reported wrapped in common.ErrRemoteUnavailable so callers can degrade to
// the local store and the sync queue.
package remote

import (
	"context"

	"github.com/dmitrijs2005/gophgallery/internal/client/models"
)

// Mirror is the eventually-consistent remote copy of an owner's records.
// Put and Delete calls are idempotent per ID.
type Mirror interface {
	Ping(ctx context.Context) error

	// PutImage stores the record and its payload and returns the URL the
	// payload can be fetched from.
	PutImage(ctx context.Context, rec *models.ImageRecord) (string, error)

	// GetImagesPage returns one newest-first page. An empty folderID lists
	// every folder.
	GetImagesPage(ctx context.Context, ownerID, folderID string, limit, offset int) (models.ImagePage, error)

	// DeleteImage succeeds when the image is already gone.
	DeleteImage(ctx context.Context, ownerID, id string) error

	PutFolder(ctx context.Context, f *models.FolderRecord) error
	GetFolders(ctx context.Context, ownerID string) ([]models.FolderRecord, error)

	// DeleteFolder succeeds when the folder is already gone.
	DeleteFolder(ctx context.Context, ownerID, id string) error
}
