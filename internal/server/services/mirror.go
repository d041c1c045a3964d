// Package services implements the mirror server's use cases on top of the
// PostgreSQL repositories and the blob store. Every operation is scoped to
// the authenticated owner.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/api"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/dbx"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/dmitrijs2005/gophgallery/internal/server/blob"
	"github.com/dmitrijs2005/gophgallery/internal/server/models"
	"github.com/dmitrijs2005/gophgallery/internal/server/repositories/repomanager"
)

// Page size bounds for ListImages.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type MirrorService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blob.Store
	log         logging.Logger
	now         func() time.Time
}

func NewMirrorService(db *sql.DB, rm repomanager.RepositoryManager, blobs blob.Store, log logging.Logger) *MirrorService {
	if log == nil {
		log = logging.Nop()
	}
	return &MirrorService{
		db:          db,
		repomanager: rm,
		blobs:       blobs,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// PutImage stores image metadata and returns a presigned upload URL for the
// payload plus a download URL. Re-putting an image keeps its storage key. A
// record that names an owner other than the caller is refused with
// common.ErrForbidden.
func (s *MirrorService) PutImage(ctx context.Context, ownerID, id string, in api.Image) (api.PutImageResponse, error) {
	if id == "" || (in.ID != "" && in.ID != id) {
		return api.PutImageResponse{}, fmt.Errorf("%w: id mismatch", common.ErrInvalidRecord)
	}
	if in.OwnerID != "" && in.OwnerID != ownerID {
		return api.PutImageResponse{}, fmt.Errorf("image %s owned by %s: %w", id, in.OwnerID, common.ErrForbidden)
	}

	repo := s.repomanager.Images(s.db)

	existing, err := repo.Get(ctx, id)
	switch {
	case errors.Is(err, common.ErrNotFound):
		existing = nil
	case err != nil:
		return api.PutImageResponse{}, err
	case existing.OwnerID != ownerID:
		return api.PutImageResponse{}, fmt.Errorf("image %s: %w", id, common.ErrForbidden)
	}

	img := imageFromAPI(ownerID, id, in)
	if img.UpdatedAt.IsZero() {
		img.UpdatedAt = s.now()
	}
	if img.CreatedAt.IsZero() {
		img.CreatedAt = img.UpdatedAt
	}
	if existing != nil {
		img.StorageKey = existing.StorageKey
		img.UploadStatus = existing.UploadStatus
	} else {
		img.StorageKey = blob.NewStorageKey(ownerID, s.now())
		img.UploadStatus = models.UploadPending
	}

	saved, err := repo.Upsert(ctx, img)
	if err != nil {
		return api.PutImageResponse{}, err
	}

	uploadURL, err := s.blobs.PresignPut(ctx, saved.StorageKey)
	if err != nil {
		return api.PutImageResponse{}, fmt.Errorf("presign put: %w", err)
	}
	remoteURL, err := s.blobs.PresignGet(ctx, saved.StorageKey)
	if err != nil {
		return api.PutImageResponse{}, fmt.Errorf("presign get: %w", err)
	}

	s.log.Debug(ctx, "image stored", "owner_id", ownerID, "image_id", id)
	return api.PutImageResponse{UploadURL: uploadURL, RemoteURL: remoteURL}, nil
}

func (s *MirrorService) MarkUploaded(ctx context.Context, ownerID, id string) error {
	return s.repomanager.Images(s.db).MarkUploaded(ctx, ownerID, id)
}

// ListImages returns the owner's images newest first. Images whose payload
// has been uploaded carry a fresh download URL.
func (s *MirrorService) ListImages(ctx context.Context, ownerID, folderID string, limit, offset int) (api.ImagePage, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	items, total, err := s.repomanager.Images(s.db).List(ctx, ownerID, folderID, limit, offset)
	if err != nil {
		return api.ImagePage{}, err
	}

	page := api.ImagePage{
		Images:  make([]api.Image, 0, len(items)),
		Total:   total,
		HasMore: offset+limit < total,
	}
	for i := range items {
		out := imageToAPI(&items[i])
		if items[i].UploadStatus == models.UploadCompleted {
			u, err := s.blobs.PresignGet(ctx, items[i].StorageKey)
			if err != nil {
				return api.ImagePage{}, fmt.Errorf("presign get: %w", err)
			}
			out.RemoteURL = u
		}
		page.Images = append(page.Images, out)
	}
	return page, nil
}

// DeleteImage removes the record and its object. A missing record is not
// an error so replays stay idempotent.
func (s *MirrorService) DeleteImage(ctx context.Context, ownerID, id string) error {
	img, err := s.repomanager.Images(s.db).Delete(ctx, ownerID, id)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, img.StorageKey); err != nil {
		s.log.Warn(ctx, "failed to delete image object", "image_id", id, "key", img.StorageKey, "error", err)
	}
	return nil
}

func (s *MirrorService) PutFolder(ctx context.Context, ownerID, id string, in api.Folder) error {
	if id == "" || (in.ID != "" && in.ID != id) {
		return fmt.Errorf("%w: id mismatch", common.ErrInvalidRecord)
	}
	if in.OwnerID != "" && in.OwnerID != ownerID {
		return fmt.Errorf("folder %s owned by %s: %w", id, in.OwnerID, common.ErrForbidden)
	}
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: folder name is empty", common.ErrInvalidRecord)
	}

	f := &models.Folder{
		ID:        id,
		OwnerID:   ownerID,
		Name:      in.Name,
		Icon:      in.Icon,
		Color:     in.Color,
		CreatedAt: in.CreatedAt.UTC(),
		UpdatedAt: in.UpdatedAt.UTC(),
	}
	if f.UpdatedAt.IsZero() {
		f.UpdatedAt = s.now()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = f.UpdatedAt
	}

	_, err := s.repomanager.Folders(s.db).Upsert(ctx, f)
	return err
}

func (s *MirrorService) ListFolders(ctx context.Context, ownerID string) (api.FolderList, error) {
	items, err := s.repomanager.Folders(s.db).List(ctx, ownerID)
	if err != nil {
		return api.FolderList{}, err
	}
	out := api.FolderList{Folders: make([]api.Folder, 0, len(items))}
	for _, f := range items {
		out.Folders = append(out.Folders, api.Folder{
			ID:        f.ID,
			OwnerID:   f.OwnerID,
			Name:      f.Name,
			Icon:      f.Icon,
			Color:     f.Color,
			CreatedAt: f.CreatedAt,
			UpdatedAt: f.UpdatedAt,
		})
	}
	return out, nil
}

// DeleteFolder removes an empty folder. Folders that still hold images fail
// with common.ErrFolderNotEmpty; missing folders are not an error.
func (s *MirrorService) DeleteFolder(ctx context.Context, ownerID, id string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := s.repomanager.Images(tx).CountByFolder(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("folder %s holds %d images: %w", id, n, common.ErrFolderNotEmpty)
		}
		return s.repomanager.Folders(tx).Delete(ctx, ownerID, id)
	})
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	return err
}

func imageFromAPI(ownerID, id string, in api.Image) *models.Image {
	return &models.Image{
		ID:           id,
		OwnerID:      ownerID,
		FolderID:     in.FolderID,
		Prompt:       in.Prompt,
		Style:        in.Style,
		Tags:         in.Tags,
		Size:         in.Metadata.Size,
		MimeType:     in.Metadata.MimeType,
		Width:        in.Metadata.Width,
		Height:       in.Metadata.Height,
		Model:        in.Metadata.Model,
		Compressed:   in.Metadata.Compressed,
		OriginalSize: in.Metadata.OriginalSize,
		CreatedAt:    in.CreatedAt.UTC(),
		UpdatedAt:    in.UpdatedAt.UTC(),
	}
}

func imageToAPI(img *models.Image) api.Image {
	tags := img.Tags
	if tags == nil {
		tags = []string{}
	}
	return api.Image{
		ID:       img.ID,
		OwnerID:  img.OwnerID,
		FolderID: img.FolderID,
		Prompt:   img.Prompt,
		Style:    img.Style,
		Tags:     tags,
		Metadata: api.ImageMetadata{
			Size:         img.Size,
			MimeType:     img.MimeType,
			Width:        img.Width,
			Height:       img.Height,
			Model:        img.Model,
			Compressed:   img.Compressed,
			OriginalSize: img.OriginalSize,
		},
		CreatedAt: img.CreatedAt,
		UpdatedAt: img.UpdatedAt,
	}
}
