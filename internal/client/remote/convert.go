package remote

import (
	"github.com/dmitrijs2005/gophgallery/internal/api"
	"github.com/dmitrijs2005/gophgallery/internal/client/models"
)

func imageToAPI(r *models.ImageRecord) api.Image {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return api.Image{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		FolderID:  r.FolderID,
		Prompt:    r.Prompt,
		Style:     r.Style,
		Tags:      tags,
		RemoteURL: r.RemoteURL,
		Metadata: api.ImageMetadata{
			Size:         r.Metadata.Size,
			MimeType:     r.Metadata.MimeType,
			Width:        r.Metadata.Width,
			Height:       r.Metadata.Height,
			Model:        r.Metadata.Model,
			Compressed:   r.Metadata.Compressed,
			OriginalSize: r.Metadata.OriginalSize,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// imageFromAPI converts a mirror record; it has no payload and is synced.
func imageFromAPI(i api.Image) models.ImageRecord {
	return models.ImageRecord{
		ID:        i.ID,
		OwnerID:   i.OwnerID,
		FolderID:  i.FolderID,
		Prompt:    i.Prompt,
		Style:     i.Style,
		Tags:      i.Tags,
		RemoteURL: i.RemoteURL,
		Metadata: models.ImageMetadata{
			Size:         i.Metadata.Size,
			MimeType:     i.Metadata.MimeType,
			Width:        i.Metadata.Width,
			Height:       i.Metadata.Height,
			Model:        i.Metadata.Model,
			Compressed:   i.Metadata.Compressed,
			OriginalSize: i.Metadata.OriginalSize,
		},
		SyncStatus: models.SyncSynced,
		CreatedAt:  i.CreatedAt.UTC(),
		UpdatedAt:  i.UpdatedAt.UTC(),
	}
}

func folderToAPI(f *models.FolderRecord) api.Folder {
	return api.Folder{
		ID:        f.ID,
		OwnerID:   f.OwnerID,
		Name:      f.Name,
		Icon:      f.Icon,
		Color:     f.Color,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func folderFromAPI(f api.Folder) models.FolderRecord {
	return models.FolderRecord{
		ID:         f.ID,
		OwnerID:    f.OwnerID,
		Name:       f.Name,
		Icon:       f.Icon,
		Color:      f.Color,
		SyncStatus: models.SyncSynced,
		CreatedAt:  f.CreatedAt.UTC(),
		UpdatedAt:  f.UpdatedAt.UTC(),
	}
}
