// Package models defines client-side records persisted by the local store and
// mirrored to the gallery server.
package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncStatus tells whether a record is known to exist on the remote mirror.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
)

const (
	ImageIDPrefix  = "img_"
	FolderIDPrefix = "folder_"
)

// NewImageID returns a fresh image identifier.
func NewImageID() string {
	return ImageIDPrefix + uuid.NewString()
}

// NewFolderID returns a fresh folder identifier.
func NewFolderID() string {
	return FolderIDPrefix + uuid.NewString()
}

// ImageMetadata describes the stored payload.
type ImageMetadata struct {
	Size         int64  `json:"size"`
	MimeType     string `json:"mime_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Model        string `json:"model,omitempty"`
	Compressed   bool   `json:"compressed"`
	OriginalSize int64  `json:"original_size"`
}

// ImageRecord is a generated image owned by one user.
type ImageRecord struct {
	// ID is "img_" followed by a UUID; immutable.
	ID string

	OwnerID string

	// FolderID is empty when the image is not filed in a folder.
	FolderID string

	Prompt string
	Style  string
	Tags   []string

	// Payload is the image data kept on the device. It may be empty for
	// records that only came from the mirror.
	Payload []byte

	// RemoteURL is set once the mirror holds a copy.
	RemoteURL string

	Metadata ImageMetadata

	SyncStatus SyncStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsLocalOnly reports whether the image has never reached the mirror.
func (r *ImageRecord) IsLocalOnly() bool {
	return r.RemoteURL == ""
}

// ImageInput is what a caller hands to the coordinator when saving.
type ImageInput struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
	Model    string
	Prompt   string
	Style    string
}

// ImagePage is one page of a newest-first listing.
type ImagePage struct {
	Images  []ImageRecord
	Total   int
	HasMore bool
}

// NewImagePage builds a page and computes HasMore from the window.
func NewImagePage(images []ImageRecord, total, limit, offset int) ImagePage {
	return ImagePage{
		Images:  images,
		Total:   total,
		HasMore: offset+limit < total,
	}
}
