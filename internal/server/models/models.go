// Package models defines the records the mirror server keeps in PostgreSQL.
package models

import "time"

// Upload states of an image payload.
const (
	UploadPending   = "pending"
	UploadCompleted = "completed"
)

// Image is the server copy of an image record. The payload lives in the
// object store under StorageKey.
type Image struct {
	ID           string
	OwnerID      string
	FolderID     string
	Prompt       string
	Style        string
	Tags         []string
	Size         int64
	MimeType     string
	Width        int
	Height       int
	Model        string
	Compressed   bool
	OriginalSize int64
	StorageKey   string
	UploadStatus string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Folder struct {
	ID        string
	OwnerID   string
	Name      string
	Icon      string
	Color     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User is a mirror account. ID is chosen by the client so that it matches the
// owner id of the records the client uploads.
type User struct {
	ID           string
	Username     string
	PasswordHash []byte
	Salt         []byte
	CreatedAt    time.Time
}

type RefreshToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}
