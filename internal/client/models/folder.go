package models

import "time"

const (
	DefaultFolderIcon  = "📁"
	DefaultFolderColor = "#6366f1"
)

// FolderRecord groups images of one owner.
type FolderRecord struct {
	ID      string
	OwnerID string
	Name    string
	Icon    string
	Color   string

	// ImageCount is filled from the local store at query time and never
	// persisted.
	ImageCount int

	SyncStatus SyncStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}
