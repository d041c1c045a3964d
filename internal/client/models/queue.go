package models

import "time"

// Action is the kind of mutation a queue entry replays.
type Action string

const (
	ActionUpload       Action = "upload"
	ActionDelete       Action = "delete"
	ActionCreateFolder Action = "createFolder"
	ActionDeleteFolder Action = "deleteFolder"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionUpload, ActionDelete, ActionCreateFolder, ActionDeleteFolder:
		return true
	}
	return false
}

// QueuePayload references the record a queue entry acts on. Upload and
// createFolder replays read the current local record by ID.
type QueuePayload struct {
	ID       string `json:"id"`
	OwnerID  string `json:"owner_id"`
	FolderID string `json:"folder_id,omitempty"`
}

// QueueEntry is a mutation waiting to be replayed against the mirror.
type QueueEntry struct {
	// Seq orders replay; assigned by the store, strictly increasing.
	Seq        int64
	Action     Action
	Payload    QueuePayload
	Retries    int
	MaxRetries int
	CreatedAt  time.Time
}

// Exhausted reports whether the entry has used all its attempts.
func (e *QueueEntry) Exhausted() bool {
	return e.Retries >= e.MaxRetries
}
