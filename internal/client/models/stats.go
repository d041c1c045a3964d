package models

import "time"

// StorageStats summarises what one owner keeps on the device.
type StorageStats struct {
	TotalImages    int
	TotalFolders   int
	TotalSize      int64
	TotalSizeHuman string
	LocalImages    int
	CloudImages    int
	PendingSync    int
	DroppedEntries int64
	LastDrain      time.Time
}

// QueueStatus is a snapshot of the sync queue.
type QueueStatus struct {
	Pending   int
	ByAction  map[Action]int
	Oldest    time.Time
	Draining  bool
	Dropped   int64
	LastDrain time.Time
}

// DrainReport is what one pass over the queue did.
type DrainReport struct {
	Replayed  int
	Failed    int
	Dropped   int
	Deferred  int
	Remaining int
}
