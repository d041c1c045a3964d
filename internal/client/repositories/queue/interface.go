// Package queue persists pending sync mutations in the sync_queue table.
package queue

import (
	"context"

	"github.com/dmitrijs2005/gophgallery/internal/client/models"
)

type Repository interface {
	// Append stores e and returns its assigned Seq.
	Append(ctx context.Context, e *models.QueueEntry) (int64, error)

	// List returns every entry in Seq order.
	List(ctx context.Context) ([]models.QueueEntry, error)

	SetRetries(ctx context.Context, seq int64, retries int) error

	// Remove deletes the entry; removing a missing seq is not an error.
	Remove(ctx context.Context, seq int64) error

	Count(ctx context.Context) (int, error)
}
