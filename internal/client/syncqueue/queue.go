// Package syncqueue keeps the ordered list of mutations that could not reach
// the mirror and replays them when connectivity returns.
package syncqueue

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophgallery/internal/client/repositories/queue"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
)

// Replayer applies one queued mutation to the mirror.
type Replayer interface {
	Replay(ctx context.Context, e models.QueueEntry) error
}

// ReplayerFunc adapts a function to Replayer.
type ReplayerFunc func(ctx context.Context, e models.QueueEntry) error

func (f ReplayerFunc) Replay(ctx context.Context, e models.QueueEntry) error {
	return f(ctx, e)
}

// Queue is safe for concurrent use. At most one Drain runs at a time; a Drain
// started while another is running returns immediately with an empty report.
type Queue struct {
	entries    queue.Repository
	meta       metadata.Repository
	maxRetries int
	online     func() bool
	log        logging.Logger
	now        func() time.Time

	draining atomic.Bool
}

// New builds a queue over the given repositories. online may be nil, in which
// case Drain always runs.
func New(entries queue.Repository, meta metadata.Repository, maxRetries int, online func() bool, log logging.Logger) *Queue {
	if maxRetries <= 0 {
		maxRetries = common.DefaultMaxRetries
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Queue{
		entries:    entries,
		meta:       meta,
		maxRetries: maxRetries,
		online:     online,
		log:        log.With("component", "syncqueue"),
		now:        time.Now,
	}
}

// Enqueue appends a mutation and returns its sequence number.
func (q *Queue) Enqueue(ctx context.Context, action models.Action, payload models.QueuePayload) (int64, error) {
	seq, err := q.entries.Append(ctx, &models.QueueEntry{
		Action:     action,
		Payload:    payload,
		MaxRetries: q.maxRetries,
		CreatedAt:  q.now().UTC(),
	})
	if err != nil {
		return 0, err
	}
	q.log.Debug(ctx, "mutation queued", "seq", seq, "action", action, "id", payload.ID)
	return seq, nil
}

// Draining reports whether a pass is in progress.
func (q *Queue) Draining() bool {
	return q.draining.Load()
}

// Len is the number of entries waiting.
func (q *Queue) Len(ctx context.Context) (int, error) {
	return q.entries.Count(ctx)
}

// Drain replays entries in sequence order. A successful replay removes the
// entry. A failed one has its retry count bumped and stays for the next pass,
// unless it has now failed MaxRetries times, in which case it is dropped and
// counted. Failures never stop the pass.
//
// An upload whose folder still has an unconfirmed createFolder entry is
// deferred without spending a retry.
//
// Drain returns ctx.Err() if the context ends mid-pass; bookkeeping for the
// entry in flight is still written.
func (q *Queue) Drain(ctx context.Context, r Replayer) (models.DrainReport, error) {
	var report models.DrainReport

	if !q.draining.CompareAndSwap(false, true) {
		q.log.Debug(ctx, "drain already running")
		return report, nil
	}
	defer q.draining.Store(false)

	if q.online != nil && !q.online() {
		return report, nil
	}

	entries, err := q.entries.List(ctx)
	if err != nil {
		return report, fmt.Errorf("load sync queue: %w", err)
	}
	if len(entries) == 0 {
		return report, nil
	}

	// Bookkeeping outlives the caller's context.
	bg := context.WithoutCancel(ctx)

	pendingFolders := make(map[string]struct{})
	for _, e := range entries {
		if e.Action == models.ActionCreateFolder {
			pendingFolders[e.Payload.ID] = struct{}{}
		}
	}

	var ctxErr error
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			break
		}

		if !e.Action.Valid() {
			q.log.Warn(ctx, "dropping queue entry with unknown action", "seq", e.Seq, "action", e.Action)
			if err := q.entries.Remove(bg, e.Seq); err != nil {
				return report, err
			}
			report.Dropped++
			continue
		}

		if e.Action == models.ActionUpload && e.Payload.FolderID != "" {
			if _, waiting := pendingFolders[e.Payload.FolderID]; waiting {
				report.Deferred++
				continue
			}
		}

		rerr := r.Replay(ctx, e)
		if rerr == nil {
			if err := q.entries.Remove(bg, e.Seq); err != nil {
				return report, err
			}
			if e.Action == models.ActionCreateFolder {
				delete(pendingFolders, e.Payload.ID)
			}
			report.Replayed++
			q.log.Debug(ctx, "replayed", "seq", e.Seq, "action", e.Action, "id", e.Payload.ID)
			continue
		}

		if err := q.recordFailure(bg, e, rerr, &report); err != nil {
			return report, err
		}
	}

	if err := q.meta.SetTime(bg, metadata.KeyLastDrain, q.now()); err != nil {
		q.log.Warn(ctx, "failed to record drain time", "error", err)
	}
	if n, err := q.entries.Count(bg); err == nil {
		report.Remaining = n
	}

	q.log.Info(ctx, "sync queue drained",
		"replayed", report.Replayed, "failed", report.Failed,
		"dropped", report.Dropped, "deferred", report.Deferred, "remaining", report.Remaining)

	return report, ctxErr
}

func (q *Queue) recordFailure(ctx context.Context, e models.QueueEntry, cause error, report *models.DrainReport) error {
	e.Retries++
	if e.Exhausted() {
		if err := q.entries.Remove(ctx, e.Seq); err != nil {
			return err
		}
		if _, err := q.meta.Incr(ctx, metadata.KeySyncExhausted, 1); err != nil {
			q.log.Warn(ctx, "failed to count exhausted entry", "error", err)
		}
		report.Dropped++
		q.log.Warn(ctx, "sync entry dropped",
			"seq", e.Seq, "action", e.Action, "id", e.Payload.ID, "retries", e.Retries,
			"error", errors.Join(common.ErrSyncExhausted, cause))
		return nil
	}

	if err := q.entries.SetRetries(ctx, e.Seq, e.Retries); err != nil {
		return err
	}
	report.Failed++
	q.log.Debug(ctx, "replay failed", "seq", e.Seq, "action", e.Action, "retries", e.Retries, "error", cause)
	return nil
}

// Status summarises the queue and drain history.
func (q *Queue) Status(ctx context.Context) (models.QueueStatus, error) {
	entries, err := q.entries.List(ctx)
	if err != nil {
		return models.QueueStatus{}, err
	}
	st := models.QueueStatus{
		Pending:  len(entries),
		ByAction: make(map[models.Action]int),
		Draining: q.Draining(),
	}
	for i, e := range entries {
		st.ByAction[e.Action]++
		if i == 0 || e.CreatedAt.Before(st.Oldest) {
			st.Oldest = e.CreatedAt
		}
	}
	if st.Dropped, err = q.meta.GetInt(ctx, metadata.KeySyncExhausted); err != nil {
		return models.QueueStatus{}, err
	}
	if st.LastDrain, err = q.meta.GetTime(ctx, metadata.KeyLastDrain); err != nil {
		return models.QueueStatus{}, err
	}
	return st, nil
}
