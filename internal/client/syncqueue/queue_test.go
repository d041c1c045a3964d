package syncqueue

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/client/localstore"
	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueue(t *testing.T, online func() bool) (*Queue, *localstore.Store) {
	t.Helper()
	s, err := localstore.Open(context.Background(), filepath.Join(t.TempDir(), "q.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return New(s.Queue, s.Metadata, 3, online, nil), s
}

// recorder replays successfully unless the entry id is in fail.
type recorder struct {
	mu   sync.Mutex
	seen []string
	fail map[string]bool
}

func (r *recorder) Replay(_ context.Context, e models.QueueEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, string(e.Action)+":"+e.Payload.ID)
	if r.fail[e.Payload.ID] {
		return common.ErrRemoteUnavailable
	}
	return nil
}

func enqueue(t *testing.T, q *Queue, a models.Action, id, folder string) int64 {
	t.Helper()
	seq, err := q.Enqueue(context.Background(), a, models.QueuePayload{ID: id, OwnerID: "u1", FolderID: folder})
	require.NoError(t, err)
	return seq
}

func TestDrain_ReplaysInSeqOrderAndEmpties(t *testing.T) {
	q, _ := newQueue(t, nil)
	ctx := context.Background()

	enqueue(t, q, models.ActionUpload, "img_1", "")
	enqueue(t, q, models.ActionDelete, "img_0", "")
	enqueue(t, q, models.ActionCreateFolder, "folder_1", "")
	enqueue(t, q, models.ActionDeleteFolder, "folder_0", "")

	r := &recorder{}
	report, err := q.Drain(ctx, r)
	require.NoError(t, err)

	assert.Equal(t, []string{"upload:img_1", "delete:img_0", "createFolder:folder_1", "deleteFolder:folder_0"}, r.seen)
	assert.Equal(t, models.DrainReport{Replayed: 4}, report)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDrain_PoisonEntryDroppedAfterMaxRetriesWithoutBlocking(t *testing.T) {
	q, s := newQueue(t, nil)
	ctx := context.Background()

	enqueue(t, q, models.ActionUpload, "img_bad", "")
	enqueue(t, q, models.ActionUpload, "img_good", "")

	r := &recorder{fail: map[string]bool{"img_bad": true}}

	report, err := q.Drain(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Replayed, "good entry must not wait behind the poison entry")
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Remaining)

	report, err = q.Drain(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	entries, err := s.Queue.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Retries)

	report, err = q.Drain(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Dropped)
	assert.Zero(t, report.Remaining)

	attempts := 0
	for _, call := range r.seen {
		if call == "upload:img_bad" {
			attempts++
		}
	}
	assert.Equal(t, 3, attempts, "attempted exactly MaxRetries times")

	dropped, err := s.Metadata.GetInt(ctx, metadata.KeySyncExhausted)
	require.NoError(t, err)
	assert.EqualValues(t, 1, dropped)
}

func TestDrain_OfflineIsNoop(t *testing.T) {
	q, _ := newQueue(t, func() bool { return false })
	enqueue(t, q, models.ActionUpload, "img_1", "")

	r := &recorder{}
	report, err := q.Drain(context.Background(), r)
	require.NoError(t, err)
	assert.Empty(t, r.seen)
	assert.Equal(t, models.DrainReport{}, report)
}

func TestDrain_ConcurrentCallIsNoop(t *testing.T) {
	q, _ := newQueue(t, nil)
	ctx := context.Background()
	enqueue(t, q, models.ActionUpload, "img_1", "")

	started := make(chan struct{})
	release := make(chan struct{})
	blocking := ReplayerFunc(func(ctx context.Context, e models.QueueEntry) error {
		close(started)
		<-release
		return nil
	})

	done := make(chan models.DrainReport)
	go func() {
		rep, _ := q.Drain(ctx, blocking)
		done <- rep
	}()

	<-started
	assert.True(t, q.Draining())

	calls := 0
	second := ReplayerFunc(func(context.Context, models.QueueEntry) error {
		calls++
		return nil
	})
	rep, err := q.Drain(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, models.DrainReport{}, rep)
	assert.Zero(t, calls)

	close(release)
	first := <-done
	assert.Equal(t, 1, first.Replayed)
	assert.False(t, q.Draining())
}

func TestDrain_UploadWaitsForItsFolder(t *testing.T) {
	q, _ := newQueue(t, nil)
	ctx := context.Background()

	enqueue(t, q, models.ActionCreateFolder, "folder_1", "")
	enqueue(t, q, models.ActionUpload, "img_in_folder", "folder_1")
	enqueue(t, q, models.ActionUpload, "img_loose", "")

	r := &recorder{fail: map[string]bool{"folder_1": true}}
	report, err := q.Drain(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, []string{"createFolder:folder_1", "upload:img_loose"}, r.seen)
	assert.Equal(t, 1, report.Deferred)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Replayed)

	r.fail = nil
	r.seen = nil
	report, err = q.Drain(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, []string{"createFolder:folder_1", "upload:img_in_folder"}, r.seen)
	assert.Zero(t, report.Remaining)
}

func TestDrain_StopsWhenContextEnds(t *testing.T) {
	q, _ := newQueue(t, nil)
	enqueue(t, q, models.ActionUpload, "img_1", "")
	enqueue(t, q, models.ActionUpload, "img_2", "")

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	r := ReplayerFunc(func(context.Context, models.QueueEntry) error {
		calls++
		cancel()
		return nil
	})

	report, err := q.Drain(ctx, r)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, report.Replayed)

	n, err := q.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "entry replayed before cancel is still removed")
}

func TestDrain_UnknownActionRemoved(t *testing.T) {
	q, s := newQueue(t, nil)
	ctx := context.Background()

	_, err := s.DB().Exec(`INSERT INTO sync_queue(action, payload, max_retries, created_at) VALUES ('rename', '{"id":"x"}', 3, 0)`)
	require.NoError(t, err)

	r := &recorder{}
	report, err := q.Drain(ctx, r)
	require.NoError(t, err)
	assert.Empty(t, r.seen)
	assert.Equal(t, 1, report.Dropped)
}

func TestDrain_RecordsLastDrainAndStatus(t *testing.T) {
	q, _ := newQueue(t, nil)
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return at }

	enqueue(t, q, models.ActionUpload, "img_1", "")
	enqueue(t, q, models.ActionUpload, "img_2", "")
	enqueue(t, q, models.ActionDelete, "img_3", "")

	st, err := q.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Pending)
	assert.Equal(t, 2, st.ByAction[models.ActionUpload])
	assert.True(t, st.Oldest.Equal(at))
	assert.True(t, st.LastDrain.IsZero())

	r := &recorder{fail: map[string]bool{"img_1": true, "img_2": true, "img_3": true}}
	_, err = q.Drain(ctx, r)
	require.NoError(t, err)

	st, err = q.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.LastDrain.Equal(at))
	assert.Equal(t, 3, st.Pending)
}

func TestEnqueue_PropagatesStoreErrors(t *testing.T) {
	q, s := newQueue(t, nil)
	require.NoError(t, s.Close())

	_, err := q.Enqueue(context.Background(), models.ActionUpload, models.QueuePayload{ID: "img_1"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrRemoteUnavailable))
}
