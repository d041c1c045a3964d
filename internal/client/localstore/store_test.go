package localstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "gallery.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_MigratesAndPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "gallery.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Folders.Put(ctx, &models.FolderRecord{ID: "folder_1", OwnerID: "u1", Name: "Cats"}))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	f, err := s.Folders.Get(ctx, "folder_1")
	require.NoError(t, err)
	assert.Equal(t, "Cats", f.Name)
}

func TestTx_RollsBackAllRepositories(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Tx(ctx, func(ctx context.Context, r Repos) error {
		require.NoError(t, r.Folders.Put(ctx, &models.FolderRecord{ID: "folder_1", OwnerID: "u1", Name: "Cats"}))
		_, err := r.Queue.Append(ctx, &models.QueueEntry{
			Action:     models.ActionCreateFolder,
			Payload:    models.QueuePayload{ID: "folder_1", OwnerID: "u1"},
			MaxRetries: 3,
		})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Folders.Get(ctx, "folder_1")
	require.ErrorIs(t, err, common.ErrNotFound)
	n, err := s.Queue.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, ":memory:", dsn(":memory:"))
	d := dsn("/tmp/g.db")
	assert.Contains(t, d, "file:/tmp/g.db?")
	assert.Contains(t, d, "busy_timeout")
	assert.Contains(t, d, "journal_mode")
}
