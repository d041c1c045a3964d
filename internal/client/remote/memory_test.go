package remote

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryMirror_Availability(t *testing.T) {
	m := NewMemoryMirror()
	ctx := context.Background()

	require.NoError(t, m.Ping(ctx))

	m.SetAvailable(false)
	require.ErrorIs(t, m.Ping(ctx), common.ErrRemoteUnavailable)

	m.SetAvailable(true)
	m.FailNext(1)
	require.ErrorIs(t, m.Ping(ctx), common.ErrRemoteUnavailable)
	require.NoError(t, m.Ping(ctx))
	assert.Equal(t, 4, m.Calls("ping"))
}

func TestMemoryMirror_PutImageIsIdempotent(t *testing.T) {
	m := NewMemoryMirror()
	ctx := context.Background()
	rec := &models.ImageRecord{ID: "img_1", OwnerID: "u1", Payload: []byte{1, 2}}

	u1, err := m.PutImage(ctx, rec)
	require.NoError(t, err)
	u2, err := m.PutImage(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, u1, u2)
	assert.Equal(t, 1, m.ImageCount())

	_, err = m.PutImage(ctx, &models.ImageRecord{ID: "img_1", OwnerID: "u2"})
	require.ErrorIs(t, err, common.ErrForbidden)
}

func TestMemoryMirror_PagingAndDelete(t *testing.T) {
	m := NewMemoryMirror()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := m.PutImage(ctx, &models.ImageRecord{
			ID: fmt.Sprintf("img_%d", i), OwnerID: "u1", CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	page, err := m.GetImagesPage(ctx, "u1", "", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.True(t, page.HasMore)
	assert.Equal(t, "img_4", page.Images[0].ID)

	page, err = m.GetImagesPage(ctx, "u1", "", 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Images)

	require.NoError(t, m.DeleteImage(ctx, "u1", "img_4"))
	require.NoError(t, m.DeleteImage(ctx, "u1", "img_4"))
	assert.False(t, m.HasImage("img_4"))
}

func TestMemoryMirror_Folders(t *testing.T) {
	m := NewMemoryMirror()
	ctx := context.Background()

	require.NoError(t, m.PutFolder(ctx, &models.FolderRecord{ID: "folder_b", OwnerID: "u1", Name: "B"}))
	require.NoError(t, m.PutFolder(ctx, &models.FolderRecord{ID: "folder_a", OwnerID: "u1", Name: "A"}))
	require.NoError(t, m.PutFolder(ctx, &models.FolderRecord{ID: "folder_x", OwnerID: "u2", Name: "X"}))

	list, err := m.GetFolders(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].Name)

	require.NoError(t, m.DeleteFolder(ctx, "u1", "folder_a"))
	assert.False(t, m.HasFolder("folder_a"))
}

func TestMemoryMirror_CancelledContext(t *testing.T) {
	m := NewMemoryMirror()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, m.Ping(ctx), common.ErrRemoteUnavailable)
	require.ErrorIs(t, m.Ping(ctx), context.Canceled)
}
