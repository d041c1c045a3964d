package images

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/client/migrations"
	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "images.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db))
	return db
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func img(id, owner, folder string, minute int) *models.ImageRecord {
	at := base.Add(time.Duration(minute) * time.Minute)
	return &models.ImageRecord{
		ID:       id,
		OwnerID:  owner,
		FolderID: folder,
		Prompt:   "a red fox",
		Tags:     []string{"red", "fox"},
		Payload:  []byte{0xff, 0xd8, 0x01},
		Metadata: models.ImageMetadata{
			Size: 3, MimeType: "image/jpeg", Width: 512, Height: 512,
			Model: "offline-sd-lite", Compressed: true, OriginalSize: 9,
		},
		SyncStatus: models.SyncPending,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
}

func TestPutGet_RoundTrip(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	in := img("img_1", "u1", "folder_a", 0)
	require.NoError(t, r.Put(ctx, in))

	got, err := r.Get(ctx, "img_1")
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestPut_Validation(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	err := r.Put(ctx, &models.ImageRecord{OwnerID: "u1"})
	require.ErrorIs(t, err, common.ErrInvalidRecord)

	err = r.Put(ctx, &models.ImageRecord{ID: "img_x"})
	require.ErrorIs(t, err, common.ErrInvalidRecord)
}

func TestPut_UpsertKeepsCreatedAtAndOwner(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	first := img("img_1", "u1", "", 0)
	require.NoError(t, r.Put(ctx, first))

	second := img("img_1", "intruder", "f2", 30)
	second.Prompt = "changed"
	require.NoError(t, r.Put(ctx, second))

	got, err := r.Get(ctx, "img_1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.OwnerID)
	assert.Equal(t, "changed", got.Prompt)
	assert.Equal(t, "f2", got.FolderID)
	assert.True(t, got.CreatedAt.Equal(first.CreatedAt))
	assert.True(t, got.UpdatedAt.Equal(second.UpdatedAt))
}

func TestGet_NotFound(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	_, err := r.Get(context.Background(), "img_missing")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestList_NewestFirstWithPaging(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, r.Put(ctx, img(fmt.Sprintf("img_%d", i), "u1", "", i)))
	}
	require.NoError(t, r.Put(ctx, img("img_other", "u2", "", 10)))

	page, err := r.List(ctx, "u1", "", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.True(t, page.HasMore)
	require.Len(t, page.Images, 2)
	assert.Equal(t, "img_4", page.Images[0].ID)
	assert.Equal(t, "img_3", page.Images[1].ID)

	page, err = r.List(ctx, "u1", "", 2, 4)
	require.NoError(t, err)
	assert.False(t, page.HasMore)
	require.Len(t, page.Images, 1)
	assert.Equal(t, "img_0", page.Images[0].ID)
}

func TestList_ByFolder(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, img("img_a", "u1", "folder_1", 0)))
	require.NoError(t, r.Put(ctx, img("img_b", "u1", "folder_2", 1)))
	require.NoError(t, r.Put(ctx, img("img_c", "u1", "folder_1", 2)))

	page, err := r.List(ctx, "u1", "folder_1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.False(t, page.HasMore)
	assert.Equal(t, "img_c", page.Images[0].ID)
	assert.Equal(t, "img_a", page.Images[1].ID)
}

func TestSearch_PromptSubstringIgnoringCase(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	prompts := map[string]string{
		"img_a": "A Red Fox in snow",
		"img_b": "red panda",
		"img_c": "blue whale",
		"img_d": "100% redness_test",
	}
	i := 0
	for id, p := range prompts {
		rec := img(id, "u1", "", i)
		rec.Prompt = p
		require.NoError(t, r.Put(ctx, rec))
		i++
	}
	other := img("img_x", "u2", "", 9)
	other.Prompt = "red sky"
	require.NoError(t, r.Put(ctx, other))

	page, err := r.Search(ctx, "u1", "RED", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	var ids []string
	for _, im := range page.Images {
		ids = append(ids, im.ID)
	}
	assert.ElementsMatch(t, []string{"img_a", "img_b", "img_d"}, ids)

	// LIKE wildcards in the query are literal
	page, err = r.Search(ctx, "u1", "0%", 10, 0)
	require.NoError(t, err)
	require.Len(t, page.Images, 1)
	assert.Equal(t, "img_d", page.Images[0].ID)

	page, err = r.Search(ctx, "u1", "s__w", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	page, err = r.Search(ctx, "u1", "red", 1, 0)
	require.NoError(t, err)
	assert.True(t, page.HasMore)
	assert.Len(t, page.Images, 1)
}

func TestListAll_OmitsPayload(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	require.NoError(t, r.Put(ctx, img("img_a", "u1", "", 0)))

	all, err := r.ListAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Nil(t, all[0].Payload)
	assert.EqualValues(t, 3, all[0].Metadata.Size)
}

func TestDelete(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	require.NoError(t, r.Put(ctx, img("img_a", "u1", "", 0)))

	require.NoError(t, r.Delete(ctx, "img_a"))
	_, err := r.Get(ctx, "img_a")
	require.ErrorIs(t, err, common.ErrNotFound)

	require.ErrorIs(t, r.Delete(ctx, "img_a"), common.ErrNotFound)
}

func TestCounts(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, img("img_a", "u1", "folder_1", 0)))
	require.NoError(t, r.Put(ctx, img("img_b", "u1", "folder_1", 1)))
	require.NoError(t, r.Put(ctx, img("img_c", "u1", "folder_2", 2)))
	require.NoError(t, r.Put(ctx, img("img_d", "u1", "", 3)))

	n, err := r.CountByFolder(ctx, "folder_1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = r.CountByFolder(ctx, "folder_empty")
	require.NoError(t, err)
	assert.Zero(t, n)

	counts, err := r.CountByFolders(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"folder_1": 2, "folder_2": 1}, counts)
}

func TestMarkSynced(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	require.NoError(t, r.Put(ctx, img("img_a", "u1", "", 0)))

	at := base.Add(time.Hour)
	require.NoError(t, r.MarkSynced(ctx, "img_a", "https://cdn/img_a.jpg", at))

	got, err := r.Get(ctx, "img_a")
	require.NoError(t, err)
	assert.Equal(t, models.SyncSynced, got.SyncStatus)
	assert.Equal(t, "https://cdn/img_a.jpg", got.RemoteURL)
	assert.NotEmpty(t, got.Payload, "local payload stays after sync")
	assert.True(t, got.UpdatedAt.Equal(at))

	require.ErrorIs(t, r.MarkSynced(ctx, "img_missing", "x", at), common.ErrNotFound)
}

func TestDeleteUnsyncedOlderThan(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, img("img_old_local", "u1", "", 0)))
	synced := img("img_old_synced", "u1", "", 1)
	synced.RemoteURL = "https://cdn/x"
	require.NoError(t, r.Put(ctx, synced))
	require.NoError(t, r.Put(ctx, img("img_new_local", "u1", "", 120)))
	require.NoError(t, r.Put(ctx, img("img_other_owner", "u2", "", 0)))

	n, err := r.DeleteUnsyncedOlderThan(ctx, "u1", base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = r.Get(ctx, "img_old_local")
	require.ErrorIs(t, err, common.ErrNotFound)
	for _, id := range []string{"img_old_synced", "img_new_local", "img_other_owner"} {
		_, err := r.Get(ctx, id)
		require.NoError(t, err, id)
	}
}
