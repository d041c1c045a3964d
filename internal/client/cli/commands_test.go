package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/client/config"
	"github.com/dmitrijs2005/gophgallery/internal/client/localstore"
	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/client/producer"
	"github.com/dmitrijs2005/gophgallery/internal/client/remote"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	*App
	out    *bytes.Buffer
	mirror *remote.MemoryMirror
	store  *localstore.Store
}

func newTestApp(t *testing.T, input string) *testApp {
	t.Helper()
	store, err := localstore.Open(context.Background(), filepath.Join(t.TempDir(), "gallery.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	old := getPIN
	getPIN = func(io.Writer) ([]byte, error) { return []byte("1234"), nil }
	t.Cleanup(func() { getPIN = old })

	var cfg config.Config
	cfg.LoadDefaults()
	cfg.GenerationRetryDelay = time.Millisecond

	mirror := remote.NewMemoryMirror()
	out := &bytes.Buffer{}
	app := NewApp(Deps{
		Config:   &cfg,
		Store:    store,
		Mirror:   mirror,
		Producer: &producer.Simulated{Size: 32},
		In:       strings.NewReader(input),
		Out:      out,
	})
	t.Cleanup(app.unsubscribe)
	return &testApp{App: app, out: out, mirror: mirror, store: store}
}

func (a *testApp) mustRegister(t *testing.T) {
	t.Helper()
	require.NoError(t, a.Register(context.Background()))
}

func TestApp_RegisterLoginLogout(t *testing.T) {
	a := newTestApp(t, "alice\nalice\n")
	ctx := context.Background()

	a.mustRegister(t)
	assert.True(t, a.isLoggedIn())
	assert.Equal(t, "(alice offline)", a.getStatus())

	require.NoError(t, a.Logout(ctx))
	assert.False(t, a.isLoggedIn())
	assert.Equal(t, "(offline)", a.getStatus())

	require.NoError(t, a.Login(ctx))
	assert.True(t, a.isLoggedIn())
	assert.Contains(t, a.out.String(), "Signed in as alice")
}

func TestApp_LoginWrongPIN(t *testing.T) {
	a := newTestApp(t, "alice\nalice\n")
	ctx := context.Background()
	a.mustRegister(t)
	require.NoError(t, a.Logout(ctx))

	getPIN = func(io.Writer) ([]byte, error) { return []byte("0000"), nil }
	require.ErrorIs(t, a.Login(ctx), common.ErrInvalidCredentials)
	assert.False(t, a.isLoggedIn())
}

func TestApp_OfflineGenerateThenSync(t *testing.T) {
	a := newTestApp(t, "bob\n")
	ctx := context.Background()
	a.mustRegister(t)

	a.mirror.SetAvailable(false)
	require.NoError(t, a.Generate(ctx, []string{"-style", "anime", "a", "quiet", "forest"}))
	assert.Contains(t, a.out.String(), string(models.SyncPending))
	assert.Zero(t, a.mirror.ImageCount())

	require.Error(t, a.Sync(ctx), "mirror is down")

	a.mirror.SetAvailable(true)
	require.NoError(t, a.Sync(ctx))
	assert.Equal(t, 1, a.mirror.ImageCount())
	assert.True(t, a.session.IsOnline())

	a.out.Reset()
	require.NoError(t, a.Status(ctx))
	assert.Contains(t, a.out.String(), "Mirror: online")
	assert.Contains(t, a.out.String(), "Queue: 0 pending")
}

func TestApp_ListShowExportDelete(t *testing.T) {
	a := newTestApp(t, "carol\ny\n")
	ctx := context.Background()
	a.mustRegister(t)

	require.NoError(t, a.Generate(ctx, []string{"lighthouse", "at", "dusk"}))
	page, err := a.storage.GetImages(ctx, a.owner(), "", 10, 0)
	require.NoError(t, err)
	require.Len(t, page.Images, 1)
	id := page.Images[0].ID

	a.out.Reset()
	require.NoError(t, a.List(ctx, nil))
	assert.Contains(t, a.out.String(), id)
	assert.Contains(t, a.out.String(), "lighthouse at dusk")

	a.out.Reset()
	require.NoError(t, a.Show(ctx, []string{id}))
	assert.Contains(t, a.out.String(), "lighthouse, dusk")
	assert.Contains(t, a.out.String(), producer.SimulatedModel)

	dst := filepath.Join(t.TempDir(), "out", "img.jpg")
	require.NoError(t, a.Export(ctx, []string{id, dst}))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	require.NoError(t, a.Delete(ctx, []string{id}))
	_, err = a.storage.GetImage(ctx, id, a.owner())
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestApp_Search(t *testing.T) {
	a := newTestApp(t, "sam\n")
	ctx := context.Background()
	a.mustRegister(t)

	require.NoError(t, a.Generate(ctx, []string{"Misty", "Harbor", "at", "dawn"}))
	require.NoError(t, a.Generate(ctx, []string{"desert", "road"}))

	a.out.Reset()
	require.NoError(t, a.Search(ctx, []string{"harbor"}))
	assert.Contains(t, a.out.String(), "Misty Harbor at dawn")
	assert.NotContains(t, a.out.String(), "desert road")
	assert.Contains(t, a.out.String(), "1 of 1 images")

	a.out.Reset()
	require.NoError(t, a.Search(ctx, []string{"glacier"}))
	assert.Contains(t, a.out.String(), "No images")

	require.ErrorIs(t, a.Search(ctx, nil), errUsage)
}

func TestApp_DeleteNotConfirmed(t *testing.T) {
	a := newTestApp(t, "dave\nn\n")
	ctx := context.Background()
	a.mustRegister(t)

	require.NoError(t, a.Generate(ctx, []string{"kept", "image"}))
	page, err := a.storage.GetImages(ctx, a.owner(), "", 10, 0)
	require.NoError(t, err)
	id := page.Images[0].ID

	require.NoError(t, a.Delete(ctx, []string{id}))
	_, err = a.storage.GetImage(ctx, id, a.owner())
	require.NoError(t, err)
}

func TestApp_Folders(t *testing.T) {
	a := newTestApp(t, "erin\n")
	ctx := context.Background()
	a.mustRegister(t)

	require.NoError(t, a.Mkdir(ctx, []string{"-icon", "🐱", "My", "Cats"}))
	folders, err := a.storage.GetFolders(ctx, a.owner())
	require.NoError(t, err)
	require.Len(t, folders, 1)
	f := folders[0]
	assert.Equal(t, "My Cats", f.Name)

	require.NoError(t, a.Generate(ctx, []string{"-folder", f.ID, "tabby", "cat"}))

	a.out.Reset()
	require.NoError(t, a.Folders(ctx))
	assert.Contains(t, a.out.String(), "🐱 My Cats")

	require.ErrorIs(t, a.Rmdir(ctx, []string{f.ID}), common.ErrFolderNotEmpty)
}

func TestApp_StatsAndCleanup(t *testing.T) {
	a := newTestApp(t, "frank\n")
	ctx := context.Background()
	a.mustRegister(t)

	require.NoError(t, a.Generate(ctx, []string{"one", "image"}))

	a.out.Reset()
	require.NoError(t, a.Stats(ctx))
	assert.Contains(t, a.out.String(), "1 local only")
	assert.Contains(t, a.out.String(), "Pending sync:")

	a.out.Reset()
	require.NoError(t, a.Cleanup(ctx, []string{"7"}))
	assert.Contains(t, a.out.String(), "Removed 0 unsynced images older than 7 days")
}

func TestApp_Usage(t *testing.T) {
	a := newTestApp(t, "gina\n")
	ctx := context.Background()
	a.mustRegister(t)

	for name, err := range map[string]error{
		"generate": a.Generate(ctx, nil),
		"show":     a.Show(ctx, nil),
		"export":   a.Export(ctx, nil),
		"delete":   a.Delete(ctx, []string{"a", "b"}),
		"mkdir":    a.Mkdir(ctx, nil),
		"rmdir":    a.Rmdir(ctx, nil),
		"cleanup":  a.Cleanup(ctx, []string{"-1"}),
		"list":     a.List(ctx, []string{"-page", "0"}),
	} {
		require.ErrorIs(t, err, errUsage, name)
	}
}

func TestApp_WatcherTick(t *testing.T) {
	a := newTestApp(t, "hank\n")
	ctx := context.Background()
	a.mustRegister(t)

	a.mirror.SetAvailable(false)
	require.NoError(t, a.Generate(ctx, []string{"queued", "image"}))

	a.tick(ctx)
	assert.False(t, a.session.IsOnline())
	assert.Zero(t, a.mirror.ImageCount())

	a.mirror.SetAvailable(true)
	a.tick(ctx)
	assert.True(t, a.session.IsOnline())
	assert.True(t, a.storage.IsOnline())
	assert.Equal(t, 1, a.mirror.ImageCount())

	a.mirror.SetAvailable(false)
	a.tick(ctx)
	assert.False(t, a.storage.IsOnline())
}

func TestApp_WatcherStopsWithContext(t *testing.T) {
	a := newTestApp(t, "")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		a.StartOnlineStatusWatcher(ctx, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, a.session.IsOnline, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestApp_RunRestoresSession(t *testing.T) {
	a := newTestApp(t, "ivy\nstatus\nexit\n")
	a.mustRegister(t)
	a.userName = ""

	a.Run(context.Background())
	assert.Equal(t, "ivy", a.userName)
	assert.Contains(t, a.out.String(), "Bye!")
}
