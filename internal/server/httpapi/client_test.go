package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/api"
	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/client/remote"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/stretchr/testify/require"
)

// TestHTTPMirrorAgainstRouter drives the client's HTTP mirror against the
// real router, with the object store replaced by a plain handler.
func TestHTTPMirrorAgainstRouter(t *testing.T) {
	svc := newMemoryService()

	var (
		mu    sync.Mutex
		blobs = map[string][]byte{}
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/blob/", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		blobs[strings.TrimPrefix(r.URL.Path, "/blob/")] = b
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/", newRouter(t, svc))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	svc.blobURL = srv.URL + "/blob/"

	ctx := context.Background()
	m := remote.NewHTTPMirror(srv.URL, remote.StaticToken("u1", token(t, "u1")), srv.Client())

	require.NoError(t, m.Ping(ctx))

	folder := &models.FolderRecord{ID: "folder_1", OwnerID: "u1", Name: "Cats", CreatedAt: time.Now().UTC()}
	require.NoError(t, m.PutFolder(ctx, folder))

	rec := &models.ImageRecord{
		ID:        "img_1",
		OwnerID:   "u1",
		FolderID:  "folder_1",
		Prompt:    "a cat",
		Tags:      []string{"cat"},
		Payload:   []byte{0xff, 0xd8, 0xff},
		Metadata:  models.ImageMetadata{Size: 3, MimeType: "image/jpeg"},
		CreatedAt: time.Now().UTC(),
	}
	url, err := m.PutImage(ctx, rec)
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/blob/img_1", url)
	mu.Lock()
	require.Equal(t, rec.Payload, blobs["img_1"])
	mu.Unlock()
	svc.mu.Lock()
	require.True(t, svc.uploads["img_1"])
	svc.mu.Unlock()

	page, err := m.GetImagesPage(ctx, "u1", "folder_1", 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, "a cat", page.Images[0].Prompt)

	folders, err := m.GetFolders(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, folders, 1)

	err = m.DeleteFolder(ctx, "u1", "folder_1")
	require.ErrorIs(t, err, common.ErrRemoteUnavailable)

	require.NoError(t, m.DeleteImage(ctx, "u1", "img_1"))
	require.NoError(t, m.DeleteFolder(ctx, "u1", "folder_1"))

	other := remote.NewHTTPMirror(srv.URL, remote.StaticToken("u1", "bad"), srv.Client())
	_, err = other.GetFolders(ctx, "u1")
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

// TestHTTPMirrorAccountsAgainstRouter signs two accounts in through the
// router and checks that neither token reaches the other's records.
func TestHTTPMirrorAccountsAgainstRouter(t *testing.T) {
	svc := newMemoryService()
	srv := httptest.NewServer(newRouter(t, svc))
	t.Cleanup(srv.Close)
	ctx := context.Background()

	m := remote.NewHTTPMirror(srv.URL, nil, srv.Client())
	alice, err := m.Register(ctx, api.Credentials{UserID: "alice", Username: "alice", Password: "alice-pw"})
	require.NoError(t, err)
	bob, err := m.Register(ctx, api.Credentials{UserID: "bob", Username: "bob", Password: "bob-pw-1"})
	require.NoError(t, err)

	// a source that hands out alice's token for anyone
	leaky := remote.NewHTTPMirror(srv.URL, remote.TokenFunc(func(context.Context, string) (string, error) {
		return alice.AccessToken, nil
	}), srv.Client())
	err = leaky.PutFolder(ctx, &models.FolderRecord{ID: "f_bob", OwnerID: "bob", Name: "Bob's"})
	require.ErrorIs(t, err, common.ErrForbidden)

	asBob := remote.NewHTTPMirror(srv.URL, remote.StaticToken("bob", bob.AccessToken), srv.Client())
	require.NoError(t, asBob.PutFolder(ctx, &models.FolderRecord{ID: "f_bob", OwnerID: "bob", Name: "Bob's"}))

	asAlice := remote.NewHTTPMirror(srv.URL, remote.StaticToken("alice", alice.AccessToken), srv.Client())
	folders, err := asAlice.GetFolders(ctx, "alice")
	require.NoError(t, err)
	require.Empty(t, folders)

	_, err = m.Login(ctx, api.Credentials{Username: "alice", Password: "nope-nope"})
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
}
