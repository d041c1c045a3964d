package grpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/api"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/server/auth"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/test/bufconn"
)

const testSecret = "test-secret"

// memoryMirror is an in-process MirrorService keyed by owner.
type memoryMirror struct {
	mu      sync.Mutex
	images  map[string]api.Image
	folders map[string]api.Folder
	blobURL string
}

func newMemoryMirror() *memoryMirror {
	return &memoryMirror{images: map[string]api.Image{}, folders: map[string]api.Folder{}}
}

func (m *memoryMirror) PutImage(_ context.Context, ownerID, id string, in api.Image) (api.PutImageResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.images[id]; (ok && cur.OwnerID != ownerID) || (in.OwnerID != "" && in.OwnerID != ownerID) {
		return api.PutImageResponse{}, common.ErrForbidden
	}
	in.ID, in.OwnerID = id, ownerID
	m.images[id] = in
	return api.PutImageResponse{UploadURL: m.blobURL + id, RemoteURL: m.blobURL + id}, nil
}

func (m *memoryMirror) MarkUploaded(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.images[id].OwnerID != ownerID {
		return common.ErrNotFound
	}
	return nil
}

func (m *memoryMirror) ListImages(_ context.Context, ownerID, folderID string, limit, offset int) (api.ImagePage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := api.ImagePage{Images: []api.Image{}}
	for _, img := range m.images {
		if img.OwnerID == ownerID && (folderID == "" || img.FolderID == folderID) {
			page.Images = append(page.Images, img)
		}
	}
	page.Total = len(page.Images)
	return page, nil
}

func (m *memoryMirror) DeleteImage(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[id]
	if !ok || img.OwnerID != ownerID {
		return common.ErrNotFound
	}
	delete(m.images, id)
	return nil
}

func (m *memoryMirror) PutFolder(_ context.Context, ownerID, id string, in api.Folder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.folders[id]; (ok && cur.OwnerID != ownerID) || (in.OwnerID != "" && in.OwnerID != ownerID) {
		return common.ErrForbidden
	}
	in.ID, in.OwnerID = id, ownerID
	m.folders[id] = in
	return nil
}

func (m *memoryMirror) ListFolders(_ context.Context, ownerID string) (api.FolderList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := api.FolderList{Folders: []api.Folder{}}
	for _, f := range m.folders {
		if f.OwnerID == ownerID {
			out.Folders = append(out.Folders, f)
		}
	}
	return out, nil
}

func (m *memoryMirror) DeleteFolder(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, img := range m.images {
		if img.OwnerID == ownerID && img.FolderID == id {
			return common.ErrFolderNotEmpty
		}
	}
	if f, ok := m.folders[id]; ok && f.OwnerID == ownerID {
		delete(m.folders, id)
	}
	return nil
}

// memoryUsers issues real JWTs signed with testSecret.
type memoryUsers struct {
	mu       sync.Mutex
	ids      map[string]string
	password map[string]string
	refresh  map[string]string
	seq      int
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{ids: map[string]string{}, password: map[string]string{}, refresh: map[string]string{}}
}

func (m *memoryUsers) Register(_ context.Context, in api.Credentials) (api.AuthTokens, error) {
	if err := in.Validate(); err != nil {
		return api.AuthTokens{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ids[in.Username]; ok {
		return api.AuthTokens{}, common.ErrUserAlreadyExists
	}
	m.ids[in.Username], m.password[in.Username] = in.UserID, in.Password
	return m.issue(in.UserID)
}

func (m *memoryUsers) Login(_ context.Context, in api.Credentials) (api.AuthTokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.ids[in.Username]
	if !ok || m.password[in.Username] != in.Password {
		return api.AuthTokens{}, common.ErrInvalidCredentials
	}
	return m.issue(id)
}

func (m *memoryUsers) Refresh(_ context.Context, token string) (api.AuthTokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.refresh[token]
	if !ok {
		return api.AuthTokens{}, common.ErrInvalidToken
	}
	delete(m.refresh, token)
	return m.issue(id)
}

func (m *memoryUsers) issue(id string) (api.AuthTokens, error) {
	tok, err := auth.GenerateToken(id, []byte(testSecret), time.Hour)
	if err != nil {
		return api.AuthTokens{}, err
	}
	m.seq++
	rt := fmt.Sprintf("refresh-%d", m.seq)
	m.refresh[rt] = id
	return api.AuthTokens{UserID: id, AccessToken: tok, RefreshToken: rt, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

// serveBufconn serves s on an in-memory listener until the test ends and
// returns a dialer for it.
func serveBufconn(t *testing.T, s *GRPCServer) func(context.Context, string) (net.Conn, error) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }
}
