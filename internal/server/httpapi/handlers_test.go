package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/api"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/server/auth"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var secret = []byte("test-secret")

// memoryService is an in-process MirrorService keyed by owner.
type memoryService struct {
	mu      sync.Mutex
	images  map[string]api.Image
	owners  map[string]string
	folders map[string]api.Folder
	blobURL string
	uploads map[string]bool
	err     error
}

func newMemoryService() *memoryService {
	return &memoryService{
		images:  map[string]api.Image{},
		owners:  map[string]string{},
		folders: map[string]api.Folder{},
		uploads: map[string]bool{},
	}
}

func (m *memoryService) PutImage(_ context.Context, ownerID, id string, in api.Image) (api.PutImageResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return api.PutImageResponse{}, m.err
	}
	if o, ok := m.owners[id]; (ok && o != ownerID) || (in.OwnerID != "" && in.OwnerID != ownerID) {
		return api.PutImageResponse{}, common.ErrForbidden
	}
	in.ID, in.OwnerID = id, ownerID
	m.images[id] = in
	m.owners[id] = ownerID
	return api.PutImageResponse{UploadURL: m.blobURL + id, RemoteURL: m.blobURL + id}, nil
}

func (m *memoryService) MarkUploaded(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owners[id] != ownerID {
		return common.ErrNotFound
	}
	m.uploads[id] = true
	return nil
}

func (m *memoryService) ListImages(_ context.Context, ownerID, folderID string, limit, offset int) (api.ImagePage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := api.ImagePage{Images: []api.Image{}}
	for _, img := range m.images {
		if img.OwnerID == ownerID && (folderID == "" || img.FolderID == folderID) {
			page.Images = append(page.Images, img)
		}
	}
	sort.Slice(page.Images, func(i, j int) bool { return page.Images[i].CreatedAt.After(page.Images[j].CreatedAt) })
	page.Total = len(page.Images)
	if limit <= 0 {
		limit = 20
	}
	end := min(offset+limit, page.Total)
	page.Images = page.Images[min(offset, end):end]
	page.HasMore = offset+limit < page.Total
	return page, nil
}

func (m *memoryService) DeleteImage(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owners[id] == ownerID {
		delete(m.images, id)
		delete(m.owners, id)
	}
	return nil
}

func (m *memoryService) PutFolder(_ context.Context, ownerID, id string, in api.Folder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.folders[id]; (ok && f.OwnerID != ownerID) || (in.OwnerID != "" && in.OwnerID != ownerID) {
		return common.ErrForbidden
	}
	in.ID, in.OwnerID = id, ownerID
	m.folders[id] = in
	return nil
}

func (m *memoryService) ListFolders(_ context.Context, ownerID string) (api.FolderList, error) {
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

func (m *memoryService) DeleteFolder(_ context.Context, ownerID, id string) error {
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

// memoryUsers is an in-process UserService. Passwords are stored in clear.
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
	if in.UserID == "" {
		in.UserID = "user_" + in.Username
	}
	m.ids[in.Username] = in.UserID
	m.password[in.Username] = in.Password
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

func (m *memoryUsers) Refresh(_ context.Context, refreshToken string) (api.AuthTokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.refresh[refreshToken]
	if !ok {
		return api.AuthTokens{}, common.ErrInvalidToken
	}
	delete(m.refresh, refreshToken)
	return m.issue(id)
}

func (m *memoryUsers) issue(userID string) (api.AuthTokens, error) {
	tok, err := auth.GenerateToken(userID, secret, time.Hour)
	if err != nil {
		return api.AuthTokens{}, err
	}
	m.seq++
	rt := fmt.Sprintf("refresh-%d", m.seq)
	m.refresh[rt] = userID
	return api.AuthTokens{UserID: userID, AccessToken: tok, RefreshToken: rt, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func newRouter(t *testing.T, svc MirrorService) http.Handler {
	t.Helper()
	return NewRouter(NewHandler(svc, newMemoryUsers(), nil), secret, zap.NewNop())
}

func token(t *testing.T, owner string) string {
	t.Helper()
	tok, err := auth.GenerateToken(owner, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, h http.Handler, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+tok)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPing_IsPublic(t *testing.T) {
	h := newRouter(t, newMemoryService())
	rec := do(t, h, http.MethodGet, api.PathPing, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth(t *testing.T) {
	h := newRouter(t, newMemoryService())

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "garbage", header: common.BearerPrefix + "nope", want: http.StatusUnauthorized},
		{name: "valid", header: common.BearerPrefix + token(t, "u1"), want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, api.PathFolders, nil)
			if tt.header != "" {
				req.Header.Set(common.AuthorizationHeaderName, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAuth_ExpiredToken(t *testing.T) {
	h := newRouter(t, newMemoryService())
	tok, err := auth.GenerateToken("u1", secret, -time.Minute)
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, api.PathFolders, tok, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var e api.Error
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	require.Equal(t, common.ErrTokenExpired.Error(), e.Error)
}

func TestImages_CRUD(t *testing.T) {
	svc := newMemoryService()
	svc.blobURL = "http://blob/"
	h := newRouter(t, svc)
	tok := token(t, "u1")

	rec := do(t, h, http.MethodPut, api.PathImages+"/img_1", tok, api.Image{Prompt: "a cat", CreatedAt: time.Now()})
	require.Equal(t, http.StatusOK, rec.Code)
	var put api.PutImageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &put))
	require.Equal(t, "http://blob/img_1", put.UploadURL)

	rec = do(t, h, http.MethodPost, api.PathImages+"/img_1/uploaded", tok, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.True(t, svc.uploads["img_1"])

	rec = do(t, h, http.MethodGet, api.PathImages+"?limit=10&offset=0", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page api.ImagePage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 1, page.Total)
	require.Equal(t, "u1", page.Images[0].OwnerID)

	// another owner cannot overwrite
	rec = do(t, h, http.MethodPut, api.PathImages+"/img_1", token(t, "u2"), api.Image{Prompt: "mine"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodDelete, api.PathImages+"/img_1", tok, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodDelete, api.PathImages+"/img_1", tok, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestImages_BadInput(t *testing.T) {
	h := newRouter(t, newMemoryService())
	tok := token(t, "u1")

	req := httptest.NewRequest(http.MethodPut, api.PathImages+"/img_1", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, api.PathImages+"?limit=ten", tok, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPut, api.PathImages+"/img_1", strings.NewReader("x"))
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestImages_RecordOwnerMustMatchToken(t *testing.T) {
	svc := newMemoryService()
	h := newRouter(t, svc)

	rec := do(t, h, http.MethodPut, api.PathImages+"/img_1", token(t, "alice"), api.Image{OwnerID: "bob", Prompt: "x"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	var e api.Error
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	require.Equal(t, api.CodeForbidden, e.Code)

	rec = do(t, h, http.MethodPut, api.PathFolders+"/f1", token(t, "alice"), api.Folder{OwnerID: "bob", Name: "x"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodPut, api.PathImages+"/img_1", token(t, "alice"), api.Image{OwnerID: "alice", Prompt: "x"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "alice", svc.images["img_1"].OwnerID)
}

func TestAuthRoutes(t *testing.T) {
	h := newRouter(t, newMemoryService())

	creds := api.Credentials{UserID: "u-42", Username: "alice", Password: "secret-pw"}
	rec := do(t, h, http.MethodPost, api.PathRegister, "", creds)
	require.Equal(t, http.StatusCreated, rec.Code)
	var reg api.AuthTokens
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	require.Equal(t, "u-42", reg.UserID)
	require.NotEmpty(t, reg.AccessToken)

	rec = do(t, h, http.MethodGet, api.PathFolders, reg.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, api.PathRegister, "", creds)
	require.Equal(t, http.StatusConflict, rec.Code)
	var e api.Error
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	require.Equal(t, api.CodeUserExists, e.Code)

	rec = do(t, h, http.MethodPost, api.PathLogin, "", api.Credentials{Username: "alice", Password: "wrong-pw"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	require.Equal(t, api.CodeInvalidCredentials, e.Code)

	rec = do(t, h, http.MethodPost, api.PathLogin, "", api.Credentials{Username: "alice", Password: "secret-pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	var login api.AuthTokens
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.Equal(t, "u-42", login.UserID)

	rec = do(t, h, http.MethodPost, api.PathRefresh, "", api.RefreshRequest{RefreshToken: login.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, api.PathRefresh, "", api.RefreshRequest{RefreshToken: login.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	require.Equal(t, api.CodeInvalidToken, e.Code)

	req := httptest.NewRequest(http.MethodPost, api.PathLogin, strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestServiceErrorsAreMapped(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: common.ErrNotFound, want: http.StatusNotFound},
		{err: common.ErrTooManyAttempts, want: http.StatusTooManyRequests},
		{err: common.ErrUserAlreadyExists, want: http.StatusConflict},
		{err: common.ErrInvalidCredentials, want: http.StatusUnauthorized},
		{err: fmt.Errorf("wrapped: %w", common.ErrForbidden), want: http.StatusForbidden},
		{err: common.ErrInvalidRecord, want: http.StatusBadRequest},
		{err: common.ErrFolderNotEmpty, want: http.StatusConflict},
		{err: errors.New("db down"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			svc := newMemoryService()
			svc.err = tt.err
			h := newRouter(t, svc)

			rec := do(t, h, http.MethodPut, api.PathImages+"/img_1", token(t, "u1"), api.Image{})
			require.Equal(t, tt.want, rec.Code)

			var e api.Error
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
			require.Equal(t, api.ErrorCode(tt.err), e.Code)
			if tt.want == http.StatusInternalServerError {
				require.NotContains(t, e.Error, "db down")
			}
		})
	}
}

func TestFolders_Routes(t *testing.T) {
	h := newRouter(t, newMemoryService())
	tok := token(t, "u1")

	rec := do(t, h, http.MethodPut, api.PathFolders+"/f1", tok, api.Folder{Name: "Cats"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, api.PathFolders, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list api.FolderList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Folders, 1)

	rec = do(t, h, http.MethodPut, api.PathImages+"/img_1", tok, api.Image{FolderID: "f1"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodDelete, api.PathFolders+"/f1", tok, nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodGet, api.PathFolders, token(t, "u2"), nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Empty(t, list.Folders)
}

func TestOwnerIDFromContext(t *testing.T) {
	require.Empty(t, OwnerIDFromContext(context.Background()))
	ctx := context.WithValue(context.Background(), ownerKey, "bob")
	require.Equal(t, "bob", OwnerIDFromContext(ctx))
}
