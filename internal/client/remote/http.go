package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/api"
	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/netx"
)

// HTTPMirror is a Mirror backed by the gallery mirror server. The server
// scopes every request to the token's subject, so each call asks the token
// source for the token of the owner it acts for and the server refuses
// records whose owner differs from that subject.
type HTTPMirror struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
}

// NewHTTPMirror returns a mirror client for baseURL. A nil client gets a
// default one with a 30s timeout. A nil token source only allows Ping and
// the account calls.
func NewHTTPMirror(baseURL string, tokens TokenSource, client *http.Client) *HTTPMirror {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if tokens == nil {
		tokens = TokenFunc(func(_ context.Context, owner string) (string, error) {
			return "", fmt.Errorf("%w: no mirror session for owner %q", common.ErrUnauthorized, owner)
		})
	}
	return &HTTPMirror{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		client:  client,
	}
}

func (m *HTTPMirror) Ping(ctx context.Context) error {
	return m.do(ctx, "", http.MethodGet, api.PathPing, nil, nil)
}

func (m *HTTPMirror) Register(ctx context.Context, in api.Credentials) (api.AuthTokens, error) {
	var out api.AuthTokens
	err := m.do(ctx, "", http.MethodPost, api.PathRegister, in, &out)
	return out, err
}

func (m *HTTPMirror) Login(ctx context.Context, in api.Credentials) (api.AuthTokens, error) {
	var out api.AuthTokens
	err := m.do(ctx, "", http.MethodPost, api.PathLogin, in, &out)
	return out, err
}

func (m *HTTPMirror) Refresh(ctx context.Context, refreshToken string) (api.AuthTokens, error) {
	var out api.AuthTokens
	err := m.do(ctx, "", http.MethodPost, api.PathRefresh, api.RefreshRequest{RefreshToken: refreshToken}, &out)
	return out, err
}

func (m *HTTPMirror) PutImage(ctx context.Context, rec *models.ImageRecord) (string, error) {
	var resp api.PutImageResponse
	if err := m.do(ctx, rec.OwnerID, http.MethodPut, api.PathImages+"/"+url.PathEscape(rec.ID), imageToAPI(rec), &resp); err != nil {
		return "", err
	}

	if len(rec.Payload) > 0 {
		if resp.UploadURL == "" {
			return "", fmt.Errorf("%w: mirror returned no upload url for %s", common.ErrRemoteUnavailable, rec.ID)
		}
		if err := netx.UploadToPresignedURL(ctx, m.client, resp.UploadURL, rec.Payload, rec.Metadata.MimeType); err != nil {
			return "", fmt.Errorf("%w: upload %s: %w", common.ErrRemoteUnavailable, rec.ID, err)
		}
		if err := m.do(ctx, rec.OwnerID, http.MethodPost, api.PathImages+"/"+url.PathEscape(rec.ID)+"/uploaded", nil, nil); err != nil {
			return "", err
		}
	}

	return resp.RemoteURL, nil
}

func (m *HTTPMirror) GetImagesPage(ctx context.Context, ownerID, folderID string, limit, offset int) (models.ImagePage, error) {
	q := url.Values{}
	if folderID != "" {
		q.Set("folder_id", folderID)
	}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var page api.ImagePage
	if err := m.do(ctx, ownerID, http.MethodGet, api.PathImages+"?"+q.Encode(), nil, &page); err != nil {
		return models.ImagePage{}, err
	}

	out := models.ImagePage{Total: page.Total, HasMore: page.HasMore}
	for _, img := range page.Images {
		out.Images = append(out.Images, imageFromAPI(img))
	}
	return out, nil
}

func (m *HTTPMirror) DeleteImage(ctx context.Context, ownerID, id string) error {
	return m.deleteIgnoringNotFound(ctx, ownerID, api.PathImages+"/"+url.PathEscape(id))
}

func (m *HTTPMirror) PutFolder(ctx context.Context, f *models.FolderRecord) error {
	return m.do(ctx, f.OwnerID, http.MethodPut, api.PathFolders+"/"+url.PathEscape(f.ID), folderToAPI(f), nil)
}

func (m *HTTPMirror) GetFolders(ctx context.Context, ownerID string) ([]models.FolderRecord, error) {
	var list api.FolderList
	if err := m.do(ctx, ownerID, http.MethodGet, api.PathFolders, nil, &list); err != nil {
		return nil, err
	}
	out := make([]models.FolderRecord, 0, len(list.Folders))
	for _, f := range list.Folders {
		out = append(out, folderFromAPI(f))
	}
	return out, nil
}

func (m *HTTPMirror) DeleteFolder(ctx context.Context, ownerID, id string) error {
	return m.deleteIgnoringNotFound(ctx, ownerID, api.PathFolders+"/"+url.PathEscape(id))
}

func (m *HTTPMirror) deleteIgnoringNotFound(ctx context.Context, ownerID, path string) error {
	err := m.do(ctx, ownerID, http.MethodDelete, path, nil, nil)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	return err
}

// do sends one JSON request on behalf of ownerID; an empty ownerID sends no
// token. An access token the server reports as expired is refreshed once
// when the token source supports it. Every failure wraps
// common.ErrRemoteUnavailable together with the sentinel the server named.
func (m *HTTPMirror) do(ctx context.Context, ownerID, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: encode %s %s: %w", common.ErrRemoteUnavailable, method, path, err)
		}
		body = b
	}

	tok := ""
	if ownerID != "" {
		t, err := m.tokens.Token(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("%w: %s %s: %w", common.ErrRemoteUnavailable, method, path, err)
		}
		tok = t
	}

	err := m.send(ctx, tok, method, path, body, out)
	if ownerID == "" || !errors.Is(err, common.ErrTokenExpired) {
		return err
	}
	r, ok := m.tokens.(tokenRefresher)
	if !ok {
		return err
	}
	tok, rerr := r.RefreshToken(ctx, ownerID)
	if rerr != nil {
		return fmt.Errorf("%w: %s %s: %w", common.ErrRemoteUnavailable, method, path, rerr)
	}
	return m.send(ctx, tok, method, path, body, out)
}

func (m *HTTPMirror) send(ctx context.Context, tok, method, path string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrRemoteUnavailable, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if tok != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+tok)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", common.ErrRemoteUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(method, path, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %w", common.ErrRemoteUnavailable, method, path, err)
	}
	return nil
}

// statusError prefers the sentinel named by the body's error code and falls
// back to the status code.
func statusError(method, path string, resp *http.Response) error {
	var apiErr api.Error
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&apiErr)
	msg := apiErr.Error
	if msg == "" {
		msg = resp.Status
	}

	kind := api.ErrorForCode(apiErr.Code)
	if kind == nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			kind = common.ErrUnauthorized
		case http.StatusForbidden:
			kind = common.ErrForbidden
		case http.StatusNotFound:
			kind = common.ErrNotFound
		case http.StatusTooManyRequests:
			kind = common.ErrTooManyAttempts
		}
	}
	if kind != nil {
		return fmt.Errorf("%w: %s %s: %w: %s", common.ErrRemoteUnavailable, method, path, kind, msg)
	}
	return fmt.Errorf("%w: %s %s: %s", common.ErrRemoteUnavailable, method, path, msg)
}
