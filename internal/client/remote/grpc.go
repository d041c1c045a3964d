package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/api"
	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/netx"
	"github.com/dmitrijs2005/gophgallery/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// GRPCMirror is a Mirror backed by the mirror server's gRPC service.
// Payloads still travel over HTTP to the presigned URLs the service returns.
type GRPCMirror struct {
	conn    *grpc.ClientConn
	client  *rpc.MirrorClient
	tokens  TokenSource
	uploads *http.Client
}

// NewGRPCMirror connects to target without transport security unless opts
// say otherwise. A nil uploads client gets a default one with a 30s timeout.
// A nil token source only allows Ping and the account calls.
func NewGRPCMirror(target string, tokens TokenSource, uploads *http.Client, opts ...grpc.DialOption) (*GRPCMirror, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	if uploads == nil {
		uploads = &http.Client{Timeout: 30 * time.Second}
	}
	m := &GRPCMirror{conn: conn, client: rpc.NewMirrorClient(conn), uploads: uploads}
	return m.WithTokens(tokens), nil
}

// WithTokens returns a mirror sharing m's connection that authenticates
// with tokens.
func (m *GRPCMirror) WithTokens(tokens TokenSource) *GRPCMirror {
	if tokens == nil {
		tokens = TokenFunc(func(_ context.Context, owner string) (string, error) {
			return "", fmt.Errorf("%w: no mirror session for owner %q", common.ErrUnauthorized, owner)
		})
	}
	c := *m
	c.tokens = tokens
	return &c
}

func (m *GRPCMirror) Close() error {
	return m.conn.Close()
}

func (m *GRPCMirror) Ping(ctx context.Context) error {
	return mapRPCError(rpc.MethodPing, m.client.Ping(ctx))
}

func (m *GRPCMirror) Register(ctx context.Context, in api.Credentials) (api.AuthTokens, error) {
	out, err := m.client.Register(ctx, &in)
	if err != nil {
		return api.AuthTokens{}, mapRPCError(rpc.MethodRegister, err)
	}
	return *out, nil
}

func (m *GRPCMirror) Login(ctx context.Context, in api.Credentials) (api.AuthTokens, error) {
	out, err := m.client.Login(ctx, &in)
	if err != nil {
		return api.AuthTokens{}, mapRPCError(rpc.MethodLogin, err)
	}
	return *out, nil
}

func (m *GRPCMirror) Refresh(ctx context.Context, refreshToken string) (api.AuthTokens, error) {
	out, err := m.client.Refresh(ctx, &api.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return api.AuthTokens{}, mapRPCError(rpc.MethodRefresh, err)
	}
	return *out, nil
}

func (m *GRPCMirror) PutImage(ctx context.Context, rec *models.ImageRecord) (string, error) {
	var resp *api.PutImageResponse
	err := m.call(ctx, rec.OwnerID, rpc.MethodPutImage, func(ctx context.Context) (err error) {
		resp, err = m.client.PutImage(ctx, &rpc.PutImageRequest{ID: rec.ID, Image: imageToAPI(rec)})
		return err
	})
	if err != nil {
		return "", err
	}

	if len(rec.Payload) > 0 {
		if resp.UploadURL == "" {
			return "", fmt.Errorf("%w: mirror returned no upload url for %s", common.ErrRemoteUnavailable, rec.ID)
		}
		if err := netx.UploadToPresignedURL(ctx, m.uploads, resp.UploadURL, rec.Payload, rec.Metadata.MimeType); err != nil {
			return "", fmt.Errorf("%w: upload %s: %w", common.ErrRemoteUnavailable, rec.ID, err)
		}
		err := m.call(ctx, rec.OwnerID, rpc.MethodMarkUploaded, func(ctx context.Context) error {
			return m.client.MarkUploaded(ctx, &rpc.IDRequest{ID: rec.ID})
		})
		if err != nil {
			return "", err
		}
	}
	return resp.RemoteURL, nil
}

func (m *GRPCMirror) GetImagesPage(ctx context.Context, ownerID, folderID string, limit, offset int) (models.ImagePage, error) {
	var page *api.ImagePage
	err := m.call(ctx, ownerID, rpc.MethodListImages, func(ctx context.Context) (err error) {
		page, err = m.client.ListImages(ctx, &rpc.ListImagesRequest{FolderID: folderID, Limit: limit, Offset: offset})
		return err
	})
	if err != nil {
		return models.ImagePage{}, err
	}

	out := models.ImagePage{Total: page.Total, HasMore: page.HasMore}
	for _, img := range page.Images {
		out.Images = append(out.Images, imageFromAPI(img))
	}
	return out, nil
}

func (m *GRPCMirror) DeleteImage(ctx context.Context, ownerID, id string) error {
	err := m.call(ctx, ownerID, rpc.MethodDeleteImage, func(ctx context.Context) error {
		return m.client.DeleteImage(ctx, &rpc.IDRequest{ID: id})
	})
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	return err
}

func (m *GRPCMirror) PutFolder(ctx context.Context, f *models.FolderRecord) error {
	return m.call(ctx, f.OwnerID, rpc.MethodPutFolder, func(ctx context.Context) error {
		return m.client.PutFolder(ctx, &rpc.PutFolderRequest{ID: f.ID, Folder: folderToAPI(f)})
	})
}

func (m *GRPCMirror) GetFolders(ctx context.Context, ownerID string) ([]models.FolderRecord, error) {
	var list *api.FolderList
	err := m.call(ctx, ownerID, rpc.MethodListFolders, func(ctx context.Context) (err error) {
		list, err = m.client.ListFolders(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.FolderRecord, 0, len(list.Folders))
	for _, f := range list.Folders {
		out = append(out, folderFromAPI(f))
	}
	return out, nil
}

func (m *GRPCMirror) DeleteFolder(ctx context.Context, ownerID, id string) error {
	err := m.call(ctx, ownerID, rpc.MethodDeleteFolder, func(ctx context.Context) error {
		return m.client.DeleteFolder(ctx, &rpc.IDRequest{ID: id})
	})
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	return err
}

// call runs fn with ownerID's bearer token in the outgoing metadata. An
// expired token is refreshed once when the token source supports it.
func (m *GRPCMirror) call(ctx context.Context, ownerID, method string, fn func(ctx context.Context) error) error {
	tok, err := m.tokens.Token(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", common.ErrRemoteUnavailable, method, err)
	}

	err = mapRPCError(method, fn(withBearer(ctx, tok)))
	if !errors.Is(err, common.ErrTokenExpired) {
		return err
	}
	r, ok := m.tokens.(tokenRefresher)
	if !ok {
		return err
	}
	tok, rerr := r.RefreshToken(ctx, ownerID)
	if rerr != nil {
		return fmt.Errorf("%w: %s: %w", common.ErrRemoteUnavailable, method, rerr)
	}
	return mapRPCError(method, fn(withBearer(ctx, tok)))
}

func withBearer(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	key := strings.ToLower(common.AuthorizationHeaderName)
	md.Set(key, common.BearerPrefix+token)
	return metadata.NewOutgoingContext(ctx, md)
}

// mapRPCError wraps every failure in common.ErrRemoteUnavailable together
// with the sentinel the status names.
func mapRPCError(method string, err error) error {
	if err == nil {
		return nil
	}
	if kind := rpc.Sentinel(err); kind != nil {
		return fmt.Errorf("%w: %s: %w: %w", common.ErrRemoteUnavailable, method, kind, err)
	}
	return fmt.Errorf("%w: %s: %w", common.ErrRemoteUnavailable, method, err)
}
