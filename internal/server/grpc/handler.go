package grpc

import (
	"context"

	"github.com/dmitrijs2005/gophgallery/internal/api"
	"github.com/dmitrijs2005/gophgallery/internal/rpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/emptypb"
)

// handler adapts the services to rpc.MirrorServer.
type handler struct {
	s *GRPCServer
}

var _ rpc.MirrorServer = (*handler)(nil)

func (h *handler) fail(ctx context.Context, method string, err error) error {
	st := rpc.Status(err)
	if st.Code() == codes.Internal {
		h.s.logger.Error(ctx, "call failed", "method", method, "error", err)
	}
	return st.Err()
}

func (h *handler) Ping(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return &emptypb.Empty{}, nil
}

func (h *handler) Register(ctx context.Context, in *api.Credentials) (*api.AuthTokens, error) {
	tokens, err := h.s.users.Register(ctx, *in)
	if err != nil {
		return nil, h.fail(ctx, rpc.MethodRegister, err)
	}
	h.s.logger.Info(ctx, "registered", "user_id", tokens.UserID)
	return &tokens, nil
}

func (h *handler) Login(ctx context.Context, in *api.Credentials) (*api.AuthTokens, error) {
	tokens, err := h.s.users.Login(ctx, *in)
	if err != nil {
		return nil, h.fail(ctx, rpc.MethodLogin, err)
	}
	return &tokens, nil
}

func (h *handler) Refresh(ctx context.Context, in *api.RefreshRequest) (*api.AuthTokens, error) {
	tokens, err := h.s.users.Refresh(ctx, in.RefreshToken)
	if err != nil {
		return nil, h.fail(ctx, rpc.MethodRefresh, err)
	}
	return &tokens, nil
}

func (h *handler) PutImage(ctx context.Context, in *rpc.PutImageRequest) (*api.PutImageResponse, error) {
	resp, err := h.s.mirror.PutImage(ctx, ownerIDFromContext(ctx), in.ID, in.Image)
	if err != nil {
		return nil, h.fail(ctx, rpc.MethodPutImage, err)
	}
	return &resp, nil
}

func (h *handler) MarkUploaded(ctx context.Context, in *rpc.IDRequest) (*emptypb.Empty, error) {
	if err := h.s.mirror.MarkUploaded(ctx, ownerIDFromContext(ctx), in.ID); err != nil {
		return nil, h.fail(ctx, rpc.MethodMarkUploaded, err)
	}
	return &emptypb.Empty{}, nil
}

func (h *handler) ListImages(ctx context.Context, in *rpc.ListImagesRequest) (*api.ImagePage, error) {
	page, err := h.s.mirror.ListImages(ctx, ownerIDFromContext(ctx), in.FolderID, in.Limit, in.Offset)
	if err != nil {
		return nil, h.fail(ctx, rpc.MethodListImages, err)
	}
	return &page, nil
}

func (h *handler) DeleteImage(ctx context.Context, in *rpc.IDRequest) (*emptypb.Empty, error) {
	if err := h.s.mirror.DeleteImage(ctx, ownerIDFromContext(ctx), in.ID); err != nil {
		return nil, h.fail(ctx, rpc.MethodDeleteImage, err)
	}
	return &emptypb.Empty{}, nil
}

func (h *handler) PutFolder(ctx context.Context, in *rpc.PutFolderRequest) (*emptypb.Empty, error) {
	if err := h.s.mirror.PutFolder(ctx, ownerIDFromContext(ctx), in.ID, in.Folder); err != nil {
		return nil, h.fail(ctx, rpc.MethodPutFolder, err)
	}
	return &emptypb.Empty{}, nil
}

func (h *handler) ListFolders(ctx context.Context, _ *emptypb.Empty) (*api.FolderList, error) {
	list, err := h.s.mirror.ListFolders(ctx, ownerIDFromContext(ctx))
	if err != nil {
		return nil, h.fail(ctx, rpc.MethodListFolders, err)
	}
	return &list, nil
}

func (h *handler) DeleteFolder(ctx context.Context, in *rpc.IDRequest) (*emptypb.Empty, error) {
	if err := h.s.mirror.DeleteFolder(ctx, ownerIDFromContext(ctx), in.ID); err != nil {
		return nil, h.fail(ctx, rpc.MethodDeleteFolder, err)
	}
	return &emptypb.Empty{}, nil
}
