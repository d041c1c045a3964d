package rpc

import (
	"context"

	"github.com/dmitrijs2005/gophgallery/internal/api"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

// MirrorClient is the client stub of the mirror service. Every call is sent
// with the JSON codec.
type MirrorClient struct {
	cc grpc.ClientConnInterface
}

func NewMirrorClient(cc grpc.ClientConnInterface) *MirrorClient {
	return &MirrorClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MirrorClient) Ping(ctx context.Context, opts ...grpc.CallOption) error {
	_, err := invoke[emptypb.Empty](ctx, c.cc, MethodPing, &emptypb.Empty{}, opts)
	return err
}

func (c *MirrorClient) Register(ctx context.Context, in *api.Credentials, opts ...grpc.CallOption) (*api.AuthTokens, error) {
	return invoke[api.AuthTokens](ctx, c.cc, MethodRegister, in, opts)
}

func (c *MirrorClient) Login(ctx context.Context, in *api.Credentials, opts ...grpc.CallOption) (*api.AuthTokens, error) {
	return invoke[api.AuthTokens](ctx, c.cc, MethodLogin, in, opts)
}

func (c *MirrorClient) Refresh(ctx context.Context, in *api.RefreshRequest, opts ...grpc.CallOption) (*api.AuthTokens, error) {
	return invoke[api.AuthTokens](ctx, c.cc, MethodRefresh, in, opts)
}

func (c *MirrorClient) PutImage(ctx context.Context, in *PutImageRequest, opts ...grpc.CallOption) (*api.PutImageResponse, error) {
	return invoke[api.PutImageResponse](ctx, c.cc, MethodPutImage, in, opts)
}

func (c *MirrorClient) MarkUploaded(ctx context.Context, in *IDRequest, opts ...grpc.CallOption) error {
	_, err := invoke[emptypb.Empty](ctx, c.cc, MethodMarkUploaded, in, opts)
	return err
}

func (c *MirrorClient) ListImages(ctx context.Context, in *ListImagesRequest, opts ...grpc.CallOption) (*api.ImagePage, error) {
	return invoke[api.ImagePage](ctx, c.cc, MethodListImages, in, opts)
}

func (c *MirrorClient) DeleteImage(ctx context.Context, in *IDRequest, opts ...grpc.CallOption) error {
	_, err := invoke[emptypb.Empty](ctx, c.cc, MethodDeleteImage, in, opts)
	return err
}

func (c *MirrorClient) PutFolder(ctx context.Context, in *PutFolderRequest, opts ...grpc.CallOption) error {
	_, err := invoke[emptypb.Empty](ctx, c.cc, MethodPutFolder, in, opts)
	return err
}

func (c *MirrorClient) ListFolders(ctx context.Context, opts ...grpc.CallOption) (*api.FolderList, error) {
	return invoke[api.FolderList](ctx, c.cc, MethodListFolders, &emptypb.Empty{}, opts)
}

func (c *MirrorClient) DeleteFolder(ctx context.Context, in *IDRequest, opts ...grpc.CallOption) error {
	_, err := invoke[emptypb.Empty](ctx, c.cc, MethodDeleteFolder, in, opts)
	return err
}
