package rpc

import (
	"context"

	"github.com/dmitrijs2005/gophgallery/internal/api"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

const ServiceName = "gophgallery.mirror.v1.Mirror"

// ErrorDomain tags the ErrorInfo detail attached to failed calls; its Reason
// is one of the api.Code* values.
const ErrorDomain = "gophgallery.mirror"

// Method names.
const (
	MethodPing         = "Ping"
	MethodRegister     = "Register"
	MethodLogin        = "Login"
	MethodRefresh      = "Refresh"
	MethodPutImage     = "PutImage"
	MethodMarkUploaded = "MarkUploaded"
	MethodListImages   = "ListImages"
	MethodDeleteImage  = "DeleteImage"
	MethodPutFolder    = "PutFolder"
	MethodListFolders  = "ListFolders"
	MethodDeleteFolder = "DeleteFolder"
)

// FullMethod returns the "/service/method" path of name.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// PublicMethods are served without an access token.
var PublicMethods = map[string]bool{
	FullMethod(MethodPing):     true,
	FullMethod(MethodRegister): true,
	FullMethod(MethodLogin):    true,
	FullMethod(MethodRefresh):  true,
}

type PutImageRequest struct {
	ID    string    `json:"id"`
	Image api.Image `json:"image"`
}

type IDRequest struct {
	ID string `json:"id"`
}

type ListImagesRequest struct {
	FolderID string `json:"folder_id,omitempty"`
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
}

type PutFolderRequest struct {
	ID     string     `json:"id"`
	Folder api.Folder `json:"folder"`
}

// MirrorServer is implemented by the gRPC transport of the mirror server.
// The owner of every record call is the subject of the caller's token.
type MirrorServer interface {
	Ping(ctx context.Context, in *emptypb.Empty) (*emptypb.Empty, error)
	Register(ctx context.Context, in *api.Credentials) (*api.AuthTokens, error)
	Login(ctx context.Context, in *api.Credentials) (*api.AuthTokens, error)
	Refresh(ctx context.Context, in *api.RefreshRequest) (*api.AuthTokens, error)

	PutImage(ctx context.Context, in *PutImageRequest) (*api.PutImageResponse, error)
	MarkUploaded(ctx context.Context, in *IDRequest) (*emptypb.Empty, error)
	ListImages(ctx context.Context, in *ListImagesRequest) (*api.ImagePage, error)
	DeleteImage(ctx context.Context, in *IDRequest) (*emptypb.Empty, error)

	PutFolder(ctx context.Context, in *PutFolderRequest) (*emptypb.Empty, error)
	ListFolders(ctx context.Context, in *emptypb.Empty) (*api.FolderList, error)
	DeleteFolder(ctx context.Context, in *IDRequest) (*emptypb.Empty, error)
}

// unary builds the descriptor of one request/response method.
func unary[Req, Resp any](name string, call func(MirrorServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(MirrorServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}

// ServiceDesc describes the mirror service to grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MirrorServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodPing, MirrorServer.Ping),
		unary(MethodRegister, MirrorServer.Register),
		unary(MethodLogin, MirrorServer.Login),
		unary(MethodRefresh, MirrorServer.Refresh),
		unary(MethodPutImage, MirrorServer.PutImage),
		unary(MethodMarkUploaded, MirrorServer.MarkUploaded),
		unary(MethodListImages, MirrorServer.ListImages),
		unary(MethodDeleteImage, MirrorServer.DeleteImage),
		unary(MethodPutFolder, MirrorServer.PutFolder),
		unary(MethodListFolders, MirrorServer.ListFolders),
		unary(MethodDeleteFolder, MirrorServer.DeleteFolder),
	},
	Metadata: "gophgallery/mirror/v1",
}

func RegisterMirrorServer(s grpc.ServiceRegistrar, srv MirrorServer) {
	s.RegisterService(&ServiceDesc, srv)
}
