// Package grpc serves the mirror service over gRPC next to the HTTP API.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/gophgallery/internal/api"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/dmitrijs2005/gophgallery/internal/rpc"
	"google.golang.org/grpc"
)

// MirrorService is the subset of services.MirrorService the handlers need.
type MirrorService interface {
	PutImage(ctx context.Context, ownerID, id string, in api.Image) (api.PutImageResponse, error)
	MarkUploaded(ctx context.Context, ownerID, id string) error
	ListImages(ctx context.Context, ownerID, folderID string, limit, offset int) (api.ImagePage, error)
	DeleteImage(ctx context.Context, ownerID, id string) error
	PutFolder(ctx context.Context, ownerID, id string, in api.Folder) error
	ListFolders(ctx context.Context, ownerID string) (api.FolderList, error)
	DeleteFolder(ctx context.Context, ownerID, id string) error
}

// UserService is the subset of services.UserService the handlers need.
type UserService interface {
	Register(ctx context.Context, in api.Credentials) (api.AuthTokens, error)
	Login(ctx context.Context, in api.Credentials) (api.AuthTokens, error)
	Refresh(ctx context.Context, refreshToken string) (api.AuthTokens, error)
}

type GRPCServer struct {
	address   string
	mirror    MirrorService
	users     UserService
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(address string, l logging.Logger, mirror MirrorService, users UserService, secretKey string) *GRPCServer {
	if l == nil {
		l = logging.Nop()
	}
	return &GRPCServer{
		address:   address,
		mirror:    mirror,
		users:     users,
		logger:    l.With("module", "grpc_server"),
		jwtSecret: []byte(secretKey),
	}
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "starting gRPC server", "address", listen.Addr().String())
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is cancelled, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	rpc.RegisterMirrorServer(srv, &handler{s: s})

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(context.Background(), "stopping gRPC server")
		srv.GracefulStop()
	}()

	err := srv.Serve(lis)
	if ctx.Err() != nil {
		<-stopped
	}
	return err
}
