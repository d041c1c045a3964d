package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/rpc"
	"github.com/dmitrijs2005/gophgallery/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const ownerIDKey ctxKey = "ownerID"

// accessTokenInterceptor validates the bearer token of every method outside
// rpc.PublicMethods and stores its subject as the owner id.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if rpc.PublicMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 {
			header = values[0]
		}
	}
	token, ok := strings.CutPrefix(header, common.BearerPrefix)
	if !ok || token == "" {
		return nil, rpc.Status(common.ErrUnauthorized).Err()
	}

	ownerID, err := auth.GetOwnerIDFromToken(token, s.jwtSecret)
	if err != nil {
		return nil, rpc.Status(err).Err()
	}

	return handler(context.WithValue(ctx, ownerIDKey, ownerID), req)
}

// loggingInterceptor logs one line per call once it has been served.
func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Info(ctx, "call",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	)
	return resp, err
}

func ownerIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(ownerIDKey).(string); ok {
		return s
	}
	return ""
}
