package middleware

import (
	"context"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/platform/auth"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/platform/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// AuthInterceptor verifies the bearer token of protected methods and stores
// the user id in the context. Methods listed in publicMethods skip the check.
func AuthInterceptor(verifier *auth.TokenVerifier, log *logger.Logger, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "metadata is not provided")
		}
		values := md.Get("authorization")
		if len(values) == 0 {
			return nil, status.Error(codes.Unauthenticated, "authorization token is not provided")
		}
		token, err := auth.BearerToken(values[0])
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		claims, err := verifier.Verify(token)
		if err != nil {
			log.Debug("rejected token", zap.String("method", info.FullMethod), zap.Error(err))
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return handler(auth.WithUserID(ctx, claims.UserID), req)
	}
}
