package grpc

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	pb "github.com/dmitrijs2005/authkeeper/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// protectedMethods need a valid access token.
var protectedMethods = map[string]bool{
	pb.SessionService_Status_FullMethodName: true,
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {

	if protectedMethods[info.FullMethod] {

		accessToken, err := bearerToken(ctx)
		if err != nil {
			return nil, err
		}

		userID, err := s.users.Authenticate(ctx, accessToken)
		if err != nil {
			return nil, toStatus(err)
		}

		ctx = context.WithValue(ctx, userIDKey, userID)

	}

	return handler(ctx, req)
}

// bearerToken extracts the token from the "authorization: Bearer <token>"
// metadata entry.
func bearerToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing token")
	}

	for _, v := range md.Get(common.AuthorizationHeaderName) {
		if len(v) > len(common.BearerPrefix) && strings.EqualFold(v[:len(common.BearerPrefix)], common.BearerPrefix) {
			if token := strings.TrimSpace(v[len(common.BearerPrefix):]); token != "" {
				return token, nil
			}
		}
	}
	return "", status.Error(codes.Unauthenticated, "missing token")
}

func userIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}
