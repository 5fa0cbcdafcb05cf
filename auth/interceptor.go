package auth

import (
	"context"
	"ephemeral-chat/contract"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// UserIDFromContext returns the authenticated caller, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// bearerToken extracts the "Bearer <token>" authorization header.
func bearerToken(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(values[0], "Bearer "))
	return token, token != ""
}

// UnaryInterceptor rejects every unary call that does not carry a valid token
// and injects the caller identity into the context.
func UnaryInterceptor(authenticator contract.Authenticator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		token, ok := bearerToken(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "authorization token is missing")
		}
		userID, err := authenticator.Authenticate(token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}
		return handler(WithUserID(ctx, userID), req)
	}
}

type identifiedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *identifiedStream) Context() context.Context {
	return s.ctx
}

// StreamInterceptor lets anonymous connections through, since they may still
// join rooms. A token, when present, must be valid.
func StreamInterceptor(authenticator contract.Authenticator) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		token, ok := bearerToken(ss.Context())
		if !ok {
			return handler(srv, ss)
		}
		userID, err := authenticator.Authenticate(token)
		if err != nil {
			return status.Error(codes.Unauthenticated, "invalid or expired token")
		}
		return handler(srv, &identifiedStream{ServerStream: ss, ctx: WithUserID(ss.Context(), userID)})
	}
}
