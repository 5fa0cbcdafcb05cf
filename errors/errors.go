package errors

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrValidation           = fmt.Errorf("validation error")
	ErrInvalidParticipant   = fmt.Errorf("%w: invalid participant", ErrValidation)
	ErrEmptyMessage         = fmt.Errorf("%w: message has no content", ErrValidation)
	ErrUnsupportedMedia     = fmt.Errorf("%w: only images and videos are allowed", ErrValidation)
	ErrBlobTooLarge         = fmt.Errorf("%w: file is too large", ErrValidation)
	ErrNotFound             = fmt.Errorf("not found")
	ErrMessageNotFound      = fmt.Errorf("message %w", ErrNotFound)
	ErrConversationNotFound = fmt.Errorf("conversation %w", ErrNotFound)
	ErrPermissionDenied     = fmt.Errorf("permission denied")
	ErrNotGroupMember       = fmt.Errorf("%w: not a group member", ErrPermissionDenied)
	ErrNotParticipant       = fmt.Errorf("%w: not a conversation participant", ErrPermissionDenied)
	ErrConflict             = fmt.Errorf("conflict")
	ErrUnauthenticated      = fmt.Errorf("unauthenticated")
	ErrWorkerPanic          = fmt.Errorf("worker panic")
	ErrInvalidRecord        = fmt.Errorf("invalid stored record")
	ErrSinkFull             = fmt.Errorf("sink buffer full")
)

// MapToGRPCError converts a domain error into a gRPC status error.
// Errors already carrying a status are returned untouched.
func MapToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrPermissionDenied):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, ErrConflict):
		return status.Error(codes.Aborted, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// Is and As are re-exported so callers only need this package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}
