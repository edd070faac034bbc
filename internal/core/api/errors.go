package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/groundskeeper/internal/types"
)

// statusFromError maps domain errors to gRPC status codes.
// Auth errors are mapped in the auth interceptor.
// Anything unrecognised is treated as a store failure (UNAVAILABLE).
func statusFromError(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}

	var code codes.Code
	switch {
	case errors.Is(err, types.ErrTerritoryNotFound),
		errors.Is(err, types.ErrAssignmentNotFound):
		code = codes.NotFound
	case errors.Is(err, types.ErrInvalidAssignable),
		errors.Is(err, types.ErrValidation),
		errors.Is(err, types.ErrActorRequired),
		errors.Is(err, types.ErrUnexpectedActor):
		code = codes.InvalidArgument
	case errors.Is(err, types.ErrTerritoryInactive):
		code = codes.FailedPrecondition
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	default:
		code = codes.Unavailable
	}
	return status.Error(code, err.Error())
}
