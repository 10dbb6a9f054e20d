package nbi

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/comms-designer/core"
	"github.com/signalsfoundry/comms-designer/internal/designer"
)

// ToStatusError maps topology errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, core.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, core.ErrAlreadyMember),
		errors.Is(err, core.ErrDuplicateLink),
		errors.Is(err, core.ErrDuplicateNetID):
		return status.Error(codes.AlreadyExists, err.Error())

	case errors.Is(err, core.ErrCycleDetected),
		errors.Is(err, core.ErrWrongTopology):
		return status.Error(codes.FailedPrecondition, err.Error())

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, core.ErrSelfReference),
		errors.Is(err, core.ErrInvalidHub),
		errors.Is(err, core.ErrInvalidIndex),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidConfig),
		errors.Is(err, core.ErrInvalidPath),
		errors.Is(err, designer.ErrInvalidPosition):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
