package grpc

import (
	"context"
	"errors"

	"github.com/DRSN-tech/lookalike/pkg/e"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func GRPCErrorResponse(err error) error {
	switch {
	case errors.Is(err, e.ErrImageDecode):
		return status.Error(codes.InvalidArgument, e.ErrImageDecode.Error())
	case errors.Is(err, e.ErrDegenerateEmbedding):
		return status.Error(codes.InvalidArgument, e.ErrDegenerateEmbedding.Error())
	case errors.Is(err, e.ErrInvalidTopN):
		return status.Error(codes.InvalidArgument, e.ErrInvalidTopN.Error())
	case errors.Is(err, e.ErrEmptyCategorySet):
		return status.Error(codes.FailedPrecondition, e.ErrEmptyCategorySet.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, context.DeadlineExceeded.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, context.Canceled.Error())
	default:
		return status.Error(codes.Internal, e.ErrInternalServerError.Error())
	}
}
