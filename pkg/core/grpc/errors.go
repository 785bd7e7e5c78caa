package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	cperrors "github.com/msto63/condparse/pkg/core/errors"
)

var codeMap = map[cperrors.Code]codes.Code{
	cperrors.CodeInvalidInput:  codes.InvalidArgument,
	cperrors.CodeSyntax:        codes.InvalidArgument,
	cperrors.CodeInputTooLarge: codes.ResourceExhausted,
	cperrors.CodeUnknownRule:   codes.NotFound,
	cperrors.CodeCanceled:      codes.Canceled,
	cperrors.CodeUnavailable:   codes.Unavailable,
	cperrors.CodeConfig:        codes.FailedPrecondition,
	cperrors.CodeInternal:      codes.Internal,
}

// ToStatus converts an error into a gRPC status error. Errors that already
// carry a status are returned unchanged.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	if code, ok := codeMap[cperrors.CodeOf(err)]; ok {
		return status.Error(code, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// FromStatus converts a gRPC status error back into a structured error
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	code := cperrors.CodeInternal
	for c, g := range codeMap {
		if g == st.Code() && c != cperrors.CodeSyntax {
			code = c
			break
		}
	}
	switch st.Code() {
	case codes.DeadlineExceeded:
		code = cperrors.CodeCanceled
	case codes.Unavailable:
		code = cperrors.CodeUnavailable
	}
	return cperrors.New(st.Message()).
		WithCode(code).
		WithDetail("grpc_code", st.Code().String())
}
