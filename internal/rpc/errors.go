package rpc

import (
	"errors"

	"github.com/dmitrijs2005/gophgallery/internal/api"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// codeFor maps sentinel errors to gRPC status codes.
func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, common.ErrTooManyAttempts):
		return codes.ResourceExhausted
	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrInvalidCredentials):
		return codes.Unauthenticated
	case errors.Is(err, common.ErrForbidden):
		return codes.PermissionDenied
	case errors.Is(err, common.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, common.ErrInvalidRecord):
		return codes.InvalidArgument
	case errors.Is(err, common.ErrUserAlreadyExists):
		return codes.AlreadyExists
	case errors.Is(err, common.ErrFolderNotEmpty):
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

// Status converts a service error into a status carrying an ErrorInfo whose
// Reason is the api error code. Internal errors keep their text private.
func Status(err error) *status.Status {
	code := codeFor(err)
	msg := err.Error()
	if code == codes.Internal {
		msg = "internal error"
	}
	st := status.New(code, msg)
	if withInfo, derr := st.WithDetails(&errdetails.ErrorInfo{Reason: api.ErrorCode(err), Domain: ErrorDomain}); derr == nil {
		return withInfo
	}
	return st
}

// Sentinel recovers the common sentinel of a failed call: from the
// ErrorInfo reason when present, else from the status code. It returns nil
// when the status names none.
func Sentinel(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return nil
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			if s := api.ErrorForCode(info.GetReason()); s != nil {
				return s
			}
		}
	}
	switch st.Code() {
	case codes.Unauthenticated:
		return common.ErrUnauthorized
	case codes.PermissionDenied:
		return common.ErrForbidden
	case codes.NotFound:
		return common.ErrNotFound
	case codes.InvalidArgument:
		return common.ErrInvalidRecord
	case codes.AlreadyExists:
		return common.ErrUserAlreadyExists
	case codes.ResourceExhausted:
		return common.ErrTooManyAttempts
	case codes.FailedPrecondition:
		return common.ErrFolderNotEmpty
	}
	return nil
}
