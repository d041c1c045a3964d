package api

import (
	"errors"

	"github.com/dmitrijs2005/gophgallery/internal/common"
)

// Error codes sent with failed calls so clients can recover the sentinel.
const (
	CodeUnauthorized       = "unauthorized"
	CodeInvalidToken       = "invalid_token"
	CodeTokenExpired       = "token_expired"
	CodeInvalidCredentials = "invalid_credentials"
	CodeTooManyAttempts    = "too_many_attempts"
	CodeForbidden          = "forbidden"
	CodeNotFound           = "not_found"
	CodeInvalidRecord      = "invalid_record"
	CodeUserExists         = "user_exists"
	CodeFolderNotEmpty     = "folder_not_empty"
	CodeInternal           = "internal"
)

var codes = []struct {
	code string
	err  error
}{
	{CodeTokenExpired, common.ErrTokenExpired},
	{CodeInvalidToken, common.ErrInvalidToken},
	{CodeInvalidCredentials, common.ErrInvalidCredentials},
	{CodeTooManyAttempts, common.ErrTooManyAttempts},
	{CodeUnauthorized, common.ErrUnauthorized},
	{CodeForbidden, common.ErrForbidden},
	{CodeNotFound, common.ErrNotFound},
	{CodeInvalidRecord, common.ErrInvalidRecord},
	{CodeUserExists, common.ErrUserAlreadyExists},
	{CodeFolderNotEmpty, common.ErrFolderNotEmpty},
}

// ErrorCode returns the code of the first sentinel err wraps, most specific
// first, or CodeInternal.
func ErrorCode(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// ErrorForCode is the inverse of ErrorCode. Unknown codes yield nil.
func ErrorForCode(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}
