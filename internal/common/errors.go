// Package common defines shared constants and sentinel errors used across
// the client and the mirror server. Callers should use errors.Is to match
// these values; producers wrap them with fmt.Errorf("...: %w", err).
package common

import "errors"

var (
	// Local record store errors.
	ErrNotFound      = errors.New("not found")
	ErrStorageFull   = errors.New("storage full")
	ErrInvalidRecord = errors.New("invalid record")

	// Remote mirror errors. Any transport or service failure is reported
	// as ErrRemoteUnavailable so the coordinator can fall back to the queue.
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// Coordinator errors.
	ErrFolderNotEmpty = errors.New("folder is not empty")

	// ErrSyncExhausted marks a queue entry dropped after max retries.
	// It is logged and counted, never returned to a caller.
	ErrSyncExhausted = errors.New("sync retries exhausted")

	// Auth errors.
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidCredentials = errors.New("invalid username or pin")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")
)
