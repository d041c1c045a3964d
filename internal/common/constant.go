// Package common contains shared constants and sentinel errors used across
// gophgallery components.
package common

const (
	// AuthorizationHeaderName carries the bearer token on mirror requests.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the JWT in the Authorization header.
	BearerPrefix = "Bearer "

	// DefaultMaxRetries is the number of failed replays after which a sync
	// queue entry is dropped.
	DefaultMaxRetries = 3
)
