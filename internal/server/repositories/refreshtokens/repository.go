// Package refreshtokens stores the opaque refresh tokens handed out at login.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID, token string, expiresAt time.Time) error
	// Find returns common.ErrNotFound for unknown tokens.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)
	// Delete returns common.ErrNotFound when nothing was removed, so a token
	// can only be redeemed once.
	Delete(ctx context.Context, token string) error
}
