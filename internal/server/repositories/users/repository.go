// Package users stores mirror accounts in PostgreSQL.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophgallery/internal/server/models"
)

type Repository interface {
	// Create fails with common.ErrUserAlreadyExists when the id or the
	// username is taken.
	Create(ctx context.Context, u *models.User) error
	// GetByUsername returns common.ErrNotFound for unknown names.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}
