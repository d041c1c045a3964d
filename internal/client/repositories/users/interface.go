// Package users stores offline accounts registered on this device.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophgallery/internal/client/models"
)

type Repository interface {
	// Create fails with common.ErrUserAlreadyExists when the username is taken.
	Create(ctx context.Context, u *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}
