package users

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/client/repositories"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, u *models.User) error {
	if u.ID == "" || u.Username == "" || len(u.PINHash) == 0 || len(u.Salt) == 0 {
		return fmt.Errorf("%w: user needs id, username, pin hash and salt", common.ErrInvalidRecord)
	}
	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, pin_hash, salt, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.PINHash, u.Salt, repositories.ToNanos(created))
	if repositories.IsUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", u.Username, common.ErrUserAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", u.Username, repositories.Classify(err))
	}
	return nil
}

func (r *SQLiteRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.get(ctx, `username = ?`, username)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.get(ctx, `id = ?`, id)
}

func (r *SQLiteRepository) get(ctx context.Context, where string, arg any) (*models.User, error) {
	var (
		u       models.User
		created int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, pin_hash, salt, created_at FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Username, &u.PINHash, &u.Salt, &created)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", repositories.Classify(err))
	}
	u.CreatedAt = repositories.FromNanos(created)
	return &u, nil
}
