package folders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/dbx"
	"github.com/dmitrijs2005/gophgallery/internal/server/models"
)

const columns = `id, owner_id, name, icon, color, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, f *models.Folder) (*models.Folder, error) {
	query := `
		INSERT INTO folders (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			icon = EXCLUDED.icon,
			color = EXCLUDED.color,
			updated_at = EXCLUDED.updated_at
			WHERE folders.owner_id = EXCLUDED.owner_id
		RETURNING ` + columns

	row := r.db.QueryRowContext(ctx, query,
		f.ID, f.OwnerID, f.Name, f.Icon, f.Color, f.CreatedAt, f.UpdatedAt)
	saved, err := scanFolder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("folder %s: %w", f.ID, common.ErrForbidden)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert folder: %w", err)
	}
	return saved, nil
}

func (r *PostgresRepository) List(ctx context.Context, ownerID string) ([]models.Folder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+columns+` FROM folders WHERE owner_id = $1 ORDER BY name, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select folders: %w", err)
	}
	defer rows.Close()

	var result []models.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *f)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM folders WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	if dbx.RowsAffected(res) == 0 {
		return fmt.Errorf("folder %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func scanFolder(s dbx.Scanner) (*models.Folder, error) {
	var f models.Folder
	if err := s.Scan(&f.ID, &f.OwnerID, &f.Name, &f.Icon, &f.Color, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}
