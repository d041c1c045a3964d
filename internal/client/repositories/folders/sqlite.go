package folders

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/client/repositories"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/dbx"
)

const columns = `id, owner_id, name, icon, color, sync_status, created_at, updated_at`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Put(ctx context.Context, f *models.FolderRecord) error {
	if f.ID == "" || f.OwnerID == "" || f.Name == "" {
		return fmt.Errorf("%w: folder needs id, owner and name", common.ErrInvalidRecord)
	}
	icon, color := f.Icon, f.Color
	if icon == "" {
		icon = models.DefaultFolderIcon
	}
	if color == "" {
		color = models.DefaultFolderColor
	}
	status := f.SyncStatus
	if status == "" {
		status = models.SyncPending
	}
	created, updated := f.CreatedAt, f.UpdatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if updated.IsZero() {
		updated = created
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO folders (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			icon = excluded.icon,
			color = excluded.color,
			sync_status = excluded.sync_status,
			updated_at = excluded.updated_at
	`, f.ID, f.OwnerID, f.Name, icon, color, string(status),
		repositories.ToNanos(created), repositories.ToNanos(updated))
	if err != nil {
		return fmt.Errorf("failed to upsert folder %s: %w", f.ID, repositories.Classify(err))
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.FolderRecord, error) {
	f, err := scanFolder(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM folders WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get folder %s: %w", id, repositories.Classify(err))
	}
	return f, nil
}

func (r *SQLiteRepository) List(ctx context.Context, ownerID string) ([]models.FolderRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+columns+` FROM folders WHERE owner_id = ? ORDER BY name, created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select folders: %w", err)
	}
	defer rows.Close()

	var result []models.FolderRecord
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan folder row: %w", err)
		}
		result = append(result, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate folder rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete folder %s: %w", id, repositories.Classify(err))
	}
	if dbx.RowsAffected(res) == 0 {
		return fmt.Errorf("folder %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE folders SET sync_status = ?, updated_at = ? WHERE id = ?`,
		string(models.SyncSynced), repositories.ToNanos(at), id)
	if err != nil {
		return fmt.Errorf("failed to mark folder %s synced: %w", id, repositories.Classify(err))
	}
	if dbx.RowsAffected(res) == 0 {
		return fmt.Errorf("folder %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func scanFolder(s dbx.Scanner) (*models.FolderRecord, error) {
	var (
		f                models.FolderRecord
		status           string
		created, updated int64
	)
	if err := s.Scan(&f.ID, &f.OwnerID, &f.Name, &f.Icon, &f.Color, &status, &created, &updated); err != nil {
		return nil, err
	}
	f.SyncStatus = models.SyncStatus(status)
	f.CreatedAt = repositories.FromNanos(created)
	f.UpdatedAt = repositories.FromNanos(updated)
	return &f, nil
}
