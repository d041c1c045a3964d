package images

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/dbx"
	"github.com/dmitrijs2005/gophgallery/internal/server/models"
)

const columns = `id, owner_id, folder_id, prompt, style, tags, size, mime_type, width, height,
	model, compressed, original_size, storage_key, upload_status, created_at, updated_at`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, img *models.Image) (*models.Image, error) {
	tags, err := json.Marshal(nonNil(img.Tags))
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}

	query := `
		INSERT INTO images (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			folder_id = EXCLUDED.folder_id,
			prompt = EXCLUDED.prompt,
			style = EXCLUDED.style,
			tags = EXCLUDED.tags,
			size = EXCLUDED.size,
			mime_type = EXCLUDED.mime_type,
			width = EXCLUDED.width,
			height = EXCLUDED.height,
			model = EXCLUDED.model,
			compressed = EXCLUDED.compressed,
			original_size = EXCLUDED.original_size,
			updated_at = EXCLUDED.updated_at
			WHERE images.owner_id = EXCLUDED.owner_id
		RETURNING ` + columns

	row := r.db.QueryRowContext(ctx, query,
		img.ID, img.OwnerID, img.FolderID, img.Prompt, img.Style, tags, img.Size, img.MimeType,
		img.Width, img.Height, img.Model, img.Compressed, img.OriginalSize, img.StorageKey,
		img.UploadStatus, img.CreatedAt, img.UpdatedAt)

	saved, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("image %s: %w", img.ID, common.ErrForbidden)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert image: %w", err)
	}
	return saved, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Image, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM images WHERE id = $1`, id)
	img, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("image %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select image: %w", err)
	}
	return img, nil
}

func (r *PostgresRepository) List(ctx context.Context, ownerID, folderID string, limit, offset int) ([]models.Image, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM images WHERE owner_id = $1 AND ($2 = '' OR folder_id = $2)`,
		ownerID, folderID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count images: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+columns+` FROM images
		WHERE owner_id = $1 AND ($2 = '' OR folder_id = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`,
		ownerID, folderID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to select images: %w", err)
	}
	defer rows.Close()

	var result []models.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *img)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (r *PostgresRepository) MarkUploaded(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE images SET upload_status = 'completed' WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to mark uploaded: %w", err)
	}
	if dbx.RowsAffected(res) != 1 {
		return fmt.Errorf("image %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id string) (*models.Image, error) {
	row := r.db.QueryRowContext(ctx,
		`DELETE FROM images WHERE id = $1 AND owner_id = $2 RETURNING `+columns, id, ownerID)
	img, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("image %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete image: %w", err)
	}
	return img, nil
}

func (r *PostgresRepository) CountByFolder(ctx context.Context, ownerID, folderID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM images WHERE owner_id = $1 AND folder_id = $2`, ownerID, folderID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count images: %w", err)
	}
	return n, nil
}

func scanImage(s dbx.Scanner) (*models.Image, error) {
	var (
		img  models.Image
		tags []byte
	)
	err := s.Scan(&img.ID, &img.OwnerID, &img.FolderID, &img.Prompt, &img.Style, &tags,
		&img.Size, &img.MimeType, &img.Width, &img.Height, &img.Model, &img.Compressed,
		&img.OriginalSize, &img.StorageKey, &img.UploadStatus, &img.CreatedAt, &img.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &img.Tags); err != nil {
			return nil, fmt.Errorf("decode tags of %s: %w", img.ID, err)
		}
	}
	return &img, nil
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
