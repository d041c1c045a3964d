package images

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/client/repositories"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/dbx"
)

const columns = `id, owner_id, folder_id, prompt, style, tags, payload, remote_url,
	size, mime_type, width, height, model, compressed, original_size,
	sync_status, created_at, updated_at`

// columnsNoPayload matches columns with an empty payload so scanImage serves both.
const columnsNoPayload = `id, owner_id, folder_id, prompt, style, tags, NULL, remote_url,
	size, mime_type, width, height, model, compressed, original_size,
	sync_status, created_at, updated_at`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Put(ctx context.Context, rec *models.ImageRecord) error {
	if rec.ID == "" || rec.OwnerID == "" {
		return fmt.Errorf("%w: image needs id and owner", common.ErrInvalidRecord)
	}
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("%w: tags: %w", common.ErrInvalidRecord, err)
	}
	status := rec.SyncStatus
	if status == "" {
		status = models.SyncPending
	}
	now := time.Now()
	created, updated := rec.CreatedAt, rec.UpdatedAt
	if created.IsZero() {
		created = now
	}
	if updated.IsZero() {
		updated = created
	}

	query := `INSERT INTO images (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			folder_id = excluded.folder_id,
			prompt = excluded.prompt,
			style = excluded.style,
			tags = excluded.tags,
			payload = excluded.payload,
			remote_url = excluded.remote_url,
			size = excluded.size,
			mime_type = excluded.mime_type,
			width = excluded.width,
			height = excluded.height,
			model = excluded.model,
			compressed = excluded.compressed,
			original_size = excluded.original_size,
			sync_status = excluded.sync_status,
			updated_at = excluded.updated_at`

	m := rec.Metadata
	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.OwnerID, rec.FolderID, rec.Prompt, rec.Style, string(tagsJSON), rec.Payload, rec.RemoteURL,
		m.Size, m.MimeType, m.Width, m.Height, m.Model, m.Compressed, m.OriginalSize,
		string(status), repositories.ToNanos(created), repositories.ToNanos(updated))
	if err != nil {
		return fmt.Errorf("failed to upsert image %s: %w", rec.ID, repositories.Classify(err))
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.ImageRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM images WHERE id = ?`, id)
	rec, err := scanImage(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get image %s: %w", id, repositories.Classify(err))
	}
	return rec, nil
}

func (r *SQLiteRepository) List(ctx context.Context, ownerID, folderID string, limit, offset int) (models.ImagePage, error) {
	where := `owner_id = ?`
	args := []any{ownerID}
	if folderID != "" {
		where += ` AND folder_id = ?`
		args = append(args, folderID)
	}

	return r.page(ctx, where, args, limit, offset)
}

// Search matches query as a case-insensitive substring of the prompt.
func (r *SQLiteRepository) Search(ctx context.Context, ownerID, query string, limit, offset int) (models.ImagePage, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
	return r.page(ctx, `owner_id = ? AND lower(prompt) LIKE ? ESCAPE '\'`, []any{ownerID, pattern}, limit, offset)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *SQLiteRepository) page(ctx context.Context, where string, args []any, limit, offset int) (models.ImagePage, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images WHERE `+where, args...).Scan(&total); err != nil {
		return models.ImagePage{}, fmt.Errorf("failed to count images: %w", repositories.Classify(err))
	}

	query := `SELECT ` + columns + ` FROM images WHERE ` + where +
		` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
	recs, err := r.query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return models.ImagePage{}, err
	}
	return models.NewImagePage(recs, total, limit, offset), nil
}

func (r *SQLiteRepository) ListAll(ctx context.Context, ownerID string) ([]models.ImageRecord, error) {
	query := `SELECT ` + columnsNoPayload + ` FROM images WHERE owner_id = ? ORDER BY created_at DESC, rowid DESC`
	return r.query(ctx, query, ownerID)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete image %s: %w", id, repositories.Classify(err))
	}
	if dbx.RowsAffected(res) == 0 {
		return fmt.Errorf("image %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) CountByFolder(ctx context.Context, folderID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images WHERE folder_id = ?`, folderID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count images in folder %s: %w", folderID, repositories.Classify(err))
	}
	return n, nil
}

func (r *SQLiteRepository) CountByFolders(ctx context.Context, ownerID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT folder_id, COUNT(*) FROM images WHERE owner_id = ? AND folder_id <> '' GROUP BY folder_id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count images by folder: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan folder count: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate folder counts: %w", err)
	}
	return counts, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id, remoteURL string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE images SET remote_url = ?, sync_status = ?, updated_at = ? WHERE id = ?`,
		remoteURL, string(models.SyncSynced), repositories.ToNanos(at), id)
	if err != nil {
		return fmt.Errorf("failed to mark image %s synced: %w", id, repositories.Classify(err))
	}
	if dbx.RowsAffected(res) == 0 {
		return fmt.Errorf("image %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteUnsyncedOlderThan(ctx context.Context, ownerID string, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM images WHERE owner_id = ? AND remote_url = '' AND created_at < ?`,
		ownerID, repositories.ToNanos(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to clean up images: %w", repositories.Classify(err))
	}
	return int(dbx.RowsAffected(res)), nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]models.ImageRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select images: %w", err)
	}
	defer rows.Close()

	var result []models.ImageRecord
	for rows.Next() {
		rec, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image row: %w", err)
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate image rows: %w", err)
	}
	return result, nil
}

func scanImage(s dbx.Scanner) (*models.ImageRecord, error) {
	var (
		rec              models.ImageRecord
		tags, status     string
		created, updated int64
	)
	m := &rec.Metadata
	err := s.Scan(&rec.ID, &rec.OwnerID, &rec.FolderID, &rec.Prompt, &rec.Style, &tags, &rec.Payload, &rec.RemoteURL,
		&m.Size, &m.MimeType, &m.Width, &m.Height, &m.Model, &m.Compressed, &m.OriginalSize,
		&status, &created, &updated)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
		return nil, fmt.Errorf("%w: tags of %s: %w", common.ErrInvalidRecord, rec.ID, err)
	}
	rec.SyncStatus = models.SyncStatus(status)
	rec.CreatedAt = repositories.FromNanos(created)
	rec.UpdatedAt = repositories.FromNanos(updated)
	return &rec, nil
}
