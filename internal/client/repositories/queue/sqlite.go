package queue

import (
	"context"
	"encoding/json"
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

func (r *SQLiteRepository) Append(ctx context.Context, e *models.QueueEntry) (int64, error) {
	if !e.Action.Valid() || e.Payload.ID == "" {
		return 0, fmt.Errorf("%w: queue entry %q without id", common.ErrInvalidRecord, e.Action)
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return 0, fmt.Errorf("%w: queue payload: %w", common.ErrInvalidRecord, err)
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_queue (action, payload, retries, max_retries, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(e.Action), string(payload), e.Retries, e.MaxRetries, repositories.ToNanos(created))
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue %s: %w", e.Action, repositories.Classify(err))
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue seq: %w", err)
	}
	return seq, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.QueueEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, action, payload, retries, max_retries, created_at FROM sync_queue ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to select queue: %w", err)
	}
	defer rows.Close()

	var result []models.QueueEntry
	for rows.Next() {
		var (
			e       models.QueueEntry
			action  string
			payload string
			created int64
		)
		if err := rows.Scan(&e.Seq, &action, &payload, &e.Retries, &e.MaxRetries, &created); err != nil {
			return nil, fmt.Errorf("failed to scan queue row: %w", err)
		}
		e.Action = models.Action(action)
		e.CreatedAt = repositories.FromNanos(created)
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			return nil, fmt.Errorf("%w: queue entry %d payload: %w", common.ErrInvalidRecord, e.Seq, err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) SetRetries(ctx context.Context, seq int64, retries int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE sync_queue SET retries = ? WHERE seq = ?`, retries, seq)
	if err != nil {
		return fmt.Errorf("failed to update queue entry %d: %w", seq, repositories.Classify(err))
	}
	if dbx.RowsAffected(res) == 0 {
		return fmt.Errorf("queue entry %d: %w", seq, common.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, seq int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE seq = ?`, seq); err != nil {
		return fmt.Errorf("failed to remove queue entry %d: %w", seq, repositories.Classify(err))
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}
	return n, nil
}
