package files

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophfiles/internal/common"
	"github.com/dmitrijs2005/gophfiles/internal/dbx"
	"github.com/dmitrijs2005/gophfiles/internal/server/models"
)

const fileColumns = `id, short_id, filename, size, chunk_size, chunk_count, owner_id, private, persistent, tags, status, created_at`

// PostgresRepository implements the catalog over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreatePending(ctx context.Context, f *models.FileObject) error {
	tags, err := encodeTags(f.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO files (id, short_id, filename, chunk_size, owner_id, private, persistent, tags, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', $9)
	`
	_, err = r.db.ExecContext(ctx, query,
		f.ID, f.ShortID, f.Filename, f.ChunkSize, f.OwnerID, f.Private, f.Persistent, tags, f.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrShortIDConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	f.Status = models.StatusPending
	return nil
}

// MarkComplete flips a pending record to complete. Exactly one row must be affected.
func (r *PostgresRepository) MarkComplete(ctx context.Context, id string, size int64, chunkCount int) error {
	query := `UPDATE files SET size=$2, chunk_count=$3, status='complete' WHERE id=$1 AND status='pending'`
	res, err := r.db.ExecContext(ctx, query, id, size, chunkCount)
	if err != nil {
		return fmt.Errorf("failed to mark complete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("wrong rows affected count: %d", n)
	}
	return nil
}

func (r *PostgresRepository) GetByShortID(ctx context.Context, shortID string) (*models.FileObject, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE short_id=$1 AND status='complete'`
	return r.getOne(ctx, query, shortID)
}

func (r *PostgresRepository) GetByShortIDForOwner(ctx context.Context, shortID, ownerID string) (*models.FileObject, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE short_id=$1 AND owner_id=$2 AND status='complete'`
	return r.getOne(ctx, query, shortID, ownerID)
}

// ListByOwner returns every complete object of ownerID, oldest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.FileObject, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE owner_id=$1 AND status='complete' ORDER BY created_at`
	return r.getMany(ctx, query, ownerID)
}

func (r *PostgresRepository) MarkDeleting(ctx context.Context, id string) error {
	query := `UPDATE files SET status='deleting' WHERE id=$1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark deleting: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM files WHERE id=$1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SelectExpired(ctx context.Context, before time.Time, limit int) ([]*models.FileObject, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE status='complete' AND persistent=FALSE AND created_at<$1
		ORDER BY created_at LIMIT $2`
	return r.getMany(ctx, query, before, limit)
}

func (r *PostgresRepository) SelectStale(ctx context.Context, before time.Time, limit int) ([]*models.FileObject, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE status='deleting' OR (status='pending' AND created_at<$1)
		ORDER BY created_at LIMIT $2`
	return r.getMany(ctx, query, before, limit)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.FileObject, error) {
	f, err := scanFile(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select file: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) getMany(ctx context.Context, query string, args ...any) ([]*models.FileObject, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.FileObject
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(s rowScanner) (*models.FileObject, error) {
	var (
		f    models.FileObject
		tags []byte
	)
	err := s.Scan(&f.ID, &f.ShortID, &f.Filename, &f.Size, &f.ChunkSize, &f.ChunkCount,
		&f.OwnerID, &f.Private, &f.Persistent, &tags, &f.Status, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &f.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	return &f, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}
