package chunks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophfiles/internal/common"
	"github.com/dmitrijs2005/gophfiles/internal/dbx"
	"github.com/dmitrijs2005/gophfiles/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert writes one chunk. Rewriting the same (object id, seq) replaces it.
func (r *PostgresRepository) Insert(ctx context.Context, c *models.Chunk) error {
	query := `
		INSERT INTO file_chunks (object_id, seq, data, checksum)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (object_id, seq) DO UPDATE SET data = EXCLUDED.data, checksum = EXCLUDED.checksum
	`
	if _, err := r.db.ExecContext(ctx, query, c.ObjectID, c.Seq, c.Data, c.Checksum); err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, objectID string, seq int) (*models.Chunk, error) {
	query := `SELECT data, checksum FROM file_chunks WHERE object_id=$1 AND seq=$2`

	c := &models.Chunk{ObjectID: objectID, Seq: seq}
	err := r.db.QueryRowContext(ctx, query, objectID, seq).Scan(&c.Data, &c.Checksum)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select chunk: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) DeleteAll(ctx context.Context, objectID string) error {
	query := `DELETE FROM file_chunks WHERE object_id=$1`
	if _, err := r.db.ExecContext(ctx, query, objectID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}
