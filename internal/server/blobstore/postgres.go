package blobstore

import (
	"context"

	"github.com/dmitrijs2005/gophfiles/internal/server/models"
	"github.com/dmitrijs2005/gophfiles/internal/server/repositories/chunks"
)

// PostgresBackend stores chunks as bytea rows in file_chunks.
type PostgresBackend struct {
	repo chunks.Repository
}

func NewPostgresBackend(repo chunks.Repository) *PostgresBackend {
	return &PostgresBackend{repo: repo}
}

func (b *PostgresBackend) PutChunk(ctx context.Context, c *models.Chunk) error {
	return b.repo.Insert(ctx, c)
}

func (b *PostgresBackend) GetChunk(ctx context.Context, objectID string, seq int) (*models.Chunk, error) {
	return b.repo.Get(ctx, objectID, seq)
}

func (b *PostgresBackend) DeleteChunks(ctx context.Context, objectID string) error {
	return b.repo.DeleteAll(ctx, objectID)
}
