package chunks

import (
	"context"

	"github.com/dmitrijs2005/gophfiles/internal/server/models"
)

// Repository persists ordered chunk rows keyed by (object id, seq).
type Repository interface {
	Insert(ctx context.Context, c *models.Chunk) error
	Get(ctx context.Context, objectID string, seq int) (*models.Chunk, error)
	DeleteAll(ctx context.Context, objectID string) error
}
