package files

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophfiles/internal/server/models"
)

// Repository is the catalog of file objects. Lookups by short id and by
// owner only return complete objects.
type Repository interface {
	// CreatePending inserts a new record in pending state. A short id clash
	// yields common.ErrShortIDConflict.
	CreatePending(ctx context.Context, f *models.FileObject) error
	// MarkComplete records the final size and chunk count of a pending object.
	MarkComplete(ctx context.Context, id string, size int64, chunkCount int) error

	GetByShortID(ctx context.Context, shortID string) (*models.FileObject, error)
	GetByShortIDForOwner(ctx context.Context, shortID, ownerID string) (*models.FileObject, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.FileObject, error)

	// MarkDeleting tombstones an object; it disappears from every lookup.
	MarkDeleting(ctx context.Context, id string) error
	// Delete removes the record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error

	// SelectExpired returns complete, non-persistent objects created before t.
	SelectExpired(ctx context.Context, before time.Time, limit int) ([]*models.FileObject, error)
	// SelectStale returns tombstoned objects and pending objects created before t.
	SelectStale(ctx context.Context, before time.Time, limit int) ([]*models.FileObject, error)
}
