package files

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophfiles/internal/common"
	"github.com/dmitrijs2005/gophfiles/internal/server/models"
)

// MemoryRepository is a process-local catalog used in memory mode and tests.
// Returned objects are copies.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*models.FileObject
	shortID map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*models.FileObject),
		shortID: make(map[string]string),
	}
}

func (r *MemoryRepository) CreatePending(_ context.Context, f *models.FileObject) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.shortID[f.ShortID]; ok {
		return common.ErrShortIDConflict
	}
	f.Status = models.StatusPending
	r.byID[f.ID] = f.Clone()
	r.shortID[f.ShortID] = f.ID
	return nil
}

func (r *MemoryRepository) MarkComplete(_ context.Context, id string, size int64, chunkCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.byID[id]
	if !ok || f.Status != models.StatusPending {
		return common.ErrorNotFound
	}
	f.Size = size
	f.ChunkCount = chunkCount
	f.Status = models.StatusComplete
	return nil
}

func (r *MemoryRepository) GetByShortID(_ context.Context, shortID string) (*models.FileObject, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.byID[r.shortID[shortID]]
	if !ok || f.Status != models.StatusComplete {
		return nil, common.ErrorNotFound
	}
	return f.Clone(), nil
}

func (r *MemoryRepository) GetByShortIDForOwner(ctx context.Context, shortID, ownerID string) (*models.FileObject, error) {
	f, err := r.GetByShortID(ctx, shortID)
	if err != nil {
		return nil, err
	}
	if f.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	return f, nil
}

func (r *MemoryRepository) ListByOwner(_ context.Context, ownerID string) ([]*models.FileObject, error) {
	return r.selectSorted(func(f *models.FileObject) bool {
		return f.OwnerID == ownerID && f.Status == models.StatusComplete
	}, 0), nil
}

func (r *MemoryRepository) MarkDeleting(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.byID[id]; ok {
		f.Status = models.StatusDeleting
	}
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.byID[id]; ok {
		delete(r.shortID, f.ShortID)
		delete(r.byID, id)
	}
	return nil
}

func (r *MemoryRepository) SelectExpired(_ context.Context, before time.Time, limit int) ([]*models.FileObject, error) {
	return r.selectSorted(func(f *models.FileObject) bool {
		return f.Status == models.StatusComplete && !f.Persistent && f.CreatedAt.Before(before)
	}, limit), nil
}

func (r *MemoryRepository) SelectStale(_ context.Context, before time.Time, limit int) ([]*models.FileObject, error) {
	return r.selectSorted(func(f *models.FileObject) bool {
		return f.Status == models.StatusDeleting ||
			(f.Status == models.StatusPending && f.CreatedAt.Before(before))
	}, limit), nil
}

func (r *MemoryRepository) selectSorted(match func(*models.FileObject) bool, limit int) []*models.FileObject {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.FileObject
	for _, f := range r.byID {
		if match(f) {
			out = append(out, f.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
