package blobstore

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophfiles/internal/common"
	"github.com/dmitrijs2005/gophfiles/internal/server/models"
)

type chunkKey struct {
	objectID string
	seq      int
}

// MemoryBackend keeps chunks in a map. Data is copied on the way in and out.
type MemoryBackend struct {
	mu     sync.RWMutex
	chunks map[chunkKey]models.Chunk
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{chunks: make(map[chunkKey]models.Chunk)}
}

func (b *MemoryBackend) PutChunk(_ context.Context, c *models.Chunk) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.chunks[chunkKey{c.ObjectID, c.Seq}] = models.Chunk{
		ObjectID: c.ObjectID,
		Seq:      c.Seq,
		Data:     append([]byte(nil), c.Data...),
		Checksum: append([]byte(nil), c.Checksum...),
	}
	return nil
}

func (b *MemoryBackend) GetChunk(_ context.Context, objectID string, seq int) (*models.Chunk, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	c, ok := b.chunks[chunkKey{objectID, seq}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c.Data = append([]byte(nil), c.Data...)
	return &c, nil
}

func (b *MemoryBackend) DeleteChunks(_ context.Context, objectID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for k := range b.chunks {
		if k.objectID == objectID {
			delete(b.chunks, k)
		}
	}
	return nil
}

// Len reports the number of stored chunks.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.chunks)
}
