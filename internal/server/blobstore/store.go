// Package blobstore stores file content as ordered, fixed-size chunks and
// streams it back lazily.
package blobstore

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophfiles/internal/logging"
	"github.com/dmitrijs2005/gophfiles/internal/server/models"
	"github.com/dmitrijs2005/gophfiles/internal/server/repositories/files"
)

// DefaultChunkSize is 255 KiB.
const DefaultChunkSize = 255 * 1024

// Backend persists individual chunks. PutChunk must not retain c.Data after
// it returns.
type Backend interface {
	PutChunk(ctx context.Context, c *models.Chunk) error
	GetChunk(ctx context.Context, objectID string, seq int) (*models.Chunk, error)
	// DeleteChunks removes every chunk of objectID. Removing nothing is not an error.
	DeleteChunks(ctx context.Context, objectID string) error
}

// Store couples a chunk Backend with the file catalog so that an object only
// becomes visible once all of its chunks are durable.
type Store struct {
	index     files.Repository
	backend   Backend
	chunkSize int
	logger    logging.Logger
}

// New builds a Store. chunkSize <= 0 selects DefaultChunkSize.
func New(index files.Repository, backend Backend, chunkSize int, logger logging.Logger) *Store {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Store{
		index:     index,
		backend:   backend,
		chunkSize: chunkSize,
		logger:    logger.With("module", "blobstore"),
	}
}

// ChunkSize reports the chunk length used for new objects.
func (s *Store) ChunkSize() int {
	return s.chunkSize
}

// Create opens a write sink for obj. obj.ID and obj.ShortID must be set;
// nothing is persisted until the first chunk fills or the writer is closed.
func (s *Store) Create(ctx context.Context, obj *models.FileObject) (*Writer, error) {
	if obj.ID == "" || obj.ShortID == "" {
		return nil, fmt.Errorf("blobstore: object ids are not set")
	}
	obj.ChunkSize = s.chunkSize
	return &Writer{
		ctx:   ctx,
		store: s,
		obj:   obj,
		buf:   make([]byte, s.chunkSize),
	}, nil
}

// Open returns a lazy reader over the content of a complete object. Each
// call starts from byte 0.
func (s *Store) Open(ctx context.Context, obj *models.FileObject) (io.ReadCloser, error) {
	if obj.Status != models.StatusComplete {
		return nil, fmt.Errorf("blobstore: object %s is %s", obj.ShortID, obj.Status)
	}
	return &reader{ctx: ctx, backend: s.backend, obj: obj}, nil
}

// Delete tombstones the object, removes its chunks and then its record.
// An error after the tombstone leaves the object invisible; the reaper
// finishes the job later.
func (s *Store) Delete(ctx context.Context, obj *models.FileObject) error {
	if err := s.index.MarkDeleting(ctx, obj.ID); err != nil {
		return err
	}
	if err := s.backend.DeleteChunks(ctx, obj.ID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := s.index.Delete(ctx, obj.ID); err != nil {
		return err
	}
	return nil
}
