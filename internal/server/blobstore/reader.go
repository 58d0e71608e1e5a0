package blobstore

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophfiles/internal/common"
	"github.com/dmitrijs2005/gophfiles/internal/server/models"
)

// reader holds one chunk at a time; chunk n is fetched only after chunk n-1
// has been fully consumed.
type reader struct {
	ctx     context.Context
	backend Backend
	obj     *models.FileObject

	seq    int
	cur    []byte
	read   int64
	closed bool
}

func (r *reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, common.ErrStoreClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	for len(r.cur) == 0 {
		if r.seq >= r.obj.ChunkCount {
			if r.read != r.obj.Size {
				return 0, fmt.Errorf("%w: object %s has %d bytes, want %d",
					common.ErrChunkCorrupted, r.obj.ShortID, r.read, r.obj.Size)
			}
			return 0, io.EOF
		}
		if err := r.next(); err != nil {
			return 0, err
		}
	}
	n := copy(p, r.cur)
	r.cur = r.cur[n:]
	r.read += int64(n)
	return n, nil
}

func (r *reader) next() error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	c, err := r.backend.GetChunk(r.ctx, r.obj.ID, r.seq)
	if err != nil {
		return fmt.Errorf("chunk %d of %s: %w", r.seq, r.obj.ShortID, err)
	}
	if !verify(c.Data, c.Checksum) {
		return fmt.Errorf("%w: chunk %d of %s", common.ErrChunkCorrupted, r.seq, r.obj.ShortID)
	}
	r.cur = c.Data
	r.seq++
	return nil
}

func (r *reader) Close() error {
	r.closed = true
	r.cur = nil
	return nil
}
