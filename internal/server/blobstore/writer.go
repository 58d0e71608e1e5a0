package blobstore

import (
	"context"
	"errors"
	"io"

	"github.com/dmitrijs2005/gophfiles/internal/common"
	"github.com/dmitrijs2005/gophfiles/internal/server/models"
)

// Writer buffers at most one chunk and commits every full chunk on its own.
// A nil error from Close means the object is complete and visible.
type Writer struct {
	ctx   context.Context
	store *Store
	obj   *models.FileObject

	buf []byte
	n   int

	seq     int
	size    int64
	created bool
	closed  bool
	err     error
}

func (w *Writer) Write(p []byte) (int, error) {
	if err := w.usable(); err != nil {
		return 0, err
	}
	written := 0
	for len(p) > 0 {
		m := copy(w.buf[w.n:], p)
		w.n += m
		written += m
		p = p[m:]
		if w.n == len(w.buf) {
			if err := w.flush(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

// ReadFrom fills the chunk buffer straight from r, so io.Copy needs no
// intermediate buffer.
func (w *Writer) ReadFrom(r io.Reader) (int64, error) {
	if err := w.usable(); err != nil {
		return 0, err
	}
	var total int64
	for {
		m, err := io.ReadFull(r, w.buf[w.n:])
		w.n += m
		total += int64(m)
		if w.n == len(w.buf) {
			if ferr := w.flush(); ferr != nil {
				return total, ferr
			}
		}
		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return total, nil
		default:
			w.err = err
			return total, err
		}
	}
}

// Close commits the last partial chunk and marks the object complete.
func (w *Writer) Close() error {
	if err := w.usable(); err != nil {
		return err
	}
	w.closed = true

	if w.n > 0 {
		if err := w.flush(); err != nil {
			return err
		}
	}
	if !w.created {
		if err := w.createRecord(); err != nil {
			return err
		}
	}
	if err := w.store.index.MarkComplete(w.ctx, w.obj.ID, w.size, w.seq); err != nil {
		w.err = err
		return err
	}
	w.obj.Size = w.size
	w.obj.ChunkCount = w.seq
	w.obj.Status = models.StatusComplete
	return nil
}

// Abort discards everything persisted so far. It is safe to call after a
// failed Write or Close.
func (w *Writer) Abort(ctx context.Context) error {
	if w.obj.Status == models.StatusComplete {
		return nil
	}
	w.closed = true
	w.buf = nil
	if !w.created {
		return nil
	}
	return w.store.Delete(ctx, w.obj)
}

// Object returns the record the writer fills in.
func (w *Writer) Object() *models.FileObject {
	return w.obj
}

func (w *Writer) usable() error {
	if w.closed {
		return common.ErrStoreClosed
	}
	return w.err
}

func (w *Writer) createRecord() error {
	if err := w.store.index.CreatePending(w.ctx, w.obj); err != nil {
		w.err = err
		return err
	}
	w.created = true
	return nil
}

func (w *Writer) flush() error {
	if err := w.ctx.Err(); err != nil {
		w.err = err
		return err
	}
	if !w.created {
		if err := w.createRecord(); err != nil {
			return err
		}
	}
	data := w.buf[:w.n]
	c := &models.Chunk{
		ObjectID: w.obj.ID,
		Seq:      w.seq,
		Data:     data,
		Checksum: checksum(data),
	}
	if err := w.store.backend.PutChunk(w.ctx, c); err != nil {
		w.err = err
		return err
	}
	w.seq++
	w.size += int64(w.n)
	w.n = 0
	return nil
}
