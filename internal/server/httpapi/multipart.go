package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/dmitrijs2005/gophfiles/internal/common"
	"github.com/dmitrijs2005/gophfiles/internal/server/services"
)

// maxMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const maxMemory = 32 << 20

var errMalformedForm = &common.BadRequestError{Reason: "Malformed multipart/form-data request"}

// uploadForm holds the file parts of a request in the order they arrived.
type uploadForm struct {
	sources []services.UploadSource
	temps   []string
}

// readUploadForm streams the multipart body, keeping up to memLimit bytes of
// file content in memory. Non-file fields are skipped.
func readUploadForm(r *http.Request, memLimit int64) (*uploadForm, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, services.ErrNoFiles
	}

	f := &uploadForm{}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return f, nil
		}
		if err != nil {
			f.RemoveAll()
			return nil, errMalformedForm
		}

		name := part.FileName()
		if name == "" {
			part.Close()
			continue
		}
		if len(f.sources) == common.MaxBatchSize {
			part.Close()
			f.RemoveAll()
			return nil, services.ErrTooManyFiles
		}

		src, inMemory, err := f.spool(part, name, memLimit)
		part.Close()
		if err != nil {
			f.RemoveAll()
			return nil, err
		}
		memLimit -= inMemory
		f.sources = append(f.sources, src)
	}
}

// spool buffers one part in memory when it fits into limit and in a
// temporary file otherwise. It reports how many bytes stayed in memory.
func (f *uploadForm) spool(part *multipart.Part, name string, limit int64) (services.UploadSource, int64, error) {
	in := &partReader{r: part}

	var buf bytes.Buffer
	n, err := io.CopyN(&buf, in, limit+1)
	if err != nil && !errors.Is(err, io.EOF) {
		return services.UploadSource{}, 0, errMalformedForm
	}
	if n <= limit {
		data := buf.Bytes()
		return services.UploadSource{
			Filename: name,
			Open:     func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
		}, n, nil
	}

	tmp, err := os.CreateTemp("", "gophfiles-upload-*")
	if err != nil {
		return services.UploadSource{}, 0, fmt.Errorf("spool upload: %w", err)
	}
	f.temps = append(f.temps, tmp.Name())

	_, err = io.Copy(tmp, io.MultiReader(&buf, in))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if in.err != nil {
		return services.UploadSource{}, 0, errMalformedForm
	}
	if err != nil {
		return services.UploadSource{}, 0, fmt.Errorf("spool upload: %w", err)
	}

	path := tmp.Name()
	return services.UploadSource{
		Filename: name,
		Open:     func() (io.ReadCloser, error) { return os.Open(path) },
	}, 0, nil
}

// RemoveAll deletes the temporary files of the form.
func (f *uploadForm) RemoveAll() {
	for _, p := range f.temps {
		_ = os.Remove(p)
	}
	f.temps = nil
}

// partReader remembers the first read error of the client body, so that
// it can be told apart from local spool failures.
type partReader struct {
	r   io.Reader
	err error
}

func (p *partReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if err != nil && !errors.Is(err, io.EOF) && p.err == nil {
		p.err = err
	}
	return n, err
}
