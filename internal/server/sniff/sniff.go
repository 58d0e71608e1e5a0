// Package sniff infers the content type of a stream without consuming it.
package sniff

import (
	"bufio"
	"errors"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
)

// windowSize is the number of leading bytes inspected for a signature.
const windowSize = 4100

// Fallback is returned when neither the content nor the name is recognized.
const Fallback = "application/octet-stream"

var textTypes = map[string]string{
	".txt":  "text/plain; charset=utf-8",
	".md":   "text/markdown; charset=utf-8",
	".csv":  "text/csv; charset=utf-8",
	".log":  "text/plain; charset=utf-8",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".toml": "application/toml",
	".ts":   "text/plain; charset=utf-8",
	".go":   "text/plain; charset=utf-8",
}

func init() {
	for ext, typ := range textTypes {
		if mime.TypeByExtension(ext) == "" {
			_ = mime.AddExtensionType(ext, typ)
		}
	}
}

// Detect peeks at the head of r and resolves a content type: a binary
// signature match first, then the filename extension, then Fallback.
// The returned reader yields the full stream, peeked bytes included.
func Detect(r io.Reader, filename string) (string, io.Reader, error) {
	br := bufio.NewReaderSize(r, windowSize)
	head, err := br.Peek(windowSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", nil, err
	}
	return resolve(head, filename), br, nil
}

// resolve applies the detection order to an already captured head.
func resolve(head []byte, filename string) string {
	if len(head) > 0 {
		if kind, err := filetype.Match(head); err == nil && kind != types.Unknown {
			return kind.MIME.Value
		}
	}
	if ext := Extension(filename); ext != "" {
		if typ := mime.TypeByExtension("." + ext); typ != "" {
			return typ
		}
	}
	return Fallback
}

// Extension returns the part of filename after its last dot, or "" when
// there is none.
func Extension(filename string) string {
	ext := filepath.Ext(filepath.Base(filename))
	return strings.TrimPrefix(ext, ".")
}

// Disposition formats a Content-Disposition value carrying filename.
func Disposition(filename string, attachment bool) string {
	kind := "inline"
	if attachment {
		kind = "attachment"
	}
	if v := mime.FormatMediaType(kind, map[string]string{"filename": filename}); v != "" {
		return v
	}
	return kind
}
