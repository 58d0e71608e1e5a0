// Package models defines server-side data models persisted by the catalog
// and the chunk store.
package models

import "time"

// FileObject lifecycle states.
const (
	// StatusPending marks an object whose chunks are still being written.
	StatusPending = "pending"
	// StatusComplete marks an object whose final chunk and record are committed.
	StatusComplete = "complete"
	// StatusDeleting marks a tombstoned object whose chunks are being removed.
	StatusDeleting = "deleting"
)

// FileObject is the catalog record of one stored file. Its content lives in
// ChunkCount chunks numbered 0..ChunkCount-1 and owned by ID.
type FileObject struct {
	// ID is the internal object id. It is never exposed to clients.
	ID string `json:"-"`
	// ShortID is the public, externally addressable key.
	ShortID string `json:"shortId"`
	// Filename is the original name including extension.
	Filename string `json:"filename"`
	// Size is the total content length in bytes.
	Size int64 `json:"size"`
	// ChunkSize is the maximum chunk length used when the object was written.
	ChunkSize int `json:"chunkSize"`
	// ChunkCount is the number of chunks holding the content.
	ChunkCount int `json:"chunkCount"`

	OwnerID    string   `json:"owner"`
	Private    bool     `json:"private"`
	Persistent bool     `json:"persistent"`
	Tags       []string `json:"tags"`

	Status    string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a deep copy of f.
func (f *FileObject) Clone() *FileObject {
	c := *f
	c.Tags = append([]string(nil), f.Tags...)
	return &c
}

// Chunk is one ordered segment of a FileObject's content.
type Chunk struct {
	ObjectID string
	Seq      int
	Data     []byte
	// Checksum is the BLAKE2b-256 digest of Data.
	Checksum []byte
}
