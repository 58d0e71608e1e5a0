// Package shortid allocates the public identifiers of stored files.
package shortid

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"github.com/mr-tron/base58"
)

const (
	// idBytes is the entropy carried by one id (96 bits).
	idBytes = 12
	// Length is the fixed length of an encoded id. 58^17 > 2^96.
	Length = 17
)

// Generator produces random short ids. Uniqueness is enforced by the
// catalog's unique index, not by a lookup here.
type Generator struct {
	rand io.Reader
}

// New returns a Generator reading from crypto/rand.
func New() *Generator {
	return &Generator{rand: rand.Reader}
}

// NewWithSource is used by tests to make ids deterministic.
func NewWithSource(r io.Reader) *Generator {
	return &Generator{rand: r}
}

// New returns a fresh id of exactly Length base58 characters.
func (g *Generator) New() (string, error) {
	buf := make([]byte, idBytes)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", fmt.Errorf("short id entropy: %w", err)
	}
	s := base58.Encode(buf)
	if len(s) < Length {
		s = strings.Repeat("1", Length-len(s)) + s
	}
	return s, nil
}
