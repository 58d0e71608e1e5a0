package services

import (
	"math/rand/v2"
	"strings"

	"github.com/dmitrijs2005/gophfiles/internal/server/sniff"
)

const (
	structuredPrefix = "/v1/file/"
	legacyPrefix     = "/file/"
)

// URLBuilder turns short ids into public links on one of the configured
// host aliases.
type URLBuilder struct {
	scheme  string
	aliases []string
	intn    func(n int) int
}

func NewURLBuilder(scheme string, aliases []string) *URLBuilder {
	return &URLBuilder{
		scheme:  scheme,
		aliases: aliases,
		intn:    rand.IntN,
	}
}

// Base picks one alias for a whole batch and returns the link prefix.
// A non-empty override replaces the configured aliases.
func (b *URLBuilder) Base(override []string, legacy bool) string {
	aliases := b.aliases
	if len(override) > 0 {
		aliases = override
	}
	var alias string
	if len(aliases) > 0 {
		alias = aliases[b.intn(len(aliases))]
	}

	prefix := structuredPrefix
	if legacy {
		prefix = legacyPrefix
	}
	return b.scheme + "://" + strings.TrimSuffix(alias, "/") + prefix
}

// FileURL appends the id to base. Legacy links keep the file extension.
func FileURL(base, shortID, filename string, legacy bool) string {
	if !legacy {
		return base + shortID
	}
	if ext := sniff.Extension(filename); ext != "" {
		return base + shortID + "." + ext
	}
	return base + shortID
}

// FormatLegacy shapes links the way the old upload endpoint answered:
// a bare string for one file, a list otherwise.
func FormatLegacy(urls []string) any {
	if len(urls) == 1 {
		return urls[0]
	}
	return urls
}
