// Package cache memoizes catalog lookups by short id.
package cache

import (
	"context"

	"github.com/dmitrijs2005/gophfiles/internal/server/models"
)

// Cache stores complete file records. Implementations swallow their own
// failures: a broken cache behaves like an empty one.
type Cache interface {
	Get(ctx context.Context, shortID string) (*models.FileObject, bool)
	Set(ctx context.Context, f *models.FileObject)
	Invalidate(ctx context.Context, shortID string)
}

type Noop struct{}

func (Noop) Get(context.Context, string) (*models.FileObject, bool) { return nil, false }
func (Noop) Set(context.Context, *models.FileObject)                {}
func (Noop) Invalidate(context.Context, string)                     {}
