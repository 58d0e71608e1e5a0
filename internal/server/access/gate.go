// Package access decides who may read a private file.
package access

import (
	"github.com/dmitrijs2005/gophfiles/internal/common"
	"github.com/dmitrijs2005/gophfiles/internal/server/models"
)

// Capability reports whether p may read the private object f. p may be nil
// for anonymous requests.
type Capability func(p *models.Principal, f *models.FileObject) bool

// OwnerOnly allows exactly the owner of the object.
func OwnerOnly(p *models.Principal, f *models.FileObject) bool {
	return p != nil && p.UserID != "" && p.UserID == f.OwnerID
}

// Gate applies a Capability to private objects. Public objects always pass.
type Gate struct {
	allow   Capability
	conceal bool
}

type Option func(*Gate)

// WithCapability replaces OwnerOnly.
func WithCapability(c Capability) Option {
	return func(g *Gate) { g.allow = c }
}

// WithConcealment makes denials indistinguishable from a missing object.
func WithConcealment(conceal bool) Option {
	return func(g *Gate) { g.conceal = conceal }
}

func NewGate(opts ...Option) *Gate {
	g := &Gate{allow: OwnerOnly}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Check returns nil when p may read f, common.ErrorForbidden otherwise
// (common.ErrorNotFound with concealment on).
func (g *Gate) Check(p *models.Principal, f *models.FileObject) error {
	if !f.Private || g.allow(p, f) {
		return nil
	}
	if g.conceal {
		return common.ErrorNotFound
	}
	return common.ErrorForbidden
}
