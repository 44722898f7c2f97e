package metadata

import (
	"context"
	stderrors "errors"

	"github.com/matzehuels/stacksolve/pkg/cache"
	"github.com/matzehuels/stacksolve/pkg/selector"
)

// Composite asks providers in order. The first provider that knows the
// module, component or project answers; a provider error other than
// "not found" stops the search.
type Composite struct {
	providers []Provider
}

// NewComposite combines providers. Nil providers are skipped.
func NewComposite(providers ...Provider) *Composite {
	c := &Composite{}
	for _, p := range providers {
		if p != nil {
			c.providers = append(c.providers, p)
		}
	}
	return c
}

func (c *Composite) Versions(ctx context.Context, module selector.ModuleIdentifier) ([]selector.Version, error) {
	return first(c.providers, func(p Provider) ([]selector.Version, error) { return p.Versions(ctx, module) },
		func() error { return notFound("module %s", module) })
}

func (c *Composite) Metadata(ctx context.Context, id selector.ComponentIdentifier) (*ComponentMetadata, error) {
	return first(c.providers, func(p Provider) (*ComponentMetadata, error) { return p.Metadata(ctx, id) },
		func() error { return notFound("component %s", id) })
}

func (c *Composite) Project(ctx context.Context, path string) (*ComponentMetadata, error) {
	return first(c.providers, func(p Provider) (*ComponentMetadata, error) { return p.Project(ctx, path) },
		func() error { return notFound("project %s", path) })
}

func first[T any](providers []Provider, call func(Provider) (T, error), missing func() error) (T, error) {
	var zero T
	for _, p := range providers {
		v, err := call(p)
		if err == nil {
			return v, nil
		}
		if !IsNotFound(err) {
			return zero, err
		}
	}
	return zero, missing()
}

// IsNotFound reports whether err means the provider does not know the
// requested module, component or project.
func IsNotFound(err error) bool {
	return stderrors.Is(err, cache.ErrNotFound)
}

var _ Provider = (*Composite)(nil)
