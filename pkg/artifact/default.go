package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ContentResolver locates the content of one artifact. It performs the
// actual I/O. Missing artifacts are reported with an error wrapping
// ErrNotFound.
type ContentResolver interface {
	Locate(ctx context.Context, id Identifier) (location string, err error)
}

// ContentFunc adapts a function to ContentResolver.
type ContentFunc func(ctx context.Context, id Identifier) (string, error)

func (f ContentFunc) Locate(ctx context.Context, id Identifier) (string, error) { return f(ctx, id) }

// DefaultResolver resolves artifacts declared on a component through a
// ContentResolver.
type DefaultResolver struct {
	content ContentResolver
}

// NewDefaultResolver returns a resolver backed by content.
func NewDefaultResolver(content ContentResolver) *DefaultResolver {
	return &DefaultResolver{content: content}
}

// ResolveOne records a missing artifact as a failed result and returns any
// other content error.
func (r *DefaultResolver) ResolveOne(ctx context.Context, c Component, a Name, result *Result) error {
	id := Identifier{Component: c.ID, Name: a}
	loc, err := r.content.Locate(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return result.Failed(&ResolveError{Artifact: id, Cause: err})
	}
	if err != nil {
		return err
	}
	return result.Resolved(File{ID: id, Location: loc})
}

// ResolveByType resolves every declared artifact of artifactType. The batch
// fails as a whole when one of them is missing; other content errors are
// returned.
func (r *DefaultResolver) ResolveByType(ctx context.Context, c Component, artifactType string, result *MultipleResult) error {
	var files []File
	for _, a := range c.Artifacts {
		if a.Type != artifactType {
			continue
		}
		id := Identifier{Component: c.ID, Name: a}
		loc, err := r.content.Locate(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return result.Failed(&ResolveError{Artifact: id, Cause: err})
		}
		if err != nil {
			return err
		}
		files = append(files, File{ID: id, Location: loc})
	}
	return result.Resolved(files)
}

// DirContent finds artifacts in a directory laid out as
// <root>/<group>/<name>/<version>/<file>.
type DirContent struct {
	Root string
}

func (d DirContent) Locate(ctx context.Context, id Identifier) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m := id.Component.Module
	path := filepath.Join(d.Root, m.Group, m.Name, id.Component.Version, id.Name.String())
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	return path, nil
}

var (
	_ Resolver        = (*DefaultResolver)(nil)
	_ ContentResolver = DirContent{}
	_ ContentResolver = ContentFunc(nil)
)
