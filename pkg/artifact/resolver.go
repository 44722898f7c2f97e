package artifact

import (
	"context"
	"fmt"
)

// Resolver resolves artifacts of a component.
//
// ResolveOne writes the outcome of resolving one artifact into result. A
// missing artifact is an expected outcome and is recorded with result.Failed;
// a returned error means the resolver itself failed.
//
// ResolveByType resolves every artifact of artifactType. A returned error is
// a contract violation.
type Resolver interface {
	ResolveOne(ctx context.Context, c Component, a Name, result *Result) error
	ResolveByType(ctx context.Context, c Component, artifactType string, result *MultipleResult) error
}

// ErrorHandlingResolver isolates failures of ResolveOne.
type ErrorHandlingResolver struct {
	delegate Resolver
}

// NewErrorHandlingResolver wraps delegate.
func NewErrorHandlingResolver(delegate Resolver) *ErrorHandlingResolver {
	return &ErrorHandlingResolver{delegate: delegate}
}

// ResolveOne calls the delegate and converts a returned error or a panic into
// a failed result carrying a *ResolveError. It always returns nil. When the
// delegate already wrote the slot, that outcome is kept.
func (r *ErrorHandlingResolver) ResolveOne(ctx context.Context, c Component, a Name, result *Result) (err error) {
	id := Identifier{Component: c.ID, Name: a}
	defer func() {
		if p := recover(); p != nil {
			cause, ok := p.(error)
			if !ok {
				cause = fmt.Errorf("panic: %v", p)
			}
			_ = result.Failed(&ResolveError{Artifact: id, Cause: cause})
			err = nil
		}
	}()
	if derr := r.delegate.ResolveOne(ctx, c, a, result); derr != nil {
		_ = result.Failed(&ResolveError{Artifact: id, Cause: derr})
	}
	return nil
}

// ResolveByType calls the delegate unchanged. Errors and panics propagate.
func (r *ErrorHandlingResolver) ResolveByType(ctx context.Context, c Component, artifactType string, result *MultipleResult) error {
	return r.delegate.ResolveByType(ctx, c, artifactType, result)
}

var _ Resolver = (*ErrorHandlingResolver)(nil)
