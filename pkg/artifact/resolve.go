package artifact

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/stacksolve/pkg/errors"
	"github.com/matzehuels/stacksolve/pkg/observability"
)

// DefaultWorkers bounds concurrent artifact resolution.
const DefaultWorkers = 8

// Options configures ResolveComponents.
type Options struct {
	Workers int      // concurrent resolutions, DefaultWorkers if <= 0
	Types   []string // artifact types to resolve with ResolveByType
}

// Outcome is the result of one ResolveOne call.
type Outcome struct {
	ID     Identifier
	Result *Result
}

// TypeOutcome is the result of one ResolveByType call.
type TypeOutcome struct {
	Component Component
	Type      string
	Result    *MultipleResult
}

// Report collects every outcome of ResolveComponents in input order.
type Report struct {
	Artifacts []Outcome
	ByType    []TypeOutcome
}

// Files returns every resolved file, single artifacts first.
func (r *Report) Files() []File {
	var out []File
	for _, o := range r.Artifacts {
		if f, ok := o.Result.File(); ok {
			out = append(out, f)
		}
	}
	for _, o := range r.ByType {
		out = append(out, o.Result.Files()...)
	}
	return out
}

// Failures returns the causes of every failed single-artifact result.
func (r *Report) Failures() []error {
	var out []error
	for _, o := range r.Artifacts {
		if o.Result.State() == Failed {
			out = append(out, o.Result.Err())
		}
	}
	for _, o := range r.ByType {
		if o.Result.State() == Failed {
			out = append(out, o.Result.Err())
		}
	}
	return out
}

// ResolveComponents resolves every declared artifact of every component
// with ResolveOne, and every requested type with ResolveByType, running up
// to opts.Workers calls at once.
//
// An error returned by the resolver aborts the remaining work and is
// returned unchanged together with the partial report. A ResolveOne call
// that returns nil without writing its result is reported as a contract
// violation. Wrap r in an ErrorHandlingResolver to keep missing or broken
// artifacts from aborting the run.
func ResolveComponents(ctx context.Context, r Resolver, comps []Component, opts Options) (*Report, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	rep := &Report{}
	for _, c := range comps {
		for _, a := range c.Artifacts {
			rep.Artifacts = append(rep.Artifacts, Outcome{ID: Identifier{Component: c.ID, Name: a}, Result: &Result{}})
		}
		for _, t := range opts.Types {
			rep.ByType = append(rep.ByType, TypeOutcome{Component: c, Type: t, Result: &MultipleResult{}})
		}
	}

	byID := make(map[Identifier]Component, len(comps))
	for _, c := range comps {
		for _, a := range c.Artifacts {
			byID[Identifier{Component: c.ID, Name: a}] = c
		}
	}

	hooks := observability.Artifact()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, o := range rep.Artifacts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := r.ResolveOne(gctx, byID[o.ID], o.ID.Name, o.Result); err != nil {
				return err
			}
			switch o.Result.State() {
			case Resolved:
				hooks.OnArtifactResolved(gctx, o.ID.Component.String(), o.ID.Name.String())
			case Failed:
				hooks.OnArtifactFailed(gctx, o.ID.Component.String(), o.ID.Name.String(), o.Result.Err())
			default:
				return errors.New(errors.ErrCodeContractViolation, "resolver left result for %s empty", o.ID)
			}
			return nil
		})
	}
	for _, o := range rep.ByType {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := r.ResolveByType(gctx, o.Component, o.Type, o.Result); err != nil {
				return err
			}
			if !o.Result.HasResult() {
				return errors.New(errors.ErrCodeContractViolation, "resolver left %s artifacts of %s empty", o.Type, o.Component.ID)
			}
			return nil
		})
	}
	return rep, g.Wait()
}
