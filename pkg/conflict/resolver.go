package conflict

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stacksolve/pkg/observability"
	"github.com/matzehuels/stacksolve/pkg/selector"
)

// Resolver serializes conflict resolution per module identity and publishes
// only complete decisions. Decisions for different modules run concurrently.
type Resolver struct {
	locks  KeyLock[selector.ModuleIdentifier]
	logger *log.Logger

	mu        sync.RWMutex
	published map[selector.ModuleIdentifier]Selection
}

// NewResolver returns a Resolver. A nil logger discards output.
func NewResolver(logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Resolver{logger: logger, published: make(map[selector.ModuleIdentifier]Selection)}
}

// Resolve decides module from the complete set of contributions known to the
// caller. Calls for the same module are serialized; the decision is visible
// through Selection only after it is complete. Hooks fire when the decision
// for a module changes.
func (r *Resolver) Resolve(ctx context.Context, module selector.ModuleIdentifier, available []selector.Version, contributions []Contribution) (Selection, error) {
	if err := ctx.Err(); err != nil {
		return Selection{}, err
	}
	unlock := r.locks.Lock(module)
	defer unlock()

	sel := Select(module, available, contributions)

	r.mu.Lock()
	prev, seen := r.published[module]
	r.published[module] = sel
	r.mu.Unlock()

	if seen && sameDecision(prev, sel) {
		return sel, nil
	}
	var conflict *ConflictError
	switch {
	case errors.As(sel.Err, &conflict):
		constraints := make([]string, len(conflict.Constraints))
		for i, vc := range conflict.Constraints {
			constraints[i] = vc.String()
		}
		r.logger.Warn("version conflict", "module", module, "constraints", constraints)
		observability.Resolve().OnConflict(ctx, module.String(), constraints)
	case sel.Selected():
		r.logger.Debug("selected", "module", module, "version", sel.Version, "accepted", len(sel.Accepted), "rejected", len(sel.Rejected))
		observability.Resolve().OnSelection(ctx, module.String(), sel.Version.String(), len(sel.Accepted), len(sel.Rejected))
	default:
		r.logger.Debug("no version selected", "module", module, "err", sel.Err)
	}
	return sel, nil
}

// Selection returns the last published decision for module.
func (r *Resolver) Selection(module selector.ModuleIdentifier) (Selection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.published[module]
	return s, ok
}

// Selections returns every published decision ordered by module.
func (r *Resolver) Selections() []Selection {
	r.mu.RLock()
	out := make([]Selection, 0, len(r.published))
	for _, s := range r.published {
		out = append(out, s)
	}
	r.mu.RUnlock()
	slices.SortFunc(out, func(a, b Selection) int { return a.Module.Compare(b.Module) })
	return out
}

// Forget drops the published decision for module.
func (r *Resolver) Forget(module selector.ModuleIdentifier) {
	unlock := r.locks.Lock(module)
	defer unlock()
	r.mu.Lock()
	delete(r.published, module)
	r.mu.Unlock()
}

func sameDecision(a, b Selection) bool {
	if a.Version.String() != b.Version.String() || len(a.Accepted) != len(b.Accepted) || len(a.Rejected) != len(b.Rejected) {
		return false
	}
	if (a.Err == nil) != (b.Err == nil) {
		return false
	}
	return a.Err == nil || a.Err.Error() == b.Err.Error()
}
