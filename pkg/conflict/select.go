package conflict

import (
	"fmt"
	"strings"

	"github.com/matzehuels/stacksolve/pkg/errors"
	"github.com/matzehuels/stacksolve/pkg/graph"
	"github.com/matzehuels/stacksolve/pkg/selector"
)

// Contribution is one edge's constraint on a module.
type Contribution struct {
	Edge       graph.EdgeID
	Constraint selector.VersionConstraint
}

// Rejection is an edge that does not get the selected version, with the reason.
type Rejection struct {
	Edge  graph.EdgeID
	Cause error
}

// Selection is the outcome of conflict resolution for one module.
type Selection struct {
	Module selector.ModuleIdentifier

	// Version is the winning version; zero when nothing was selected.
	Version selector.Version

	// Accepted edges are satisfied by Version.
	Accepted []graph.EdgeID

	// Rejected edges must be marked failed with their cause.
	Rejected []Rejection

	// Err is a *ConflictError when strict constraints could not be
	// reconciled, an UNSATISFIABLE error when no available version fits,
	// or nil.
	Err error
}

// Selected reports whether a version was chosen.
func (s Selection) Selected() bool { return !s.Version.IsZero() }

// Component returns the identifier of the selected component.
func (s Selection) Component() selector.ComponentIdentifier {
	return selector.NewComponentIdentifier(s.Module, s.Version.String())
}

// ConflictError reports strict constraints on one module that cannot be
// reconciled.
type ConflictError struct {
	Module      selector.ModuleIdentifier
	Constraints []selector.VersionConstraint
}

func (e *ConflictError) Error() string {
	parts := make([]string, len(e.Constraints))
	for i, c := range e.Constraints {
		parts[i] = c.String()
	}
	return fmt.Sprintf("version conflict on %s: %s", e.Module, strings.Join(parts, " vs "))
}

// Code implements errors.Coded.
func (e *ConflictError) Code() errors.Code { return errors.ErrCodeVersionConflict }

type compiled struct {
	edge    graph.EdgeID
	c       selector.VersionConstraint
	matcher selector.Matcher
}

// Select picks the version of module used by every contributing edge.
//
// Invalid constraints fail only their own edge. Strict constraints pinning
// different versions produce a *ConflictError and no selection. Otherwise the
// candidates are the available versions that no constraint rejects, that
// every strict constraint accepts, and that at least one edge requires.
// Candidates satisfying the most non-strict requirements rank first, and the
// highest such version wins. Preferred versions only break ties between versions that
// compare equal. Edges whose constraint does not accept the winner are
// rejected, which leaves the module partially resolved.
//
// Select is pure: its result depends only on its arguments.
func Select(module selector.ModuleIdentifier, available []selector.Version, contributions []Contribution) Selection {
	sel := Selection{Module: module}

	var valid []compiled
	for _, c := range contributions {
		m, err := c.Constraint.Compile()
		if err != nil {
			sel.Rejected = append(sel.Rejected, Rejection{Edge: c.Edge, Cause: err})
			continue
		}
		valid = append(valid, compiled{edge: c.Edge, c: c.Constraint, matcher: m})
	}
	if len(valid) == 0 {
		return sel
	}

	var strict []compiled
	for _, v := range valid {
		if v.matcher.Strict() {
			strict = append(strict, v)
		}
	}
	if pinsDisagree(strict) {
		return failAll(sel, valid, conflictOf(module, strict))
	}

	var candidates []selector.Version
	for _, v := range available {
		if acceptable(v, valid, strict) {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		if len(strict) > 1 {
			return failAll(sel, valid, conflictOf(module, strict))
		}
		return failAll(sel, valid, errors.New(errors.ErrCodeUnsatisfiable,
			"no version of %s satisfies %s", module, describe(valid)))
	}

	winner := rank(candidates, valid)
	sel.Version = winner
	for _, v := range valid {
		if v.matcher.Satisfies(winner) {
			sel.Accepted = append(sel.Accepted, v.edge)
			continue
		}
		sel.Rejected = append(sel.Rejected, Rejection{
			Edge: v.edge,
			Cause: errors.New(errors.ErrCodeUnsatisfiable,
				"%s %s does not accept selected version %s", module, v.c, winner),
		})
	}
	return sel
}

func pinsDisagree(strict []compiled) bool {
	var first selector.Version
	for _, s := range strict {
		pin, ok := s.matcher.Pin()
		if !ok {
			continue
		}
		if first.IsZero() {
			first = pin
			continue
		}
		if selector.Compare(first, pin) != 0 {
			return true
		}
	}
	return false
}

// acceptable reports whether v survives every rejection and every strict
// requirement, and is wanted by at least one edge.
func acceptable(v selector.Version, valid, strict []compiled) bool {
	wanted := false
	for _, c := range valid {
		if c.matcher.Rejects(v) {
			return false
		}
		wanted = wanted || c.matcher.Requires(v)
	}
	for _, s := range strict {
		if !s.matcher.Requires(v) {
			return false
		}
	}
	return wanted
}

// rank returns the best candidate: highest score, then highest version, then
// a preferred version, then the lowest original text.
func rank(candidates []selector.Version, valid []compiled) selector.Version {
	var preferred []selector.Version
	for _, c := range valid {
		if p, ok := c.matcher.Preferred(); ok {
			preferred = append(preferred, p)
		}
	}

	best, bestScore := candidates[0], score(candidates[0], valid)
	for _, v := range candidates[1:] {
		s := score(v, valid)
		switch {
		case s > bestScore:
		case s < bestScore:
			continue
		case selector.Compare(v, best) > 0:
		case selector.Compare(v, best) < 0:
			continue
		case isPreferred(v, preferred) && !isPreferred(best, preferred):
		case isPreferred(best, preferred) && !isPreferred(v, preferred):
			continue
		case v.String() < best.String():
		default:
			continue
		}
		best, bestScore = v, s
	}
	return best
}

func score(v selector.Version, valid []compiled) int {
	n := 0
	for _, c := range valid {
		if !c.matcher.Strict() && c.matcher.HasRequired() && c.matcher.Requires(v) {
			n++
		}
	}
	return n
}

func isPreferred(v selector.Version, preferred []selector.Version) bool {
	for _, p := range preferred {
		if selector.Compare(v, p) == 0 && (p.Metadata() == "" || p.Metadata() == v.Metadata()) {
			return true
		}
	}
	return false
}

func failAll(sel Selection, valid []compiled, cause error) Selection {
	for _, v := range valid {
		sel.Rejected = append(sel.Rejected, Rejection{Edge: v.edge, Cause: cause})
	}
	sel.Err = cause
	return sel
}

func conflictOf(module selector.ModuleIdentifier, strict []compiled) *ConflictError {
	e := &ConflictError{Module: module}
	for _, s := range strict {
		e.Constraints = append(e.Constraints, s.c)
	}
	return e
}

func describe(valid []compiled) string {
	parts := make([]string, len(valid))
	for i, v := range valid {
		parts[i] = v.c.String()
	}
	return strings.Join(parts, ", ")
}
