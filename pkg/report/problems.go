// Package report turns a resolved graph into outputs people read: problem
// lists, lockfiles, HTML reports, Graphviz diagrams and resolved artifacts.
//
// Every type here is a visit.Visitor. Register several of them on one
// traversal with resolve.Traverse:
//
//	problems := report.NewConflictReporter()
//	lock := report.NewLockfileWriter(f)
//	err := resolve.Traverse(ctx, res, problems, lock)
//
// Writers that produce files buffer their output and write it at Finish, so
// an aborted traversal never leaves a half-written lockfile behind.
package report

import (
	stderrors "errors"

	"github.com/matzehuels/stacksolve/pkg/conflict"
	"github.com/matzehuels/stacksolve/pkg/errors"
	"github.com/matzehuels/stacksolve/pkg/graph"
	"github.com/matzehuels/stacksolve/pkg/visit"
)

// Problem describes one failed edge.
type Problem struct {
	Edge      graph.EdgeID `json:"edge"`
	From      string       `json:"from"`
	Requested string       `json:"requested"`
	Code      errors.Code  `json:"code"`
	Message   string       `json:"message"`
	Conflict  bool         `json:"conflict"`
}

func problemOf(from graph.Node, e graph.Edge) Problem {
	p := Problem{
		Edge:      e.ID,
		From:      from.Component.String(),
		Requested: e.Selector.DisplayName(),
		Code:      errors.GetCode(e.Cause),
	}
	if e.Cause != nil {
		p.Message = errors.UserMessage(e.Cause)
	}
	var ce *conflict.ConflictError
	p.Conflict = stderrors.As(e.Cause, &ce)
	return p
}

// ConflictReporter collects every failed edge of a traversal.
type ConflictReporter struct {
	visit.Noop
	problems []Problem
}

// NewConflictReporter creates an empty reporter.
func NewConflictReporter() *ConflictReporter { return &ConflictReporter{} }

func (r *ConflictReporter) Start(graph.Node) error {
	r.problems = nil
	return nil
}

func (r *ConflictReporter) VisitEdges(node graph.Node, edges []graph.Edge) error {
	for _, e := range edges {
		if e.State == graph.EdgeFailed {
			r.problems = append(r.problems, problemOf(node, e))
		}
	}
	return nil
}

// Problems returns the failed edges in traversal order.
func (r *ConflictReporter) Problems() []Problem { return r.problems }

// Conflicts returns only the problems caused by version conflicts.
func (r *ConflictReporter) Conflicts() []Problem {
	var out []Problem
	for _, p := range r.problems {
		if p.Conflict {
			out = append(out, p)
		}
	}
	return out
}
