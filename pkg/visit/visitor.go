// Package visit defines how observers watch one traversal of a resolved
// graph.
//
// A [Visitor] receives four kinds of calls. [Walk] guarantees their order:
//
//  1. Start(root), exactly once.
//  2. VisitNode(n) once for every reachable node, root first, breadth-first.
//  3. VisitEdges(n, edges) once for every node, in the same order, after
//     every VisitNode call, so every edge target has already been visited.
//     Edges passed here are final (resolved or failed).
//  4. Finish(root), exactly once, last.
//
// If the traversal stops early (a callback fails or the context is done),
// Finish is not called; visitors that also implement [Aborter] receive Abort
// instead. Callbacks for one traversal are never concurrent.
//
// [Composite] fans every call out to several visitors in registration order.
// A failing visitor stops the fan-out for that call and its error reaches the
// caller unchanged.
package visit

import "github.com/matzehuels/stacksolve/pkg/graph"

// Visitor observes one traversal of a resolved graph.
type Visitor interface {
	Start(root graph.Node) error
	VisitNode(node graph.Node) error
	VisitEdges(node graph.Node, edges []graph.Edge) error
	Finish(root graph.Node) error
}

// Aborter is implemented by visitors that want to know when a traversal
// stops before Finish.
type Aborter interface {
	Abort(root graph.Node, cause error)
}

// Noop implements Visitor with methods that do nothing. Embed it to
// implement only the calls you need.
type Noop struct{}

func (Noop) Start(graph.Node) error                    { return nil }
func (Noop) VisitNode(graph.Node) error                { return nil }
func (Noop) VisitEdges(graph.Node, []graph.Edge) error { return nil }
func (Noop) Finish(graph.Node) error                   { return nil }

// Funcs adapts plain functions to Visitor. Nil fields do nothing.
type Funcs struct {
	OnStart  func(root graph.Node) error
	OnNode   func(node graph.Node) error
	OnEdges  func(node graph.Node, edges []graph.Edge) error
	OnFinish func(root graph.Node) error
	OnAbort  func(root graph.Node, cause error)
}

func (f Funcs) Start(root graph.Node) error {
	if f.OnStart == nil {
		return nil
	}
	return f.OnStart(root)
}

func (f Funcs) VisitNode(node graph.Node) error {
	if f.OnNode == nil {
		return nil
	}
	return f.OnNode(node)
}

func (f Funcs) VisitEdges(node graph.Node, edges []graph.Edge) error {
	if f.OnEdges == nil {
		return nil
	}
	return f.OnEdges(node, edges)
}

func (f Funcs) Finish(root graph.Node) error {
	if f.OnFinish == nil {
		return nil
	}
	return f.OnFinish(root)
}

func (f Funcs) Abort(root graph.Node, cause error) {
	if f.OnAbort != nil {
		f.OnAbort(root, cause)
	}
}

var (
	_ Visitor = Noop{}
	_ Visitor = Funcs{}
	_ Aborter = Funcs{}
)
