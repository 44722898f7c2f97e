package visit

import (
	"context"

	"github.com/matzehuels/stacksolve/pkg/errors"
	"github.com/matzehuels/stacksolve/pkg/graph"
)

// Walk drives v over every node reachable from the root of g.
//
// Walk refuses graphs that fail [graph.Graph.Validate] (for example one with
// a pending edge) before calling anything on v. A visitor error or a done
// context stops the walk; Abort is sent to v when it implements Aborter, and
// the cause is returned unchanged. An error from Finish is returned without
// Abort.
func Walk(ctx context.Context, g *graph.Graph, v Visitor) error {
	if err := g.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeContractViolation, err, "graph is not fully resolved")
	}

	root := g.Root()
	order := g.Reachable(graph.RootID)
	nodes := make([]graph.Node, len(order))
	for i, id := range order {
		nodes[i], _ = g.Node(id)
	}

	stop := func(cause error) error {
		if a, ok := v.(Aborter); ok {
			a.Abort(root, cause)
		}
		return cause
	}
	call := func(fn func() error) error {
		if err := ctx.Err(); err != nil {
			return stop(err)
		}
		if err := fn(); err != nil {
			return stop(err)
		}
		return nil
	}

	if err := call(func() error { return v.Start(root) }); err != nil {
		return err
	}
	for _, n := range nodes {
		if err := call(func() error { return v.VisitNode(n) }); err != nil {
			return err
		}
	}
	for _, n := range nodes {
		edges := outgoing(g, n.ID)
		if err := call(func() error { return v.VisitEdges(n, edges) }); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return stop(err)
	}
	return v.Finish(root)
}

func outgoing(g *graph.Graph, id graph.NodeID) []graph.Edge {
	ids := g.OutgoingEdges(id)
	edges := make([]graph.Edge, 0, len(ids))
	for _, eid := range ids {
		if e, ok := g.Edge(eid); ok {
			edges = append(edges, e)
		}
	}
	return edges
}
