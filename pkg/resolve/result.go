package resolve

import (
	"github.com/matzehuels/stacksolve/pkg/conflict"
	"github.com/matzehuels/stacksolve/pkg/graph"
	"github.com/matzehuels/stacksolve/pkg/metadata"
	"github.com/matzehuels/stacksolve/pkg/selector"
)

// Request describes what to resolve.
type Request struct {
	// Root is the path of the local project being resolved, such as ":app".
	// Its declared dependencies become edges of the root node. When empty
	// the root is a synthetic project holding only Dependencies.
	Root string

	// Dependencies are extra requirements attached to the root.
	Dependencies []selector.ComponentSelector
}

// RootPath is the project path of the synthetic root.
const RootPath = ":"

// Result is a resolved graph and what went wrong while building it.
type Result struct {
	// ID identifies the run in logs and metrics.
	ID string

	// Graph contains only nodes reachable from the root. Every edge is
	// resolved or failed.
	Graph *graph.Graph

	// Selections holds the final decision for every module reachable from
	// the root, ordered by module.
	Selections []conflict.Selection

	// Failures lists failed edges in traversal order.
	Failures []graph.Edge
}

// Succeeded reports whether every edge resolved.
func (r *Result) Succeeded() bool { return len(r.Failures) == 0 }

// Components returns the selected components in traversal order, root
// excluded.
func (r *Result) Components() []selector.ComponentIdentifier {
	var out []selector.ComponentIdentifier
	for _, id := range r.Graph.Reachable(graph.RootID) {
		if id == graph.RootID {
			continue
		}
		n, _ := r.Graph.Node(id)
		out = append(out, n.Component)
	}
	return out
}

// Metadata returns the provider metadata attached to a node.
func Metadata(n graph.Node) (*metadata.ComponentMetadata, bool) {
	m, ok := n.Metadata.(*metadata.ComponentMetadata)
	return m, ok && m != nil
}
