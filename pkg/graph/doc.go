// Package graph provides the resolved dependency graph: an arena of component
// nodes and dependency edges hanging off a distinguished root.
//
// # Overview
//
// Every graph starts with a root node (ID [RootID]) that stands for the
// resolution request itself. Requirements are added as edges from a node to
// a [selector.ComponentSelector]. An edge starts [EdgePending] and later
// becomes [EdgeResolved] (pointing at a selected node) or [EdgeFailed]
// (carrying the cause).
//
//	g := graph.New(selector.ProjectComponent(":app"))
//	e, _ := g.AddEdge(graph.RootID, sel)
//	lib, _ := g.AddNode(selector.NewComponentIdentifier(mod, "1.5"), nil)
//	_ = g.ResolveEdge(e, lib)
//
// # Identity and deduplication
//
// Nodes are keyed by [selector.ComponentIdentifier]. [Graph.AddNode] returns
// the existing node when the same (module, version) is added twice, so
// diamonds share one node. Nodes and edges are referenced by [NodeID] and
// [EdgeID] indices rather than pointers, and cycles in declared dependencies
// are harmless: [Graph.Reachable] visits each node once.
//
// # Validation
//
// [Graph.Validate] checks a finished graph: every reachable edge has a final
// state, resolved edges point at live nodes, and no module identity is
// selected twice.
//
// # Serialization
//
// [WriteGraph], [MarshalGraph] and [WriteGraphFile] export the graph as JSON
// with edge states and failure causes.
package graph
