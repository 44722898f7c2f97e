package graph

import (
	"errors"

	"github.com/matzehuels/stacksolve/pkg/selector"
)

var (
	// ErrUnknownNode is returned when a NodeID does not name a live node.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownEdge is returned when an EdgeID does not name a live edge.
	ErrUnknownEdge = errors.New("unknown edge")

	// ErrRootImmutable is returned by [Graph.RemoveNode] for the root node.
	ErrRootImmutable = errors.New("root node cannot be removed")

	// ErrRootTarget is returned by [Graph.ResolveEdge] when an edge would
	// point at the root. The root never has incoming edges.
	ErrRootTarget = errors.New("edges cannot target the root node")

	// ErrPendingEdge is returned by [Graph.Validate] when a reachable edge
	// has not reached a final state.
	ErrPendingEdge = errors.New("pending edge")

	// ErrDanglingEdge is returned by [Graph.Validate] when a resolved edge
	// points at a node that no longer exists.
	ErrDanglingEdge = errors.New("dangling edge")

	// ErrDuplicateModule is returned by [Graph.Validate] when two reachable
	// nodes share one module identity.
	ErrDuplicateModule = errors.New("module selected more than once")
)

// NodeID indexes a node in the graph arena. IDs are never reused.
type NodeID int

// EdgeID indexes an edge in the graph arena. IDs are never reused.
type EdgeID int

// RootID is the ID of the root node of every graph.
const RootID NodeID = 0

// NoNode is the target of an edge that has not been resolved.
const NoNode NodeID = -1

// EdgeState is the lifecycle state of a dependency edge.
type EdgeState int

const (
	// EdgePending edges have not been decided yet.
	EdgePending EdgeState = iota
	// EdgeResolved edges point at a selected node.
	EdgeResolved
	// EdgeFailed edges could not be satisfied or were excluded by conflict
	// resolution. Cause explains why.
	EdgeFailed
)

func (s EdgeState) String() string {
	switch s {
	case EdgePending:
		return "pending"
	case EdgeResolved:
		return "resolved"
	case EdgeFailed:
		return "failed"
	}
	return "unknown"
}

// Node is one selected component in the graph.
type Node struct {
	ID        NodeID
	Component selector.ComponentIdentifier

	// Metadata is the component metadata the node was expanded from. It is
	// opaque to this package.
	Metadata any
}

// IsRoot reports whether n is the root node.
func (n Node) IsRoot() bool { return n.ID == RootID }

// Edge is a dependency requirement from a node to a selector.
type Edge struct {
	ID       EdgeID
	From     NodeID
	Selector selector.ComponentSelector

	State EdgeState
	To    NodeID // NoNode unless State is EdgeResolved
	Cause error  // set when State is EdgeFailed
}

// Module returns the module identity the edge asks for, if it is a module
// selector.
func (e Edge) Module() (selector.ModuleIdentifier, bool) {
	if ms, ok := e.Selector.(selector.ModuleSelector); ok {
		return ms.Module, true
	}
	return selector.ModuleIdentifier{}, false
}

// Final reports whether the edge is resolved or failed.
func (e Edge) Final() bool { return e.State != EdgePending }
