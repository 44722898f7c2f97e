package graph

import (
	"fmt"
	"slices"

	"github.com/matzehuels/stacksolve/pkg/selector"
)

type nodeSlot struct {
	node    Node
	out     []EdgeID
	in      []EdgeID
	removed bool
}

type edgeSlot struct {
	edge    Edge
	removed bool
}

// Graph is an arena of nodes and edges with a distinguished root.
//
// Nodes are deduplicated by component identity, so a diamond in the declared
// dependencies produces one shared node. Edges reference nodes by index,
// which keeps cycles in declared dependencies harmless.
//
// The zero value is not usable - use New to create a Graph.
// Graph is not safe for concurrent use without external synchronization.
type Graph struct {
	nodes []nodeSlot
	edges []edgeSlot
	index map[selector.ComponentIdentifier]NodeID
	live  int
	liveE int
}

// New creates a graph whose root node represents the resolution request.
func New(root selector.ComponentIdentifier) *Graph {
	g := &Graph{index: make(map[selector.ComponentIdentifier]NodeID)}
	g.nodes = append(g.nodes, nodeSlot{node: Node{ID: RootID, Component: root}})
	g.index[root] = RootID
	g.live = 1
	return g
}

// Root returns the root node.
func (g *Graph) Root() Node { return g.nodes[RootID].node }

// AddNode returns the node for component c, creating it if needed. created
// reports whether a new node was added. meta is only stored on creation.
func (g *Graph) AddNode(c selector.ComponentIdentifier, meta any) (id NodeID, created bool) {
	if id, ok := g.index[c]; ok {
		return id, false
	}
	id = NodeID(len(g.nodes))
	g.nodes = append(g.nodes, nodeSlot{node: Node{ID: id, Component: c, Metadata: meta}})
	g.index[c] = id
	g.live++
	return id, true
}

// Lookup returns the node for component c.
func (g *Graph) Lookup(c selector.ComponentIdentifier) (NodeID, bool) {
	id, ok := g.index[c]
	return id, ok
}

// Node returns the node with the given ID.
func (g *Graph) Node(id NodeID) (Node, bool) {
	s := g.slot(id)
	if s == nil {
		return Node{}, false
	}
	return s.node, true
}

// SetMetadata replaces the metadata attached to a node.
func (g *Graph) SetMetadata(id NodeID, meta any) error {
	s := g.slot(id)
	if s == nil {
		return ErrUnknownNode
	}
	s.node.Metadata = meta
	return nil
}

// AddEdge adds a pending edge from the node to sel.
func (g *Graph) AddEdge(from NodeID, sel selector.ComponentSelector) (EdgeID, error) {
	s := g.slot(from)
	if s == nil {
		return 0, ErrUnknownNode
	}
	id := EdgeID(len(g.edges))
	g.edges = append(g.edges, edgeSlot{edge: Edge{ID: id, From: from, Selector: sel, To: NoNode}})
	s.out = append(s.out, id)
	g.liveE++
	return id, nil
}

// Edge returns the edge with the given ID.
func (g *Graph) Edge(id EdgeID) (Edge, bool) {
	s := g.edgeSlot(id)
	if s == nil {
		return Edge{}, false
	}
	return s.edge, true
}

// ResolveEdge points the edge at a node. An edge may be re-resolved; it is
// detached from its previous target first.
func (g *Graph) ResolveEdge(id EdgeID, to NodeID) error {
	e := g.edgeSlot(id)
	if e == nil {
		return ErrUnknownEdge
	}
	if to == RootID {
		return ErrRootTarget
	}
	target := g.slot(to)
	if target == nil {
		return ErrUnknownNode
	}
	if e.edge.State == EdgeResolved && e.edge.To == to {
		return nil
	}
	g.detach(e)
	e.edge.State = EdgeResolved
	e.edge.To = to
	e.edge.Cause = nil
	target.in = append(target.in, id)
	return nil
}

// FailEdge marks the edge failed with cause, detaching it from any target.
func (g *Graph) FailEdge(id EdgeID, cause error) error {
	e := g.edgeSlot(id)
	if e == nil {
		return ErrUnknownEdge
	}
	g.detach(e)
	e.edge.State = EdgeFailed
	e.edge.Cause = cause
	return nil
}

// ResetEdge returns the edge to the pending state.
func (g *Graph) ResetEdge(id EdgeID) error {
	e := g.edgeSlot(id)
	if e == nil {
		return ErrUnknownEdge
	}
	g.detach(e)
	e.edge.State = EdgePending
	e.edge.Cause = nil
	return nil
}

func (g *Graph) detach(e *edgeSlot) {
	if e.edge.State == EdgeResolved {
		if t := g.slot(e.edge.To); t != nil {
			t.in = slices.DeleteFunc(t.in, func(x EdgeID) bool { return x == e.edge.ID })
		}
	}
	e.edge.To = NoNode
}

// OutgoingEdges returns the node's own dependency edges in declaration order.
func (g *Graph) OutgoingEdges(id NodeID) []EdgeID {
	s := g.slot(id)
	if s == nil {
		return nil
	}
	return slices.Clone(s.out)
}

// IncomingEdges returns the resolved edges that point at the node, in the
// order they were resolved.
func (g *Graph) IncomingEdges(id NodeID) []EdgeID {
	s := g.slot(id)
	if s == nil {
		return nil
	}
	return slices.Clone(s.in)
}

// Reachable returns every node reachable from the given node over resolved
// edges, in breadth-first order starting with from itself. Each node appears
// once, even when the declared dependencies contain cycles.
func (g *Graph) Reachable(from NodeID) []NodeID {
	if g.slot(from) == nil {
		return nil
	}
	seen := map[NodeID]bool{from: true}
	order := []NodeID{from}
	for i := 0; i < len(order); i++ {
		for _, eid := range g.nodes[order[i]].out {
			e := g.edges[eid].edge
			if e.State != EdgeResolved || seen[e.To] {
				continue
			}
			seen[e.To] = true
			order = append(order, e.To)
		}
	}
	return order
}

// RemoveNode deletes a node together with its outgoing edges. Edges that
// pointed at the node return to the pending state.
func (g *Graph) RemoveNode(id NodeID) error {
	if id == RootID {
		return ErrRootImmutable
	}
	s := g.slot(id)
	if s == nil {
		return ErrUnknownNode
	}
	for _, eid := range s.out {
		e := &g.edges[eid]
		g.detach(e)
		e.removed = true
		g.liveE--
	}
	for _, eid := range slices.Clone(s.in) {
		e := &g.edges[eid]
		g.detach(e)
		e.edge.State = EdgePending
	}
	s.out, s.in = nil, nil
	s.removed = true
	delete(g.index, s.node.Component)
	g.live--
	return nil
}

// Nodes returns the IDs of all live nodes in creation order.
func (g *Graph) Nodes() []NodeID {
	out := make([]NodeID, 0, g.live)
	for i := range g.nodes {
		if !g.nodes[i].removed {
			out = append(out, NodeID(i))
		}
	}
	return out
}

// Edges returns the IDs of all live edges in creation order.
func (g *Graph) Edges() []EdgeID {
	out := make([]EdgeID, 0, g.liveE)
	for i := range g.edges {
		if !g.edges[i].removed {
			out = append(out, EdgeID(i))
		}
	}
	return out
}

// NodeCount returns the number of live nodes, including the root.
func (g *Graph) NodeCount() int { return g.live }

// EdgeCount returns the number of live edges.
func (g *Graph) EdgeCount() int { return g.liveE }

// Validate checks the invariants of a resolved graph over the nodes
// reachable from the root: every edge has a final state, every resolved edge
// points at a live node, and no module identity is selected twice.
func (g *Graph) Validate() error {
	owner := make(map[selector.ModuleIdentifier]NodeID)
	for _, id := range g.Reachable(RootID) {
		n := g.nodes[id].node
		if id != RootID && !n.Component.IsProject() {
			if prev, ok := owner[n.Component.Module]; ok {
				return fmt.Errorf("%w: %s at nodes %d and %d", ErrDuplicateModule, n.Component.Module, prev, id)
			}
			owner[n.Component.Module] = id
		}
		for _, eid := range g.nodes[id].out {
			e := g.edges[eid].edge
			switch e.State {
			case EdgePending:
				return fmt.Errorf("%w: %d from %s to %s", ErrPendingEdge, eid, n.Component, e.Selector.DisplayName())
			case EdgeResolved:
				if g.slot(e.To) == nil {
					return fmt.Errorf("%w: %d from %s", ErrDanglingEdge, eid, n.Component)
				}
			}
		}
	}
	return nil
}

func (g *Graph) slot(id NodeID) *nodeSlot {
	if id < 0 || int(id) >= len(g.nodes) || g.nodes[id].removed {
		return nil
	}
	return &g.nodes[id]
}

func (g *Graph) edgeSlot(id EdgeID) *edgeSlot {
	if id < 0 || int(id) >= len(g.edges) || g.edges[id].removed {
		return nil
	}
	return &g.edges[id]
}
