package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// =============================================================================
// Serialization types
// =============================================================================

// Document is the JSON form of a graph.
//
//	{
//	  "root": 0,
//	  "nodes": [{"id": 0, "name": ":app", "project": true}, ...],
//	  "edges": [{"id": 0, "from": 0, "to": 1, "selector": "org:lib:1.0", "state": "resolved"}]
//	}
type Document struct {
	Root  NodeID     `json:"root"`
	Nodes []NodeJSON `json:"nodes"`
	Edges []EdgeJSON `json:"edges"`
}

// NodeJSON is the JSON form of a node.
type NodeJSON struct {
	ID      NodeID `json:"id"`
	Group   string `json:"group,omitempty"`
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Project bool   `json:"project,omitempty"`
}

// EdgeJSON is the JSON form of an edge.
type EdgeJSON struct {
	ID       EdgeID  `json:"id"`
	From     NodeID  `json:"from"`
	To       *NodeID `json:"to,omitempty"`
	Selector string  `json:"selector"`
	State    string  `json:"state"`
	Cause    string  `json:"cause,omitempty"`
}

// ToDocument converts every live node and edge of g.
func ToDocument(g *Graph) Document {
	doc := Document{
		Root:  RootID,
		Nodes: make([]NodeJSON, 0, g.NodeCount()),
		Edges: make([]EdgeJSON, 0, g.EdgeCount()),
	}
	for _, id := range g.Nodes() {
		n, _ := g.Node(id)
		doc.Nodes = append(doc.Nodes, NodeJSON{
			ID:      id,
			Group:   n.Component.Module.Group,
			Name:    n.Component.Module.Name,
			Version: n.Component.Version,
			Project: n.Component.IsProject(),
		})
	}
	for _, id := range g.Edges() {
		e, _ := g.Edge(id)
		ej := EdgeJSON{ID: id, From: e.From, Selector: e.Selector.DisplayName(), State: e.State.String()}
		if e.State == EdgeResolved {
			to := e.To
			ej.To = &to
		}
		if e.Cause != nil {
			ej.Cause = e.Cause.Error()
		}
		doc.Edges = append(doc.Edges, ej)
	}
	return doc
}

// =============================================================================
// Graph Serialization API
// =============================================================================

// MarshalGraph converts a graph to indented JSON bytes.
func MarshalGraph(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteGraph(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGraph writes a graph as JSON to an io.Writer.
func WriteGraph(g *Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ToDocument(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteGraphFile writes a graph to a JSON file.
func WriteGraphFile(g *Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteGraph(g, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
