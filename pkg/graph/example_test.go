package graph_test

import (
	"fmt"

	"github.com/matzehuels/stacksolve/pkg/graph"
	"github.com/matzehuels/stacksolve/pkg/selector"
)

func ExampleGraph_diamond() {
	// root -> a, root -> b, a -> c, b -> c: c is shared
	g := graph.New(selector.ProjectComponent(":app"))
	mod := func(name string) selector.ModuleIdentifier { return selector.NewModuleIdentifier("org", name) }

	require := func(from graph.NodeID, name, version string) graph.NodeID {
		e, _ := g.AddEdge(from, selector.NewModuleSelector(mod(name), selector.Require(version)))
		to, _ := g.AddNode(selector.NewComponentIdentifier(mod(name), version), nil)
		_ = g.ResolveEdge(e, to)
		return to
	}
	a := require(graph.RootID, "a", "1.0")
	b := require(graph.RootID, "b", "1.0")
	c := require(a, "c", "1.5")
	require(b, "c", "1.5")

	fmt.Println("Nodes:", g.NodeCount())
	fmt.Println("Edges into c:", len(g.IncomingEdges(c)))
	for _, id := range g.Reachable(graph.RootID) {
		n, _ := g.Node(id)
		fmt.Println(n.Component)
	}
	// Output:
	// Nodes: 4
	// Edges into c: 2
	// project :app
	// org:a:1.0
	// org:b:1.0
	// org:c:1.5
}

func ExampleGraph_Validate() {
	g := graph.New(selector.ProjectComponent(":app"))
	lib := selector.NewModuleIdentifier("org", "lib")
	_, _ = g.AddEdge(graph.RootID, selector.NewModuleSelector(lib, selector.Require("1.0")))

	fmt.Println(g.Validate())
	// Output:
	// pending edge: 0 from project :app to org:lib:1.0
}
