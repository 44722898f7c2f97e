package visit

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/stacksolve/pkg/errors"
	"github.com/matzehuels/stacksolve/pkg/graph"
	"github.com/matzehuels/stacksolve/pkg/selector"
)

// recorder logs every call it receives into a shared log, prefixed with its
// name, and fails the configured call.
type recorder struct {
	name   string
	log    *[]string
	failOn string
	err    error
}

func (r *recorder) record(event string) error {
	*r.log = append(*r.log, r.name+":"+event)
	if r.failOn != "" && strings.HasPrefix(event, r.failOn) {
		return r.err
	}
	return nil
}

func label(n graph.Node) string {
	if n.IsRoot() {
		return "root"
	}
	return n.Component.Module.Name
}

func (r *recorder) Start(root graph.Node) error { return r.record("start") }
func (r *recorder) VisitNode(n graph.Node) error {
	return r.record("node " + label(n))
}
func (r *recorder) VisitEdges(n graph.Node, edges []graph.Edge) error {
	return r.record(fmt.Sprintf("edges %s %d", label(n), len(edges)))
}
func (r *recorder) Finish(root graph.Node) error { return r.record("finish") }
func (r *recorder) Abort(root graph.Node, cause error) {
	*r.log = append(*r.log, r.name+":abort "+cause.Error())
}

func module(name string) selector.ModuleIdentifier {
	return selector.NewModuleIdentifier("org", name)
}

// diamond builds root -> a, root -> b, a -> c, b -> c, with one failed edge
// from c.
func diamond(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New(selector.ProjectComponent(":app"))
	link := func(from graph.NodeID, name string) graph.NodeID {
		e, err := g.AddEdge(from, selector.NewModuleSelector(module(name), selector.Require("1.0")))
		if err != nil {
			t.Fatal(err)
		}
		to, _ := g.AddNode(selector.NewComponentIdentifier(module(name), "1.0"), nil)
		if err := g.ResolveEdge(e, to); err != nil {
			t.Fatal(err)
		}
		return to
	}
	a := link(graph.RootID, "a")
	b := link(graph.RootID, "b")
	c := link(a, "c")
	link(b, "c")
	e, _ := g.AddEdge(c, selector.NewModuleSelector(module("missing"), selector.Require("9.9")))
	_ = g.FailEdge(e, stderrors.New("not found"))
	return g
}

func TestWalkOrdering(t *testing.T) {
	var log []string
	if err := Walk(context.Background(), diamond(t), &recorder{name: "v", log: &log}); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"v:start",
		"v:node root", "v:node a", "v:node b", "v:node c",
		"v:edges root 2", "v:edges a 1", "v:edges b 1", "v:edges c 1",
		"v:finish",
	}
	if !slices.Equal(log, want) {
		t.Errorf("calls:\n got %v\nwant %v", log, want)
	}
}

func TestWalkContract(t *testing.T) {
	var log []string
	if err := Walk(context.Background(), diamond(t), &recorder{name: "v", log: &log}); err != nil {
		t.Fatal(err)
	}
	if log[0] != "v:start" || log[len(log)-1] != "v:finish" {
		t.Fatalf("start/finish not at the ends: %v", log)
	}
	nodeAt := map[string]int{}
	edgesAt := map[string]int{}
	for i, e := range log {
		switch {
		case strings.HasPrefix(e, "v:node "):
			n := strings.TrimPrefix(e, "v:node ")
			if _, dup := nodeAt[n]; dup {
				t.Errorf("VisitNode(%s) called twice", n)
			}
			nodeAt[n] = i
		case strings.HasPrefix(e, "v:edges "):
			n := strings.Fields(e)[1]
			if _, dup := edgesAt[n]; dup {
				t.Errorf("VisitEdges(%s) called twice", n)
			}
			edgesAt[n] = i
		}
	}
	for n, i := range nodeAt {
		j, ok := edgesAt[n]
		if !ok {
			t.Errorf("VisitEdges(%s) never called", n)
		} else if j < i {
			t.Errorf("VisitEdges(%s) before VisitNode", n)
		}
	}
}

func TestWalkEdgesAreFinal(t *testing.T) {
	v := Funcs{OnEdges: func(n graph.Node, edges []graph.Edge) error {
		for _, e := range edges {
			if !e.Final() {
				return fmt.Errorf("edge %d of %s is %s", e.ID, n.Component, e.State)
			}
		}
		return nil
	}}
	if err := Walk(context.Background(), diamond(t), v); err != nil {
		t.Error(err)
	}
}

func TestWalkRefusesPendingGraph(t *testing.T) {
	g := graph.New(selector.ProjectComponent(":app"))
	_, _ = g.AddEdge(graph.RootID, selector.NewModuleSelector(module("a"), selector.Require("1.0")))

	var log []string
	err := Walk(context.Background(), g, &recorder{name: "v", log: &log})
	if !errors.Is(err, errors.ErrCodeContractViolation) || !stderrors.Is(err, graph.ErrPendingEdge) {
		t.Errorf("err = %v, want contract violation wrapping ErrPendingEdge", err)
	}
	if len(log) != 0 {
		t.Errorf("visitor called on unresolved graph: %v", log)
	}
}

func TestCompositeFanOut(t *testing.T) {
	var log []string
	c := NewComposite(
		&recorder{name: "1", log: &log},
		nil,
		&recorder{name: "2", log: &log},
		&recorder{name: "3", log: &log},
	)
	if c.Len() != 3 {
		t.Fatalf("Len = %d", c.Len())
	}

	g := graph.New(selector.ProjectComponent(":app"))
	if err := Walk(context.Background(), g, c); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"1:start", "2:start", "3:start",
		"1:node root", "2:node root", "3:node root",
		"1:edges root 0", "2:edges root 0", "3:edges root 0",
		"1:finish", "2:finish", "3:finish",
	}
	if !slices.Equal(log, want) {
		t.Errorf("calls:\n got %v\nwant %v", log, want)
	}
}

func TestCompositeStopsAtFailingVisitor(t *testing.T) {
	boom := stderrors.New("boom")
	var log []string
	c := NewComposite(
		&recorder{name: "1", log: &log},
		&recorder{name: "2", log: &log, failOn: "node b", err: boom},
		&recorder{name: "3", log: &log},
	)

	err := Walk(context.Background(), diamond(t), c)
	if err != boom {
		t.Fatalf("err = %v, want the visitor's error unchanged", err)
	}
	want := []string{
		"1:start", "2:start", "3:start",
		"1:node root", "2:node root", "3:node root",
		"1:node a", "2:node a", "3:node a",
		"1:node b", "2:node b",
		"1:abort boom", "2:abort boom", "3:abort boom",
	}
	if !slices.Equal(log, want) {
		t.Errorf("calls:\n got %v\nwant %v", log, want)
	}
}

func TestWalkCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var log []string
	v := Funcs{
		OnNode: func(n graph.Node) error {
			log = append(log, "node "+label(n))
			if label(n) == "a" {
				cancel()
			}
			return nil
		},
		OnFinish: func(graph.Node) error {
			log = append(log, "finish")
			return nil
		},
		OnAbort: func(_ graph.Node, cause error) { log = append(log, "abort "+cause.Error()) },
	}
	err := Walk(ctx, diamond(t), v)
	if !stderrors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	want := []string{"node root", "node a", "abort context canceled"}
	if !slices.Equal(log, want) {
		t.Errorf("calls = %v, want %v", log, want)
	}
}

func TestFinishErrorDoesNotAbort(t *testing.T) {
	boom := stderrors.New("flush failed")
	aborted := false
	v := Funcs{
		OnFinish: func(graph.Node) error { return boom },
		OnAbort:  func(graph.Node, error) { aborted = true },
	}
	if err := Walk(context.Background(), diamond(t), v); err != boom {
		t.Errorf("err = %v", err)
	}
	if aborted {
		t.Error("Abort sent after Finish")
	}
}

func TestRegistry(t *testing.T) {
	var r Registry
	var log []string
	r.Register(&recorder{name: "1", log: &log})
	r.Register(nil)
	c := r.Composite()
	r.Register(&recorder{name: "2", log: &log})

	if r.Len() != 2 || c.Len() != 1 {
		t.Errorf("Len = %d, composite Len = %d", r.Len(), c.Len())
	}
	if err := c.Start(graph.Node{}); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(log, []string{"1:start"}) {
		t.Errorf("snapshot composite reached later registrations: %v", log)
	}
}

func TestNoopEmbedding(t *testing.T) {
	type nodeCounter struct {
		Noop
		n int
	}
	var count nodeCounter
	v := &visitorFunc{&count, func(graph.Node) { count.n++ }}
	if err := Walk(context.Background(), diamond(t), v); err != nil {
		t.Fatal(err)
	}
	if count.n != 4 {
		t.Errorf("visited %d nodes, want 4", count.n)
	}
}

type visitorFunc struct {
	Visitor
	onNode func(graph.Node)
}

func (v *visitorFunc) VisitNode(n graph.Node) error {
	v.onNode(n)
	return v.Visitor.VisitNode(n)
}
