package report

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/matzehuels/stacksolve/pkg/artifact"
	"github.com/matzehuels/stacksolve/pkg/conflict"
	"github.com/matzehuels/stacksolve/pkg/errors"
	"github.com/matzehuels/stacksolve/pkg/graph"
	"github.com/matzehuels/stacksolve/pkg/metadata"
	"github.com/matzehuels/stacksolve/pkg/selector"
	"github.com/matzehuels/stacksolve/pkg/visit"
)

var (
	modA = selector.NewModuleIdentifier("org", "a")
	modB = selector.NewModuleIdentifier("org", "b")
	modC = selector.NewModuleIdentifier("org", "c")
	modD = selector.NewModuleIdentifier("org", "d")
)

// sample builds root -> a:1.0, root -> b:2.0, a -> c (conflict), b -> d (unsatisfiable).
func sample(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New(selector.ProjectComponent(":app"))

	a, _ := g.AddNode(selector.NewComponentIdentifier(modA, "1.0"), &metadata.ComponentMetadata{
		ID:        selector.NewComponentIdentifier(modA, "1.0"),
		Artifacts: []artifact.Name{{Name: "a", Type: "jar", Extension: "jar"}},
	})
	b, _ := g.AddNode(selector.NewComponentIdentifier(modB, "2.0"), &metadata.ComponentMetadata{
		ID:        selector.NewComponentIdentifier(modB, "2.0"),
		Artifacts: []artifact.Name{{Name: "b", Type: "jar", Extension: "jar"}},
	})

	ra, _ := g.AddEdge(graph.RootID, selector.NewModuleSelector(modA, selector.Require("1.0")))
	rb, _ := g.AddEdge(graph.RootID, selector.NewModuleSelector(modB, selector.Require("^2.0")))
	ac, _ := g.AddEdge(a, selector.NewModuleSelector(modC, selector.Strictly("1.0")))
	bd, _ := g.AddEdge(b, selector.NewModuleSelector(modD, selector.Require("9.0")))

	must(t, g.ResolveEdge(ra, a))
	must(t, g.ResolveEdge(rb, b))
	must(t, g.FailEdge(ac, &conflict.ConflictError{Module: modC, Constraints: []selector.VersionConstraint{selector.Strictly("1.0"), selector.Strictly("2.0")}}))
	must(t, g.FailEdge(bd, errors.New(errors.ErrCodeUnsatisfiable, "no version of org:d satisfies 9.0")))
	return g
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func TestConflictReporter(t *testing.T) {
	r := NewConflictReporter()
	if err := visit.Walk(context.Background(), sample(t), r); err != nil {
		t.Fatalf("Walk: %v", err)
	}

	problems := r.Problems()
	if len(problems) != 2 {
		t.Fatalf("problems = %d, want 2", len(problems))
	}
	if p := problems[0]; p.From != "org:a:1.0" || p.Requested != "org:c:{strictly 1.0}" || !p.Conflict || p.Code != errors.ErrCodeVersionConflict {
		t.Errorf("first problem = %+v", p)
	}
	if p := problems[1]; p.Conflict || p.Code != errors.ErrCodeUnsatisfiable || p.Message != "no version of org:d satisfies 9.0" {
		t.Errorf("second problem = %+v", p)
	}
	if c := r.Conflicts(); len(c) != 1 || c[0].Requested != "org:c:{strictly 1.0}" {
		t.Errorf("Conflicts = %+v", c)
	}
}

func TestLockfileWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := visit.Walk(context.Background(), sample(t), NewLockfileWriter(&buf)); err != nil {
		t.Fatalf("Walk: %v", err)
	}

	lf, err := DecodeLockfile(&buf)
	if err != nil {
		t.Fatalf("DecodeLockfile: %v", err)
	}
	if lf.Root != "project :app" {
		t.Errorf("Root = %q", lf.Root)
	}
	want := []LockedComponent{{Module: "org:a", Version: "1.0"}, {Module: "org:b", Version: "2.0"}}
	if len(lf.Components) != len(want) {
		t.Fatalf("Components = %+v, want %+v", lf.Components, want)
	}
	for i := range want {
		if lf.Components[i] != want[i] {
			t.Errorf("Components[%d] = %+v, want %+v", i, lf.Components[i], want[i])
		}
	}
}

func TestLockfileWriterAbortWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	boom := stderrors.New("boom")
	lock := NewLockfileWriter(&buf)
	failing := visit.Funcs{OnEdges: func(graph.Node, []graph.Edge) error { return boom }}

	err := visit.Walk(context.Background(), sample(t), visit.NewComposite(lock, failing))
	if !stderrors.Is(err, boom) {
		t.Fatalf("Walk = %v, want boom", err)
	}
	if buf.Len() != 0 {
		t.Errorf("aborted lockfile wrote %q", buf.String())
	}
	if len(lock.Lockfile().Components) != 0 {
		t.Error("Abort should drop collected entries")
	}
}

func TestProblemsReport(t *testing.T) {
	var buf bytes.Buffer
	r := NewProblemsReport(&buf, "")
	if err := visit.Walk(context.Background(), sample(t), r); err != nil {
		t.Fatalf("Walk: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"<title>Dependency resolution problems</title>",
		`<script type="application/json" id="report-data">`,
		`"status":"complete"`,
		`"root":"project :app"`,
		`class="conflict"`,
		"no version of org:d satisfies 9.0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
	m := r.Model()
	if m.Nodes != 3 || len(m.Diagnostics) != 2 {
		t.Errorf("model = %+v", m)
	}
}

func TestProblemsReportAborted(t *testing.T) {
	var buf bytes.Buffer
	r := NewProblemsReport(&buf, "Run 42")
	ctx, cancel := context.WithCancel(context.Background())
	stop := visit.Funcs{OnNode: func(n graph.Node) error {
		if !n.IsRoot() {
			cancel()
		}
		return nil
	}}

	err := visit.Walk(ctx, sample(t), visit.NewComposite(r, stop))
	if !stderrors.Is(err, context.Canceled) {
		t.Fatalf("Walk = %v, want context.Canceled", err)
	}
	if r.Err() != nil {
		t.Fatalf("write: %v", r.Err())
	}
	out := buf.String()
	if !strings.Contains(out, `"status":"aborted"`) || !strings.Contains(out, "Resolution was aborted") {
		t.Errorf("aborted report:\n%s", out)
	}
	if !strings.Contains(out, "<title>Run 42</title>") {
		t.Error("custom title missing")
	}
}

func TestDotWriter(t *testing.T) {
	dot, err := ToDOT(context.Background(), sample(t))
	if err != nil {
		t.Fatalf("ToDOT: %v", err)
	}
	for _, want := range []string{
		"digraph G {",
		`n0 [label="project :app", fillcolor=lightblue];`,
		`n1 [label="org:a:1.0"];`,
		"n0 -> n1;",
		"n0 -> n2;",
		`f2 [label="org:c:{strictly 1.0}"`,
		"n1 -> f2 [style=dashed, color=red];",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if !strings.HasSuffix(dot, "}\n") {
		t.Error("DOT not closed")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.00 50.00" width="100" height="50"><g/></svg>`
	if out != want {
		t.Errorf("normalizeViewBox = %s, want %s", out, want)
	}

	plain := []byte("<svg><g/></svg>")
	if got := normalizeViewBox(plain); !bytes.Equal(got, plain) {
		t.Errorf("svg without viewBox changed: %s", got)
	}
}

func TestArtifactCollector(t *testing.T) {
	content := artifact.ContentFunc(func(_ context.Context, id artifact.Identifier) (string, error) {
		if id.Component.Module == modA {
			return "/repo/a.jar", nil
		}
		return "", artifact.ErrNotFound
	})
	c := NewArtifactCollector(context.Background(), artifact.NewDefaultResolver(content), artifact.Options{Workers: 2})

	if err := visit.Walk(context.Background(), sample(t), c); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(c.Components()) != 2 {
		t.Fatalf("components = %d, want 2", len(c.Components()))
	}
	rep := c.Report()
	if files := rep.Files(); len(files) != 1 || files[0].Location != "/repo/a.jar" {
		t.Errorf("files = %+v", files)
	}
	failures := rep.Failures()
	if len(failures) != 1 {
		t.Fatalf("failures = %v", failures)
	}
	var re *artifact.ResolveError
	if !stderrors.As(failures[0], &re) || re.Artifact.Component.Module != modB {
		t.Errorf("failure = %v", failures[0])
	}
}

func TestArtifactCollectorCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	content := artifact.ContentFunc(func(context.Context, artifact.Identifier) (string, error) { return "x", nil })
	c := NewArtifactCollector(ctx, artifact.NewDefaultResolver(content), artifact.Options{})

	err := visit.Walk(context.Background(), sample(t), c)
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("Walk = %v, want context.Canceled", err)
	}
}
