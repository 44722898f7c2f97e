package artifact

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stacksolve/pkg/errors"
	"github.com/matzehuels/stacksolve/pkg/observability"
	"github.com/matzehuels/stacksolve/pkg/selector"
)

var (
	libID = selector.NewComponentIdentifier(selector.NewModuleIdentifier("org", "lib"), "1.0")
	jar   = Name{Name: "lib", Type: "jar", Extension: "jar"}
	srcs  = Name{Name: "lib", Type: "source", Extension: "jar", Classifier: "sources"}
	docs  = Name{Name: "lib", Type: "javadoc", Extension: "jar", Classifier: "javadoc"}
	lib   = Component{ID: libID, Artifacts: []Name{jar, srcs, docs}}
)

// stubResolver is a Resolver with scripted behaviour.
type stubResolver struct {
	one    func(ctx context.Context, c Component, a Name, result *Result) error
	byType func(ctx context.Context, c Component, t string, result *MultipleResult) error
}

func (s *stubResolver) ResolveOne(ctx context.Context, c Component, a Name, result *Result) error {
	return s.one(ctx, c, a, result)
}

func (s *stubResolver) ResolveByType(ctx context.Context, c Component, t string, result *MultipleResult) error {
	return s.byType(ctx, c, t, result)
}

func TestResultWriteOnce(t *testing.T) {
	var r Result
	assert.Equal(t, Empty, r.State())
	assert.False(t, r.HasResult())

	f := File{ID: Identifier{Component: libID, Name: jar}, Location: "/repo/lib.jar"}
	require.NoError(t, r.Resolved(f))
	assert.ErrorIs(t, r.Resolved(f), ErrResultAlreadySet)
	assert.ErrorIs(t, r.Failed(stderrors.New("late")), ErrResultAlreadySet)

	got, ok := r.File()
	assert.True(t, ok)
	assert.Equal(t, f, got)
	assert.NoError(t, r.Err())
	assert.Equal(t, Resolved, r.State())
}

func TestResultConcurrentWriters(t *testing.T) {
	var r Result
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				err = r.Resolved(File{Location: fmt.Sprint(i)})
			} else {
				err = r.Failed(fmt.Errorf("%d", i))
			}
			if err == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load(), "exactly one writer must win")
}

func TestMultipleResult(t *testing.T) {
	var r MultipleResult
	files := []File{{Location: "a"}, {Location: "b"}}
	require.NoError(t, r.Resolved(files))
	files[0].Location = "mutated"
	assert.Equal(t, "a", r.Files()[0].Location, "result must own its batch")
	assert.ErrorIs(t, r.Failed(stderrors.New("x")), ErrResultAlreadySet)

	var f MultipleResult
	require.NoError(t, f.Failed(stderrors.New("boom")))
	assert.Equal(t, Failed, f.State())
	assert.EqualError(t, f.Err(), "boom")
	assert.Empty(t, f.Files())
}

func TestErrorHandlingResolverIsolatesResolveOneError(t *testing.T) {
	fault := stderrors.New("index corrupted")
	w := NewErrorHandlingResolver(&stubResolver{
		one: func(context.Context, Component, Name, *Result) error { return fault },
	})

	var r Result
	require.NoError(t, w.ResolveOne(context.Background(), lib, jar, &r))
	require.Equal(t, Failed, r.State())

	var re *ResolveError
	require.ErrorAs(t, r.Err(), &re)
	assert.Equal(t, Identifier{Component: libID, Name: jar}, re.Artifact)
	assert.Same(t, fault, re.Cause)
	assert.ErrorIs(t, r.Err(), fault)
	assert.Equal(t, errors.ErrCodeArtifactResolve, errors.GetCode(r.Err()))
	assert.Equal(t, "could not resolve artifact org:lib:1.0 lib.jar: index corrupted", re.Error())
}

func TestErrorHandlingResolverIsolatesPanic(t *testing.T) {
	w := NewErrorHandlingResolver(&stubResolver{
		one: func(context.Context, Component, Name, *Result) error {
			var m map[string]int
			m["boom"]++ // nil map write
			return nil
		},
	})

	var r Result
	assert.NotPanics(t, func() {
		assert.NoError(t, w.ResolveOne(context.Background(), lib, srcs, &r))
	})
	var re *ResolveError
	require.ErrorAs(t, r.Err(), &re)
	assert.Equal(t, srcs, re.Artifact.Name)
	assert.Error(t, re.Cause)

	// Non-error panic values are wrapped too.
	w = NewErrorHandlingResolver(&stubResolver{
		one: func(context.Context, Component, Name, *Result) error { panic("unexpected") },
	})
	var r2 Result
	require.NoError(t, w.ResolveOne(context.Background(), lib, srcs, &r2))
	assert.EqualError(t, stderrors.Unwrap(r2.Err()), "panic: unexpected")
}

func TestErrorHandlingResolverKeepsExistingOutcome(t *testing.T) {
	w := NewErrorHandlingResolver(&stubResolver{
		one: func(_ context.Context, c Component, a Name, r *Result) error {
			_ = r.Resolved(File{ID: Identifier{Component: c.ID, Name: a}, Location: "x"})
			return stderrors.New("post-processing failed")
		},
	})
	var r Result
	require.NoError(t, w.ResolveOne(context.Background(), lib, jar, &r))
	assert.Equal(t, Resolved, r.State())
}

func TestErrorHandlingResolverPassesThroughResolveByType(t *testing.T) {
	fault := stderrors.New("cannot enumerate")
	w := NewErrorHandlingResolver(&stubResolver{
		byType: func(context.Context, Component, string, *MultipleResult) error { return fault },
	})

	var r MultipleResult
	err := w.ResolveByType(context.Background(), lib, "source", &r)
	assert.Same(t, fault, err, "error must propagate unchanged")
	assert.Equal(t, Empty, r.State(), "failure must not be recorded")

	w = NewErrorHandlingResolver(&stubResolver{
		byType: func(context.Context, Component, string, *MultipleResult) error { panic("bug") },
	})
	assert.PanicsWithValue(t, "bug", func() {
		_ = w.ResolveByType(context.Background(), lib, "source", &MultipleResult{})
	})
}

func mapContent(files map[string]string) ContentFunc {
	return func(_ context.Context, id Identifier) (string, error) {
		if loc, ok := files[id.Name.String()]; ok {
			return loc, nil
		}
		return "", fmt.Errorf("%s: %w", id, ErrNotFound)
	}
}

func TestDefaultResolver(t *testing.T) {
	r := NewDefaultResolver(mapContent(map[string]string{
		"lib.jar":         "/repo/lib.jar",
		"lib-sources.jar": "/repo/lib-sources.jar",
	}))
	ctx := context.Background()

	var ok Result
	require.NoError(t, r.ResolveOne(ctx, lib, jar, &ok))
	f, resolved := ok.File()
	assert.True(t, resolved)
	assert.Equal(t, "/repo/lib.jar", f.Location)

	var missing Result
	require.NoError(t, r.ResolveOne(ctx, lib, docs, &missing))
	assert.Equal(t, Failed, missing.State())
	assert.ErrorIs(t, missing.Err(), ErrNotFound)

	var sources MultipleResult
	require.NoError(t, r.ResolveByType(ctx, lib, "source", &sources))
	require.Len(t, sources.Files(), 1)
	assert.Equal(t, srcs, sources.Files()[0].ID.Name)

	var none MultipleResult
	require.NoError(t, r.ResolveByType(ctx, lib, "pom", &none))
	assert.Equal(t, Resolved, none.State())
	assert.Empty(t, none.Files())

	var javadoc MultipleResult
	require.NoError(t, r.ResolveByType(ctx, lib, "javadoc", &javadoc))
	assert.Equal(t, Failed, javadoc.State())
}

func TestDefaultResolverReturnsUnexpectedErrors(t *testing.T) {
	fault := stderrors.New("disk on fire")
	r := NewDefaultResolver(ContentFunc(func(context.Context, Identifier) (string, error) { return "", fault }))

	var res Result
	assert.Same(t, fault, r.ResolveOne(context.Background(), lib, jar, &res))
	assert.Equal(t, Empty, res.State())

	var multi MultipleResult
	assert.Same(t, fault, r.ResolveByType(context.Background(), lib, "jar", &multi))
}

func TestDirContent(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "org", "lib", "1.0")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.jar"), []byte("PK"), 0o644))

	d := DirContent{Root: root}
	ctx := context.Background()
	loc, err := d.Locate(ctx, Identifier{Component: libID, Name: jar})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "lib.jar"), loc)

	_, err = d.Locate(ctx, Identifier{Component: libID, Name: srcs})
	assert.ErrorIs(t, err, ErrNotFound)
}

type artifactCounter struct {
	observability.NoopArtifactHooks
	resolved, failed atomic.Int32
}

func (h *artifactCounter) OnArtifactResolved(context.Context, string, string) { h.resolved.Add(1) }
func (h *artifactCounter) OnArtifactFailed(context.Context, string, string, error) {
	h.failed.Add(1)
}

func TestResolveComponentsIsolatesFailures(t *testing.T) {
	hooks := &artifactCounter{}
	observability.SetArtifactHooks(hooks)
	defer observability.Reset()

	other := Component{
		ID:        selector.NewComponentIdentifier(selector.NewModuleIdentifier("org", "other"), "2.0"),
		Artifacts: []Name{{Name: "other", Type: "jar", Extension: "jar"}},
	}
	delegate := NewDefaultResolver(ContentFunc(func(_ context.Context, id Identifier) (string, error) {
		switch id.Name.String() {
		case "lib-javadoc.jar":
			return "", fmt.Errorf("%w: javadoc", ErrNotFound)
		case "other.jar":
			panic("resolver bug")
		}
		return "/repo/" + id.Name.String(), nil
	}))

	rep, err := ResolveComponents(context.Background(), NewErrorHandlingResolver(delegate), []Component{lib, other}, Options{Workers: 2, Types: []string{"source"}})
	require.NoError(t, err)
	require.Len(t, rep.Artifacts, 4)
	require.Len(t, rep.ByType, 2)

	assert.Len(t, rep.Files(), 3, "lib.jar, lib-sources.jar and the sources batch")
	assert.Len(t, rep.Failures(), 2)
	assert.Equal(t, int32(2), hooks.resolved.Load())
	assert.Equal(t, int32(2), hooks.failed.Load())
	for i, o := range rep.Artifacts {
		assert.True(t, o.Result.HasResult(), "artifact %d left empty", i)
	}
}

func TestResolveComponentsAbortsOnContractViolation(t *testing.T) {
	fault := stderrors.New("enumeration bug")
	r := NewErrorHandlingResolver(&stubResolver{
		one: func(_ context.Context, c Component, a Name, res *Result) error {
			return res.Resolved(File{ID: Identifier{Component: c.ID, Name: a}})
		},
		byType: func(context.Context, Component, string, *MultipleResult) error { return fault },
	})

	_, err := ResolveComponents(context.Background(), r, []Component{lib}, Options{Types: []string{"source"}})
	assert.Same(t, fault, err)
}

func TestResolveComponentsEmptyResultIsViolation(t *testing.T) {
	r := &stubResolver{one: func(context.Context, Component, Name, *Result) error { return nil }}
	_, err := ResolveComponents(context.Background(), r, []Component{lib}, Options{Workers: 1})
	assert.True(t, errors.Is(err, errors.ErrCodeContractViolation), "err = %v", err)
}

func TestResolveComponentsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &stubResolver{one: func(context.Context, Component, Name, *Result) error {
		t.Error("resolver called after cancellation")
		return nil
	}}
	_, err := ResolveComponents(ctx, r, []Component{lib}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNameString(t *testing.T) {
	assert.Equal(t, "lib.jar", jar.String())
	assert.Equal(t, "lib-sources.jar", srcs.String())
	assert.Equal(t, "README", Name{Name: "README"}.String())
	assert.Equal(t, "failed", Failed.String())
}
