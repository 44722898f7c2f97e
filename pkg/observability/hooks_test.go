package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Resolve hooks
	r := NoopResolveHooks{}
	r.OnResolveStart(ctx, "run-1", 3)
	r.OnResolveComplete(ctx, "run-1", 10, 1, time.Second, nil)
	r.OnSelection(ctx, "org:lib", "1.5", 2, 0)
	r.OnConflict(ctx, "org:lib", []string{"{strictly 1.0}", "{strictly 2.0}"})

	// Artifact hooks
	a := NoopArtifactHooks{}
	a.OnArtifactResolved(ctx, "org:lib:1.5", "lib.jar")
	a.OnArtifactFailed(ctx, "org:lib:1.5", "lib-sources.jar", errors.New("missing"))

	// Metadata hooks
	m := NoopMetadataHooks{}
	m.OnFetch(ctx, "versions", "org:lib")
	m.OnFetchComplete(ctx, "versions", "org:lib", time.Millisecond, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "metadata")
	c.OnCacheMiss(ctx, "versions")
	c.OnCacheSet(ctx, "metadata", 1024)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Resolve().(NoopResolveHooks); !ok {
		t.Error("Resolve() should return NoopResolveHooks by default")
	}
	if _, ok := Artifact().(NoopArtifactHooks); !ok {
		t.Error("Artifact() should return NoopArtifactHooks by default")
	}
	if _, ok := Metadata().(NoopMetadataHooks); !ok {
		t.Error("Metadata() should return NoopMetadataHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	// Set custom hooks
	customResolve := &testResolveHooks{}
	SetResolveHooks(customResolve)
	if Resolve() != customResolve {
		t.Error("SetResolveHooks should set custom hooks")
	}

	customArtifact := &testArtifactHooks{}
	SetArtifactHooks(customArtifact)
	if Artifact() != customArtifact {
		t.Error("SetArtifactHooks should set custom hooks")
	}

	customMetadata := &testMetadataHooks{}
	SetMetadataHooks(customMetadata)
	if Metadata() != customMetadata {
		t.Error("SetMetadataHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Resolve().(NoopResolveHooks); !ok {
		t.Error("Reset() should restore NoopResolveHooks")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Reset() should restore NoopCacheHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testResolveHooks{}
	SetResolveHooks(custom)

	// Setting nil should be ignored
	SetResolveHooks(nil)

	if Resolve() != custom {
		t.Error("SetResolveHooks(nil) should be ignored")
	}

	Reset()
}

func TestPrometheusHooks(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	p := NewPrometheusHooks(reg)

	p.OnResolveStart(ctx, "run", 2)
	p.OnResolveComplete(ctx, "run", 12, 3, 250*time.Millisecond, nil)
	p.OnResolveComplete(ctx, "run", 4, 0, time.Millisecond, errors.New("conflict"))
	p.OnSelection(ctx, "org:a", "1.0", 2, 0)
	p.OnSelection(ctx, "org:b", "2.0", 1, 1)
	p.OnConflict(ctx, "org:c", []string{"1.0", "2.0"})
	p.OnArtifactResolved(ctx, "org:a:1.0", "a.jar")
	p.OnArtifactFailed(ctx, "org:a:1.0", "a-javadoc.jar", errors.New("missing"))
	p.OnArtifactFailed(ctx, "org:b:2.0", "b.jar", errors.New("missing"))
	p.OnFetchComplete(ctx, "versions", "org:a", time.Millisecond, nil)
	p.OnCacheHit(ctx, "metadata")
	p.OnCacheSet(ctx, "metadata", 100)
	p.OnCacheSet(ctx, "versions", 28)

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"ok runs", p.runs.WithLabelValues("ok"), 1},
		{"error runs", p.runs.WithLabelValues("error"), 1},
		{"failed edges", p.failedEdges, 3},
		{"clean selections", p.selections.WithLabelValues("clean"), 1},
		{"partial selections", p.selections.WithLabelValues("partial"), 1},
		{"conflict selections", p.selections.WithLabelValues("conflict"), 1},
		{"conflicts", p.conflicts, 1},
		{"resolved artifacts", p.artifacts.WithLabelValues("resolved"), 1},
		{"failed artifacts", p.artifacts.WithLabelValues("failed"), 2},
		{"fetches", p.fetches.WithLabelValues("versions", "ok"), 1},
		{"cache hits", p.cacheEvents.WithLabelValues("metadata", "hit"), 1},
		{"cache bytes", p.cacheBytes, 128},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(tt.c); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}

	expected := `
# HELP stacksolve_conflicts_total Modules whose strict constraints could not be reconciled
# TYPE stacksolve_conflicts_total counter
stacksolve_conflicts_total 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "stacksolve_conflicts_total"); err != nil {
		t.Error(err)
	}
}

func TestPrometheusHooksInstall(t *testing.T) {
	defer Reset()
	p := NewPrometheusHooks(prometheus.NewRegistry())
	p.Install()
	if Resolve() != p || Artifact() != p || Metadata() != p || Cache() != p {
		t.Error("Install should register every hook category")
	}
}

// Test implementations
type testResolveHooks struct{ NoopResolveHooks }
type testArtifactHooks struct{ NoopArtifactHooks }
type testMetadataHooks struct{ NoopMetadataHooks }
type testCacheHooks struct{ NoopCacheHooks }
