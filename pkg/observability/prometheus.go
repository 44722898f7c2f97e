package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusHooks implements every hook interface with Prometheus collectors.
//
// Collectors are registered on the registerer given to NewPrometheusHooks, so
// tests and the CLI can use a private registry instead of the global one.
type PrometheusHooks struct {
	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	graphNodes    prometheus.Histogram
	failedEdges   prometheus.Counter
	selections    *prometheus.CounterVec
	conflicts     prometheus.Counter
	artifacts     *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	cacheEvents   *prometheus.CounterVec
	cacheBytes    prometheus.Counter
}

// NewPrometheusHooks creates the collectors and registers them on reg.
func NewPrometheusHooks(reg prometheus.Registerer) *PrometheusHooks {
	f := promauto.With(reg)
	return &PrometheusHooks{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stacksolve_resolve_runs_total",
			Help: "Resolution runs by result",
		}, []string{"result"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "stacksolve_resolve_duration_seconds",
			Help:    "Resolution run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}),
		graphNodes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "stacksolve_resolve_graph_nodes",
			Help:    "Number of nodes in resolved graphs",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
		}),
		failedEdges: f.NewCounter(prometheus.CounterOpts{
			Name: "stacksolve_resolve_failed_edges_total",
			Help: "Dependency edges left failed after resolution",
		}),
		selections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stacksolve_conflict_selections_total",
			Help: "Per-module conflict resolution decisions by outcome",
		}, []string{"outcome"}),
		conflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "stacksolve_conflicts_total",
			Help: "Modules whose strict constraints could not be reconciled",
		}),
		artifacts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stacksolve_artifacts_total",
			Help: "Artifact resolution outcomes",
		}, []string{"result"}),
		fetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stacksolve_metadata_fetch_total",
			Help: "Metadata provider requests by kind and result",
		}, []string{"kind", "result"}),
		fetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stacksolve_metadata_fetch_duration_seconds",
			Help:    "Metadata provider request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"kind"}),
		cacheEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stacksolve_cache_events_total",
			Help: "Cache events by key type and event",
		}, []string{"key_type", "event"}),
		cacheBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "stacksolve_cache_written_bytes_total",
			Help: "Bytes written to the cache",
		}),
	}
}

func (p *PrometheusHooks) OnResolveStart(context.Context, string, int) {}

func (p *PrometheusHooks) OnResolveComplete(_ context.Context, _ string, nodeCount, failedEdges int, d time.Duration, err error) {
	p.runs.WithLabelValues(result(err)).Inc()
	p.runDuration.Observe(d.Seconds())
	p.graphNodes.Observe(float64(nodeCount))
	p.failedEdges.Add(float64(failedEdges))
}

func (p *PrometheusHooks) OnSelection(_ context.Context, _, _ string, _, rejected int) {
	outcome := "clean"
	if rejected > 0 {
		outcome = "partial"
	}
	p.selections.WithLabelValues(outcome).Inc()
}

func (p *PrometheusHooks) OnConflict(context.Context, string, []string) {
	p.selections.WithLabelValues("conflict").Inc()
	p.conflicts.Inc()
}

func (p *PrometheusHooks) OnArtifactResolved(context.Context, string, string) {
	p.artifacts.WithLabelValues("resolved").Inc()
}

func (p *PrometheusHooks) OnArtifactFailed(context.Context, string, string, error) {
	p.artifacts.WithLabelValues("failed").Inc()
}

func (p *PrometheusHooks) OnFetch(context.Context, string, string) {}

func (p *PrometheusHooks) OnFetchComplete(_ context.Context, kind, _ string, d time.Duration, err error) {
	p.fetches.WithLabelValues(kind, result(err)).Inc()
	p.fetchDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (p *PrometheusHooks) OnCacheHit(_ context.Context, keyType string) {
	p.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (p *PrometheusHooks) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (p *PrometheusHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cacheEvents.WithLabelValues(keyType, "set").Inc()
	p.cacheBytes.Add(float64(size))
}

// Install registers p for every hook category.
func (p *PrometheusHooks) Install() {
	SetResolveHooks(p)
	SetArtifactHooks(p)
	SetMetadataHooks(p)
	SetCacheHooks(p)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var (
	_ ResolveHooks  = (*PrometheusHooks)(nil)
	_ ArtifactHooks = (*PrometheusHooks)(nil)
	_ MetadataHooks = (*PrometheusHooks)(nil)
	_ CacheHooks    = (*PrometheusHooks)(nil)
)
