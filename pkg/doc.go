// Package pkg provides the core libraries for Stacksolve dependency resolution.
//
// # Overview
//
// Stacksolve resolves a set of requirements into a dependency graph where each
// module identity has exactly one selected version. The pkg directory is
// organized into three areas:
//
//  1. Core - selectors, the graph arena, conflict resolution, traversal and
//     artifact resolution. No I/O happens here.
//  2. Providers - catalogs and caches that answer "which versions exist" and
//     "what does this component depend on".
//  3. Outputs - reports, lockfiles and diagrams built as graph visitors.
//
// # Architecture
//
// The typical data flow through Stacksolve:
//
//	Catalog (TOML/YAML/JSON)
//	         ↓
//	    [metadata] package (provider, optionally cached by [cache])
//	         ↓
//	    [resolve] package (rounds of expansion + [conflict] resolution)
//	         ↓
//	    [graph] package (final edge states, pruned and validated)
//	         ↓
//	    [visit] traversal → [report] visitors and [artifact] resolution
//
// # Quick Start
//
//	cat, _ := metadata.LoadCatalog("catalog.toml")
//	lib, _ := selector.ParseModuleSelector("org.example:lib:[1.0,2.0)")
//
//	res, err := resolve.NewEngine(cat, resolve.Options{}).Resolve(ctx, resolve.Request{
//	    Dependencies: []selector.ComponentSelector{lib},
//	})
//	if res == nil {
//	    return err // canceled, timed out or the provider failed
//	}
//
//	problems := report.NewConflictReporter()
//	_ = resolve.Traverse(ctx, res, problems, report.NewLockfileWriter(os.Stdout))
//
// # Main Packages
//
// ## Core
//
// [selector] - Module and component identifiers, version rules (semver ranges,
// bracket ranges, exact versions) and version constraints with strict,
// preferred and rejected parts.
//
// [graph] - Arena-backed dependency graph. Edges move from pending to resolved
// or failed; failed edges carry their cause.
//
// [conflict] - Per-module version selection. Concurrent calls for one module
// are serialized; different modules proceed in parallel.
//
// [visit] - Visitor protocol and composite for walking a resolved graph.
//
// [artifact] - Artifact resolution with per-artifact failure isolation.
//
// [resolve] - The resolution engine tying the core together.
//
// ## Providers
//
// [metadata] - Provider interface, file catalogs, provider composition and
// the caching provider.
//
// [cache] - Cache backends: memory, file, Redis and MongoDB.
//
// ## Outputs
//
// [report] - Conflict reporter, TOML lockfile, HTML problems report, Graphviz
// export and the artifact collector.
//
// ## Support
//
// [errors] - Machine-readable error codes.
//
// [observability] - Hooks for resolution, artifact, metadata and cache events,
// with a Prometheus implementation.
//
// [deprecation] - One-time warnings for deprecated API.
//
// [selector]: https://pkg.go.dev/github.com/matzehuels/stacksolve/pkg/selector
// [graph]: https://pkg.go.dev/github.com/matzehuels/stacksolve/pkg/graph
// [conflict]: https://pkg.go.dev/github.com/matzehuels/stacksolve/pkg/conflict
// [visit]: https://pkg.go.dev/github.com/matzehuels/stacksolve/pkg/visit
// [artifact]: https://pkg.go.dev/github.com/matzehuels/stacksolve/pkg/artifact
// [resolve]: https://pkg.go.dev/github.com/matzehuels/stacksolve/pkg/resolve
// [metadata]: https://pkg.go.dev/github.com/matzehuels/stacksolve/pkg/metadata
// [cache]: https://pkg.go.dev/github.com/matzehuels/stacksolve/pkg/cache
// [report]: https://pkg.go.dev/github.com/matzehuels/stacksolve/pkg/report
// [errors]: https://pkg.go.dev/github.com/matzehuels/stacksolve/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/stacksolve/pkg/observability
// [deprecation]: https://pkg.go.dev/github.com/matzehuels/stacksolve/pkg/deprecation
package pkg
