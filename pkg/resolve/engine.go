// Package resolve builds a resolved dependency graph from a root request.
//
// The engine grows the graph in rounds. Each round expands the dependencies
// of newly selected components, fetches what the provider knows about the
// modules they mention, and reruns conflict resolution for every module
// identity that has live edges. A module's decision may change when a new
// edge reaches it, which can orphan the previously selected node; orphaned
// nodes stop contributing constraints and are pruned at the end. Rounds
// repeat until nothing changes. A dependency cycle can make a decision flip
// back and forth between rounds; the engine detects the repeated state and
// keeps the constraints of every node that took part in the loop.
//
// Provider requests for independent modules run concurrently; conflict
// resolution runs concurrently across module identities and is serialized
// per identity by [conflict.Resolver]. The graph itself is only touched by
// the goroutine running Resolve.
//
// Failures are scoped: an unsatisfiable or conflicting module fails its
// edges, and everything that does not depend on it still resolves. Resolve
// reports version conflicts in the final graph as a VERSION_CONFLICT error
// returned together with the partial result.
package resolve

import (
	"context"
	stderrors "errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/stacksolve/pkg/conflict"
	"github.com/matzehuels/stacksolve/pkg/errors"
	"github.com/matzehuels/stacksolve/pkg/graph"
	"github.com/matzehuels/stacksolve/pkg/metadata"
	"github.com/matzehuels/stacksolve/pkg/observability"
	"github.com/matzehuels/stacksolve/pkg/selector"
)

// Engine resolves requests against a metadata provider.
// An Engine is safe for concurrent use; each Resolve call is independent.
type Engine struct {
	provider metadata.Provider
	opts     Options
}

// NewEngine creates an engine backed by provider.
func NewEngine(provider metadata.Provider, opts Options) *Engine {
	return &Engine{provider: provider, opts: opts.WithDefaults()}
}

// Resolve builds the resolved graph for req.
//
// The returned error is nil when the graph has no version conflicts, a
// VERSION_CONFLICT error (with a non-nil Result) when some module reachable
// from the root could not be reconciled, or a CANCELED, TIMEOUT,
// NOT_CONVERGED or provider error (with a nil Result) when resolution could
// not complete.
func (e *Engine) Resolve(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	id := uuid.NewString()
	hooks := observability.Resolve()
	hooks.OnResolveStart(ctx, id, len(req.Dependencies))

	r := &run{
		ctx:       ctx,
		provider:  e.provider,
		opts:      e.opts,
		logger:    e.opts.Logger.With("run", id[:8]),
		resolver:  conflict.NewResolver(e.opts.Logger),
		versions:  make(map[selector.ModuleIdentifier]fetched[[]selector.Version]),
		meta:      make(map[selector.ComponentIdentifier]fetched[*metadata.ComponentMetadata]),
		expanded:  make(map[graph.NodeID]bool),
		decisions: make(map[selector.ModuleIdentifier]conflict.Selection),
		retained:  make(map[graph.NodeID]bool),
		frozen:    make(map[selector.ModuleIdentifier]error),
	}
	res, err := r.resolve(req)
	if res != nil {
		res.ID = id
	}

	nodes, failed := 0, 0
	if res != nil {
		nodes, failed = res.Graph.NodeCount(), len(res.Failures)
	}
	hooks.OnResolveComplete(ctx, id, nodes, failed, time.Since(start), err)
	return res, err
}

type fetched[T any] struct {
	val T
	err error
}

// run holds the state of one Resolve call.
type run struct {
	ctx      context.Context
	provider metadata.Provider
	opts     Options
	logger   *log.Logger
	resolver *conflict.Resolver
	g        *graph.Graph

	versions  map[selector.ModuleIdentifier]fetched[[]selector.Version]
	meta      map[selector.ComponentIdentifier]fetched[*metadata.ComponentMetadata]
	expanded  map[graph.NodeID]bool
	decisions map[selector.ModuleIdentifier]conflict.Selection

	history  []roundState
	retained map[graph.NodeID]bool
	frozen   map[selector.ModuleIdentifier]error
}

func (r *run) resolve(req Request) (*Result, error) {
	root := selector.ProjectComponent(RootPath)
	var deps []selector.ComponentSelector
	if req.Root != "" {
		if err := errors.ValidateProjectPath(req.Root); err != nil {
			return nil, err
		}
		root = selector.ProjectComponent(req.Root)
		m, err := r.provider.Project(r.ctx, req.Root)
		if ierr := interrupted(r.ctx); ierr != nil {
			return nil, ierr
		}
		if err != nil {
			return nil, providerError(err, "root project %s", req.Root)
		}
		deps = append(deps, m.Dependencies...)
		r.meta[root] = fetched[*metadata.ComponentMetadata]{val: m}
	}
	deps = append(deps, req.Dependencies...)

	r.g = graph.New(root)
	if m := r.meta[root].val; m != nil {
		_ = r.g.SetMetadata(graph.RootID, m)
	}
	for _, d := range deps {
		if _, err := r.g.AddEdge(graph.RootID, d); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "add root edge")
		}
	}
	r.expanded[graph.RootID] = true
	r.logger.Debug("resolving", "root", root, "requirements", len(deps))

	for round := 1; ; round++ {
		if err := interrupted(r.ctx); err != nil {
			return nil, err
		}
		if round > r.opts.MaxIterations {
			return nil, errors.New(errors.ErrCodeNotConverged, "resolution did not converge after %d rounds", r.opts.MaxIterations)
		}
		changed, err := r.round()
		if err != nil {
			return nil, err
		}
		r.logger.Debug("round complete", "round", round, "nodes", len(r.g.Reachable(graph.RootID)), "edges", r.g.EdgeCount(), "changed", changed)
		if !changed {
			break
		}
		r.settle(round)
	}
	return r.finish()
}

// round performs one expansion and decision pass and reports whether the
// graph changed.
func (r *run) round() (bool, error) {
	changed := r.expand()

	modules, projects, other := r.demand()
	for _, e := range other {
		changed = r.fail(e, errors.New(errors.ErrCodeUnsupported, "unsupported selector %s", e.Selector.DisplayName())) || changed
	}

	var wantVersions []selector.ModuleIdentifier
	for _, m := range sortedModules(modules) {
		if _, ok := r.versions[m]; !ok {
			wantVersions = append(wantVersions, m)
		}
	}
	var wantProjects []string
	for _, e := range projects {
		path := e.Selector.(selector.ProjectSelector).Path
		if _, ok := r.meta[selector.ProjectComponent(path)]; !ok && !slices.Contains(wantProjects, path) {
			wantProjects = append(wantProjects, path)
		}
	}
	if err := r.fetchVersions(wantVersions); err != nil {
		return false, err
	}
	if err := r.fetchProjects(wantProjects); err != nil {
		return false, err
	}
	changed = changed || len(wantVersions) > 0 || len(wantProjects) > 0

	decided, err := r.decide(modules)
	if err != nil {
		return false, err
	}
	changed = decided || changed

	for _, e := range projects {
		c, err := r.applyProject(e)
		if err != nil {
			return false, err
		}
		changed = c || changed
	}

	fetchedMeta, err := r.fetchMetadata()
	if err != nil {
		return false, err
	}
	return fetchedMeta || changed, nil
}

// expand adds the declared dependencies of live nodes that have metadata
// and have not been expanded yet.
func (r *run) expand() bool {
	changed := false
	for _, id := range r.g.Reachable(graph.RootID) {
		if r.expanded[id] {
			continue
		}
		n, _ := r.g.Node(id)
		m, ok := Metadata(n)
		if !ok {
			continue
		}
		for _, d := range m.Dependencies {
			_, _ = r.g.AddEdge(id, d)
		}
		r.expanded[id] = true
		changed = true
	}
	return changed
}

// demand groups the outgoing edges of live and retained nodes by what they
// select.
func (r *run) demand() (modules map[selector.ModuleIdentifier][]graph.Edge, projects, other []graph.Edge) {
	modules = make(map[selector.ModuleIdentifier][]graph.Edge)
	for _, id := range r.contributors() {
		for _, eid := range r.g.OutgoingEdges(id) {
			e, _ := r.g.Edge(eid)
			switch s := e.Selector.(type) {
			case selector.ModuleSelector:
				modules[s.Module] = append(modules[s.Module], e)
			case selector.ProjectSelector:
				projects = append(projects, e)
			default:
				other = append(other, e)
			}
		}
	}
	return modules, projects, other
}

func (r *run) fetchVersions(modules []selector.ModuleIdentifier) error {
	if len(modules) == 0 {
		return nil
	}
	results := fetchAll(r.ctx, r.opts.Workers, modules, func(ctx context.Context, m selector.ModuleIdentifier) ([]selector.Version, error) {
		vs, err := r.provider.Versions(ctx, m)
		if err != nil {
			return nil, providerError(err, "versions of %s", m)
		}
		return vs, nil
	})
	if err := interrupted(r.ctx); err != nil {
		return err
	}
	for i, m := range modules {
		r.versions[m] = results[i]
		if results[i].err != nil {
			r.logger.Warn("cannot list versions", "module", m, "err", results[i].err)
		}
	}
	return nil
}

func (r *run) fetchProjects(paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	results := fetchAll(r.ctx, r.opts.Workers, paths, func(ctx context.Context, path string) (*metadata.ComponentMetadata, error) {
		m, err := r.provider.Project(ctx, path)
		if err != nil {
			return nil, providerError(err, "project %s", path)
		}
		return m, nil
	})
	if err := interrupted(r.ctx); err != nil {
		return err
	}
	for i, p := range paths {
		r.meta[selector.ProjectComponent(p)] = results[i]
	}
	return nil
}

// decide runs conflict resolution for every module with live edges and
// applies the decisions to the graph.
func (r *run) decide(modules map[selector.ModuleIdentifier][]graph.Edge) (bool, error) {
	order := sortedModules(modules)
	sels := make([]conflict.Selection, len(order))

	g := new(errgroup.Group)
	g.SetLimit(r.opts.Workers)
	for i, m := range order {
		if r.unavailable(m) != nil {
			continue
		}
		contributions := make([]conflict.Contribution, 0, len(modules[m]))
		for _, e := range modules[m] {
			contributions = append(contributions, conflict.Contribution{
				Edge:       e.ID,
				Constraint: e.Selector.(selector.ModuleSelector).Constraint,
			})
		}
		g.Go(func() error {
			sel, err := r.resolver.Resolve(r.ctx, m, r.versions[m].val, contributions)
			sels[i] = sel
			return err
		})
	}
	if err := g.Wait(); err != nil {
		if ierr := interrupted(r.ctx); ierr != nil {
			return false, ierr
		}
		return false, err
	}

	decisions := make(map[selector.ModuleIdentifier]conflict.Selection, len(order))
	changed := false
	for i, m := range order {
		if err := r.unavailable(m); err != nil {
			for _, e := range modules[m] {
				changed = r.fail(e, err) || changed
			}
			continue
		}
		sel := sels[i]
		decisions[m] = sel
		if sel.Selected() {
			c, err := r.applySelection(sel)
			if err != nil {
				return false, err
			}
			changed = c || changed
		}
		for _, rej := range sel.Rejected {
			e, _ := r.g.Edge(rej.Edge)
			changed = r.fail(e, rej.Cause) || changed
		}
	}
	r.decisions = decisions
	return changed, nil
}

// unavailable returns why m cannot be decided, if anything.
func (r *run) unavailable(m selector.ModuleIdentifier) error {
	if err := r.versions[m].err; err != nil {
		return err
	}
	return r.frozen[m]
}

// applySelection points every accepted edge at the selected component's
// node, or fails them when the component's metadata is known to be broken.
func (r *run) applySelection(sel conflict.Selection) (bool, error) {
	comp := sel.Component()
	if f, ok := r.meta[comp]; ok && f.err != nil {
		changed := false
		for _, eid := range sel.Accepted {
			e, _ := r.g.Edge(eid)
			changed = r.fail(e, f.err) || changed
		}
		return changed, nil
	}

	node, created := r.g.AddNode(comp, nil)
	if created {
		if f, ok := r.meta[comp]; ok {
			_ = r.g.SetMetadata(node, f.val)
		}
	}
	changed := created
	for _, eid := range sel.Accepted {
		c, err := r.point(eid, node)
		if err != nil {
			return false, err
		}
		changed = c || changed
	}
	return changed, nil
}

func (r *run) applyProject(e graph.Edge) (bool, error) {
	comp := selector.ProjectComponent(e.Selector.(selector.ProjectSelector).Path)
	f := r.meta[comp]
	if f.err != nil {
		return r.fail(e, f.err), nil
	}
	node, created := r.g.AddNode(comp, f.val)
	if node == graph.RootID {
		return r.fail(e, errors.New(errors.ErrCodeInvalidInput, "%s depends on the root project", e.Selector.DisplayName())), nil
	}
	c, err := r.point(e.ID, node)
	return c || created, err
}

// fetchMetadata loads metadata for live nodes that have none yet. Nodes
// whose metadata cannot be loaded lose their incoming edges.
func (r *run) fetchMetadata() (bool, error) {
	var nodes []graph.NodeID
	var comps []selector.ComponentIdentifier
	for _, id := range r.g.Reachable(graph.RootID) {
		n, _ := r.g.Node(id)
		if _, ok := r.meta[n.Component]; ok || n.Component.IsProject() {
			continue
		}
		nodes = append(nodes, id)
		comps = append(comps, n.Component)
	}
	if len(comps) == 0 {
		return false, nil
	}

	results := fetchAll(r.ctx, r.opts.Workers, comps, func(ctx context.Context, c selector.ComponentIdentifier) (*metadata.ComponentMetadata, error) {
		m, err := r.provider.Metadata(ctx, c)
		if err != nil {
			return nil, providerError(err, "metadata of %s", c)
		}
		return m, nil
	})
	if err := interrupted(r.ctx); err != nil {
		return false, err
	}

	for i, c := range comps {
		r.meta[c] = results[i]
		if results[i].err == nil {
			_ = r.g.SetMetadata(nodes[i], results[i].val)
			continue
		}
		r.logger.Warn("cannot load metadata", "component", c, "err", results[i].err)
		for _, eid := range r.g.IncomingEdges(nodes[i]) {
			_ = r.g.FailEdge(eid, results[i].err)
		}
	}
	return true, nil
}

// point resolves an edge to node and reports whether that changed it.
func (r *run) point(eid graph.EdgeID, node graph.NodeID) (bool, error) {
	e, _ := r.g.Edge(eid)
	if e.State == graph.EdgeResolved && e.To == node {
		return false, nil
	}
	if err := r.g.ResolveEdge(eid, node); err != nil {
		return false, errors.Wrap(errors.ErrCodeInternal, err, "resolve edge %d", eid)
	}
	return true, nil
}

// fail marks e failed and reports whether that changed it. Causes are
// compared by message since conflict resolution builds fresh errors each
// round.
func (r *run) fail(e graph.Edge, cause error) bool {
	if e.State == graph.EdgeFailed && e.Cause != nil && e.Cause.Error() == cause.Error() {
		return false
	}
	_ = r.g.FailEdge(e.ID, cause)
	return true
}

// finish prunes orphaned nodes, settles every remaining edge and builds
// the result.
func (r *run) finish() (*Result, error) {
	live := make(map[graph.NodeID]bool)
	for _, id := range r.g.Reachable(graph.RootID) {
		live[id] = true
	}
	for _, id := range r.g.Nodes() {
		if !live[id] {
			_ = r.g.RemoveNode(id)
		}
	}

	res := &Result{Graph: r.g}
	var conflicts []string
	var firstConflict error
	for _, id := range r.g.Reachable(graph.RootID) {
		for _, eid := range r.g.OutgoingEdges(id) {
			e, _ := r.g.Edge(eid)
			if e.State == graph.EdgePending {
				_ = r.g.FailEdge(eid, errors.New(errors.ErrCodeUnsatisfiable, "%s was left unresolved", e.Selector.DisplayName()))
				e, _ = r.g.Edge(eid)
			}
			if e.State != graph.EdgeFailed {
				continue
			}
			res.Failures = append(res.Failures, e)
			var ce *conflict.ConflictError
			if stderrors.As(e.Cause, &ce) && !slices.Contains(conflicts, ce.Module.String()) {
				conflicts = append(conflicts, ce.Module.String())
				if firstConflict == nil {
					firstConflict = ce
				}
			}
		}
	}
	if err := r.g.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "resolved graph is inconsistent")
	}

	for _, m := range sortedModules(r.decisions) {
		sel := r.decisions[m]
		if len(sel.Accepted) > 0 && !slices.ContainsFunc(sel.Accepted, func(eid graph.EdgeID) bool {
			e, ok := r.g.Edge(eid)
			return ok && live[e.From]
		}) {
			// only retained nodes asked for it
			continue
		}
		res.Selections = append(res.Selections, sel)
	}

	r.logger.Info("resolution complete", "nodes", r.g.NodeCount(), "failures", len(res.Failures), "conflicts", len(conflicts))
	if firstConflict != nil {
		return res, errors.Wrap(errors.ErrCodeVersionConflict, firstConflict,
			"unresolved version conflicts on %s", strings.Join(conflicts, ", "))
	}
	return res, nil
}

// fetchAll calls fetch for every key with at most workers calls in flight
// and returns the results in key order.
func fetchAll[K any, V any](ctx context.Context, workers int, keys []K, fetch func(context.Context, K) (V, error)) []fetched[V] {
	out := make([]fetched[V], len(keys))
	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, k := range keys {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			v, err := fetch(ctx, k)
			mu.Lock()
			out[i] = fetched[V]{val: v, err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func sortedModules[V any](m map[selector.ModuleIdentifier]V) []selector.ModuleIdentifier {
	out := make([]selector.ModuleIdentifier, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.SortFunc(out, func(a, b selector.ModuleIdentifier) int { return a.Compare(b) })
	return out
}

// providerError keeps the provider's code and defaults to METADATA_ERROR.
func providerError(err error, format string, args ...any) error {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeMetadata
	}
	return errors.Wrap(code, err, format, args...)
}

// interrupted maps context errors to CANCELED or TIMEOUT.
func interrupted(ctx context.Context) error {
	err := ctx.Err()
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(errors.ErrCodeTimeout, err, "resolution timed out")
	default:
		return errors.Wrap(errors.ErrCodeCanceled, err, "resolution canceled")
	}
}
