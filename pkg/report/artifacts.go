package report

import (
	"context"

	"github.com/matzehuels/stacksolve/pkg/artifact"
	"github.com/matzehuels/stacksolve/pkg/graph"
	"github.com/matzehuels/stacksolve/pkg/metadata"
	"github.com/matzehuels/stacksolve/pkg/visit"
)

// ArtifactCollector gathers the components visited in a traversal and
// resolves their declared artifacts at Finish.
//
// The resolver is wrapped in an artifact.ErrorHandlingResolver, so a
// missing or broken artifact is recorded in the report while the others
// still resolve. Errors that escape the wrapper (from ResolveByType, or a
// canceled context) fail the traversal.
type ArtifactCollector struct {
	visit.Noop
	ctx      context.Context
	resolver artifact.Resolver
	opts     artifact.Options

	comps  []artifact.Component
	report *artifact.Report
}

// NewArtifactCollector creates a collector. ctx bounds the resolution run
// at Finish.
func NewArtifactCollector(ctx context.Context, r artifact.Resolver, opts artifact.Options) *ArtifactCollector {
	return &ArtifactCollector{ctx: ctx, resolver: artifact.NewErrorHandlingResolver(r), opts: opts}
}

func (c *ArtifactCollector) Start(graph.Node) error {
	c.comps, c.report = nil, nil
	return nil
}

func (c *ArtifactCollector) VisitNode(n graph.Node) error {
	if n.IsRoot() {
		return nil
	}
	if m, ok := n.Metadata.(*metadata.ComponentMetadata); ok && m != nil {
		c.comps = append(c.comps, m.Component())
	}
	return nil
}

func (c *ArtifactCollector) Finish(graph.Node) error {
	rep, err := artifact.ResolveComponents(c.ctx, c.resolver, c.comps, c.opts)
	c.report = rep
	return err
}

// Components returns the components collected so far.
func (c *ArtifactCollector) Components() []artifact.Component { return c.comps }

// Report returns the artifact report, nil before Finish.
func (c *ArtifactCollector) Report() *artifact.Report { return c.report }
