package resolve

import (
	"context"

	"github.com/matzehuels/stacksolve/pkg/deprecation"
	"github.com/matzehuels/stacksolve/pkg/errors"
	"github.com/matzehuels/stacksolve/pkg/graph"
	"github.com/matzehuels/stacksolve/pkg/metadata"
	"github.com/matzehuels/stacksolve/pkg/selector"
	"github.com/matzehuels/stacksolve/pkg/visit"
)

// Traverse walks the resolved graph once, forwarding every callback to the
// visitors in order. See visit.Walk for the ordering and abort rules.
func Traverse(ctx context.Context, res *Result, visitors ...visit.Visitor) error {
	if res == nil || res.Graph == nil {
		return errors.New(errors.ErrCodeInvalidInput, "no resolved graph to traverse")
	}
	return visit.Walk(ctx, res.Graph, visit.NewComposite(visitors...))
}

var resolveGraphNotice = deprecation.Notice{
	Name:                "resolve.ResolveGraph",
	Replacement:         "resolve.NewEngine(...).Resolve",
	RemovedIn:           2,
	UpgradeGuideVersion: 1,
	UpgradeGuideSection: "engine",
}

// ResolveGraph resolves deps with default options and returns only the graph.
//
// Deprecated: Use Engine.Resolve, which also reports selections and failures.
func ResolveGraph(ctx context.Context, provider metadata.Provider, deps ...selector.ComponentSelector) (*graph.Graph, error) {
	deprecation.Nag(nil, resolveGraphNotice)
	res, err := NewEngine(provider, Options{}).Resolve(ctx, Request{Dependencies: deps})
	if res == nil {
		return nil, err
	}
	return res.Graph, err
}
