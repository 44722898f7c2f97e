package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/stacksolve/pkg/graph"
	"github.com/matzehuels/stacksolve/pkg/visit"
)

// DotWriter writes the traversed graph in Graphviz DOT format at Finish.
//
// Resolved edges point at their target component. Failed edges point at a
// dashed placeholder labelled with the requested selector.
type DotWriter struct {
	visit.Noop
	w   io.Writer
	buf bytes.Buffer
}

// NewDotWriter creates a writer that writes to w at Finish.
func NewDotWriter(w io.Writer) *DotWriter {
	return &DotWriter{w: w}
}

func (d *DotWriter) Start(graph.Node) error {
	d.buf.Reset()
	d.buf.WriteString("digraph G {\n")
	d.buf.WriteString("  rankdir=TB;\n")
	d.buf.WriteString("  bgcolor=\"transparent\";\n")
	d.buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	d.buf.WriteString("  ranksep=0.5;\n")
	d.buf.WriteString("  nodesep=0.3;\n")
	d.buf.WriteString("\n")
	return nil
}

func (d *DotWriter) VisitNode(n graph.Node) error {
	attrs := fmt.Sprintf("label=%q", n.Component.String())
	if n.IsRoot() {
		attrs += ", fillcolor=lightblue"
	}
	fmt.Fprintf(&d.buf, "  n%d [%s];\n", n.ID, attrs)
	return nil
}

func (d *DotWriter) VisitEdges(n graph.Node, edges []graph.Edge) error {
	for _, e := range edges {
		switch e.State {
		case graph.EdgeResolved:
			fmt.Fprintf(&d.buf, "  n%d -> n%d;\n", n.ID, e.To)
		case graph.EdgeFailed:
			fmt.Fprintf(&d.buf, "  f%d [label=%q, style=\"rounded,dashed\", color=red, fontcolor=red];\n", e.ID, e.Selector.DisplayName())
			fmt.Fprintf(&d.buf, "  n%d -> f%d [style=dashed, color=red];\n", n.ID, e.ID)
		}
	}
	return nil
}

func (d *DotWriter) Finish(graph.Node) error {
	d.buf.WriteString("}\n")
	_, err := d.w.Write(d.buf.Bytes())
	return err
}

// ToDOT renders g as DOT text.
func ToDOT(ctx context.Context, g *graph.Graph) (string, error) {
	var buf bytes.Buffer
	if err := visit.Walk(ctx, g, NewDotWriter(&buf)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderSVG renders DOT text to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the SVG scales from its
// viewBox instead of Graphviz's point-based width and height.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
