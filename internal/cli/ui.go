package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/stacksolve/pkg/graph"
	"github.com/matzehuels/stacksolve/pkg/report"
	"github.com/matzehuels/stacksolve/pkg/selector"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	// StyleError for failed edges.
	StyleError = lipgloss.NewStyle().Foreground(colorRed)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleSelected    = lipgloss.NewStyle().Foreground(colorCyan)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconRepeat  = "(*)"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints a detail line (indented).
func printDetail(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a file output line.
func printFile(w io.Writer, path string) {
	fmt.Fprintln(w, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// =============================================================================
// Resolved Tree
// =============================================================================

// printTree renders the graph as an indented dependency tree rooted at the
// root node. A node that was already expanded is marked with (*) instead of
// being repeated.
func printTree(w io.Writer, g *graph.Graph) {
	fmt.Fprintln(w, StyleTitle.Render(g.Root().Component.String()))
	seen := map[graph.NodeID]bool{graph.RootID: true}
	printEdges(w, g, graph.RootID, "", seen)
}

func printEdges(w io.Writer, g *graph.Graph, from graph.NodeID, indent string, seen map[graph.NodeID]bool) {
	out := g.OutgoingEdges(from)
	for i, id := range out {
		e, _ := g.Edge(id)
		branch, next := "├── ", "│   "
		if i == len(out)-1 {
			branch, next = "└── ", "    "
		}
		fmt.Fprintln(w, StyleDim.Render(indent+branch)+edgeLabel(g, e, seen))

		if e.State == graph.EdgeResolved && !seen[e.To] {
			seen[e.To] = true
			printEdges(w, g, e.To, indent+next, seen)
		}
	}
}

func edgeLabel(g *graph.Graph, e graph.Edge, seen map[graph.NodeID]bool) string {
	label := e.Selector.DisplayName()
	switch e.State {
	case graph.EdgeFailed:
		return StyleError.Render(label + " " + iconError)
	case graph.EdgePending:
		return StyleWarning.Render(label + " (pending)")
	}

	n, _ := g.Node(e.To)
	if ms, ok := e.Selector.(selector.ModuleSelector); ok && ms.Constraint.String() != n.Component.Version {
		label += " " + iconArrow + " " + styleSelected.Render(n.Component.Version)
	}
	if seen[e.To] {
		label += " " + StyleDim.Render(iconRepeat)
	}
	return label
}

// =============================================================================
// Problems
// =============================================================================

// printProblems lists failed edges, conflicts first.
func printProblems(w io.Writer, problems []report.Problem) {
	if len(problems) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, StyleTitle.Render("Problems"))
	for _, conflicts := range []bool{true, false} {
		for _, p := range problems {
			if p.Conflict != conflicts {
				continue
			}
			printError(w, "%s %s %s", p.From, iconArrow, p.Requested)
			printDetail(w, "%s: %s", p.Code, oneLine(p.Message))
		}
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// printNewline prints an empty line.
func printNewline(w io.Writer) {
	fmt.Fprintln(w)
}
