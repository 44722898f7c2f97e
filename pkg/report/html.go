package report

import (
	"html/template"
	"io"
	"time"

	"github.com/matzehuels/stacksolve/pkg/graph"
)

// Report status values.
const (
	StatusComplete = "complete"
	StatusAborted  = "aborted"
)

// ReportModel is the data embedded in the HTML problems report.
type ReportModel struct {
	Title       string    `json:"title"`
	Root        string    `json:"root"`
	Status      string    `json:"status"`
	Cause       string    `json:"cause,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`
	Nodes       int       `json:"nodes"`
	Diagnostics []Problem `json:"diagnostics"`
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
.conflict { color: #b00; }
.aborted { background: #fee; padding: 1em; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>Root: <code>{{.Root}}</code>, {{.Nodes}} components, {{len .Diagnostics}} problems.</p>
{{if eq .Status "aborted"}}<p class="aborted">Resolution was aborted: {{.Cause}}</p>{{end}}
{{if .Diagnostics}}<table>
<tr><th>From</th><th>Requested</th><th>Code</th><th>Message</th></tr>
{{range .Diagnostics}}<tr{{if .Conflict}} class="conflict"{{end}}><td>{{.From}}</td><td>{{.Requested}}</td><td>{{.Code}}</td><td>{{.Message}}</td></tr>
{{end}}</table>{{end}}
<script type="application/json" id="report-data">
{{.}}
</script>
</body>
</html>
`))

// ProblemsReport writes an HTML page listing every failed edge, with the
// full report model embedded as JSON for tooling. The model is begun at
// Start and written at Finish, or at Abort with status "aborted".
type ProblemsReport struct {
	w     io.Writer
	model ReportModel
	now   func() time.Time
	err   error
}

// NewProblemsReport creates a report written to w.
func NewProblemsReport(w io.Writer, title string) *ProblemsReport {
	if title == "" {
		title = "Dependency resolution problems"
	}
	return &ProblemsReport{w: w, model: ReportModel{Title: title}, now: time.Now}
}

func (r *ProblemsReport) Start(root graph.Node) error {
	r.model = ReportModel{
		Title:       r.model.Title,
		Root:        root.Component.String(),
		GeneratedAt: r.now().UTC(),
		Diagnostics: []Problem{},
	}
	return nil
}

func (r *ProblemsReport) VisitNode(graph.Node) error {
	r.model.Nodes++
	return nil
}

func (r *ProblemsReport) VisitEdges(node graph.Node, edges []graph.Edge) error {
	for _, e := range edges {
		if e.State == graph.EdgeFailed {
			r.model.Diagnostics = append(r.model.Diagnostics, problemOf(node, e))
		}
	}
	return nil
}

func (r *ProblemsReport) Finish(graph.Node) error {
	r.model.Status = StatusComplete
	return r.write()
}

// Abort writes the partial report marked as aborted. A write failure is
// kept and reported by Err.
func (r *ProblemsReport) Abort(_ graph.Node, cause error) {
	r.model.Status = StatusAborted
	if cause != nil {
		r.model.Cause = cause.Error()
	}
	r.err = r.write()
}

// Err returns the error from writing an aborted report.
func (r *ProblemsReport) Err() error { return r.err }

// Model returns the report data.
func (r *ProblemsReport) Model() ReportModel { return r.model }

func (r *ProblemsReport) write() error {
	return reportTemplate.Execute(r.w, r.model)
}
