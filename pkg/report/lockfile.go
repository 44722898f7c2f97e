package report

import (
	"bytes"
	"cmp"
	"io"
	"slices"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/stacksolve/pkg/graph"
	"github.com/matzehuels/stacksolve/pkg/visit"
)

// Lockfile pins the selected version of every resolved module.
type Lockfile struct {
	Root       string            `toml:"root"`
	Components []LockedComponent `toml:"component"`
}

// LockedComponent is one entry of a Lockfile.
type LockedComponent struct {
	Module  string `toml:"module"`
	Version string `toml:"version"`
}

// DecodeLockfile reads a lockfile written by LockfileWriter.
func DecodeLockfile(r io.Reader) (Lockfile, error) {
	var lf Lockfile
	_, err := toml.NewDecoder(r).Decode(&lf)
	return lf, err
}

// LockfileWriter writes the resolved components as TOML when the traversal
// finishes. An aborted traversal writes nothing.
type LockfileWriter struct {
	visit.Noop
	w  io.Writer
	lf Lockfile
}

// NewLockfileWriter creates a writer that writes to w at Finish.
func NewLockfileWriter(w io.Writer) *LockfileWriter {
	return &LockfileWriter{w: w}
}

func (l *LockfileWriter) Start(root graph.Node) error {
	l.lf = Lockfile{Root: root.Component.String()}
	return nil
}

func (l *LockfileWriter) VisitNode(n graph.Node) error {
	if n.IsRoot() || n.Component.IsProject() {
		return nil
	}
	l.lf.Components = append(l.lf.Components, LockedComponent{
		Module:  n.Component.Module.String(),
		Version: n.Component.Version,
	})
	return nil
}

func (l *LockfileWriter) Finish(graph.Node) error {
	slices.SortFunc(l.lf.Components, func(a, b LockedComponent) int { return cmp.Compare(a.Module, b.Module) })
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(l.lf); err != nil {
		return err
	}
	_, err := l.w.Write(buf.Bytes())
	return err
}

// Abort drops the collected entries.
func (l *LockfileWriter) Abort(graph.Node, error) {
	l.lf = Lockfile{}
}

// Lockfile returns what was collected so far.
func (l *LockfileWriter) Lockfile() Lockfile { return l.lf }
