package resolve

import (
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/stacksolve/pkg/errors"
	"github.com/matzehuels/stacksolve/pkg/graph"
	"github.com/matzehuels/stacksolve/pkg/selector"
)

// roundState is what a round left behind, reduced to a comparable key.
type roundState struct {
	key      string
	live     []graph.NodeID
	selected map[selector.ModuleIdentifier]string
}

func (r *run) snapshot() roundState {
	st := roundState{
		live:     r.g.Reachable(graph.RootID),
		selected: make(map[selector.ModuleIdentifier]string, len(r.decisions)),
	}
	var b strings.Builder
	b.WriteString(strconv.Itoa(len(r.versions)))
	b.WriteByte('/')
	b.WriteString(strconv.Itoa(len(r.meta)))
	b.WriteByte('/')
	b.WriteString(strconv.Itoa(len(r.expanded)))
	b.WriteByte('|')
	live := slices.Clone(st.live)
	slices.Sort(live)
	for _, id := range live {
		b.WriteString(strconv.Itoa(int(id)))
		b.WriteByte(',')
	}
	b.WriteByte('|')
	for _, eid := range r.g.Edges() {
		e, _ := r.g.Edge(eid)
		b.WriteString(strconv.Itoa(int(eid)))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(int(e.State)))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(int(e.To)))
		if e.Cause != nil {
			b.WriteByte(':')
			b.WriteString(e.Cause.Error())
		}
		b.WriteByte(';')
	}
	for m, sel := range r.decisions {
		st.selected[m] = sel.Version.String()
	}
	st.key = b.String()
	return st
}

// settle watches for a round that lands in the state of an earlier round.
// In a dependency cycle a decision can orphan the node whose constraint
// caused it, so the decision flips back on the next round. The first time a
// loop shows up, every node that was live during it keeps contributing its
// constraints until the end of the run. If the loop comes back without new
// nodes to retain, the modules whose selection keeps changing fail their
// edges.
func (r *run) settle(round int) {
	st := r.snapshot()
	i := slices.IndexFunc(r.history, func(h roundState) bool { return h.key == st.key })
	if i < 0 {
		r.history = append(r.history, st)
		return
	}
	loop := append(r.history[i:], st)
	r.history = nil

	added := 0
	for _, h := range loop {
		for _, id := range h.live {
			if !r.retained[id] {
				r.retained[id] = true
				added++
			}
		}
	}
	if added > 0 {
		r.logger.Debug("round repeats an earlier state, retaining cycle constraints", "round", round, "nodes", added)
		return
	}

	for _, m := range flipping(loop) {
		r.logger.Warn("selection does not settle", "module", m, "round", round)
		r.frozen[m] = errors.New(errors.ErrCodeUnsatisfiable, "selection of %s does not settle across a dependency cycle", m)
	}
}

// flipping returns the modules whose selection is not the same in every
// state of loop.
func flipping(loop []roundState) []selector.ModuleIdentifier {
	seen := make(map[selector.ModuleIdentifier]bool)
	for _, st := range loop {
		for m := range st.selected {
			seen[m] = true
		}
	}
	var out []selector.ModuleIdentifier
	for _, m := range sortedModules(seen) {
		v, ok := loop[0].selected[m]
		for _, st := range loop[1:] {
			if w, has := st.selected[m]; has != ok || w != v {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// contributors returns the live nodes followed by any retained nodes that
// are no longer live.
func (r *run) contributors() []graph.NodeID {
	live := r.g.Reachable(graph.RootID)
	if len(r.retained) == 0 {
		return live
	}
	seen := make(map[graph.NodeID]bool, len(live))
	for _, id := range live {
		seen[id] = true
	}
	var extra []graph.NodeID
	for id := range r.retained {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	slices.Sort(extra)
	return append(live, extra...)
}
