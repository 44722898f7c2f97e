package visit

import (
	"slices"
	"sync"

	"github.com/matzehuels/stacksolve/pkg/graph"
)

// Composite forwards every call to its visitors in order. The first error
// stops the call; later visitors do not receive it.
type Composite struct {
	visitors []Visitor
}

// NewComposite returns a Composite over vs. Nil visitors are skipped.
func NewComposite(vs ...Visitor) *Composite {
	c := &Composite{}
	for _, v := range vs {
		if v != nil {
			c.visitors = append(c.visitors, v)
		}
	}
	return c
}

// Len returns the number of visitors.
func (c *Composite) Len() int { return len(c.visitors) }

func (c *Composite) Start(root graph.Node) error {
	for _, v := range c.visitors {
		if err := v.Start(root); err != nil {
			return err
		}
	}
	return nil
}

func (c *Composite) VisitNode(node graph.Node) error {
	for _, v := range c.visitors {
		if err := v.VisitNode(node); err != nil {
			return err
		}
	}
	return nil
}

func (c *Composite) VisitEdges(node graph.Node, edges []graph.Edge) error {
	for _, v := range c.visitors {
		if err := v.VisitEdges(node, edges); err != nil {
			return err
		}
	}
	return nil
}

func (c *Composite) Finish(root graph.Node) error {
	for _, v := range c.visitors {
		if err := v.Finish(root); err != nil {
			return err
		}
	}
	return nil
}

// Abort notifies every visitor that implements Aborter, including the one
// that failed.
func (c *Composite) Abort(root graph.Node, cause error) {
	for _, v := range c.visitors {
		if a, ok := v.(Aborter); ok {
			a.Abort(root, cause)
		}
	}
}

// Registry collects visitors from independent parts of a program before a
// traversal. It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	visitors []Visitor
}

// Register appends v. Nil visitors are ignored.
func (r *Registry) Register(v Visitor) {
	if v == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visitors = append(r.visitors, v)
}

// Len returns the number of registered visitors.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.visitors)
}

// Composite returns a Composite over the visitors registered so far.
// Later registrations do not affect it.
func (r *Registry) Composite() *Composite {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Composite{visitors: slices.Clone(r.visitors)}
}

var (
	_ Visitor = (*Composite)(nil)
	_ Aborter = (*Composite)(nil)
)
