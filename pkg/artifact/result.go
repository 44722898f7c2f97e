// Package artifact resolves the files attached to selected components and
// isolates per-artifact failures from defects in the resolver itself.
//
// A [Resolver] has two operations. ResolveOne resolves one named artifact
// into a [Result]; ResolveByType resolves every artifact of one type into a
// [MultipleResult]. [ErrorHandlingResolver] wraps a Resolver and turns any
// failure of ResolveOne, including a panic, into a failed Result carrying a
// [*ResolveError]. ResolveByType is passed through untouched: a failure to
// enumerate artifacts is a bug in the resolver and must reach the caller.
package artifact

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	pkgerrors "github.com/matzehuels/stacksolve/pkg/errors"
	"github.com/matzehuels/stacksolve/pkg/selector"
)

// ErrResultAlreadySet is returned when a result slot is written twice.
var ErrResultAlreadySet = errors.New("artifact result already set")

// ErrNotFound is returned by content resolvers for artifacts that do not
// exist. It is an expected outcome, not a defect.
var ErrNotFound = errors.New("artifact not found")

// Name identifies one artifact of a component.
type Name struct {
	Name       string `json:"name" toml:"name" yaml:"name"`
	Type       string `json:"type,omitempty" toml:"type,omitempty" yaml:"type,omitempty"`
	Extension  string `json:"extension,omitempty" toml:"extension,omitempty" yaml:"extension,omitempty"`
	Classifier string `json:"classifier,omitempty" toml:"classifier,omitempty" yaml:"classifier,omitempty"`
}

// String returns the file name, e.g. "lib-sources.jar".
func (n Name) String() string {
	var b strings.Builder
	b.WriteString(n.Name)
	if n.Classifier != "" {
		b.WriteString("-" + n.Classifier)
	}
	if n.Extension != "" {
		b.WriteString("." + n.Extension)
	}
	return b.String()
}

// Identifier names an artifact of a specific component.
type Identifier struct {
	Component selector.ComponentIdentifier
	Name      Name
}

func (id Identifier) String() string { return id.Component.String() + " " + id.Name.String() }

// Component is a selected component together with its declared artifacts.
type Component struct {
	ID        selector.ComponentIdentifier
	Artifacts []Name
}

// File is a resolved artifact.
type File struct {
	ID       Identifier
	Location string
}

// ResolveError records why one artifact could not be resolved.
type ResolveError struct {
	Artifact Identifier
	Cause    error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("could not resolve artifact %s: %v", e.Artifact, e.Cause)
}

func (e *ResolveError) Unwrap() error { return e.Cause }

// Code implements errors.Coded.
func (e *ResolveError) Code() pkgerrors.Code { return pkgerrors.ErrCodeArtifactResolve }

// State is the state of a result slot.
type State int

const (
	Empty State = iota
	Resolved
	Failed
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Result is a write-once slot for the outcome of resolving one artifact.
// It is safe for concurrent use.
type Result struct {
	mu    sync.Mutex
	state State
	file  File
	err   error
}

// Resolved records success. It returns ErrResultAlreadySet if the slot was
// already written.
func (r *Result) Resolved(f File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Empty {
		return ErrResultAlreadySet
	}
	r.state, r.file = Resolved, f
	return nil
}

// Failed records failure. It returns ErrResultAlreadySet if the slot was
// already written.
func (r *Result) Failed(err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Empty {
		return ErrResultAlreadySet
	}
	r.state, r.err = Failed, err
	return nil
}

// State returns the current state.
func (r *Result) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// HasResult reports whether the slot was written.
func (r *Result) HasResult() bool { return r.State() != Empty }

// File returns the resolved file.
func (r *Result) File() (File, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file, r.state == Resolved
}

// Err returns the failure cause, or nil.
func (r *Result) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// MultipleResult is a write-once slot for a batch of same-typed artifacts of
// one component. It is safe for concurrent use.
type MultipleResult struct {
	mu    sync.Mutex
	state State
	files []File
	err   error
}

// Resolved records the batch. An empty batch is a valid outcome.
func (r *MultipleResult) Resolved(files []File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Empty {
		return ErrResultAlreadySet
	}
	r.state, r.files = Resolved, append([]File(nil), files...)
	return nil
}

// Failed records failure of the whole batch.
func (r *MultipleResult) Failed(err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Empty {
		return ErrResultAlreadySet
	}
	r.state, r.err = Failed, err
	return nil
}

// State returns the current state.
func (r *MultipleResult) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// HasResult reports whether the slot was written.
func (r *MultipleResult) HasResult() bool { return r.State() != Empty }

// Files returns the resolved files.
func (r *MultipleResult) Files() []File {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]File(nil), r.files...)
}

// Err returns the failure cause, or nil.
func (r *MultipleResult) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
