package selector

import (
	"strings"

	"github.com/matzehuels/stacksolve/pkg/errors"
)

// ComponentSelector describes which component a dependency declaration wants.
type ComponentSelector interface {
	// DisplayName is a short human readable description of the selector.
	DisplayName() string
	// Matches reports whether the concrete component satisfies the selector.
	Matches(id ComponentIdentifier) bool
}

// ModuleSelector selects a version of a module by constraint. It is the only
// selector kind that takes part in conflict resolution.
type ModuleSelector struct {
	Module     ModuleIdentifier
	Constraint VersionConstraint
}

// NewModuleSelector returns a selector for module constrained by c.
func NewModuleSelector(module ModuleIdentifier, c VersionConstraint) ModuleSelector {
	return ModuleSelector{Module: module, Constraint: c}
}

// ParseModuleSelector parses "group:name" or "group:name:constraint".
// Everything after the second colon is the required rule.
func ParseModuleSelector(s string) (ModuleSelector, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 3)
	if len(parts) < 2 {
		return ModuleSelector{}, errors.New(errors.ErrCodeInvalidModule, "selector notation must be group:name[:constraint], got %q", s)
	}
	m := ModuleIdentifier{Group: parts[0], Name: parts[1]}
	if err := m.Validate(); err != nil {
		return ModuleSelector{}, err
	}
	var c VersionConstraint
	if len(parts) == 3 {
		c.Required = strings.TrimSpace(parts[2])
		if err := c.Validate(); err != nil {
			return ModuleSelector{}, err
		}
	}
	return ModuleSelector{Module: m, Constraint: c}, nil
}

// DisplayName returns "group:name:constraint".
func (s ModuleSelector) DisplayName() string {
	return s.Module.String() + ":" + s.Constraint.String()
}

// Matches reports whether id is a version of the selected module that
// satisfies the constraint.
func (s ModuleSelector) Matches(id ComponentIdentifier) bool {
	if id.Module != s.Module {
		return false
	}
	v, err := ParseVersion(id.Version)
	if err != nil {
		return false
	}
	return Satisfies(v, s.Constraint)
}

// ProjectSelector references a local project by path, such as ":lib".
type ProjectSelector struct {
	Path string
}

// DisplayName returns "project <path>".
func (s ProjectSelector) DisplayName() string { return "project " + s.Path }

// Matches reports whether id is the referenced project.
func (s ProjectSelector) Matches(id ComponentIdentifier) bool {
	return id.IsProject() && id.Module.Name == s.Path
}

// Component returns the identifier of the referenced project.
func (s ProjectSelector) Component() ComponentIdentifier { return ProjectComponent(s.Path) }

var (
	_ ComponentSelector = ModuleSelector{}
	_ ComponentSelector = ProjectSelector{}
)
