package selector

import (
	"cmp"
	"strings"

	"github.com/matzehuels/stacksolve/pkg/errors"
)

// ModuleIdentifier is the immutable (group, name) identity of a module.
// Equality is structural, so the type can be used directly as a map key.
type ModuleIdentifier struct {
	Group string
	Name  string
}

// NewModuleIdentifier returns the identifier for group and name.
func NewModuleIdentifier(group, name string) ModuleIdentifier {
	return ModuleIdentifier{Group: group, Name: name}
}

// ParseModuleIdentifier parses "group:name" notation.
func ParseModuleIdentifier(s string) (ModuleIdentifier, error) {
	group, name, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return ModuleIdentifier{}, errors.New(errors.ErrCodeInvalidModule, "module notation must be group:name, got %q", s)
	}
	m := ModuleIdentifier{Group: group, Name: name}
	if err := m.Validate(); err != nil {
		return ModuleIdentifier{}, err
	}
	return m, nil
}

// Validate checks that both coordinates are well-formed.
func (m ModuleIdentifier) Validate() error {
	if err := errors.ValidateCoordinate("group", m.Group); err != nil {
		return err
	}
	return errors.ValidateCoordinate("module name", m.Name)
}

// String returns "group:name".
func (m ModuleIdentifier) String() string { return m.Group + ":" + m.Name }

// IsZero reports whether m is the zero identifier.
func (m ModuleIdentifier) IsZero() bool { return m.Group == "" && m.Name == "" }

// Compare orders identifiers by group, then name.
func (m ModuleIdentifier) Compare(o ModuleIdentifier) int {
	if c := cmp.Compare(m.Group, o.Group); c != 0 {
		return c
	}
	return cmp.Compare(m.Name, o.Name)
}

// ComponentIdentifier names one concrete component: a module at a version.
// Local projects use an empty Group and the project path as Name.
type ComponentIdentifier struct {
	Module  ModuleIdentifier
	Version string
}

// NewComponentIdentifier returns the identifier for module at version.
func NewComponentIdentifier(module ModuleIdentifier, version string) ComponentIdentifier {
	return ComponentIdentifier{Module: module, Version: version}
}

// ProjectComponent returns the identifier used for a local project.
func ProjectComponent(path string) ComponentIdentifier {
	return ComponentIdentifier{Module: ModuleIdentifier{Name: path}}
}

// IsProject reports whether c identifies a local project.
func (c ComponentIdentifier) IsProject() bool { return c.Module.Group == "" && strings.HasPrefix(c.Module.Name, ":") }

// String returns "group:name:version", or the project path for projects.
func (c ComponentIdentifier) String() string {
	if c.IsProject() {
		return "project " + c.Module.Name
	}
	if c.Version == "" {
		return c.Module.String()
	}
	return c.Module.String() + ":" + c.Version
}

// Compare orders identifiers by module, then by version text.
func (c ComponentIdentifier) Compare(o ComponentIdentifier) int {
	if r := c.Module.Compare(o.Module); r != 0 {
		return r
	}
	return cmp.Compare(c.Version, o.Version)
}
