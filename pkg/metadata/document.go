package metadata

import (
	"github.com/matzehuels/stacksolve/pkg/artifact"
	"github.com/matzehuels/stacksolve/pkg/errors"
	"github.com/matzehuels/stacksolve/pkg/selector"
)

// Document is the on-disk shape of a catalog.
type Document struct {
	Projects   []ComponentDoc `toml:"project" yaml:"projects" json:"projects,omitempty"`
	Components []ComponentDoc `toml:"component" yaml:"components" json:"components,omitempty"`
}

// ComponentDoc declares a project (Path set) or a published component
// (Module and Version set).
type ComponentDoc struct {
	Path         string          `toml:"path,omitempty" yaml:"path,omitempty" json:"path,omitempty"`
	Module       string          `toml:"module,omitempty" yaml:"module,omitempty" json:"module,omitempty"`
	Version      string          `toml:"version,omitempty" yaml:"version,omitempty" json:"version,omitempty"`
	Dependencies []DependencyDoc `toml:"dependency" yaml:"dependencies" json:"dependencies,omitempty"`
	Artifacts    []ArtifactDoc   `toml:"artifact" yaml:"artifacts" json:"artifacts,omitempty"`
}

// DependencyDoc is one declared dependency: a module with a version
// constraint, or a project path.
type DependencyDoc struct {
	Module  string   `toml:"module,omitempty" yaml:"module,omitempty" json:"module,omitempty"`
	Project string   `toml:"project,omitempty" yaml:"project,omitempty" json:"project,omitempty"`
	Version string   `toml:"version,omitempty" yaml:"version,omitempty" json:"version,omitempty"`
	Prefer  string   `toml:"prefer,omitempty" yaml:"prefer,omitempty" json:"prefer,omitempty"`
	Reject  []string `toml:"reject,omitempty" yaml:"reject,omitempty" json:"reject,omitempty"`
	Strict  bool     `toml:"strict,omitempty" yaml:"strict,omitempty" json:"strict,omitempty"`
}

// ArtifactDoc declares an artifact. Location is relative to the catalog
// file unless absolute.
type ArtifactDoc struct {
	Name       string `toml:"name" yaml:"name" json:"name"`
	Type       string `toml:"type,omitempty" yaml:"type,omitempty" json:"type,omitempty"`
	Extension  string `toml:"extension,omitempty" yaml:"extension,omitempty" json:"extension,omitempty"`
	Classifier string `toml:"classifier,omitempty" yaml:"classifier,omitempty" json:"classifier,omitempty"`
	Location   string `toml:"location,omitempty" yaml:"location,omitempty" json:"location,omitempty"`
}

// Constraint returns the version constraint of d. It is not validated:
// an invalid constraint fails only the edge it lands on.
func (d DependencyDoc) Constraint() selector.VersionConstraint {
	return selector.VersionConstraint{
		Required:  d.Version,
		Preferred: d.Prefer,
		Rejected:  d.Reject,
		Strict:    d.Strict,
	}
}

// Selector converts d into a component selector.
func (d DependencyDoc) Selector() (selector.ComponentSelector, error) {
	switch {
	case d.Project != "" && d.Module != "":
		return nil, errors.New(errors.ErrCodeInvalidInput, "dependency sets both module %q and project %q", d.Module, d.Project)
	case d.Project != "":
		if err := errors.ValidateProjectPath(d.Project); err != nil {
			return nil, err
		}
		return selector.ProjectSelector{Path: d.Project}, nil
	}
	m, err := selector.ParseModuleIdentifier(d.Module)
	if err != nil {
		return nil, err
	}
	return selector.NewModuleSelector(m, d.Constraint()), nil
}

// DependencyFromSelector is the inverse of DependencyDoc.Selector.
func DependencyFromSelector(s selector.ComponentSelector) DependencyDoc {
	switch s := s.(type) {
	case selector.ProjectSelector:
		return DependencyDoc{Project: s.Path}
	case selector.ModuleSelector:
		c := s.Constraint
		return DependencyDoc{
			Module:  s.Module.String(),
			Version: c.Required,
			Prefer:  c.Preferred,
			Reject:  append([]string(nil), c.Rejected...),
			Strict:  c.Strict,
		}
	}
	return DependencyDoc{}
}

// ArtifactName returns the artifact name a declares.
func (a ArtifactDoc) ArtifactName() artifact.Name {
	return artifact.Name{Name: a.Name, Type: a.Type, Extension: a.Extension, Classifier: a.Classifier}
}

// ID returns the component identifier d declares.
func (d ComponentDoc) ID() (selector.ComponentIdentifier, error) {
	if d.Path != "" {
		if err := errors.ValidateProjectPath(d.Path); err != nil {
			return selector.ComponentIdentifier{}, err
		}
		return selector.ProjectComponent(d.Path), nil
	}
	m, err := selector.ParseModuleIdentifier(d.Module)
	if err != nil {
		return selector.ComponentIdentifier{}, err
	}
	if d.Version == "" {
		return selector.ComponentIdentifier{}, errors.New(errors.ErrCodeInvalidInput, "component %s has no version", m)
	}
	if _, err := selector.ParseVersion(d.Version); err != nil {
		return selector.ComponentIdentifier{}, err
	}
	return selector.NewComponentIdentifier(m, d.Version), nil
}

// Metadata converts d into ComponentMetadata.
func (d ComponentDoc) Metadata() (*ComponentMetadata, error) {
	id, err := d.ID()
	if err != nil {
		return nil, err
	}
	m := &ComponentMetadata{ID: id}
	for _, dep := range d.Dependencies {
		s, err := dep.Selector()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMetadata, err, "dependency of %s", id)
		}
		m.Dependencies = append(m.Dependencies, s)
	}
	for _, a := range d.Artifacts {
		if a.Name == "" {
			return nil, errors.New(errors.ErrCodeMetadata, "artifact of %s has no name", id)
		}
		m.Artifacts = append(m.Artifacts, a.ArtifactName())
	}
	return m, nil
}

// DocumentFromMetadata converts m back into its document form. Artifact
// locations are not part of ComponentMetadata and are left empty.
func DocumentFromMetadata(m *ComponentMetadata) ComponentDoc {
	var d ComponentDoc
	if m.ID.IsProject() {
		d.Path = m.ID.Module.Name
	} else {
		d.Module = m.ID.Module.String()
		d.Version = m.ID.Version
	}
	for _, s := range m.Dependencies {
		d.Dependencies = append(d.Dependencies, DependencyFromSelector(s))
	}
	for _, a := range m.Artifacts {
		d.Artifacts = append(d.Artifacts, ArtifactDoc{Name: a.Name, Type: a.Type, Extension: a.Extension, Classifier: a.Classifier})
	}
	return d
}
