// Package metadata answers the two questions the resolution engine asks
// about the outside world: which versions of a module exist, and what a
// chosen component declares (its dependencies and artifacts).
//
// # Providers
//
// [Provider] is the interface the engine consumes. This package ships:
//
//   - [Catalog]: an in-memory provider loaded from a TOML, YAML or JSON file
//   - [Composite]: asks several providers in order
//   - [CachingProvider]: wraps any provider with a [cache.Cache] backend
//
// A catalog file lists projects (local components addressed by path) and
// published components:
//
//	[[project]]
//	path = ":app"
//
//	  [[project.dependency]]
//	  module = "org:lib"
//	  version = "^1.0"
//
//	[[component]]
//	module = "org:lib"
//	version = "1.2.0"
//
//	  [[component.artifact]]
//	  name = "lib"
//	  type = "jar"
//	  location = "repo/org/lib/1.2.0/lib.jar"
//
// Errors use codes MODULE_NOT_FOUND (the provider does not know the module
// or component) and METADATA_ERROR (anything else).
package metadata

import (
	"context"

	"github.com/matzehuels/stacksolve/pkg/artifact"
	"github.com/matzehuels/stacksolve/pkg/selector"
)

// Provider supplies module versions and component metadata.
//
// Implementations must be safe for concurrent use: the engine fetches
// metadata for independent nodes in parallel.
type Provider interface {
	// Versions returns the available versions of module, in any order.
	Versions(ctx context.Context, module selector.ModuleIdentifier) ([]selector.Version, error)

	// Metadata returns what a published component declares.
	Metadata(ctx context.Context, id selector.ComponentIdentifier) (*ComponentMetadata, error)

	// Project returns what the local project at path declares.
	Project(ctx context.Context, path string) (*ComponentMetadata, error)
}

// ComponentMetadata is the declaration of one component.
type ComponentMetadata struct {
	ID           selector.ComponentIdentifier
	Dependencies []selector.ComponentSelector
	Artifacts    []artifact.Name
}

// Component returns the artifact view of m.
func (m *ComponentMetadata) Component() artifact.Component {
	return artifact.Component{ID: m.ID, Artifacts: append([]artifact.Name(nil), m.Artifacts...)}
}
