package cache

// ScopedKeyer wraps a Keyer with a prefix so several tools or tenants can
// share one Redis or Mongo backend.
//
// Example usage:
//
//	// Separate namespace per CI pipeline
//	k := NewScopedKeyer(NewDefaultKeyer(), "ci:release:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// VersionsKey generates a prefixed key for module version lists.
func (k *ScopedKeyer) VersionsKey(source, module string) string {
	return k.prefix + k.inner.VersionsKey(source, module)
}

// MetadataKey generates a prefixed key for component metadata.
func (k *ScopedKeyer) MetadataKey(source, component string) string {
	return k.prefix + k.inner.MetadataKey(source, component)
}

// ProjectKey generates a prefixed key for project metadata.
func (k *ScopedKeyer) ProjectKey(source, path string) string {
	return k.prefix + k.inner.ProjectKey(source, path)
}
