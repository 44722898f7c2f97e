// Package cache stores provider responses between resolution runs.
//
// The resolution core never touches a cache: caching wraps a metadata
// provider (see metadata.CachingProvider). Backends implement [Cache]:
//
//   - [NullCache]: stores nothing (caching disabled)
//   - [MemoryCache]: in-process map, for tests and one-shot runs
//   - [FileCache]: one JSON file per entry, the CLI default
//   - [RedisCache]: shared cache in Redis
//   - [MongoCache]: shared cache in a MongoDB collection
//
// Keys are produced by a [Keyer] so backends never see raw coordinates.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiration.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl <= 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer builds cache keys for metadata provider responses.
//
// source distinguishes providers (for example two catalogs) so that their
// entries never collide in a shared backend.
type Keyer interface {
	// VersionsKey is the key for the list of versions of a module.
	VersionsKey(source, module string) string

	// MetadataKey is the key for the metadata of one component.
	MetadataKey(source, component string) string

	// ProjectKey is the key for the metadata of a local project.
	ProjectKey(source, path string) string
}

// DefaultKeyer generates readable, prefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// VersionsKey returns "versions:<hash(source)>:<module>".
func (DefaultKeyer) VersionsKey(source, module string) string {
	return "versions:" + sourceTag(source) + ":" + module
}

// MetadataKey returns "metadata:<hash(source)>:<component>".
func (DefaultKeyer) MetadataKey(source, component string) string {
	return "metadata:" + sourceTag(source) + ":" + component
}

// ProjectKey hashes the project path, which may contain characters some
// backends dislike.
func (DefaultKeyer) ProjectKey(source, path string) string {
	return hashKey("project", source, path)
}

// sourceTag shortens a source name to a fixed-width tag.
func sourceTag(source string) string {
	return Hash([]byte(source))[:12]
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = DefaultKeyer{}
