package metadata

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/stacksolve/pkg/cache"
	"github.com/matzehuels/stacksolve/pkg/observability"
	"github.com/matzehuels/stacksolve/pkg/selector"
)

// DefaultTTL is how long cached provider responses stay valid.
const DefaultTTL = 24 * time.Hour

// Cache key types reported to observability hooks.
const (
	KindVersions = "versions"
	KindMetadata = "metadata"
	KindProject  = "project"
)

// CacheOptions configures a CachingProvider.
type CacheOptions struct {
	Source  string        // namespaces keys, "default" if empty
	Keyer   cache.Keyer   // cache.DefaultKeyer if nil
	TTL     time.Duration // DefaultTTL if zero; negative disables expiry
	Backoff cache.Backoff // cache.DefaultBackoff if zero
	Refresh bool          // skip cache reads, still write fresh responses
	Logger  *log.Logger
}

// CachingProvider caches another provider's responses in a cache.Cache.
//
// Concurrent requests for the same key share one upstream call. Upstream
// errors wrapped with cache.Retryable are retried with exponential backoff.
// Errors are never cached. A broken cache backend degrades to a miss.
type CachingProvider struct {
	inner  Provider
	cache  cache.Cache
	opts   CacheOptions
	group  singleflight.Group
	logger *log.Logger
}

// NewCachingProvider wraps inner. A nil cache disables caching but keeps
// retries and request coalescing.
func NewCachingProvider(inner Provider, c cache.Cache, opts CacheOptions) *CachingProvider {
	if c == nil {
		c = cache.NewNullCache()
	}
	if opts.Source == "" {
		opts.Source = "default"
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.TTL == 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Backoff.Attempts == 0 {
		opts.Backoff = cache.DefaultBackoff
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &CachingProvider{inner: inner, cache: c, opts: opts, logger: logger}
}

// Versions returns the versions of module, from cache when possible.
func (p *CachingProvider) Versions(ctx context.Context, module selector.ModuleIdentifier) ([]selector.Version, error) {
	key := p.opts.Keyer.VersionsKey(p.opts.Source, module.String())
	raws, err := cached(ctx, p, KindVersions, key, func(ctx context.Context) ([]string, error) {
		vs, err := p.inner.Versions(ctx, module)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(vs))
		for i, v := range vs {
			out[i] = v.String()
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return selector.ParseVersions(raws), nil
}

// Metadata returns the declaration of id, from cache when possible.
func (p *CachingProvider) Metadata(ctx context.Context, id selector.ComponentIdentifier) (*ComponentMetadata, error) {
	key := p.opts.Keyer.MetadataKey(p.opts.Source, id.String())
	return p.component(ctx, KindMetadata, key, func(ctx context.Context) (*ComponentMetadata, error) {
		return p.inner.Metadata(ctx, id)
	})
}

// Project returns the declaration of a local project, from cache when possible.
func (p *CachingProvider) Project(ctx context.Context, path string) (*ComponentMetadata, error) {
	key := p.opts.Keyer.ProjectKey(p.opts.Source, path)
	return p.component(ctx, KindProject, key, func(ctx context.Context) (*ComponentMetadata, error) {
		return p.inner.Project(ctx, path)
	})
}

func (p *CachingProvider) component(ctx context.Context, kind, key string, fetch func(context.Context) (*ComponentMetadata, error)) (*ComponentMetadata, error) {
	doc, err := cached(ctx, p, kind, key, func(ctx context.Context) (ComponentDoc, error) {
		m, err := fetch(ctx)
		if err != nil {
			return ComponentDoc{}, err
		}
		return DocumentFromMetadata(m), nil
	})
	if err != nil {
		return nil, err
	}
	return doc.Metadata()
}

// cached reads key from the cache or calls fetch once per key at a time,
// storing its JSON-encoded result.
func cached[T any](ctx context.Context, p *CachingProvider, kind, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	ch := observability.Cache()

	if !p.opts.Refresh {
		data, ok, err := p.cache.Get(ctx, key)
		switch {
		case err != nil:
			p.logger.Warn("cache read failed", "key", key, "err", err)
		case ok:
			var v T
			if err := json.Unmarshal(data, &v); err == nil {
				ch.OnCacheHit(ctx, kind)
				return v, nil
			}
			p.logger.Debug("discarding corrupt cache entry", "key", key)
		}
		ch.OnCacheMiss(ctx, kind)
	}

	// The shared fetch outlives any single caller; each caller still stops
	// waiting when its own context ends.
	fctx := context.WithoutCancel(ctx)
	done := p.group.DoChan(key, func() (any, error) {
		ctx := fctx
		mh := observability.Metadata()
		mh.OnFetch(ctx, kind, key)
		start := time.Now()

		var v T
		err := p.opts.Backoff.Retry(ctx, func() error {
			var err error
			v, err = fetch(ctx)
			return err
		})
		mh.OnFetchComplete(ctx, kind, key, time.Since(start), err)
		if err != nil {
			return zero, err
		}

		data, err := json.Marshal(v)
		if err != nil {
			p.logger.Warn("cache encode failed", "key", key, "err", err)
			return v, nil
		}
		if err := p.cache.Set(ctx, key, data, p.opts.TTL); err != nil {
			p.logger.Warn("cache write failed", "key", key, "err", err)
			return v, nil
		}
		ch.OnCacheSet(ctx, kind, len(data))
		return v, nil
	})

	var out singleflight.Result
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case out = <-done:
	}
	if out.Shared {
		p.logger.Debug("coalesced provider request", "key", key)
	}
	if out.Err != nil {
		return zero, out.Err
	}
	return out.Val.(T), nil
}

var _ Provider = (*CachingProvider)(nil)
