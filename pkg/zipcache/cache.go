// Package zipcache implements a sharded, concurrency-safe LRU cache of
// opened zip archives, grounded on original_source/src/fs.rs's
// LruZipCache (itself backed by concurrent_lru::sharded::LruCache) and
// on the coalescing idiom in
// _examples/quay-claircore/internal/cache/live.go, which uses
// singleflight.Group.DoChan to guarantee at-most-one in-flight creation
// per key.
package zipcache

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/yarnpkg/pnp-go/pkg/ziparchive"
)

// OpenFunc opens the archive at path and indexes its central directory.
type OpenFunc func(path string) (*ziparchive.Zip, error)

type shard struct {
	mu  sync.Mutex
	lru *simplelru.LRU[string, *ziparchive.Zip]
}

// Cache is a sharded LRU of opened zip archives. It is safe for
// concurrent use from many goroutines: concurrent Get calls for the
// same unpopulated key coalesce into a single call to the configured
// OpenFunc.
type Cache struct {
	shards []*shard
	sf     singleflight.Group
	open   OpenFunc

	hits   metric.Int64Counter
	misses metric.Int64Counter
}

const defaultShardCount = 16

// New constructs a Cache with the given total capacity (number of
// archives kept resident across all shards) and open function. A
// capacity below the shard count is rounded up to one entry per shard.
func New(capacity int, open OpenFunc) (*Cache, error) {
	shardCount := defaultShardCount
	perShard := capacity / shardCount
	if perShard < 1 {
		perShard = 1
	}

	c := &Cache{
		shards: make([]*shard, shardCount),
		open:   open,
	}
	for i := range c.shards {
		lru, err := simplelru.NewLRU[string, *ziparchive.Zip](perShard, nil)
		if err != nil {
			return nil, err
		}
		c.shards[i] = &shard{lru: lru}
	}

	meter := otel.GetMeterProvider().Meter("github.com/yarnpkg/pnp-go/pkg/zipcache")
	hits, err := meter.Int64Counter("pnp_zipcache_hits_total")
	if err != nil {
		return nil, err
	}
	misses, err := meter.Int64Counter("pnp_zipcache_misses_total")
	if err != nil {
		return nil, err
	}
	c.hits, c.misses = hits, misses

	return c, nil
}

func (c *Cache) shardFor(path string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(path))
	return c.shards[h.Sum32()%uint32(len(c.shards))]
}

// Get returns the opened archive for path, opening and indexing it if
// it is not already cached. A failed open is never cached; the next
// Get for the same path retries.
//
// misses counts actual calls to the configured OpenFunc, not callers:
// concurrent Gets for the same unpopulated key coalesce into one
// OpenFunc call via singleflight, so a miss is recorded once per real
// open regardless of how many goroutines were waiting on it.
func (c *Cache) Get(ctx context.Context, path string) (*ziparchive.Zip, error) {
	sh := c.shardFor(path)

	sh.mu.Lock()
	if z, ok := sh.lru.Get(path); ok {
		sh.mu.Unlock()
		c.hits.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
		return z, nil
	}
	sh.mu.Unlock()

	v, err, _ := c.sf.Do(path, func() (any, error) {
		sh.mu.Lock()
		if z, ok := sh.lru.Get(path); ok {
			sh.mu.Unlock()
			return z, nil
		}
		sh.mu.Unlock()

		z, err := c.open(path)
		c.misses.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
		if err != nil {
			return nil, err
		}

		sh.mu.Lock()
		sh.lru.Add(path, z)
		sh.mu.Unlock()
		return z, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ziparchive.Zip), nil
}

// Act opens (or fetches the cached) archive at path and invokes cb
// while holding a reference to it.
func Act[T any](ctx context.Context, c *Cache, path string, cb func(*ziparchive.Zip) T) (T, error) {
	z, err := c.Get(ctx, path)
	if err != nil {
		var zero T
		return zero, err
	}
	return cb(z), nil
}

// FileType delegates to the cached archive's FileType.
func (c *Cache) FileType(ctx context.Context, zipPath, sub string) (ziparchive.FileType, error) {
	z, err := c.Get(ctx, zipPath)
	if err != nil {
		return 0, err
	}
	return z.FileType(sub)
}

// Read delegates to the cached archive's Read.
func (c *Cache) Read(ctx context.Context, zipPath, sub string) ([]byte, error) {
	z, err := c.Get(ctx, zipPath)
	if err != nil {
		return nil, err
	}
	return z.Read(sub)
}

// ReadToString delegates to the cached archive's ReadToString.
func (c *Cache) ReadToString(ctx context.Context, zipPath, sub string) (string, error) {
	z, err := c.Get(ctx, zipPath)
	if err != nil {
		return "", err
	}
	return z.ReadToString(sub)
}
