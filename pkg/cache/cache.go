// Package cache stores rendered outputs so unchanged documents are not laid
// out and rendered again.
//
// Keys are derived from the serialized document, not from the file path: two
// files with the same DOT text, layout engine, render arguments and format
// share one entry. Backends:
//
//   - [FileCache]: one JSON file per entry under a directory (CLI default)
//   - [RedisCache]: a Redis server, for several machines sharing outputs
//   - [MongoCache]: a MongoDB collection with a TTL index
//   - [NullCache]: stores nothing
//
// Cache failures are never fatal to a render: [Fetch] treats a failing Get
// as a miss and ignores a failing Set.
package cache

import (
	"context"
	"time"

	"github.com/matzehuels/livedot/pkg/observability"
)

// TTLArtifact is how long rendered outputs are kept.
const TTLArtifact = 7 * 24 * time.Hour

// keyTypeArtifact labels artifact lookups in cache hooks.
const keyTypeArtifact = "artifact"

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the entry for key. A missing or expired entry is a miss,
	// not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero or less never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend connections.
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}

// ArtifactKeyOpts are the render inputs besides the document itself.
type ArtifactKeyOpts struct {
	Layout       string            `json:"layout"`
	Format       string            `json:"format"`
	Args         map[string]string `json:"args,omitempty"`
	NormalizeSVG bool              `json:"normalize_svg,omitempty"`
}

// Keyer derives cache keys.
type Keyer interface {
	// ArtifactKey returns the key of one rendered output of the document
	// whose serialized form hashes to docHash.
	ArtifactKey(docHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes the key options with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default Keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(docHash string, opts ArtifactKeyOpts) string {
	return hashKey(keyTypeArtifact, docHash, opts)
}

// Fetch returns the cached entry for key, or calls fn and stores its result.
// The boolean reports a cache hit.
func Fetch(ctx context.Context, c Cache, key string, ttl time.Duration, fn func() ([]byte, error)) ([]byte, bool, error) {
	hooks := observability.Cache()
	if data, hit, err := c.Get(ctx, key); err == nil && hit {
		hooks.OnCacheHit(ctx, keyTypeArtifact)
		return data, true, nil
	}
	hooks.OnCacheMiss(ctx, keyTypeArtifact)

	data, err := fn()
	if err != nil {
		return nil, false, err
	}
	if err := c.Set(ctx, key, data, ttl); err == nil {
		hooks.OnCacheSet(ctx, keyTypeArtifact, len(data))
	}
	return data, false, nil
}
