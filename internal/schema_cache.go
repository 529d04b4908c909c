package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lychee-technology/scorekeep"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
)

// SchemaCache memoizes compiled validators by the hash of their canonical
// JSON encoding. A hit is only served when the canonical bytes match, so a
// hash collision degrades to a recompile.
type SchemaCache struct {
	lru    *lru.Cache[uint64, *schemaCacheEntry]
	hits   atomic.Int64
	misses atomic.Int64
}

type schemaCacheEntry struct {
	canonical []byte
	validator *CompiledValidator
}

type schemaCacheKey struct {
	Schema      scorekeep.PropertySchema `json:"schema"`
	CoerceTypes bool                     `json:"coerceTypes"`
}

// NewSchemaCache creates a cache holding at most size validators.
func NewSchemaCache(size int) (*SchemaCache, error) {
	c, err := lru.New[uint64, *schemaCacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema cache: %w", err)
	}
	return &SchemaCache{lru: c}, nil
}

// Compile returns a cached validator for schema or compiles and stores a new
// one. A nil cache compiles every time.
func (c *SchemaCache) Compile(schema scorekeep.PropertySchema, opts CompileOptions) (*CompiledValidator, error) {
	if c == nil {
		return Compile(schema, opts)
	}

	canonical, err := json.Marshal(schemaCacheKey{Schema: schema, CoerceTypes: opts.CoerceTypes})
	if err != nil {
		zap.S().Warnw("schema cache key encoding failed, compiling uncached", "error", err)
		return Compile(schema, opts)
	}
	key := xxh3.Hash(canonical)

	if entry, ok := c.lru.Get(key); ok && bytes.Equal(entry.canonical, canonical) {
		c.hits.Add(1)
		return entry.validator, nil
	}
	c.misses.Add(1)

	validator, err := Compile(schema, opts)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, &schemaCacheEntry{canonical: canonical, validator: validator})
	return validator, nil
}

// Stats returns the hit and miss counters.
func (c *SchemaCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of cached validators.
func (c *SchemaCache) Len() int {
	return c.lru.Len()
}
