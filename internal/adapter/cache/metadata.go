// Package cache memoizes warehouse metadata listings. Catalog, schema, and
// table topology changes are rare relative to a server's uptime, so entries
// live until an explicit Clear — a deliberate simplification, not hidden
// staleness.
package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/causeway-mcp/causeway/internal/core/port"
	"golang.org/x/sync/singleflight"
)

type tableKey struct {
	catalog string
	schema  string
}

// Metadata is a caching decorator over a MetadataExplorer. Concurrent first
// lookups of the same key collapse to one upstream fetch; errors are never
// cached. GetTable is a pass-through.
type Metadata struct {
	inner port.MetadataExplorer
	inst  port.Instrumentation

	group singleflight.Group

	mu           sync.RWMutex
	gen          uint64 // bumped by Clear; stale in-flight fetches never store
	catalogs     []port.Catalog
	haveCatalogs bool
	schemas      map[string][]port.Schema
	tables       map[tableKey][]port.Table
}

// New wraps inner with metadata caching. inst may be nil.
func New(inner port.MetadataExplorer, inst port.Instrumentation) *Metadata {
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	return &Metadata{
		inner:   inner,
		inst:    inst,
		schemas: make(map[string][]port.Schema),
		tables:  make(map[tableKey][]port.Table),
	}
}

func (c *Metadata) ListCatalogs(ctx context.Context) ([]port.Catalog, error) {
	c.mu.RLock()
	if c.haveCatalogs {
		cached := c.catalogs
		c.mu.RUnlock()
		c.inst.IncrementCacheHits(ctx)
		return cached, nil
	}
	gen := c.gen
	c.mu.RUnlock()

	v, err, _ := c.group.Do(c.key(gen, "catalogs"), func() (any, error) {
		c.mu.RLock()
		if c.haveCatalogs {
			cached := c.catalogs
			c.mu.RUnlock()
			return cached, nil
		}
		c.mu.RUnlock()

		c.inst.IncrementCacheMisses(ctx)
		catalogs, err := c.inner.ListCatalogs(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.gen == gen {
			c.catalogs = catalogs
			c.haveCatalogs = true
		}
		c.mu.Unlock()
		return catalogs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]port.Catalog), nil
}

func (c *Metadata) ListSchemas(ctx context.Context, catalog string) ([]port.Schema, error) {
	c.mu.RLock()
	cached, ok := c.schemas[catalog]
	gen := c.gen
	c.mu.RUnlock()
	if ok {
		c.inst.IncrementCacheHits(ctx)
		return cached, nil
	}

	v, err, _ := c.group.Do(c.key(gen, "schemas:"+catalog), func() (any, error) {
		c.mu.RLock()
		cached, ok := c.schemas[catalog]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		c.inst.IncrementCacheMisses(ctx)
		schemas, err := c.inner.ListSchemas(ctx, catalog)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.gen == gen {
			c.schemas[catalog] = schemas
		}
		c.mu.Unlock()
		return schemas, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]port.Schema), nil
}

func (c *Metadata) ListTables(ctx context.Context, catalog, schema string) ([]port.Table, error) {
	key := tableKey{catalog, schema}

	c.mu.RLock()
	cached, ok := c.tables[key]
	gen := c.gen
	c.mu.RUnlock()
	if ok {
		c.inst.IncrementCacheHits(ctx)
		return cached, nil
	}

	v, err, _ := c.group.Do(c.key(gen, "tables:"+catalog+"."+schema), func() (any, error) {
		c.mu.RLock()
		cached, ok := c.tables[key]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		c.inst.IncrementCacheMisses(ctx)
		tables, err := c.inner.ListTables(ctx, catalog, schema)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.gen == gen {
			c.tables[key] = tables
		}
		c.mu.Unlock()
		return tables, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]port.Table), nil
}

// GetTable is not cached: single-table detail includes column metadata that is
// cheap to fetch and more likely to change than topology.
func (c *Metadata) GetTable(ctx context.Context, fullName string) (*port.Table, error) {
	return c.inner.GetTable(ctx, fullName)
}

// key scopes a singleflight key to one generation, so lookups issued after a
// Clear never join a flight that started before it.
func (c *Metadata) key(gen uint64, name string) string {
	return fmt.Sprintf("%d/%s", gen, name)
}

// Clear empties all three maps atomically with respect to concurrent lookups:
// no reader observes a partially cleared cache. Bumping the generation keeps
// fetches that were already in flight from storing their results afterward.
func (c *Metadata) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.catalogs = nil
	c.haveCatalogs = false
	c.schemas = make(map[string][]port.Schema)
	c.tables = make(map[tableKey][]port.Table)
}
