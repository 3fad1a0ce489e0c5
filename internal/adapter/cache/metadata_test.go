package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/causeway-mcp/causeway/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingExplorer records upstream call counts per operation.
type countingExplorer struct {
	catalogCalls atomic.Int64
	schemaCalls  atomic.Int64
	tableCalls   atomic.Int64
	getCalls     atomic.Int64
	err          error
}

func (e *countingExplorer) ListCatalogs(_ context.Context) ([]port.Catalog, error) {
	e.catalogCalls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return []port.Catalog{{Name: "main"}}, nil
}

func (e *countingExplorer) ListSchemas(_ context.Context, catalog string) ([]port.Schema, error) {
	e.schemaCalls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return []port.Schema{{Name: "default", CatalogName: catalog}}, nil
}

func (e *countingExplorer) ListTables(_ context.Context, catalog, schema string) ([]port.Table, error) {
	e.tableCalls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return []port.Table{{Name: "users", CatalogName: catalog, SchemaName: schema}}, nil
}

func (e *countingExplorer) GetTable(_ context.Context, fullName string) (*port.Table, error) {
	e.getCalls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return &port.Table{FullName: fullName}, nil
}

func TestMetadata_SingleFetchPerKey(t *testing.T) {
	inner := &countingExplorer{}
	c := New(inner, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := c.ListCatalogs(ctx)
		require.NoError(t, err)
		_, err = c.ListSchemas(ctx, "main")
		require.NoError(t, err)
		_, err = c.ListTables(ctx, "main", "default")
		require.NoError(t, err)
	}

	assert.Equal(t, int64(1), inner.catalogCalls.Load())
	assert.Equal(t, int64(1), inner.schemaCalls.Load())
	assert.Equal(t, int64(1), inner.tableCalls.Load())
}

func TestMetadata_DistinctKeysFetchSeparately(t *testing.T) {
	inner := &countingExplorer{}
	c := New(inner, nil)
	ctx := context.Background()

	_, _ = c.ListSchemas(ctx, "main")
	_, _ = c.ListSchemas(ctx, "prod")
	_, _ = c.ListTables(ctx, "main", "default")
	_, _ = c.ListTables(ctx, "main", "sales")

	assert.Equal(t, int64(2), inner.schemaCalls.Load())
	assert.Equal(t, int64(2), inner.tableCalls.Load())
}

func TestMetadata_ConcurrentMissesCollapse(t *testing.T) {
	inner := &countingExplorer{}
	c := New(inner, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			catalogs, err := c.ListCatalogs(ctx)
			assert.NoError(t, err)
			assert.Len(t, catalogs, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), inner.catalogCalls.Load(), "concurrent first lookups must collapse to one fetch")
}

func TestMetadata_ErrorsNotCached(t *testing.T) {
	inner := &countingExplorer{err: fmt.Errorf("unavailable")}
	c := New(inner, nil)
	ctx := context.Background()

	_, err := c.ListCatalogs(ctx)
	require.Error(t, err)

	inner.err = nil
	catalogs, err := c.ListCatalogs(ctx)
	require.NoError(t, err)
	assert.Len(t, catalogs, 1)
	assert.Equal(t, int64(2), inner.catalogCalls.Load(), "a failed fetch must be retried on the next call")
}

func TestMetadata_ClearForcesRefetch(t *testing.T) {
	inner := &countingExplorer{}
	c := New(inner, nil)
	ctx := context.Background()

	_, _ = c.ListCatalogs(ctx)
	_, _ = c.ListSchemas(ctx, "main")
	_, _ = c.ListTables(ctx, "main", "default")

	c.Clear()

	_, _ = c.ListCatalogs(ctx)
	_, _ = c.ListSchemas(ctx, "main")
	_, _ = c.ListTables(ctx, "main", "default")

	assert.Equal(t, int64(2), inner.catalogCalls.Load())
	assert.Equal(t, int64(2), inner.schemaCalls.Load())
	assert.Equal(t, int64(2), inner.tableCalls.Load())
}

// blockingExplorer parks ListCatalogs until released, so a test can run Clear
// while a fetch is in flight.
type blockingExplorer struct {
	countingExplorer
	entered chan struct{}
	release chan struct{}
}

func (e *blockingExplorer) ListCatalogs(ctx context.Context) ([]port.Catalog, error) {
	if e.countingExplorer.catalogCalls.Load() == 0 {
		close(e.entered)
		<-e.release
	}
	return e.countingExplorer.ListCatalogs(ctx)
}

func TestMetadata_ClearDuringInFlightFetch(t *testing.T) {
	inner := &blockingExplorer{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := New(inner, nil)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := c.ListCatalogs(ctx)
		assert.NoError(t, err)
	}()

	// Clear lands while the first fetch is parked upstream. Its result must
	// not survive the clear.
	<-inner.entered
	c.Clear()
	close(inner.release)
	<-done

	_, err := c.ListCatalogs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), inner.catalogCalls.Load(),
		"a fetch issued before Clear must not repopulate the cache")
}

func TestMetadata_GetTablePassesThrough(t *testing.T) {
	inner := &countingExplorer{}
	c := New(inner, nil)
	ctx := context.Background()

	_, _ = c.GetTable(ctx, "main.default.users")
	_, _ = c.GetTable(ctx, "main.default.users")

	assert.Equal(t, int64(2), inner.getCalls.Load(), "single-table detail is never cached")
}
