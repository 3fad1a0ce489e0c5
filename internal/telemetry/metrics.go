package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/causeway-mcp/causeway"

// Instruments holds pre-created OTel metric instruments.
type Instruments struct {
	QueryCount     metric.Int64Counter
	QueryDuration  metric.Float64Histogram
	QueryErrors    metric.Int64Counter
	StatementPolls metric.Int64Counter
	CacheHits      metric.Int64Counter
	CacheMisses    metric.Int64Counter
	ToolDuration   metric.Float64Histogram
	ToolErrors     metric.Int64Counter
}

// NewInstruments creates metric instruments from the global MeterProvider.
func NewInstruments() *Instruments {
	return newInstrumentsFromMeter(otel.Meter(meterName))
}

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	return newInstrumentsFromMeter(noop.NewMeterProvider().Meter(meterName))
}

func newInstrumentsFromMeter(meter metric.Meter) *Instruments {
	// OTel SDK returns noop instruments on error; safe to discard.
	queryCount, _ := meter.Int64Counter("causeway.query.count",
		metric.WithDescription("Total number of statements executed"),
	)
	queryDuration, _ := meter.Float64Histogram("causeway.query.duration",
		metric.WithDescription("Statement execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	queryErrors, _ := meter.Int64Counter("causeway.query.errors",
		metric.WithDescription("Total number of rejected or failed statements"),
	)
	statementPolls, _ := meter.Int64Counter("causeway.statement.polls",
		metric.WithDescription("Total number of statement status polls"),
	)
	cacheHits, _ := meter.Int64Counter("causeway.cache.hits",
		metric.WithDescription("Metadata cache hits"),
	)
	cacheMisses, _ := meter.Int64Counter("causeway.cache.misses",
		metric.WithDescription("Metadata cache misses (upstream fetches)"),
	)
	toolDuration, _ := meter.Float64Histogram("causeway.tool.duration",
		metric.WithDescription("MCP tool call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	toolErrors, _ := meter.Int64Counter("causeway.tool.errors",
		metric.WithDescription("MCP tool calls that returned an error result"),
	)

	return &Instruments{
		QueryCount:     queryCount,
		QueryDuration:  queryDuration,
		QueryErrors:    queryErrors,
		StatementPolls: statementPolls,
		CacheHits:      cacheHits,
		CacheMisses:    cacheMisses,
		ToolDuration:   toolDuration,
		ToolErrors:     toolErrors,
	}
}

func (i *Instruments) RecordQueryDuration(ctx context.Context, ms float64) {
	i.QueryDuration.Record(ctx, ms)
}

func (i *Instruments) IncrementQueryCount(ctx context.Context) {
	i.QueryCount.Add(ctx, 1)
}

func (i *Instruments) IncrementQueryErrors(ctx context.Context) {
	i.QueryErrors.Add(ctx, 1)
}

func (i *Instruments) IncrementStatementPolls(ctx context.Context) {
	i.StatementPolls.Add(ctx, 1)
}

func (i *Instruments) IncrementCacheHits(ctx context.Context) {
	i.CacheHits.Add(ctx, 1)
}

func (i *Instruments) IncrementCacheMisses(ctx context.Context) {
	i.CacheMisses.Add(ctx, 1)
}

func (i *Instruments) RecordToolDuration(ctx context.Context, ms float64) {
	i.ToolDuration.Record(ctx, ms)
}

func (i *Instruments) IncrementToolErrors(ctx context.Context) {
	i.ToolErrors.Add(ctx, 1)
}
