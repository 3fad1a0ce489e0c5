package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/causeway-mcp/causeway/internal/core/port"
	"github.com/causeway-mcp/causeway/internal/core/service"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// auditNameMiddleware stamps the tool name into the request context so the
// query orchestrator can attribute audit entries to the tool that triggered
// them, without each handler repeating the stamp.
func auditNameMiddleware(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return next(service.WithToolName(ctx, req.Params.Name), req)
	}
}

// callObserver correlates the before/after/error hooks of one tool call and
// emits the log line, span, and metrics when the call settles.
type callObserver struct {
	logger *slog.Logger
	tracer trace.Tracer
	inst   port.Instrumentation

	inflight sync.Map // request id -> *toolCall
}

type toolCall struct {
	name  string
	start time.Time
	span  trace.Span
}

// ToolCallHooks observes every tool call: a structured log line per call,
// a span when a tracer is configured, and duration/error instruments.
func ToolCallHooks(logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.Hooks {
	obs := &callObserver{logger: logger, tracer: tracer, inst: inst}
	if obs.inst == nil {
		obs.inst = port.NoopInstrumentation{}
	}

	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(obs.begin)
	hooks.AddAfterCallTool(obs.settle)
	hooks.AddOnError(obs.fail)
	return hooks
}

func (o *callObserver) begin(ctx context.Context, id any, req *mcp.CallToolRequest) {
	call := &toolCall{name: req.Params.Name, start: time.Now()}
	if o.tracer != nil {
		_, call.span = o.tracer.Start(ctx, "tools/call "+call.name,
			trace.WithAttributes(attribute.String("mcp.tool", call.name)),
		)
	}
	o.inflight.Store(id, call)
}

func (o *callObserver) settle(ctx context.Context, id any, req *mcp.CallToolRequest, result any) {
	failed := false
	if r, ok := result.(*mcp.CallToolResult); ok {
		failed = r.IsError
	}
	o.finish(ctx, o.take(id, req.Params.Name), failed, nil)
}

func (o *callObserver) fail(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
	req, ok := message.(*mcp.CallToolRequest)
	if !ok {
		return
	}
	o.finish(ctx, o.take(id, req.Params.Name), true, err)
}

// take claims the in-flight entry for id. A call that was never observed by
// begin still settles with a zero duration rather than being dropped.
func (o *callObserver) take(id any, name string) *toolCall {
	if v, ok := o.inflight.LoadAndDelete(id); ok {
		return v.(*toolCall)
	}
	return &toolCall{name: name, start: time.Now()}
}

func (o *callObserver) finish(ctx context.Context, call *toolCall, failed bool, err error) {
	duration := time.Since(call.start)

	level := slog.LevelInfo
	if failed {
		level = slog.LevelError
	}
	attrs := []slog.Attr{
		slog.String("rpc.method", "tools/call"),
		slog.String("mcp.tool", call.name),
		slog.Duration("duration", duration),
		slog.Bool("error", failed),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error.message", err.Error()))
	}
	o.logger.LogAttrs(ctx, level, "tool call", attrs...)

	o.inst.RecordToolDuration(ctx, float64(duration.Milliseconds()))
	if failed {
		o.inst.IncrementToolErrors(ctx)
	}

	if call.span != nil {
		if failed {
			if err == nil {
				err = fmt.Errorf("tool %s returned error result", call.name)
			}
			call.span.RecordError(err)
			call.span.SetStatus(codes.Error, err.Error())
		}
		call.span.End()
	}
}
