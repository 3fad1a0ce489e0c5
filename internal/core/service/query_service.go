package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/causeway-mcp/causeway/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	defaultPollInterval = 500 * time.Millisecond

	minWaitTimeout = 5 * time.Second
	maxWaitTimeout = 50 * time.Second
)

type toolNameKey struct{}

// WithToolName returns a context carrying the MCP tool name for audit logging.
func WithToolName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, toolNameKey{}, name)
}

func toolNameFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(toolNameKey{}).(string); ok {
		return v
	}
	return ""
}

// QueryService orchestrates one statement's execution: safety validation
// (domain), LIMIT injection, submission, and polling to a terminal state
// (infrastructure). Every call returns exactly one terminal
// StatementExecution; validation rejections and transport faults both surface
// as FAILED executions, never as raw errors.
type QueryService struct {
	validator    port.QueryValidator
	executor     port.StatementExecutor
	auditor      port.QueryAuditor
	logger       *slog.Logger
	tracer       trace.Tracer
	inst         port.Instrumentation
	pollInterval time.Duration
}

// Option configures a QueryService.
type Option func(*QueryService)

// WithPollInterval overrides the interval between statement status polls.
func WithPollInterval(d time.Duration) Option {
	return func(s *QueryService) { s.pollInterval = d }
}

func NewQueryService(validator port.QueryValidator, executor port.StatementExecutor, auditor port.QueryAuditor, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation, opts ...Option) *QueryService {
	if auditor == nil {
		auditor = port.NoopAuditor{}
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	s := &QueryService{
		validator:    validator,
		executor:     executor,
		auditor:      auditor,
		logger:       logger,
		tracer:       tracer,
		inst:         inst,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute runs req to a terminal state. The returned execution carries the
// SQL text actually submitted (after LIMIT injection) and either normalized
// result rows or an error message.
func (s *QueryService) Execute(ctx context.Context, req port.StatementRequest) *port.StatementExecution {
	ctx, span := s.tracer.Start(ctx, "QueryService.Execute",
		trace.WithAttributes(
			attribute.String("db.system", "databricks"),
			attribute.String("db.statement", req.SQL),
		),
	)
	defer span.End()

	start := time.Now()

	if err := s.validator.Validate(req.SQL); err != nil {
		s.logger.WarnContext(ctx, "query validation rejected",
			slog.String("db.statement", req.SQL),
			slog.String("error.type", "validation_error"),
			slog.String("reason", err.Error()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.inst.IncrementQueryErrors(ctx)

		exec := &port.StatementExecution{
			State:        port.StateFailed,
			Rows:         [][]string{},
			ErrorMessage: fmt.Sprintf("query validation failed: %v", err),
			SQL:          req.SQL,
		}
		s.audit(ctx, exec, time.Since(start))
		return exec
	}

	req.SQL = appendLimit(req.SQL, req.RowLimit)
	req.WaitTimeout = clampWaitTimeout(req.WaitTimeout)

	exec, err := s.executor.SubmitStatement(ctx, req)
	if err != nil {
		return s.transportFailure(ctx, span, req.SQL, err, start)
	}

	for !exec.State.Terminal() {
		select {
		case <-ctx.Done():
			return s.transportFailure(ctx, span, req.SQL, ctx.Err(), start)
		case <-time.After(s.pollInterval):
		}

		s.inst.IncrementStatementPolls(ctx)
		next, err := s.executor.GetStatement(ctx, exec.ID)
		if err != nil {
			return s.transportFailure(ctx, span, req.SQL, err, start)
		}
		exec = next
	}

	exec.SQL = req.SQL
	s.normalize(exec)

	duration := time.Since(start)
	s.inst.RecordQueryDuration(ctx, float64(duration.Milliseconds()))
	s.audit(ctx, exec, duration)

	if exec.State == port.StateFailed {
		span.SetStatus(codes.Error, exec.ErrorMessage)
		s.inst.IncrementQueryErrors(ctx)
		s.logger.ErrorContext(ctx, "statement failed",
			slog.String("statement_id", exec.ID),
			slog.String("error.message", exec.ErrorMessage),
		)
		return exec
	}

	s.inst.IncrementQueryCount(ctx)
	span.SetAttributes(attribute.Int64("db.response.rows", exec.RowCount))
	s.logger.InfoContext(ctx, "statement succeeded",
		slog.String("statement_id", exec.ID),
		slog.Int64("rows", exec.RowCount),
		slog.Duration("duration", duration),
	)
	return exec
}

// normalize makes the terminal execution uniform for callers: succeeded
// statements always carry rows (possibly empty), failed ones always carry a
// message.
func (s *QueryService) normalize(exec *port.StatementExecution) {
	switch exec.State {
	case port.StateSucceeded:
		if exec.Rows == nil {
			exec.Rows = [][]string{}
		}
	default:
		// Canceled and closed statements from the transport are also
		// terminal failures from the caller's point of view.
		exec.State = port.StateFailed
		if exec.ErrorMessage == "" {
			exec.ErrorMessage = "Unknown error"
		}
		if exec.Rows == nil {
			exec.Rows = [][]string{}
		}
	}
}

// transportFailure converts a submission or polling fault into a terminal
// FAILED execution. Transport faults are never retried and never propagated
// as raw errors.
func (s *QueryService) transportFailure(ctx context.Context, span trace.Span, sql string, err error, start time.Time) *port.StatementExecution {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.inst.IncrementQueryErrors(ctx)
	s.logger.ErrorContext(ctx, "statement transport fault",
		slog.String("db.statement", sql),
		slog.String("error.message", err.Error()),
	)

	exec := &port.StatementExecution{
		State:        port.StateFailed,
		Rows:         [][]string{},
		ErrorMessage: err.Error(),
		SQL:          sql,
	}
	s.audit(ctx, exec, time.Since(start))
	return exec
}

func (s *QueryService) audit(ctx context.Context, exec *port.StatementExecution, duration time.Duration) {
	var err error
	if exec.ErrorMessage != "" {
		err = fmt.Errorf("%s", exec.ErrorMessage)
	}
	s.auditor.Record(ctx, port.AuditEntry{
		Tool:       toolNameFromCtx(ctx),
		SQL:        exec.SQL,
		State:      string(exec.State),
		RowCount:   exec.RowCount,
		DurationMS: duration.Milliseconds(),
		Err:        err,
	})
}

// appendLimit adds a LIMIT clause to bare SELECT statements that lack one.
// Idempotent: a statement already containing LIMIT (at any position) is
// returned unchanged, as is anything that is not a SELECT at all.
func appendLimit(sql string, rowLimit int) string {
	if rowLimit <= 0 {
		return sql
	}
	trimmed := strings.TrimSpace(sql)
	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") || strings.Contains(upper, "LIMIT") {
		return sql
	}
	trimmed = strings.TrimSpace(strings.TrimRight(trimmed, ";"))
	return fmt.Sprintf("%s LIMIT %d", trimmed, rowLimit)
}

// clampWaitTimeout bounds the server-side wait to what the statement API
// accepts.
func clampWaitTimeout(d time.Duration) time.Duration {
	if d < minWaitTimeout {
		return minWaitTimeout
	}
	if d > maxWaitTimeout {
		return maxWaitTimeout
	}
	return d
}
