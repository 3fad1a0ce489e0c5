package mcp

import (
	"log/slog"

	"github.com/causeway-mcp/causeway/internal/core/port"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"
)

// NewServer creates an MCPServer with tools, call observation hooks, and the
// audit-name middleware.
func NewServer(version string, deps Deps, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithHooks(ToolCallHooks(logger, tracer, inst)),
		server.WithToolHandlerMiddleware(auditNameMiddleware),
	)

	RegisterTools(s, deps)

	return s
}
