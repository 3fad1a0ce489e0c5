package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/causeway-mcp/causeway/internal/adapter/cache"
	"github.com/causeway-mcp/causeway/internal/adapter/databricks"
	"github.com/causeway-mcp/causeway/internal/adapter/mcp"
	"github.com/causeway-mcp/causeway/internal/audit"
	"github.com/causeway-mcp/causeway/internal/config"
	"github.com/causeway-mcp/causeway/internal/core/domain"
	"github.com/causeway-mcp/causeway/internal/core/port"
	"github.com/causeway-mcp/causeway/internal/core/service"
	"github.com/causeway-mcp/causeway/internal/guardrails"
	"github.com/causeway-mcp/causeway/internal/telemetry"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	overrides, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Logs go to stderr — stdout is reserved for the MCP stdio transport.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	logger.Info("starting causeway",
		slog.String("version", version),
		slog.String("log_level", cfg.LogLevel.String()),
		slog.String("transport", cfg.Transport),
		slog.String("default_catalog", cfg.DefaultCatalog),
		slog.String("default_schema", cfg.DefaultSchema),
		slog.Int("max_rows", cfg.MaxRows),
		slog.String("query_timeout", cfg.QueryTimeout.String()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Telemetry (optional).
	tracer := telemetry.NoopTracer()
	inst := telemetry.NoopInstruments()
	if cfg.OTelEnabled {
		provider, err := telemetry.Init(ctx, telemetry.ServiceInfo{
			Name:        "causeway",
			Version:     version,
			WarehouseID: cfg.SQLWarehouseID,
			Transport:   cfg.Transport,
		})
		if err != nil {
			return fmt.Errorf("initializing telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.Error("telemetry shutdown", slog.String("error.message", err.Error()))
			}
		}()
		tracer = otel.Tracer("github.com/causeway-mcp/causeway")
		inst = telemetry.NewInstruments()
		logger.Info("telemetry enabled")
	}

	w, err := databricks.NewWorkspaceClient(cfg.Host, cfg.Token)
	if err != nil {
		return fmt.Errorf("creating workspace client: %w", err)
	}

	// Adapters. The metadata explorer is wrapped in the caching decorator.
	explorer := cache.New(databricks.NewExplorer(w), inst)
	executor := databricks.NewStatementExecutor(w)

	// Domain validator, optionally extended by a guardrails file.
	maxQueryLength := cfg.MaxQueryLength
	maxLimit := cfg.MaxLimit
	var rails *guardrails.Guardrails
	if cfg.GuardrailsFile != "" {
		rails, err = guardrails.LoadFromFile(cfg.GuardrailsFile)
		if err != nil {
			return fmt.Errorf("loading guardrails: %w", err)
		}
		maxQueryLength = rails.QueryLengthOr(maxQueryLength)
		maxLimit = rails.LimitOr(maxLimit)
	}
	validator := domain.NewValidator(maxQueryLength, maxLimit)
	if rails != nil {
		rails.Apply(validator)
		logger.Info("guardrails loaded", slog.String("file", cfg.GuardrailsFile))
	}

	// Audit log (optional).
	var auditor port.QueryAuditor = port.NoopAuditor{}
	if cfg.AuditLog != "" {
		fileAuditor, err := audit.NewFileAuditor(cfg.AuditLog)
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		defer fileAuditor.Close()
		auditor = fileAuditor
		logger.Info("audit log enabled", slog.String("file", cfg.AuditLog))
	}

	// Services
	metadataSvc := service.NewMetadataService(explorer, cfg.DefaultCatalog, cfg.DefaultSchema)
	querySvc := service.NewQueryService(validator, executor, auditor, logger, tracer, inst)
	computeSvc := service.NewComputeService(databricks.NewCompute(w))
	jobsSvc := service.NewJobsService(databricks.NewJobs(w))

	// MCP server with tool handlers.
	mcpServer := mcp.NewServer(version, mcp.Deps{
		Metadata:           metadataSvc,
		Query:              querySvc,
		Compute:            computeSvc,
		Jobs:               jobsSvc,
		Cache:              explorer,
		WarehouseID:        cfg.SQLWarehouseID,
		DefaultRowLimit:    cfg.MaxRows,
		DefaultWaitTimeout: cfg.QueryTimeout,
	}, logger, tracer, inst)

	// Connection test: one metadata round-trip before accepting requests.
	if catalogs, err := metadataSvc.ListCatalogs(ctx); err != nil {
		logger.Warn("workspace connection test failed",
			slog.String("error.message", err.Error()),
		)
	} else {
		logger.Info("workspace connection verified",
			slog.Int("catalogs", len(catalogs)),
		)
	}

	if cfg.Transport == "http" {
		return serveHTTP(ctx, cfg, mcpServer, logger)
	}

	// Run MCP over stdio (stdin/stdout).
	stdioServer := mcpserver.NewStdioServer(mcpServer)

	logger.Info("serving MCP over stdio")
	if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil {
		return fmt.Errorf("stdio server: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// serveHTTP runs the streamable HTTP transport behind bearer auth and panic
// recovery, with a plain /health endpoint outside the auth gate.
func serveHTTP(ctx context.Context, cfg *config.Config, mcpServer *mcpserver.MCPServer, logger *slog.Logger) error {
	streamable := mcpserver.NewStreamableHTTPServer(mcpServer)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/", recoveryMiddleware(
		bearerAuthMiddleware(streamable, cfg.HTTPBearerToken),
		logger,
	))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving MCP over HTTP", slog.String("addr", cfg.HTTPAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// parseFlags parses CLI flags into config overrides. Only flags that were
// actually set produce non-nil override fields.
func parseFlags(args []string) (config.Overrides, error) {
	fs := flag.NewFlagSet("causeway", flag.ContinueOnError)

	host := fs.String("host", "", "workspace URL (overrides DATABRICKS_HOST)")
	token := fs.String("token", "", "access token (overrides DATABRICKS_TOKEN)")
	warehouseID := fs.String("warehouse-id", "", "SQL warehouse id (overrides DATABRICKS_SQL_WAREHOUSE_ID)")
	defaultCatalog := fs.String("default-catalog", "", "default catalog (overrides DEFAULT_CATALOG)")
	defaultSchema := fs.String("default-schema", "", "default schema (overrides DEFAULT_SCHEMA)")
	queryTimeout := fs.Duration("query-timeout", 0, "server-side statement wait (overrides QUERY_TIMEOUT)")
	maxRows := fs.Int("max-rows", 0, "row limit added to bare SELECTs (overrides MAX_ROWS)")
	maxQueryLength := fs.Int("max-query-length", 0, "maximum statement length (overrides MAX_QUERY_LENGTH)")
	maxLimit := fs.Int("max-limit", 0, "maximum explicit LIMIT value (overrides MAX_LIMIT)")
	guardrailsFile := fs.String("guardrails-file", "", "guardrails YAML file (overrides GUARDRAILS_FILE)")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	transport := fs.String("transport", "", "transport: stdio or http (overrides TRANSPORT)")
	httpAddr := fs.String("http-addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	httpBearerToken := fs.String("http-bearer-token", "", "bearer token for the HTTP transport (overrides HTTP_BEARER_TOKEN)")
	otelEnabled := fs.Bool("otel", false, "enable OpenTelemetry tracing and metrics")
	auditLog := fs.String("audit-log", "", "path to the NDJSON query audit log")

	if err := fs.Parse(args); err != nil {
		return config.Overrides{}, err
	}

	o := config.Overrides{
		OTelEnabled: *otelEnabled,
		AuditLog:    *auditLog,
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			o.Host = host
		case "token":
			o.Token = token
		case "warehouse-id":
			o.SQLWarehouseID = warehouseID
		case "default-catalog":
			o.DefaultCatalog = defaultCatalog
		case "default-schema":
			o.DefaultSchema = defaultSchema
		case "query-timeout":
			o.QueryTimeout = queryTimeout
		case "max-rows":
			o.MaxRows = maxRows
		case "max-query-length":
			o.MaxQueryLength = maxQueryLength
		case "max-limit":
			o.MaxLimit = maxLimit
		case "guardrails-file":
			o.GuardrailsFile = guardrailsFile
		case "log-level":
			o.LogLevel = logLevel
		case "transport":
			o.Transport = transport
		case "http-addr":
			o.HTTPAddr = httpAddr
		case "http-bearer-token":
			o.HTTPBearerToken = httpBearerToken
		}
	})

	return o, nil
}
