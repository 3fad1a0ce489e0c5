package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Workspace connection.
	Host           string
	Token          string
	SQLWarehouseID string

	// Default scope for metadata and statement binding.
	DefaultCatalog string
	DefaultSchema  string

	// Statement execution.
	QueryTimeout time.Duration // server-side wait, clamped to [5s,50s] at use
	MaxRows      int           // LIMIT injected into bare SELECTs

	// Validator ceilings.
	MaxQueryLength int
	MaxLimit       int

	// Optional guardrails YAML extending the validator.
	GuardrailsFile string

	// Logging.
	LogLevel slog.Level

	// Transport.
	Transport       string // "stdio" (default) or "http"
	HTTPAddr        string // listen address for HTTP transport (default ":8080")
	HTTPBearerToken string // required when transport=http

	// Observability.
	OTelEnabled bool

	// CLI-only fields (not settable via env vars).
	AuditLog string // path to NDJSON audit log file
}

// Overrides holds CLI flag values that override environment variables.
// Pointer fields distinguish "not set" from zero values.
type Overrides struct {
	Host            *string
	Token           *string
	SQLWarehouseID  *string
	DefaultCatalog  *string
	DefaultSchema   *string
	QueryTimeout    *time.Duration
	MaxRows         *int
	MaxQueryLength  *int
	MaxLimit        *int
	GuardrailsFile  *string
	LogLevel        *string
	Transport       *string
	HTTPAddr        *string
	HTTPBearerToken *string
	OTelEnabled     bool
	AuditLog        string
}

// Load builds a Config from environment variables, then applies CLI overrides,
// then validates the result.
func Load(overrides Overrides) (*Config, error) {
	cfg := defaults()

	if err := loadEnvVars(cfg); err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaults returns a Config populated with default values.
func defaults() *Config {
	return &Config{
		Host:           os.Getenv("DATABRICKS_HOST"),
		Token:          os.Getenv("DATABRICKS_TOKEN"),
		SQLWarehouseID: os.Getenv("DATABRICKS_SQL_WAREHOUSE_ID"),
		DefaultCatalog: "main",
		DefaultSchema:  "default",
		QueryTimeout:   30 * time.Second,
		MaxRows:        100,
		MaxQueryLength: 10000,
		MaxLimit:       10000,
		Transport:      "stdio",
		HTTPAddr:       ":8080",
	}
}

// loadEnvVars reads all supported environment variables into cfg.
func loadEnvVars(cfg *Config) error {
	if v := os.Getenv("DEFAULT_CATALOG"); v != "" {
		cfg.DefaultCatalog = v
	}
	if v := os.Getenv("DEFAULT_SCHEMA"); v != "" {
		cfg.DefaultSchema = v
	}

	if v := os.Getenv("QUERY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid QUERY_TIMEOUT value %q: %w", v, err)
		}
		cfg.QueryTimeout = d
	}

	if v := os.Getenv("MAX_ROWS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid MAX_ROWS value %q: must be a positive integer", v)
		}
		cfg.MaxRows = n
	}

	if v := os.Getenv("MAX_QUERY_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid MAX_QUERY_LENGTH value %q: must be a positive integer", v)
		}
		cfg.MaxQueryLength = n
	}

	if v := os.Getenv("MAX_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid MAX_LIMIT value %q: must be a positive integer", v)
		}
		cfg.MaxLimit = n
	}

	cfg.GuardrailsFile = os.Getenv("GUARDRAILS_FILE")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}

	if v := os.Getenv("TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.HTTPBearerToken = os.Getenv("HTTP_BEARER_TOKEN")

	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid OTEL_ENABLED value %q: %w", v, err)
		}
		cfg.OTelEnabled = b
	}

	return nil
}

// applyOverrides applies CLI flag values on top of the env-loaded config.
func applyOverrides(cfg *Config, o Overrides) error {
	if o.Host != nil {
		cfg.Host = *o.Host
	}
	if o.Token != nil {
		cfg.Token = *o.Token
	}
	if o.SQLWarehouseID != nil {
		cfg.SQLWarehouseID = *o.SQLWarehouseID
	}
	if o.DefaultCatalog != nil {
		cfg.DefaultCatalog = *o.DefaultCatalog
	}
	if o.DefaultSchema != nil {
		cfg.DefaultSchema = *o.DefaultSchema
	}
	if o.QueryTimeout != nil {
		cfg.QueryTimeout = *o.QueryTimeout
	}
	if o.MaxRows != nil {
		if *o.MaxRows <= 0 {
			return fmt.Errorf("invalid --max-rows value: must be a positive integer")
		}
		cfg.MaxRows = *o.MaxRows
	}
	if o.MaxQueryLength != nil {
		if *o.MaxQueryLength <= 0 {
			return fmt.Errorf("invalid --max-query-length value: must be a positive integer")
		}
		cfg.MaxQueryLength = *o.MaxQueryLength
	}
	if o.MaxLimit != nil {
		if *o.MaxLimit <= 0 {
			return fmt.Errorf("invalid --max-limit value: must be a positive integer")
		}
		cfg.MaxLimit = *o.MaxLimit
	}
	if o.GuardrailsFile != nil {
		cfg.GuardrailsFile = *o.GuardrailsFile
	}
	if o.LogLevel != nil {
		level, err := parseLogLevel(*o.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if o.Transport != nil {
		cfg.Transport = *o.Transport
	}
	if o.HTTPAddr != nil {
		cfg.HTTPAddr = *o.HTTPAddr
	}
	if o.HTTPBearerToken != nil {
		cfg.HTTPBearerToken = *o.HTTPBearerToken
	}

	cfg.AuditLog = o.AuditLog
	cfg.OTelEnabled = cfg.OTelEnabled || o.OTelEnabled

	return nil
}

// validate checks cross-field constraints on the final config.
func validate(cfg *Config) error {
	if cfg.Host == "" {
		return fmt.Errorf("DATABRICKS_HOST is required (set via env var or --host flag)")
	}
	if !strings.HasPrefix(cfg.Host, "http://") && !strings.HasPrefix(cfg.Host, "https://") {
		return fmt.Errorf("invalid DATABRICKS_HOST value %q: must start with http:// or https://", cfg.Host)
	}
	if cfg.Token == "" {
		return fmt.Errorf("DATABRICKS_TOKEN is required (set via env var or --token flag)")
	}

	switch cfg.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid TRANSPORT value %q: must be \"stdio\" or \"http\"", cfg.Transport)
	}

	if cfg.Transport == "http" && cfg.HTTPBearerToken == "" {
		return fmt.Errorf("HTTP_BEARER_TOKEN is required when transport is \"http\" (set via env var or --http-bearer-token flag)")
	}

	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL value %q: must be debug, info, warn, or error", s)
	}
}
