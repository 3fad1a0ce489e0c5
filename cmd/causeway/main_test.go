package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/causeway-mcp/causeway/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoveryMiddleware_PanicReturns500(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("unexpected error")
	}), logger)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecoveryMiddleware_NoPanicPassesThrough(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), logger)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	healthHandler(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(t *testing.T, o config.Overrides)
	}{
		{
			name: "no flags",
			args: []string{},
			check: func(t *testing.T, o config.Overrides) {
				assert.False(t, o.OTelEnabled)
				assert.Empty(t, o.AuditLog)
				assert.Nil(t, o.Host)
				assert.Nil(t, o.Token)
				assert.Nil(t, o.Transport)
			},
		},
		{
			name: "host and token",
			args: []string{"--host", "https://example.cloud.databricks.com", "--token", "dapi-x"},
			check: func(t *testing.T, o config.Overrides) {
				require.NotNil(t, o.Host)
				assert.Equal(t, "https://example.cloud.databricks.com", *o.Host)
				require.NotNil(t, o.Token)
				assert.Equal(t, "dapi-x", *o.Token)
			},
		},
		{
			name: "warehouse id",
			args: []string{"--warehouse-id", "wh-42"},
			check: func(t *testing.T, o config.Overrides) {
				require.NotNil(t, o.SQLWarehouseID)
				assert.Equal(t, "wh-42", *o.SQLWarehouseID)
			},
		},
		{
			name: "default scope",
			args: []string{"--default-catalog", "prod", "--default-schema", "sales"},
			check: func(t *testing.T, o config.Overrides) {
				require.NotNil(t, o.DefaultCatalog)
				assert.Equal(t, "prod", *o.DefaultCatalog)
				require.NotNil(t, o.DefaultSchema)
				assert.Equal(t, "sales", *o.DefaultSchema)
			},
		},
		{
			name: "query-timeout",
			args: []string{"--query-timeout", "45s"},
			check: func(t *testing.T, o config.Overrides) {
				require.NotNil(t, o.QueryTimeout)
				assert.Equal(t, 45*time.Second, *o.QueryTimeout)
			},
		},
		{
			name: "max-rows",
			args: []string{"--max-rows", "500"},
			check: func(t *testing.T, o config.Overrides) {
				require.NotNil(t, o.MaxRows)
				assert.Equal(t, 500, *o.MaxRows)
			},
		},
		{
			name: "validator ceilings",
			args: []string{"--max-query-length", "5000", "--max-limit", "2000"},
			check: func(t *testing.T, o config.Overrides) {
				require.NotNil(t, o.MaxQueryLength)
				assert.Equal(t, 5000, *o.MaxQueryLength)
				require.NotNil(t, o.MaxLimit)
				assert.Equal(t, 2000, *o.MaxLimit)
			},
		},
		{
			name: "transport http with addr and token",
			args: []string{"--transport", "http", "--http-addr", ":9090", "--http-bearer-token", "tok"},
			check: func(t *testing.T, o config.Overrides) {
				require.NotNil(t, o.Transport)
				assert.Equal(t, "http", *o.Transport)
				require.NotNil(t, o.HTTPAddr)
				assert.Equal(t, ":9090", *o.HTTPAddr)
				require.NotNil(t, o.HTTPBearerToken)
				assert.Equal(t, "tok", *o.HTTPBearerToken)
			},
		},
		{
			name: "otel",
			args: []string{"--otel"},
			check: func(t *testing.T, o config.Overrides) {
				assert.True(t, o.OTelEnabled)
			},
		},
		{
			name: "audit-log",
			args: []string{"--audit-log", "/tmp/audit.ndjson"},
			check: func(t *testing.T, o config.Overrides) {
				assert.Equal(t, "/tmp/audit.ndjson", o.AuditLog)
			},
		},
		{
			name: "log-level",
			args: []string{"--log-level", "debug"},
			check: func(t *testing.T, o config.Overrides) {
				require.NotNil(t, o.LogLevel)
				assert.Equal(t, "debug", *o.LogLevel)
			},
		},
		{
			name: "guardrails-file",
			args: []string{"--guardrails-file", "guardrails.yaml"},
			check: func(t *testing.T, o config.Overrides) {
				require.NotNil(t, o.GuardrailsFile)
				assert.Equal(t, "guardrails.yaml", *o.GuardrailsFile)
			},
		},
		{
			name:    "unknown flag returns error",
			args:    []string{"--unknown-flag"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			overrides, err := parseFlags(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, overrides)
			}
		})
	}
}
