package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/causeway-mcp/causeway/internal/core/domain"
	"github.com/causeway-mcp/causeway/internal/core/port"
	"github.com/causeway-mcp/causeway/internal/core/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock MetadataExplorer ---

type mockExplorer struct {
	catalogs []port.Catalog
	schemas  []port.Schema
	tables   []port.Table
	table    *port.Table
	err      error
}

func (m *mockExplorer) ListCatalogs(_ context.Context) ([]port.Catalog, error) {
	return m.catalogs, m.err
}

func (m *mockExplorer) ListSchemas(_ context.Context, _ string) ([]port.Schema, error) {
	return m.schemas, m.err
}

func (m *mockExplorer) ListTables(_ context.Context, _, _ string) ([]port.Table, error) {
	return m.tables, m.err
}

func (m *mockExplorer) GetTable(_ context.Context, _ string) (*port.Table, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.table == nil {
		return nil, domain.ErrNotFound
	}
	return m.table, nil
}

// --- mock StatementExecutor ---

type mockExecutor struct {
	lastReq port.StatementRequest
	result  *port.StatementExecution
	err     error
}

func (m *mockExecutor) SubmitStatement(_ context.Context, req port.StatementRequest) (*port.StatementExecution, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	out := *m.result
	return &out, nil
}

func (m *mockExecutor) GetStatement(_ context.Context, _ string) (*port.StatementExecution, error) {
	return nil, fmt.Errorf("unexpected poll")
}

// --- mock Compute ---

type mockCompute struct {
	clusters   []port.Cluster
	cluster    *port.Cluster
	createdID  string
	lastSpec   port.ClusterSpec
	lastAction string
	lastID     string
	err        error
}

func (m *mockCompute) ListClusters(_ context.Context) ([]port.Cluster, error) {
	return m.clusters, m.err
}

func (m *mockCompute) GetCluster(_ context.Context, clusterID string) (*port.Cluster, error) {
	m.lastID = clusterID
	return m.cluster, m.err
}

func (m *mockCompute) CreateCluster(_ context.Context, spec port.ClusterSpec) (string, error) {
	m.lastAction, m.lastSpec = "create", spec
	return m.createdID, m.err
}

func (m *mockCompute) StartCluster(_ context.Context, clusterID string) error {
	m.lastAction, m.lastID = "start", clusterID
	return m.err
}

func (m *mockCompute) TerminateCluster(_ context.Context, clusterID string) error {
	m.lastAction, m.lastID = "terminate", clusterID
	return m.err
}

func (m *mockCompute) RestartCluster(_ context.Context, clusterID string) error {
	m.lastAction, m.lastID = "restart", clusterID
	return m.err
}

// --- mock Jobs ---

type mockJobs struct {
	jobs       []port.Job
	job        *port.Job
	lastLimit  int
	lastOffset int
	lastParams port.RunParams
	runID      int64
	err        error
}

func (m *mockJobs) ListJobs(_ context.Context, limit, offset int, _ bool) ([]port.Job, error) {
	m.lastLimit, m.lastOffset = limit, offset
	return m.jobs, m.err
}

func (m *mockJobs) GetJob(_ context.Context, _ int64) (*port.Job, error) {
	return m.job, m.err
}

func (m *mockJobs) RunJob(_ context.Context, _ int64, params port.RunParams) (int64, error) {
	m.lastParams = params
	return m.runID, m.err
}

// --- recording auditor ---

type recordingAuditor struct {
	entries []port.AuditEntry
}

func (a *recordingAuditor) Record(_ context.Context, e port.AuditEntry) {
	a.entries = append(a.entries, e)
}

func (a *recordingAuditor) Close() error { return nil }

// --- counting instrumentation ---

type countingInst struct {
	port.NoopInstrumentation
	mu            sync.Mutex
	toolDurations int
	toolErrors    int
}

func (c *countingInst) RecordToolDuration(_ context.Context, _ float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toolDurations++
}

func (c *countingInst) IncrementToolErrors(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toolErrors++
}

// --- mock CacheClearer ---

type mockClearer struct {
	cleared int
}

func (m *mockClearer) Clear() { m.cleared++ }

// --- helpers ---

func callTool(t *testing.T, s *server.MCPServer, toolName string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	session := server.NewInProcessSession("test", nil)
	require.NoError(t, s.RegisterSession(ctx, session))
	defer s.UnregisterSession(ctx, session.SessionID())
	sessionCtx := s.WithContext(ctx, session)

	// Initialize session.
	initBytes, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": "init", "method": "initialize",
		"params": map[string]any{
			"protocolVersion": "2025-03-26",
			"capabilities":    map[string]any{},
			"clientInfo":      map[string]any{"name": "test", "version": "1.0"},
		},
	})
	s.HandleMessage(sessionCtx, initBytes)

	// Call tool.
	reqBytes, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": "call-1", "method": "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": args,
		},
	})
	resp := s.HandleMessage(sessionCtx, reqBytes)
	respBytes, _ := json.Marshal(resp)

	var rpc struct {
		Result *mcp.CallToolResult       `json:"result"`
		Error  *struct{ Message string } `json:"error,omitempty"`
	}
	require.NoError(t, json.Unmarshal(respBytes, &rpc))
	require.Nil(t, rpc.Error, "unexpected RPC error: %v", rpc.Error)
	require.NotNil(t, rpc.Result)
	return rpc.Result
}

func toolEnvelope(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	text := toolText(result)
	var envelope map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &envelope), "tool text: %s", text)
	return envelope
}

func toolText(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return ""
	}
	return tc.Text
}

type testDeps struct {
	explorer *mockExplorer
	executor *mockExecutor
	compute  *mockCompute
	jobs     *mockJobs
	clearer  *mockClearer
}

func setupServer(d testDeps) *server.MCPServer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if d.explorer == nil {
		d.explorer = &mockExplorer{}
	}
	if d.executor == nil {
		d.executor = &mockExecutor{}
	}

	deps := Deps{
		Metadata: service.NewMetadataService(d.explorer, "main", "default"),
		Query: service.NewQueryService(
			domain.NewValidator(10000, 10000), d.executor, nil, logger, nil, nil,
		),
		WarehouseID:        "wh-test",
		DefaultRowLimit:    100,
		DefaultWaitTimeout: 30 * time.Second,
	}
	if d.compute != nil {
		deps.Compute = service.NewComputeService(d.compute)
	}
	if d.jobs != nil {
		deps.Jobs = service.NewJobsService(d.jobs)
	}
	if d.clearer != nil {
		deps.Cache = d.clearer
	}

	return NewServer("0.1.0", deps, logger, nil, nil)
}

// --- tests ---

func TestListCatalogs_HappyPath(t *testing.T) {
	s := setupServer(testDeps{explorer: &mockExplorer{
		catalogs: []port.Catalog{{Name: "main"}, {Name: "samples"}},
	}})

	result := callTool(t, s, "list_catalogs", nil)
	require.False(t, result.IsError)

	envelope := toolEnvelope(t, result)
	assert.Equal(t, "success", envelope["status"])
	assert.EqualValues(t, 2, envelope["count"])
}

func TestListCatalogs_Error(t *testing.T) {
	s := setupServer(testDeps{explorer: &mockExplorer{err: fmt.Errorf("permission denied")}})

	result := callTool(t, s, "list_catalogs", nil)
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "failed to list catalogs")
}

func TestListTables_DefaultScope(t *testing.T) {
	s := setupServer(testDeps{explorer: &mockExplorer{
		tables: []port.Table{{Name: "users", FullName: "main.default.users"}},
	}})

	result := callTool(t, s, "list_tables", nil)
	require.False(t, result.IsError)

	envelope := toolEnvelope(t, result)
	assert.Equal(t, "success", envelope["status"])
	assert.Equal(t, "main", envelope["catalog"])
	assert.Equal(t, "default", envelope["schema"])
	assert.EqualValues(t, 1, envelope["count"])
}

func TestGetTableInfo_MissingArgument(t *testing.T) {
	s := setupServer(testDeps{})

	result := callTool(t, s, "get_table_info", map[string]any{})
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "table_name is required")
}

func TestGetTableInfo_NotFound(t *testing.T) {
	s := setupServer(testDeps{explorer: &mockExplorer{}})

	result := callTool(t, s, "get_table_info", map[string]any{"table_name": "missing"})
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "not found")
}

func TestGetTableInfo_HappyPath(t *testing.T) {
	s := setupServer(testDeps{explorer: &mockExplorer{
		table: &port.Table{
			Name:     "users",
			FullName: "main.default.users",
			Columns:  []port.Column{{Name: "id", TypeName: "BIGINT"}},
		},
	}})

	result := callTool(t, s, "get_table_info", map[string]any{"table_name": "users"})
	require.False(t, result.IsError)

	envelope := toolEnvelope(t, result)
	assert.Equal(t, "success", envelope["status"])
	table := envelope["table"].(map[string]any)
	assert.Equal(t, "main.default.users", table["full_name"])
}

func TestSearchTables_HappyPath(t *testing.T) {
	s := setupServer(testDeps{explorer: &mockExplorer{
		tables: []port.Table{{Name: "orders"}, {Name: "customers"}},
	}})

	result := callTool(t, s, "search_tables", map[string]any{"pattern": "^ord"})
	require.False(t, result.IsError)

	envelope := toolEnvelope(t, result)
	assert.Equal(t, "success", envelope["status"])
	res := envelope["result"].(map[string]any)
	assert.EqualValues(t, 1, res["match_count"])
	assert.EqualValues(t, 2, res["total_tables_searched"])
}

func TestExecuteQuery_HappyPath(t *testing.T) {
	executor := &mockExecutor{
		result: &port.StatementExecution{
			ID:       "stmt-1",
			State:    port.StateSucceeded,
			Columns:  []string{"id"},
			Rows:     [][]string{{"1"}},
			RowCount: 1,
		},
	}
	s := setupServer(testDeps{executor: executor})

	result := callTool(t, s, "execute_query", map[string]any{"sql": "SELECT id FROM users"})
	require.False(t, result.IsError)

	envelope := toolEnvelope(t, result)
	assert.Equal(t, "success", envelope["status"])
	assert.EqualValues(t, 1, envelope["row_count"])
	assert.Equal(t, "SELECT id FROM users LIMIT 100", envelope["query_executed"])
	assert.Equal(t, "SELECT id FROM users LIMIT 100", executor.lastReq.SQL)
	assert.Equal(t, "wh-test", executor.lastReq.WarehouseID)
}

func TestExecuteQuery_CustomLimit(t *testing.T) {
	executor := &mockExecutor{
		result: &port.StatementExecution{State: port.StateSucceeded, Rows: [][]string{}},
	}
	s := setupServer(testDeps{executor: executor})

	callTool(t, s, "execute_query", map[string]any{"sql": "SELECT 1", "limit": 25})
	assert.Equal(t, "SELECT 1 LIMIT 25", executor.lastReq.SQL)
}

func TestExecuteQuery_ValidationFailureIsStructured(t *testing.T) {
	executor := &mockExecutor{}
	s := setupServer(testDeps{executor: executor})

	result := callTool(t, s, "execute_query", map[string]any{"sql": "DROP TABLE users"})

	// Rejections come back as a structured envelope, not a protocol error.
	require.False(t, result.IsError)
	envelope := toolEnvelope(t, result)
	assert.Equal(t, "error", envelope["status"])
	assert.Contains(t, envelope["error"], "query validation failed")
	assert.Empty(t, executor.lastReq.SQL, "rejected statements never reach the executor")
}

func TestExecuteQuery_MissingSQL(t *testing.T) {
	s := setupServer(testDeps{})

	result := callTool(t, s, "execute_query", map[string]any{})
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "sql is required")
}

func TestExecuteStatement_FullRequest(t *testing.T) {
	executor := &mockExecutor{
		result: &port.StatementExecution{State: port.StateSucceeded, Rows: [][]string{}},
	}
	s := setupServer(testDeps{executor: executor})

	result := callTool(t, s, "execute_statement", map[string]any{
		"sql":          "SELECT * FROM t WHERE id = :id LIMIT 1",
		"warehouse_id": "wh-override",
		"catalog":      "prod",
		"schema":       "sales",
		"wait_timeout": 45,
		"row_limit":    10,
		"parameters": []any{
			map[string]any{"name": "id", "value": "7", "type": "INT"},
		},
	})
	require.False(t, result.IsError)

	assert.Equal(t, "wh-override", executor.lastReq.WarehouseID)
	assert.Equal(t, "prod", executor.lastReq.Catalog)
	assert.Equal(t, "sales", executor.lastReq.Schema)
	assert.Equal(t, 45*time.Second, executor.lastReq.WaitTimeout)
	require.Len(t, executor.lastReq.Parameters, 1)
	assert.Equal(t, port.StatementParameter{Name: "id", Value: "7", Type: "INT"}, executor.lastReq.Parameters[0])
}

func TestExecuteStatement_BadParameters(t *testing.T) {
	s := setupServer(testDeps{})

	result := callTool(t, s, "execute_statement", map[string]any{
		"sql":        "SELECT 1",
		"parameters": []any{map[string]any{"value": "7"}},
	})
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "missing a name")
}

func TestSuggestQueries_HappyPath(t *testing.T) {
	s := setupServer(testDeps{explorer: &mockExplorer{
		tables: []port.Table{{Name: "users", FullName: "main.default.users", CatalogName: "main", SchemaName: "default"}},
	}})

	result := callTool(t, s, "suggest_queries", map[string]any{"request": "how many records are there"})
	require.False(t, result.IsError)

	envelope := toolEnvelope(t, result)
	assert.Equal(t, "success", envelope["status"])
	assert.Equal(t, string(domain.IntentCountRecords), envelope["intent"])
	assert.EqualValues(t, 1, envelope["count"])
}

func TestClusterTools(t *testing.T) {
	compute := &mockCompute{
		clusters: []port.Cluster{{ID: "c-1", Name: "etl", State: "RUNNING"}},
		cluster:  &port.Cluster{ID: "c-1", Name: "etl", State: "RUNNING"},
	}
	s := setupServer(testDeps{compute: compute})

	result := callTool(t, s, "list_clusters", nil)
	require.False(t, result.IsError)
	envelope := toolEnvelope(t, result)
	assert.EqualValues(t, 1, envelope["count"])

	result = callTool(t, s, "get_cluster", map[string]any{"cluster_id": "c-1"})
	require.False(t, result.IsError)

	result = callTool(t, s, "start_cluster", map[string]any{"cluster_id": "c-1"})
	require.False(t, result.IsError)
	assert.Equal(t, "start", compute.lastAction)

	result = callTool(t, s, "restart_cluster", map[string]any{"cluster_id": "c-1"})
	require.False(t, result.IsError)
	assert.Equal(t, "restart", compute.lastAction)

	result = callTool(t, s, "terminate_cluster", map[string]any{"cluster_id": "c-1"})
	require.False(t, result.IsError)
	assert.Equal(t, "terminate", compute.lastAction)
	assert.Equal(t, "c-1", compute.lastID)
}

func TestCreateCluster_FixedSize(t *testing.T) {
	compute := &mockCompute{createdID: "c-new"}
	s := setupServer(testDeps{compute: compute})

	result := callTool(t, s, "create_cluster", map[string]any{
		"cluster_name":             "etl",
		"spark_version":            "14.3.x-scala2.12",
		"node_type_id":             "i3.xlarge",
		"num_workers":              4,
		"auto_termination_minutes": 30,
	})
	require.False(t, result.IsError)

	envelope := toolEnvelope(t, result)
	assert.Equal(t, "success", envelope["status"])
	assert.Equal(t, "c-new", envelope["cluster_id"])
	assert.Equal(t, "etl", envelope["cluster_name"])

	assert.Equal(t, port.ClusterSpec{
		Name:                   "etl",
		SparkVersion:           "14.3.x-scala2.12",
		NodeTypeID:             "i3.xlarge",
		NumWorkers:             4,
		AutoTerminationMinutes: 30,
	}, compute.lastSpec)
}

func TestCreateCluster_Autoscale(t *testing.T) {
	compute := &mockCompute{createdID: "c-auto"}
	s := setupServer(testDeps{compute: compute})

	result := callTool(t, s, "create_cluster", map[string]any{
		"cluster_name":          "adhoc",
		"spark_version":         "14.3.x-scala2.12",
		"node_type_id":          "i3.xlarge",
		"autoscale_min_workers": 2,
		"autoscale_max_workers": 8,
	})
	require.False(t, result.IsError)

	assert.Equal(t, 0, compute.lastSpec.NumWorkers)
	assert.Equal(t, 2, compute.lastSpec.AutoscaleMinWorkers)
	assert.Equal(t, 8, compute.lastSpec.AutoscaleMaxWorkers)
}

func TestCreateCluster_BadArguments(t *testing.T) {
	compute := &mockCompute{}
	s := setupServer(testDeps{compute: compute})

	result := callTool(t, s, "create_cluster", map[string]any{
		"cluster_name": "etl",
	})
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "required")

	result = callTool(t, s, "create_cluster", map[string]any{
		"cluster_name":          "etl",
		"spark_version":         "14.3.x-scala2.12",
		"node_type_id":          "i3.xlarge",
		"autoscale_min_workers": 2,
	})
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "must be set together")
	assert.Empty(t, compute.lastAction, "rejected requests never reach the service")
}

func TestClusterTools_MissingID(t *testing.T) {
	s := setupServer(testDeps{compute: &mockCompute{}})

	result := callTool(t, s, "start_cluster", map[string]any{})
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "cluster_id is required")
}

func TestJobTools(t *testing.T) {
	jobs := &mockJobs{
		jobs:  []port.Job{{ID: 7, Name: "nightly"}},
		job:   &port.Job{ID: 7, Name: "nightly"},
		runID: 99,
	}
	s := setupServer(testDeps{jobs: jobs})

	result := callTool(t, s, "list_jobs", nil)
	require.False(t, result.IsError)
	envelope := toolEnvelope(t, result)
	assert.EqualValues(t, 1, envelope["count"])

	result = callTool(t, s, "list_jobs", map[string]any{"limit": 10, "offset": 20})
	require.False(t, result.IsError)
	assert.Equal(t, 10, jobs.lastLimit)
	assert.Equal(t, 20, jobs.lastOffset)

	result = callTool(t, s, "get_job", map[string]any{"job_id": 7})
	require.False(t, result.IsError)

	result = callTool(t, s, "run_job", map[string]any{
		"job_id":          7,
		"notebook_params": map[string]any{"date": "2024-01-01"},
	})
	require.False(t, result.IsError)
	envelope = toolEnvelope(t, result)
	assert.EqualValues(t, 99, envelope["run_id"])
	assert.Equal(t, map[string]string{"date": "2024-01-01"}, jobs.lastParams.NotebookParams)
}

func TestAuditEntriesCarryToolName(t *testing.T) {
	auditor := &recordingAuditor{}
	executor := &mockExecutor{
		result: &port.StatementExecution{State: port.StateSucceeded, Rows: [][]string{}},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// No handler stamps the tool name itself; the middleware does.
	deps := Deps{
		Metadata: service.NewMetadataService(&mockExplorer{}, "main", "default"),
		Query: service.NewQueryService(
			domain.NewValidator(10000, 10000), executor, auditor, logger, nil, nil,
		),
		WarehouseID:        "wh-test",
		DefaultRowLimit:    100,
		DefaultWaitTimeout: 30 * time.Second,
	}
	s := NewServer("0.1.0", deps, logger, nil, nil)

	result := callTool(t, s, "execute_query", map[string]any{"sql": "SELECT 1"})
	require.False(t, result.IsError)

	require.Len(t, auditor.entries, 1)
	assert.Equal(t, "execute_query", auditor.entries[0].Tool)

	callTool(t, s, "execute_statement", map[string]any{"sql": "SELECT 2"})
	require.Len(t, auditor.entries, 2)
	assert.Equal(t, "execute_statement", auditor.entries[1].Tool)
}

func TestToolCallHooks_RecordInstruments(t *testing.T) {
	inst := &countingInst{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	deps := Deps{
		Metadata: service.NewMetadataService(&mockExplorer{err: fmt.Errorf("permission denied")}, "main", "default"),
		Query: service.NewQueryService(
			domain.NewValidator(10000, 10000), &mockExecutor{}, nil, logger, nil, nil,
		),
		WarehouseID: "wh-test",
	}
	s := NewServer("0.1.0", deps, logger, nil, inst)

	result := callTool(t, s, "list_catalogs", nil)
	require.True(t, result.IsError)

	inst.mu.Lock()
	defer inst.mu.Unlock()
	assert.Equal(t, 1, inst.toolDurations)
	assert.Equal(t, 1, inst.toolErrors)
}

func TestClearCache(t *testing.T) {
	clearer := &mockClearer{}
	s := setupServer(testDeps{clearer: clearer})

	result := callTool(t, s, "clear_cache", nil)
	require.False(t, result.IsError)
	assert.Equal(t, 1, clearer.cleared)

	envelope := toolEnvelope(t, result)
	assert.Equal(t, "success", envelope["status"])
}
