package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/causeway-mcp/causeway/internal/bridge"
	"github.com/causeway-mcp/causeway/internal/core/domain"
	"github.com/causeway-mcp/causeway/internal/core/port"
	"github.com/causeway-mcp/causeway/internal/core/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server metadata
const serverName = "causeway"

// Tool descriptions
const (
	descListCatalogs = "List all catalogs in the workspace. " +
		"Call this first to discover what catalogs exist before listing schemas or tables."

	descListSchemas = "List all schemas in a catalog. " +
		"Omit the catalog to use the configured default."

	descListTables = "List all tables and views in a schema with their full names, types, and comments. " +
		"Use this to understand the data landscape before writing queries. " +
		"Omit catalog and schema to use the configured defaults."

	descGetTableInfo = "Get detailed information about a table: columns with types and comments, " +
		"table type, and full three-part name. " +
		"The table name may be bare (resolved against the default catalog and schema), " +
		"schema-qualified (schema.table), or fully qualified (catalog.schema.table). " +
		"Use this to understand a table's structure before writing queries against it."

	descSearchTables = "Search for tables whose names match a pattern (case-insensitive regular expression) " +
		"within one catalog.schema scope. " +
		"Returns the matching tables plus how many tables were searched. " +
		"Useful when you know part of a table name but not its exact spelling."

	descExecuteQuery = "Execute a read-only SQL query against the SQL warehouse and return results. " +
		"Only SELECT, WITH, SHOW, DESCRIBE, and EXPLAIN statements are allowed; " +
		"a LIMIT clause is added automatically to bare SELECTs. " +
		"Always use specific column names instead of SELECT * on large tables."

	descExecuteQuerySQL = "SQL query to execute (read-only statements only)"

	descExecuteStatement = "Execute a read-only SQL statement with full control over warehouse, " +
		"catalog/schema binding, named parameters, server-side wait timeout, and row limit. " +
		"Use execute_query for simple queries; use this when you need parameters or a non-default scope."

	descSuggestQueries = "Generate ready-to-run SQL query suggestions from a natural-language request, " +
		"based on the tables visible in the current scope. " +
		"Suggestions are advisory; each one still passes safety validation when executed."

	descListClusters = "List all compute clusters in the workspace with their states."

	descCreateCluster = "Create a new all-purpose compute cluster. " +
		"Provide num_workers for a fixed-size cluster, " +
		"or autoscale_min_workers and autoscale_max_workers for an autoscaling one. " +
		"Returns the new cluster id immediately; poll get_cluster to observe startup."

	descGetCluster = "Get detailed information about a cluster, including driver and executor nodes."

	descStartCluster = "Start a terminated cluster. Returns immediately; " +
		"poll get_cluster to observe the state transition."

	descTerminateCluster = "Terminate a running cluster. Returns immediately; " +
		"poll get_cluster to observe the state transition."

	descRestartCluster = "Restart a cluster. Returns immediately; " +
		"poll get_cluster to observe the state transition."

	descListJobs = "List jobs defined in the workspace. " +
		"Use limit and offset to page through large workspaces."

	descGetJob = "Get detailed information about a job by its numeric id."

	descRunJob = "Trigger a job run now, optionally with notebook, jar, python, or spark-submit parameters. " +
		"Returns the run id."

	descClearCache = "Clear the cached catalog, schema, and table listings. " +
		"Call this after metadata changes in the workspace so subsequent listings refetch."
)

// Deps bundles everything the tool handlers need.
type Deps struct {
	Metadata *service.MetadataService
	Query    *service.QueryService
	Compute  *service.ComputeService
	Jobs     *service.JobsService
	Cache    port.CacheClearer

	WarehouseID        string
	DefaultRowLimit    int
	DefaultWaitTimeout time.Duration
}

func RegisterTools(s *server.MCPServer, deps Deps) {
	s.AddTool(
		mcp.NewTool("list_catalogs",
			mcp.WithDescription(descListCatalogs),
		),
		listCatalogsHandler(deps.Metadata),
	)

	s.AddTool(
		mcp.NewTool("list_schemas",
			mcp.WithDescription(descListSchemas),
			mcp.WithString("catalog",
				mcp.Description("Catalog name (optional, defaults to the configured catalog)"),
			),
		),
		listSchemasHandler(deps.Metadata),
	)

	s.AddTool(
		mcp.NewTool("list_tables",
			mcp.WithDescription(descListTables),
			mcp.WithString("catalog",
				mcp.Description("Catalog name (optional, defaults to the configured catalog)"),
			),
			mcp.WithString("schema",
				mcp.Description("Schema name (optional, defaults to the configured schema)"),
			),
		),
		listTablesHandler(deps.Metadata),
	)

	s.AddTool(
		mcp.NewTool("get_table_info",
			mcp.WithDescription(descGetTableInfo),
			mcp.WithString("table_name",
				mcp.Required(),
				mcp.Description("Table name: bare, schema-qualified, or fully qualified"),
			),
			mcp.WithString("catalog",
				mcp.Description("Catalog name (optional, overridden by a qualified table_name)"),
			),
			mcp.WithString("schema",
				mcp.Description("Schema name (optional, overridden by a qualified table_name)"),
			),
		),
		getTableInfoHandler(deps.Metadata),
	)

	s.AddTool(
		mcp.NewTool("search_tables",
			mcp.WithDescription(descSearchTables),
			mcp.WithString("pattern",
				mcp.Required(),
				mcp.Description("Case-insensitive regular expression matched against table names"),
			),
			mcp.WithString("catalog",
				mcp.Description("Catalog name (optional, defaults to the configured catalog)"),
			),
			mcp.WithString("schema",
				mcp.Description("Schema name (optional, defaults to the configured schema)"),
			),
		),
		searchTablesHandler(deps.Metadata),
	)

	s.AddTool(
		mcp.NewTool("execute_query",
			mcp.WithDescription(descExecuteQuery),
			mcp.WithString("sql",
				mcp.Required(),
				mcp.Description(descExecuteQuerySQL),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum rows to return (defaults to the configured row limit)"),
			),
		),
		executeQueryHandler(deps),
	)

	s.AddTool(
		mcp.NewTool("execute_statement",
			mcp.WithDescription(descExecuteStatement),
			mcp.WithString("sql",
				mcp.Required(),
				mcp.Description("SQL statement to execute (read-only statements only)"),
			),
			mcp.WithString("warehouse_id",
				mcp.Description("SQL warehouse id (optional, defaults to the configured warehouse)"),
			),
			mcp.WithString("catalog",
				mcp.Description("Catalog to bind unqualified names against (optional)"),
			),
			mcp.WithString("schema",
				mcp.Description("Schema to bind unqualified names against (optional)"),
			),
			mcp.WithArray("parameters",
				mcp.Description("Named statement parameters: objects with name, value, and optional type"),
			),
			mcp.WithNumber("wait_timeout",
				mcp.Description("Server-side wait in seconds, clamped to [5, 50] (defaults to 30)"),
			),
			mcp.WithNumber("row_limit",
				mcp.Description("LIMIT added to bare SELECTs (optional, 0 disables)"),
			),
		),
		executeStatementHandler(deps),
	)

	s.AddTool(
		mcp.NewTool("suggest_queries",
			mcp.WithDescription(descSuggestQueries),
			mcp.WithString("request",
				mcp.Required(),
				mcp.Description("Natural-language description of what you want to query"),
			),
			mcp.WithString("catalog",
				mcp.Description("Catalog scope for suggestions (optional)"),
			),
			mcp.WithString("schema",
				mcp.Description("Schema scope for suggestions (optional)"),
			),
		),
		suggestQueriesHandler(deps.Metadata),
	)

	if deps.Compute != nil {
		registerComputeTools(s, deps.Compute)
	}
	if deps.Jobs != nil {
		registerJobTools(s, deps.Jobs)
	}

	if deps.Cache != nil {
		s.AddTool(
			mcp.NewTool("clear_cache",
				mcp.WithDescription(descClearCache),
			),
			clearCacheHandler(deps.Cache),
		)
	}
}

func registerComputeTools(s *server.MCPServer, compute *service.ComputeService) {
	s.AddTool(
		mcp.NewTool("list_clusters",
			mcp.WithDescription(descListClusters),
		),
		listClustersHandler(compute),
	)

	s.AddTool(
		mcp.NewTool("get_cluster",
			mcp.WithDescription(descGetCluster),
			mcp.WithString("cluster_id",
				mcp.Required(),
				mcp.Description("Cluster id"),
			),
		),
		getClusterHandler(compute),
	)

	s.AddTool(
		mcp.NewTool("create_cluster",
			mcp.WithDescription(descCreateCluster),
			mcp.WithString("cluster_name",
				mcp.Required(),
				mcp.Description("Name for the new cluster"),
			),
			mcp.WithString("spark_version",
				mcp.Required(),
				mcp.Description("Spark runtime version key"),
			),
			mcp.WithString("node_type_id",
				mcp.Required(),
				mcp.Description("Node type id for driver and workers"),
			),
			mcp.WithNumber("num_workers",
				mcp.Description("Fixed number of workers (omit when autoscaling)"),
			),
			mcp.WithNumber("autoscale_min_workers",
				mcp.Description("Minimum workers when autoscaling (requires autoscale_max_workers)"),
			),
			mcp.WithNumber("autoscale_max_workers",
				mcp.Description("Maximum workers when autoscaling (requires autoscale_min_workers)"),
			),
			mcp.WithNumber("auto_termination_minutes",
				mcp.Description("Terminate the cluster after this many idle minutes (optional)"),
			),
		),
		createClusterHandler(compute),
	)

	s.AddTool(
		mcp.NewTool("start_cluster",
			mcp.WithDescription(descStartCluster),
			mcp.WithString("cluster_id",
				mcp.Required(),
				mcp.Description("Cluster id"),
			),
		),
		clusterActionHandler("start", compute.StartCluster),
	)

	s.AddTool(
		mcp.NewTool("terminate_cluster",
			mcp.WithDescription(descTerminateCluster),
			mcp.WithString("cluster_id",
				mcp.Required(),
				mcp.Description("Cluster id"),
			),
		),
		clusterActionHandler("terminate", compute.TerminateCluster),
	)

	s.AddTool(
		mcp.NewTool("restart_cluster",
			mcp.WithDescription(descRestartCluster),
			mcp.WithString("cluster_id",
				mcp.Required(),
				mcp.Description("Cluster id"),
			),
		),
		clusterActionHandler("restart", compute.RestartCluster),
	)
}

func registerJobTools(s *server.MCPServer, jobs *service.JobsService) {
	s.AddTool(
		mcp.NewTool("list_jobs",
			mcp.WithDescription(descListJobs),
			mcp.WithNumber("limit",
				mcp.Description("Maximum jobs to return (optional)"),
			),
			mcp.WithNumber("offset",
				mcp.Description("Number of jobs to skip before returning results (optional)"),
			),
			mcp.WithBoolean("expand_tasks",
				mcp.Description("Include task details in the listing. Defaults to false."),
			),
		),
		listJobsHandler(jobs),
	)

	s.AddTool(
		mcp.NewTool("get_job",
			mcp.WithDescription(descGetJob),
			mcp.WithNumber("job_id",
				mcp.Required(),
				mcp.Description("Numeric job id"),
			),
		),
		getJobHandler(jobs),
	)

	s.AddTool(
		mcp.NewTool("run_job",
			mcp.WithDescription(descRunJob),
			mcp.WithNumber("job_id",
				mcp.Required(),
				mcp.Description("Numeric job id"),
			),
			mcp.WithObject("notebook_params",
				mcp.Description("Notebook parameters as key/value pairs (optional)"),
			),
			mcp.WithArray("jar_params",
				mcp.Description("Jar parameters (optional)"),
			),
			mcp.WithArray("python_params",
				mcp.Description("Python parameters (optional)"),
			),
			mcp.WithArray("spark_submit_params",
				mcp.Description("Spark-submit parameters (optional)"),
			),
		),
		runJobHandler(jobs),
	)
}

// jsonResult marshals v into a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func listCatalogsHandler(metadata *service.MetadataService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		catalogs, err := bridge.Run(ctx, metadata.ListCatalogs)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list catalogs: %v", err)), nil
		}

		return jsonResult(map[string]any{
			"status":   "success",
			"count":    len(catalogs),
			"catalogs": catalogs,
		})
	}
}

func listSchemasHandler(metadata *service.MetadataService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		catalog, _ := request.GetArguments()["catalog"].(string)

		schemas, err := bridge.Run(ctx, func(ctx context.Context) ([]port.Schema, error) {
			return metadata.ListSchemas(ctx, catalog)
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list schemas: %v", err)), nil
		}

		return jsonResult(map[string]any{
			"status":  "success",
			"catalog": metadata.CatalogOr(catalog),
			"count":   len(schemas),
			"schemas": schemas,
		})
	}
}

func listTablesHandler(metadata *service.MetadataService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		catalog, _ := request.GetArguments()["catalog"].(string)
		schema, _ := request.GetArguments()["schema"].(string)

		tables, err := bridge.Run(ctx, func(ctx context.Context) ([]port.Table, error) {
			return metadata.ListTables(ctx, catalog, schema)
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list tables: %v", err)), nil
		}

		return jsonResult(map[string]any{
			"status":  "success",
			"catalog": metadata.CatalogOr(catalog),
			"schema":  metadata.SchemaOr(schema),
			"count":   len(tables),
			"tables":  tables,
		})
	}
}

func getTableInfoHandler(metadata *service.MetadataService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tableName, ok := request.GetArguments()["table_name"].(string)
		if !ok || tableName == "" {
			return mcp.NewToolResultError("table_name is required"), nil
		}

		catalog, _ := request.GetArguments()["catalog"].(string)
		schema, _ := request.GetArguments()["schema"].(string)

		table, err := bridge.Run(ctx, func(ctx context.Context) (*port.Table, error) {
			return metadata.GetTable(ctx, tableName, catalog, schema)
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to get table info: %v", err)), nil
		}

		return jsonResult(map[string]any{
			"status": "success",
			"table":  table,
		})
	}
}

func searchTablesHandler(metadata *service.MetadataService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pattern, ok := request.GetArguments()["pattern"].(string)
		if !ok || pattern == "" {
			return mcp.NewToolResultError("pattern is required"), nil
		}

		catalog, _ := request.GetArguments()["catalog"].(string)
		schema, _ := request.GetArguments()["schema"].(string)

		result, err := bridge.Run(ctx, func(ctx context.Context) (*service.SearchResult, error) {
			return metadata.SearchTables(ctx, pattern, catalog, schema)
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to search tables: %v", err)), nil
		}

		return jsonResult(map[string]any{
			"status": "success",
			"result": result,
		})
	}
}

// executionEnvelope renders a terminal execution as a tool result. Failed
// executions are still returned as structured JSON, not protocol errors.
func executionEnvelope(exec *port.StatementExecution) (*mcp.CallToolResult, error) {
	envelope := map[string]any{
		"query_executed": exec.SQL,
	}
	if exec.ID != "" {
		envelope["statement_id"] = exec.ID
	}

	if exec.State == port.StateSucceeded {
		envelope["status"] = "success"
		envelope["row_count"] = exec.RowCount
		envelope["columns"] = exec.Columns
		envelope["data"] = exec.Rows
	} else {
		envelope["status"] = "error"
		envelope["error"] = exec.ErrorMessage
	}

	return jsonResult(envelope)
}

func executeQueryHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, ok := request.GetArguments()["sql"].(string)
		if !ok || sql == "" {
			return mcp.NewToolResultError("sql is required"), nil
		}

		limit := deps.DefaultRowLimit
		if v, ok := request.GetArguments()["limit"].(float64); ok && v > 0 {
			limit = int(v)
		}

		exec, _ := bridge.Run(ctx, func(ctx context.Context) (*port.StatementExecution, error) {
			return deps.Query.Execute(ctx, port.StatementRequest{
				SQL:         sql,
				WarehouseID: deps.WarehouseID,
				WaitTimeout: deps.DefaultWaitTimeout,
				RowLimit:    limit,
			}), nil
		})

		return executionEnvelope(exec)
	}
}

func executeStatementHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		sql, ok := args["sql"].(string)
		if !ok || sql == "" {
			return mcp.NewToolResultError("sql is required"), nil
		}

		req := port.StatementRequest{
			SQL:         sql,
			WarehouseID: deps.WarehouseID,
			WaitTimeout: deps.DefaultWaitTimeout,
		}
		if v, ok := args["warehouse_id"].(string); ok && v != "" {
			req.WarehouseID = v
		}
		req.Catalog, _ = args["catalog"].(string)
		req.Schema, _ = args["schema"].(string)
		if v, ok := args["wait_timeout"].(float64); ok && v > 0 {
			req.WaitTimeout = time.Duration(v) * time.Second
		}
		if v, ok := args["row_limit"].(float64); ok && v > 0 {
			req.RowLimit = int(v)
		}

		params, err := parseParameters(args["parameters"])
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		req.Parameters = params

		exec, _ := bridge.Run(ctx, func(ctx context.Context) (*port.StatementExecution, error) {
			return deps.Query.Execute(ctx, req), nil
		})

		return executionEnvelope(exec)
	}
}

// parseParameters decodes the parameters argument: an array of objects with
// name, value, and optional type.
func parseParameters(raw any) ([]port.StatementParameter, error) {
	if raw == nil {
		return nil, nil
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("parameters must be an array of objects")
	}

	var params []port.StatementParameter
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("parameters[%d] must be an object", i)
		}
		name, _ := obj["name"].(string)
		if name == "" {
			return nil, fmt.Errorf("parameters[%d] is missing a name", i)
		}
		p := port.StatementParameter{Name: name}
		p.Value = fmt.Sprintf("%v", obj["value"])
		p.Type, _ = obj["type"].(string)
		params = append(params, p)
	}
	return params, nil
}

func suggestQueriesHandler(metadata *service.MetadataService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, ok := request.GetArguments()["request"].(string)
		if !ok || text == "" {
			return mcp.NewToolResultError("request is required"), nil
		}

		catalog, _ := request.GetArguments()["catalog"].(string)
		schema, _ := request.GetArguments()["schema"].(string)

		tables, err := bridge.Run(ctx, func(ctx context.Context) ([]port.Table, error) {
			return metadata.ListTables(ctx, catalog, schema)
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list tables for suggestions: %v", err)), nil
		}

		suggestions := domain.GenerateSuggestions(text, tables)

		return jsonResult(map[string]any{
			"status":      "success",
			"request":     text,
			"intent":      domain.ClassifyIntent(text),
			"count":       len(suggestions),
			"suggestions": suggestions,
		})
	}
}

func listClustersHandler(compute *service.ComputeService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		clusters, err := bridge.Run(ctx, compute.ListClusters)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list clusters: %v", err)), nil
		}

		return jsonResult(map[string]any{
			"status":   "success",
			"count":    len(clusters),
			"clusters": clusters,
		})
	}
}

func getClusterHandler(compute *service.ComputeService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		clusterID, ok := request.GetArguments()["cluster_id"].(string)
		if !ok || clusterID == "" {
			return mcp.NewToolResultError("cluster_id is required"), nil
		}

		cluster, err := bridge.Run(ctx, func(ctx context.Context) (*port.Cluster, error) {
			return compute.GetCluster(ctx, clusterID)
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to get cluster: %v", err)), nil
		}

		return jsonResult(map[string]any{
			"status":  "success",
			"cluster": cluster,
		})
	}
}

func createClusterHandler(compute *service.ComputeService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		spec := port.ClusterSpec{}
		spec.Name, _ = args["cluster_name"].(string)
		spec.SparkVersion, _ = args["spark_version"].(string)
		spec.NodeTypeID, _ = args["node_type_id"].(string)
		if spec.Name == "" || spec.SparkVersion == "" || spec.NodeTypeID == "" {
			return mcp.NewToolResultError("cluster_name, spark_version, and node_type_id are required"), nil
		}

		if v, ok := args["num_workers"].(float64); ok && v > 0 {
			spec.NumWorkers = int(v)
		}
		if v, ok := args["autoscale_min_workers"].(float64); ok && v > 0 {
			spec.AutoscaleMinWorkers = int(v)
		}
		if v, ok := args["autoscale_max_workers"].(float64); ok && v > 0 {
			spec.AutoscaleMaxWorkers = int(v)
		}
		if v, ok := args["auto_termination_minutes"].(float64); ok && v > 0 {
			spec.AutoTerminationMinutes = int(v)
		}
		if spec.NumWorkers == 0 && (spec.AutoscaleMinWorkers == 0) != (spec.AutoscaleMaxWorkers == 0) {
			return mcp.NewToolResultError("autoscale_min_workers and autoscale_max_workers must be set together"), nil
		}

		clusterID, err := bridge.Run(ctx, func(ctx context.Context) (string, error) {
			return compute.CreateCluster(ctx, spec)
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create cluster: %v", err)), nil
		}

		return jsonResult(map[string]any{
			"status":       "success",
			"cluster_id":   clusterID,
			"cluster_name": spec.Name,
		})
	}
}

func clusterActionHandler(action string, do func(context.Context, string) error) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		clusterID, ok := request.GetArguments()["cluster_id"].(string)
		if !ok || clusterID == "" {
			return mcp.NewToolResultError("cluster_id is required"), nil
		}

		_, err := bridge.Run(ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, do(ctx, clusterID)
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to %s cluster: %v", action, err)), nil
		}

		return jsonResult(map[string]any{
			"status":     "success",
			"action":     action,
			"cluster_id": clusterID,
		})
	}
}

func listJobsHandler(jobs *service.JobsService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := 0
		if v, ok := request.GetArguments()["limit"].(float64); ok && v > 0 {
			limit = int(v)
		}
		offset := 0
		if v, ok := request.GetArguments()["offset"].(float64); ok && v > 0 {
			offset = int(v)
		}
		expandTasks, _ := request.GetArguments()["expand_tasks"].(bool)

		list, err := bridge.Run(ctx, func(ctx context.Context) ([]port.Job, error) {
			return jobs.ListJobs(ctx, limit, offset, expandTasks)
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list jobs: %v", err)), nil
		}

		return jsonResult(map[string]any{
			"status": "success",
			"count":  len(list),
			"jobs":   list,
		})
	}
}

func getJobHandler(jobs *service.JobsService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID, ok := request.GetArguments()["job_id"].(float64)
		if !ok {
			return mcp.NewToolResultError("job_id is required"), nil
		}

		job, err := bridge.Run(ctx, func(ctx context.Context) (*port.Job, error) {
			return jobs.GetJob(ctx, int64(jobID))
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to get job: %v", err)), nil
		}

		return jsonResult(map[string]any{
			"status": "success",
			"job":    job,
		})
	}
}

func runJobHandler(jobs *service.JobsService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		jobID, ok := args["job_id"].(float64)
		if !ok {
			return mcp.NewToolResultError("job_id is required"), nil
		}

		params := port.RunParams{
			JarParams:         stringSlice(args["jar_params"]),
			PythonParams:      stringSlice(args["python_params"]),
			SparkSubmitParams: stringSlice(args["spark_submit_params"]),
		}
		if obj, ok := args["notebook_params"].(map[string]any); ok {
			params.NotebookParams = make(map[string]string, len(obj))
			for k, v := range obj {
				params.NotebookParams[k] = fmt.Sprintf("%v", v)
			}
		}

		runID, err := bridge.Run(ctx, func(ctx context.Context) (int64, error) {
			return jobs.RunJob(ctx, int64(jobID), params)
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to run job: %v", err)), nil
		}

		return jsonResult(map[string]any{
			"status": "success",
			"job_id": int64(jobID),
			"run_id": runID,
		})
	}
}

func clearCacheHandler(cache port.CacheClearer) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cache.Clear()

		return jsonResult(map[string]any{
			"status":  "success",
			"message": "metadata cache cleared",
		})
	}
}

func stringSlice(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, fmt.Sprintf("%v", item))
	}
	return out
}
