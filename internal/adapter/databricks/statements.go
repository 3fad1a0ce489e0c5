package databricks

import (
	"context"
	"fmt"

	"github.com/causeway-mcp/causeway/internal/core/port"
	"github.com/databricks/databricks-sdk-go"
	"github.com/databricks/databricks-sdk-go/service/sql"
)

// StatementExecutor submits statements to a SQL warehouse via the statement
// execution API and fetches their state by id.
type StatementExecutor struct {
	w *databricks.WorkspaceClient
}

func NewStatementExecutor(w *databricks.WorkspaceClient) *StatementExecutor {
	return &StatementExecutor{w: w}
}

func (s *StatementExecutor) SubmitStatement(ctx context.Context, req port.StatementRequest) (*port.StatementExecution, error) {
	if req.WarehouseID == "" {
		return nil, fmt.Errorf("SQL warehouse ID must be provided")
	}

	resp, err := s.w.StatementExecution.ExecuteStatement(ctx, sql.ExecuteStatementRequest{
		WarehouseId: req.WarehouseID,
		Statement:   req.SQL,
		WaitTimeout: fmt.Sprintf("%ds", int(req.WaitTimeout.Seconds())),
		Catalog:     req.Catalog,
		Schema:      req.Schema,
		Parameters:  toParameters(req.Parameters),
	})
	if err != nil {
		return nil, fmt.Errorf("executing statement: %w", err)
	}
	return toExecution(resp), nil
}

func (s *StatementExecutor) GetStatement(ctx context.Context, id string) (*port.StatementExecution, error) {
	resp, err := s.w.StatementExecution.GetStatement(ctx, sql.GetStatementRequest{
		StatementId: id,
	})
	if err != nil {
		return nil, fmt.Errorf("getting statement %s: %w", id, err)
	}
	return toExecution(resp), nil
}

func toParameters(params []port.StatementParameter) []sql.StatementParameterListItem {
	if len(params) == 0 {
		return nil
	}
	items := make([]sql.StatementParameterListItem, 0, len(params))
	for _, p := range params {
		items = append(items, sql.StatementParameterListItem{
			Name:  p.Name,
			Value: p.Value,
			Type:  p.Type,
		})
	}
	return items
}

func toExecution(resp *sql.StatementResponse) *port.StatementExecution {
	exec := &port.StatementExecution{ID: resp.StatementId}

	if resp.Status != nil {
		exec.State = toState(resp.Status.State)
		if resp.Status.Error != nil {
			exec.ErrorMessage = resp.Status.Error.Message
		}
	}
	if resp.Result != nil {
		exec.Rows = resp.Result.DataArray
		exec.RowCount = resp.Result.RowCount
	}
	if resp.Manifest != nil && resp.Manifest.Schema != nil {
		for _, col := range resp.Manifest.Schema.Columns {
			exec.Columns = append(exec.Columns, col.Name)
		}
	}
	return exec
}

func toState(state sql.StatementState) port.StatementState {
	switch state {
	case sql.StatementStatePending:
		return port.StatePending
	case sql.StatementStateRunning:
		return port.StateRunning
	case sql.StatementStateSucceeded:
		return port.StateSucceeded
	default:
		// FAILED, CANCELED, and CLOSED are all terminal failures for the
		// orchestrator.
		return port.StateFailed
	}
}
