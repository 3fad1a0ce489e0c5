package port

import (
	"context"
	"time"
)

// Catalog is a top-level Unity Catalog namespace.
type Catalog struct {
	Name        string `json:"name"`
	Comment     string `json:"comment,omitempty"`
	MetastoreID string `json:"metastore_id,omitempty"`
}

// Schema is a namespace within a catalog.
type Schema struct {
	Name        string `json:"name"`
	CatalogName string `json:"catalog_name"`
	Comment     string `json:"comment,omitempty"`
}

// Column describes a single table column.
type Column struct {
	Name     string `json:"name"`
	TypeName string `json:"type_name"`
	TypeText string `json:"type_text,omitempty"`
	Comment  string `json:"comment,omitempty"`
}

// Table describes a table or view. Columns is only populated by GetTable;
// listings return it empty.
type Table struct {
	Name        string   `json:"name"`
	FullName    string   `json:"full_name"`
	CatalogName string   `json:"catalog_name"`
	SchemaName  string   `json:"schema_name"`
	Type        string   `json:"table_type"`
	Comment     string   `json:"comment,omitempty"`
	Columns     []Column `json:"columns,omitempty"`
}

// MetadataExplorer lists warehouse metadata. Implementations are expected to
// be safe for concurrent use.
type MetadataExplorer interface {
	ListCatalogs(ctx context.Context) ([]Catalog, error)
	ListSchemas(ctx context.Context, catalog string) ([]Schema, error)
	ListTables(ctx context.Context, catalog, schema string) ([]Table, error)
	// GetTable returns the table identified by its three-part full name,
	// including columns. Returns domain.ErrNotFound if it does not exist.
	GetTable(ctx context.Context, fullName string) (*Table, error)
}

// CacheClearer invalidates cached metadata listings.
type CacheClearer interface {
	Clear()
}

// StatementState is the lifecycle state of a warehouse statement.
type StatementState string

const (
	StatePending   StatementState = "PENDING"
	StateRunning   StatementState = "RUNNING"
	StateSucceeded StatementState = "SUCCEEDED"
	StateFailed    StatementState = "FAILED"
)

// Terminal reports whether no further polling can change the state.
func (s StatementState) Terminal() bool {
	return s != StatePending && s != StateRunning
}

// StatementParameter is a named parameter bound to a statement.
type StatementParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}

// StatementRequest describes one statement submission. Immutable once passed
// to Execute.
type StatementRequest struct {
	SQL         string
	WarehouseID string
	Catalog     string
	Schema      string
	Parameters  []StatementParameter
	// WaitTimeout is the server-side wait enforced by the statement API,
	// clamped to [5s, 50s] before submission.
	WaitTimeout time.Duration
	// RowLimit is appended as a LIMIT clause to bare SELECTs.
	RowLimit int
}

// StatementExecution is the observed state of a submitted statement. The
// orchestrator only ever returns it in a terminal state.
type StatementExecution struct {
	ID           string         `json:"statement_id,omitempty"`
	State        StatementState `json:"state"`
	Columns      []string       `json:"columns,omitempty"`
	Rows         [][]string     `json:"data"`
	RowCount     int64          `json:"row_count"`
	ErrorMessage string         `json:"error,omitempty"`
	// SQL is the text actually submitted, after LIMIT injection.
	SQL string `json:"query_executed,omitempty"`
}

// StatementExecutor submits statements to a SQL warehouse and fetches their
// current state by id.
type StatementExecutor interface {
	SubmitStatement(ctx context.Context, req StatementRequest) (*StatementExecution, error)
	GetStatement(ctx context.Context, id string) (*StatementExecution, error)
}
