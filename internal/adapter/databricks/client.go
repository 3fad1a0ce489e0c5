// Package databricks adapts the Databricks workspace SDK to the core ports:
// Unity Catalog metadata, SQL warehouse statement execution, cluster
// lifecycle, and jobs.
package databricks

import (
	"fmt"

	"github.com/databricks/databricks-sdk-go"
)

// NewWorkspaceClient builds the SDK client from explicit credentials. The
// client is constructed once at the composition root and injected; nothing in
// this package holds ambient global state.
func NewWorkspaceClient(host, token string) (*databricks.WorkspaceClient, error) {
	w, err := databricks.NewWorkspaceClient(&databricks.Config{
		Host:  host,
		Token: token,
	})
	if err != nil {
		return nil, fmt.Errorf("creating workspace client: %w", err)
	}
	return w, nil
}
