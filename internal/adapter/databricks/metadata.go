package databricks

import (
	"context"
	"fmt"

	"github.com/causeway-mcp/causeway/internal/core/domain"
	"github.com/causeway-mcp/causeway/internal/core/port"
	"github.com/databricks/databricks-sdk-go"
	"github.com/databricks/databricks-sdk-go/apierr"
	"github.com/databricks/databricks-sdk-go/service/catalog"
)

// Explorer lists Unity Catalog metadata through the workspace client.
type Explorer struct {
	w *databricks.WorkspaceClient
}

func NewExplorer(w *databricks.WorkspaceClient) *Explorer {
	return &Explorer{w: w}
}

func (e *Explorer) ListCatalogs(ctx context.Context) ([]port.Catalog, error) {
	infos, err := e.w.Catalogs.ListAll(ctx, catalog.ListCatalogsRequest{})
	if err != nil {
		return nil, fmt.Errorf("listing catalogs: %w", err)
	}

	catalogs := make([]port.Catalog, 0, len(infos))
	for _, ci := range infos {
		catalogs = append(catalogs, port.Catalog{
			Name:        ci.Name,
			Comment:     ci.Comment,
			MetastoreID: ci.MetastoreId,
		})
	}
	return catalogs, nil
}

func (e *Explorer) ListSchemas(ctx context.Context, catalogName string) ([]port.Schema, error) {
	infos, err := e.w.Schemas.ListAll(ctx, catalog.ListSchemasRequest{
		CatalogName: catalogName,
	})
	if err != nil {
		return nil, fmt.Errorf("listing schemas in %s: %w", catalogName, err)
	}

	schemas := make([]port.Schema, 0, len(infos))
	for _, si := range infos {
		schemas = append(schemas, port.Schema{
			Name:        si.Name,
			CatalogName: si.CatalogName,
			Comment:     si.Comment,
		})
	}
	return schemas, nil
}

func (e *Explorer) ListTables(ctx context.Context, catalogName, schemaName string) ([]port.Table, error) {
	infos, err := e.w.Tables.ListAll(ctx, catalog.ListTablesRequest{
		CatalogName: catalogName,
		SchemaName:  schemaName,
	})
	if err != nil {
		return nil, fmt.Errorf("listing tables in %s.%s: %w", catalogName, schemaName, err)
	}

	tables := make([]port.Table, 0, len(infos))
	for _, ti := range infos {
		tables = append(tables, toTable(&ti, false))
	}
	return tables, nil
}

func (e *Explorer) GetTable(ctx context.Context, fullName string) (*port.Table, error) {
	ti, err := e.w.Tables.Get(ctx, catalog.GetTableRequest{FullName: fullName})
	if err != nil {
		if apierr.IsMissing(err) {
			return nil, fmt.Errorf("table %s: %w", fullName, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting table %s: %w", fullName, err)
	}

	t := toTable(ti, true)
	return &t, nil
}

func toTable(ti *catalog.TableInfo, withColumns bool) port.Table {
	t := port.Table{
		Name:        ti.Name,
		FullName:    ti.FullName,
		CatalogName: ti.CatalogName,
		SchemaName:  ti.SchemaName,
		Type:        string(ti.TableType),
		Comment:     ti.Comment,
	}
	if withColumns {
		for _, ci := range ti.Columns {
			t.Columns = append(t.Columns, port.Column{
				Name:     ci.Name,
				TypeName: string(ci.TypeName),
				TypeText: ci.TypeText,
				Comment:  ci.Comment,
			})
		}
	}
	return t
}
