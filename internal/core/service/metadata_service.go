package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/causeway-mcp/causeway/internal/core/port"
)

// MetadataService exposes catalog/schema/table discovery over the (usually
// cached) metadata explorer, resolving the configured default catalog and
// schema where the caller omits them.
type MetadataService struct {
	explorer       port.MetadataExplorer
	defaultCatalog string
	defaultSchema  string
}

func NewMetadataService(explorer port.MetadataExplorer, defaultCatalog, defaultSchema string) *MetadataService {
	return &MetadataService{
		explorer:       explorer,
		defaultCatalog: defaultCatalog,
		defaultSchema:  defaultSchema,
	}
}

// CatalogOr resolves an optional catalog argument against the default.
func (s *MetadataService) CatalogOr(catalog string) string {
	if catalog == "" {
		return s.defaultCatalog
	}
	return catalog
}

// SchemaOr resolves an optional schema argument against the default.
func (s *MetadataService) SchemaOr(schema string) string {
	if schema == "" {
		return s.defaultSchema
	}
	return schema
}

func (s *MetadataService) ListCatalogs(ctx context.Context) ([]port.Catalog, error) {
	return s.explorer.ListCatalogs(ctx)
}

func (s *MetadataService) ListSchemas(ctx context.Context, catalog string) ([]port.Schema, error) {
	return s.explorer.ListSchemas(ctx, s.CatalogOr(catalog))
}

func (s *MetadataService) ListTables(ctx context.Context, catalog, schema string) ([]port.Table, error) {
	return s.explorer.ListTables(ctx, s.CatalogOr(catalog), s.SchemaOr(schema))
}

// GetTable resolves tableName against the optional catalog/schema arguments
// and the configured defaults. tableName may be bare ("t"), schema-qualified
// ("s.t"), or fully qualified ("c.s.t"); qualifiers in the name win over the
// arguments.
func (s *MetadataService) GetTable(ctx context.Context, tableName, catalog, schema string) (*port.Table, error) {
	switch parts := strings.Split(tableName, "."); len(parts) {
	case 3:
		catalog, schema, tableName = parts[0], parts[1], parts[2]
	case 2:
		schema, tableName = parts[0], parts[1]
	}
	fullName := fmt.Sprintf("%s.%s.%s", s.CatalogOr(catalog), s.SchemaOr(schema), tableName)
	return s.explorer.GetTable(ctx, fullName)
}

// SearchResult reports the tables of one scope whose names match a pattern.
type SearchResult struct {
	Pattern       string       `json:"pattern"`
	Catalog       string       `json:"catalog"`
	Schema        string       `json:"schema"`
	Matches       []port.Table `json:"matches"`
	MatchCount    int          `json:"match_count"`
	TotalSearched int          `json:"total_tables_searched"`
}

// SearchTables matches pattern (a case-insensitive regular expression)
// against the table names of one catalog.schema scope.
func (s *MetadataService) SearchTables(ctx context.Context, pattern, catalog, schema string) (*SearchResult, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern %q: %w", pattern, err)
	}

	resolvedCatalog := s.CatalogOr(catalog)
	resolvedSchema := s.SchemaOr(schema)

	tables, err := s.explorer.ListTables(ctx, resolvedCatalog, resolvedSchema)
	if err != nil {
		return nil, err
	}

	matches := []port.Table{}
	for _, t := range tables {
		if re.MatchString(t.Name) {
			matches = append(matches, t)
		}
	}

	return &SearchResult{
		Pattern:       pattern,
		Catalog:       resolvedCatalog,
		Schema:        resolvedSchema,
		Matches:       matches,
		MatchCount:    len(matches),
		TotalSearched: len(tables),
	}, nil
}
