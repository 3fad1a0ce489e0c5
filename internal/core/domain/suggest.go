package domain

import (
	"fmt"

	"github.com/causeway-mcp/causeway/internal/core/port"
)

// Suggestion is a templated SQL query proposed for a free-text request.
type Suggestion struct {
	Description string  `json:"description"`
	Query       string  `json:"query"`
	Table       string  `json:"table"`
	Confidence  float64 `json:"confidence"`
}

// GenerateSuggestions turns a free-text request plus the tables visible in the
// current scope into ready-to-run read-only queries. Best-effort and advisory:
// suggestions still pass through the validator like any other statement.
func GenerateSuggestions(request string, tables []port.Table) []Suggestion {
	switch ClassifyIntent(request) {
	case IntentCountRecords:
		var out []Suggestion
		for _, t := range capN(tables, 5) {
			out = append(out, Suggestion{
				Description: fmt.Sprintf("Count records in %s", t.FullName),
				Query:       fmt.Sprintf("SELECT COUNT(*) AS record_count FROM %s", t.FullName),
				Table:       t.FullName,
				Confidence:  0.9,
			})
		}
		return out
	case IntentShowStructure:
		var out []Suggestion
		for _, t := range capN(tables, 3) {
			out = append(out, Suggestion{
				Description: fmt.Sprintf("Show structure of %s", t.FullName),
				Query:       fmt.Sprintf("DESCRIBE %s", t.FullName),
				Table:       t.FullName,
				Confidence:  0.9,
			})
		}
		return out
	case IntentListTables:
		catalog, schema := "main", "default"
		if len(tables) > 0 {
			catalog, schema = tables[0].CatalogName, tables[0].SchemaName
		}
		scope := catalog + "." + schema
		return []Suggestion{{
			Description: fmt.Sprintf("List all tables in %s", scope),
			Query:       fmt.Sprintf("SHOW TABLES IN %s", scope),
			Table:       scope,
			Confidence:  0.8,
		}}
	case IntentSampleData:
		var out []Suggestion
		for _, t := range capN(tables, 3) {
			out = append(out, Suggestion{
				Description: fmt.Sprintf("Show first 10 rows from %s", t.FullName),
				Query:       fmt.Sprintf("SELECT * FROM %s LIMIT 10", t.FullName),
				Table:       t.FullName,
				Confidence:  0.8,
			})
		}
		return out
	default:
		if len(tables) == 0 {
			return nil
		}
		t := tables[0]
		return []Suggestion{
			{
				Description: fmt.Sprintf("Count records in %s", t.FullName),
				Query:       fmt.Sprintf("SELECT COUNT(*) FROM %s", t.FullName),
				Table:       t.FullName,
				Confidence:  0.5,
			},
			{
				Description: fmt.Sprintf("Sample data from %s", t.FullName),
				Query:       fmt.Sprintf("SELECT * FROM %s LIMIT 5", t.FullName),
				Table:       t.FullName,
				Confidence:  0.5,
			},
		}
	}
}

func capN(tables []port.Table, n int) []port.Table {
	if len(tables) > n {
		return tables[:n]
	}
	return tables
}
