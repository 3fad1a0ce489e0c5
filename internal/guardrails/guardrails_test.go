package guardrails

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/causeway-mcp/causeway/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGuardrails(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guardrails.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeGuardrails(t, `
max_query_length: 2000
max_limit: 500
deny_keywords:
  - vacuum
  - analyze
deny_functions:
  - reflect
deny_patterns:
  - '\bSLEEP\s*\('
`)

	g, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 2000, g.MaxQueryLength)
	assert.Equal(t, 500, g.MaxLimit)
	assert.Equal(t, []string{"vacuum", "analyze"}, g.DenyKeywords)
	assert.Equal(t, []string{"reflect"}, g.DenyFunctions)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading guardrails file")
}

func TestLoadFromFile_BadYAML(t *testing.T) {
	path := writeGuardrails(t, "max_limit: [not a number")
	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing guardrails YAML")
}

func TestLoadFromFile_BadRegex(t *testing.T) {
	path := writeGuardrails(t, `
deny_patterns:
  - '(unclosed'
`)
	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid regex")
}

func TestLoadFromFile_NegativeCeiling(t *testing.T) {
	path := writeGuardrails(t, "max_limit: -5")
	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_limit must not be negative")
}

func TestCeilingDefaults(t *testing.T) {
	g := &Guardrails{}
	assert.Equal(t, 10000, g.QueryLengthOr(10000))
	assert.Equal(t, 100, g.LimitOr(100))

	g = &Guardrails{MaxQueryLength: 50, MaxLimit: 9}
	assert.Equal(t, 50, g.QueryLengthOr(10000))
	assert.Equal(t, 9, g.LimitOr(100))
}

func TestApplyExtendsValidator(t *testing.T) {
	path := writeGuardrails(t, `
deny_keywords:
  - vacuum
deny_functions:
  - reflect
deny_patterns:
  - '\bSLEEP\s*\('
`)
	g, err := LoadFromFile(path)
	require.NoError(t, err)

	v := domain.NewValidator(10000, 10000)
	g.Apply(v)

	assert.Error(t, v.Validate("SELECT 1; VACUUM t"))
	assert.Error(t, v.Validate("SELECT reflect('a', 'b')"))
	assert.Error(t, v.Validate("SELECT sleep(30)"))
	assert.NoError(t, v.Validate("SELECT 1"))
}
