// Package guardrails loads an optional YAML file that tightens the query
// validator beyond its built-in rule set: extra deny keywords and functions,
// extra structural patterns, and overridden ceilings.
package guardrails

import (
	"fmt"
	"os"
	"regexp"

	"github.com/causeway-mcp/causeway/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// Guardrails is the parsed form of a guardrails YAML file.
type Guardrails struct {
	MaxQueryLength int      `yaml:"max_query_length"`
	MaxLimit       int      `yaml:"max_limit"`
	DenyKeywords   []string `yaml:"deny_keywords"`
	DenyFunctions  []string `yaml:"deny_functions"`
	DenyPatterns   []string `yaml:"deny_patterns"`

	compiled []*regexp.Regexp
}

// LoadFromFile reads and validates a guardrails YAML file. Bad regexes and
// negative ceilings are configuration faults, reported at load time rather
// than at first Validate.
func LoadFromFile(path string) (*Guardrails, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading guardrails file: %w", err)
	}

	var g Guardrails
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing guardrails YAML: %w", err)
	}

	if err := g.validate(); err != nil {
		return nil, fmt.Errorf("validating guardrails: %w", err)
	}

	return &g, nil
}

func (g *Guardrails) validate() error {
	if g.MaxQueryLength < 0 {
		return fmt.Errorf("max_query_length must not be negative (got %d)", g.MaxQueryLength)
	}
	if g.MaxLimit < 0 {
		return fmt.Errorf("max_limit must not be negative (got %d)", g.MaxLimit)
	}
	for _, p := range g.DenyPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("deny_patterns contains invalid regex %q: %w", p, err)
		}
		g.compiled = append(g.compiled, re)
	}
	return nil
}

// QueryLengthOr returns the file's max_query_length when set, else def.
func (g *Guardrails) QueryLengthOr(def int) int {
	if g.MaxQueryLength > 0 {
		return g.MaxQueryLength
	}
	return def
}

// LimitOr returns the file's max_limit when set, else def.
func (g *Guardrails) LimitOr(def int) int {
	if g.MaxLimit > 0 {
		return g.MaxLimit
	}
	return def
}

// Apply extends v with the file's deny keywords, functions, and patterns.
func (g *Guardrails) Apply(v *domain.Validator) {
	v.ExtendDenyKeywords(g.DenyKeywords...)
	v.ExtendDenyFunctions(g.DenyFunctions...)
	v.ExtendDenyPatterns(g.compiled...)
}
