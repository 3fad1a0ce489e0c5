package domain

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrEmptyQuery = errors.New("empty query not allowed")
	ErrNotFound   = errors.New("not found")
)

// Statement types admitted by the validator (read-only operations).
var allowedStatements = map[string]bool{
	"SELECT": true, "WITH": true, "SHOW": true,
	"DESCRIBE": true, "DESC": true, "EXPLAIN": true,
}

// Keywords rejected anywhere in a statement, even inside an otherwise-allowed
// one, so "SELECT 1; DROP TABLE t" never reaches the warehouse.
var denyKeywords = []string{
	"DROP", "DELETE", "INSERT", "UPDATE", "CREATE", "ALTER",
	"TRUNCATE", "MERGE", "COPY", "IMPORT", "EXPORT", "GRANT",
	"REVOKE", "SET", "CALL", "EXEC", "EXECUTE",
}

// System and shell functions rejected when they appear call-shaped (name
// followed by an opening parenthesis).
var denyFunctions = []string{"SYSTEM", "SHELL", "CMD", "EVAL", "EXECUTE"}

var (
	reLineComment  = regexp.MustCompile(`--[^\n]*`)
	reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reWhitespace   = regexp.MustCompile(`\s+`)
	reFirstToken   = regexp.MustCompile(`^\w+`)
	reWord         = regexp.MustCompile(`\b\w+\b`)
	reFuncCall     = regexp.MustCompile(`\b(\w+)\s*\(`)
	reLimitClause  = regexp.MustCompile(`\bLIMIT\s+(\d+)`)
)

// Structural patterns that indicate statement chaining, information-schema
// probing, or char-code string construction.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bUNION\s+ALL\s+SELECT.*FROM.*INFORMATION_SCHEMA`),
	regexp.MustCompile(`\bSELECT.*FROM.*INFORMATION_SCHEMA.*TABLES`),
	regexp.MustCompile(`;\s*DROP`),
	regexp.MustCompile(`;\s*DELETE`),
	regexp.MustCompile(`;\s*INSERT`),
	regexp.MustCompile(`CONCAT\s*\(\s*CHAR\s*\(`),
	regexp.MustCompile(`EXEC\s*\(`),
	regexp.MustCompile(`EXECUTE\s*\(`),
}

// Classic injection signatures; matched against the normalized (uppercased)
// text.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`'\s*OR\s*'1'\s*=\s*'1`),
	regexp.MustCompile(`'\s*OR\s*1\s*=\s*1`),
	regexp.MustCompile(`'\s*UNION\s+SELECT`),
	regexp.MustCompile(`'\s*;\s*DROP`),
}

// Validator is a lexical safety gate for SQL text. It is deliberately not a
// parser: every check is an independent pattern over the normalized statement,
// and the only admitted statement shapes are read-only. Safe for concurrent
// use after construction; Extend* calls must happen before first Validate.
type Validator struct {
	maxQueryLength int
	maxLimit       int
	keywords       map[string]bool
	functions      map[string]bool
	patterns       []*regexp.Regexp
}

// NewValidator builds a Validator with the given query-length and LIMIT
// ceilings. Non-positive limits are a programming error and panic.
func NewValidator(maxQueryLength, maxLimit int) *Validator {
	if maxQueryLength <= 0 || maxLimit <= 0 {
		panic(fmt.Sprintf("domain: invalid validator limits (maxQueryLength=%d, maxLimit=%d)", maxQueryLength, maxLimit))
	}
	v := &Validator{
		maxQueryLength: maxQueryLength,
		maxLimit:       maxLimit,
		keywords:       make(map[string]bool, len(denyKeywords)),
		functions:      make(map[string]bool, len(denyFunctions)),
	}
	for _, kw := range denyKeywords {
		v.keywords[kw] = true
	}
	for _, fn := range denyFunctions {
		v.functions[fn] = true
	}
	v.patterns = append(v.patterns, suspiciousPatterns...)
	return v
}

// ExtendDenyKeywords adds extra standalone keywords to the deny-set.
func (v *Validator) ExtendDenyKeywords(keywords ...string) {
	for _, kw := range keywords {
		v.keywords[strings.ToUpper(strings.TrimSpace(kw))] = true
	}
}

// ExtendDenyFunctions adds extra function names to the deny-set.
func (v *Validator) ExtendDenyFunctions(functions ...string) {
	for _, fn := range functions {
		v.functions[strings.ToUpper(strings.TrimSpace(fn))] = true
	}
}

// ExtendDenyPatterns adds extra structural patterns. Patterns are matched
// against the normalized (uppercased, comment-stripped) statement.
func (v *Validator) ExtendDenyPatterns(patterns ...*regexp.Regexp) {
	v.patterns = append(v.patterns, patterns...)
}

// Validate reports whether sql may be submitted. It never fails on malformed
// SQL as such; malformed input simply trips a check and is rejected.
func (v *Validator) Validate(sql string) error {
	if strings.TrimSpace(sql) == "" {
		return ErrEmptyQuery
	}
	if len(sql) > v.maxQueryLength {
		return fmt.Errorf("query too long (max %d characters)", v.maxQueryLength)
	}

	normalized := normalize(sql)

	stmt := reFirstToken.FindString(normalized)
	if stmt == "" {
		return errors.New("unable to determine query type")
	}
	if !allowedStatements[stmt] {
		return fmt.Errorf("statement type %q not allowed", stmt)
	}

	if found := v.findDenyKeywords(normalized); len(found) > 0 {
		return fmt.Errorf("dangerous keywords found: %s", strings.Join(found, ", "))
	}
	if found := v.findDenyFunctions(normalized); len(found) > 0 {
		return fmt.Errorf("dangerous functions found: %s", strings.Join(found, ", "))
	}
	if err := v.checkLimitClause(normalized); err != nil {
		return err
	}
	for _, p := range v.patterns {
		if p.MatchString(normalized) {
			return fmt.Errorf("suspicious pattern detected: %s", p.String())
		}
	}
	for _, p := range injectionPatterns {
		if p.MatchString(normalized) {
			return errors.New("potential SQL injection attempt detected")
		}
	}

	return nil
}

// normalize strips comments, collapses whitespace, and uppercases, so checks
// are insensitive to case and interleaved comments.
func normalize(sql string) string {
	s := reLineComment.ReplaceAllString(sql, "")
	s = reBlockComment.ReplaceAllString(s, "")
	s = reWhitespace.ReplaceAllString(strings.TrimSpace(s), " ")
	return strings.ToUpper(s)
}

func (v *Validator) findDenyKeywords(normalized string) []string {
	seen := make(map[string]bool)
	var found []string
	for _, word := range reWord.FindAllString(normalized, -1) {
		if v.keywords[word] && !seen[word] {
			seen[word] = true
			found = append(found, word)
		}
	}
	sort.Strings(found)
	return found
}

func (v *Validator) findDenyFunctions(normalized string) []string {
	seen := make(map[string]bool)
	var found []string
	for _, m := range reFuncCall.FindAllStringSubmatch(normalized, -1) {
		if v.functions[m[1]] && !seen[m[1]] {
			seen[m[1]] = true
			found = append(found, m[1])
		}
	}
	sort.Strings(found)
	return found
}

func (v *Validator) checkLimitClause(normalized string) error {
	for _, m := range reLimitClause.FindAllStringSubmatch(normalized, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return fmt.Errorf("invalid LIMIT value: %s", m[1])
		}
		if n > v.maxLimit {
			return fmt.Errorf("LIMIT value %d exceeds maximum allowed (%d)", n, v.maxLimit)
		}
	}
	return nil
}
