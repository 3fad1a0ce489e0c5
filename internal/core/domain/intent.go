package domain

import "regexp"

// Intent is the advisory classification of a free-text request. It only
// selects a suggestion template and is never consulted for safety decisions.
type Intent string

const (
	IntentCountRecords  Intent = "count_records"
	IntentShowStructure Intent = "show_structure"
	IntentListTables    Intent = "list_tables"
	IntentSampleData    Intent = "sample_data"
	IntentGeneral       Intent = "general_query"
)

// intentRules is an ordered priority list: the first intent whose patterns
// match wins, so classification is deterministic when a request matches
// several intents.
var intentRules = []struct {
	intent   Intent
	patterns []*regexp.Regexp
}{
	{IntentCountRecords, []*regexp.Regexp{
		regexp.MustCompile(`(?i)how many.*records`),
		regexp.MustCompile(`(?i)count.*records`),
		regexp.MustCompile(`(?i)number of.*rows`),
		regexp.MustCompile(`(?i)count.*rows`),
	}},
	{IntentShowStructure, []*regexp.Regexp{
		regexp.MustCompile(`(?i)structure.*tables?`),
		regexp.MustCompile(`(?i)schema.*tables?`),
		regexp.MustCompile(`(?i)describe.*tables?`),
		regexp.MustCompile(`(?i)columns.*tables?`),
	}},
	{IntentListTables, []*regexp.Regexp{
		regexp.MustCompile(`(?i)list.*tables?`),
		regexp.MustCompile(`(?i)show.*tables?`),
		regexp.MustCompile(`(?i)available.*tables?`),
	}},
	{IntentSampleData, []*regexp.Regexp{
		regexp.MustCompile(`(?i)first.*rows`),
		regexp.MustCompile(`(?i)sample.*data`),
		regexp.MustCompile(`(?i)preview.*data`),
		regexp.MustCompile(`(?i)show.*data`),
	}},
}

// ClassifyIntent maps a free-text request to an Intent. No match yields
// IntentGeneral.
func ClassifyIntent(text string) Intent {
	for _, rule := range intentRules {
		for _, p := range rule.patterns {
			if p.MatchString(text) {
				return rule.intent
			}
		}
	}
	return IntentGeneral
}
