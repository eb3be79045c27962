package mnemosyne

import (
	"fmt"
	"strings"
)

// coldStartMarker matches the REPORT lines Lambda emits after an init phase.
const coldStartMarker = `filter @message like /(?i)(Init Duration)/`

const statsClause = `stats count() as count,
    min(@initDuration) as min,
    max(@initDuration) as max,
    stddev(@initDuration) as stddev,
    pct(@initDuration, 25) as p50,
    pct(@initDuration, 75) as p75,
    pct(@initDuration, 99) as p99,
    pct(@initDuration, 99.5) as p995,
    pct(@initDuration, 99.9) as p999`

// QueryOptions shape the Logs Insights query text.
type QueryOptions struct {
	// StreamFilter is a regular expression matched against @logStream.
	StreamFilter  string
	GroupByMemory bool
}

// BuildQuery renders the cold-start statistics query.
func BuildQuery(opts QueryOptions) string {
	clauses := make([]string, 0, 4)
	if opts.StreamFilter != "" {
		clauses = append(clauses, fmt.Sprintf("filter @logStream like /%s/", escapeSlashes(opts.StreamFilter)))
	}
	clauses = append(clauses, "fields @memorySize / 1000000 as memorySize", coldStartMarker)

	s := statsClause
	if opts.GroupByMemory {
		s += "\n    by memorySize"
	}
	clauses = append(clauses, s)

	return strings.Join(clauses, "\n| ")
}

// escapeSlashes makes a pattern safe inside a /.../ literal. Stream names
// carry dates like 2026/10/18. Slashes the caller already escaped stay single.
func escapeSlashes(pattern string) string {
	return strings.ReplaceAll(strings.ReplaceAll(pattern, `\/`, "/"), "/", `\/`)
}
