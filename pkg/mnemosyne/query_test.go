package mnemosyne

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildQuery_Grouped(t *testing.T) {
	q := BuildQuery(QueryOptions{GroupByMemory: true})

	assert.True(t, strings.HasPrefix(q, "fields @memorySize / 1000000 as memorySize\n| filter @message like /(?i)(Init Duration)/"))
	assert.Contains(t, q, "pct(@initDuration, 25) as p50")
	assert.Contains(t, q, "pct(@initDuration, 99.9) as p999")
	assert.True(t, strings.HasSuffix(q, "by memorySize"))
}

func TestBuildQuery_Ungrouped(t *testing.T) {
	q := BuildQuery(QueryOptions{})
	assert.NotContains(t, q, "by memorySize")
	assert.Contains(t, q, "stddev(@initDuration) as stddev")
}

func TestBuildQuery_StreamFilterPrepended(t *testing.T) {
	q := BuildQuery(QueryOptions{StreamFilter: `\[\$LATEST\]`, GroupByMemory: true})
	assert.True(t, strings.HasPrefix(q, "filter @logStream like /\\[\\$LATEST\\]/\n| fields @memorySize"))

	q = BuildQuery(QueryOptions{StreamFilter: "2026/10/18/[$LATEST]"})
	assert.True(t, strings.HasPrefix(q, `filter @logStream like /2026\/10\/18\/[$LATEST]/`+"\n| "))

	q = BuildQuery(QueryOptions{StreamFilter: `2026\/10/18`})
	assert.True(t, strings.HasPrefix(q, `filter @logStream like /2026\/10\/18/`+"\n| "))
}
