package judges

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartarus-sandbox/coldstart/pkg/stats"
)

func TestCELJudge(t *testing.T) {
	j, err := NewCELJudge([]string{"p99 < 500.0", "count >= 3"})
	require.NoError(t, err)

	records := []stats.Record{
		{MemorySize: 128, Count: 5, P99: 720},
		{MemorySize: 1024, Count: 5, P99: 210},
		{MemorySize: 2048, Count: 1, P99: 190},
	}

	violations, err := j.Judge(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, []Violation{
		{Assertion: "p99 < 500.0", MemorySize: 128},
		{Assertion: "count >= 3", MemorySize: 2048},
	}, violations)
}

func TestCELJudge_PlainIntegerLiterals(t *testing.T) {
	j, err := NewCELJudge([]string{"count > 5", "p99 < 500"})
	require.NoError(t, err)

	violations, err := j.Judge(context.Background(), []stats.Record{
		{MemorySize: 512, Count: 6, P99: 480},
		{MemorySize: 1024, Count: 2, P99: 510.5},
	})
	require.NoError(t, err)
	assert.Equal(t, []Violation{
		{Assertion: "count > 5", MemorySize: 1024},
		{Assertion: "p99 < 500", MemorySize: 1024},
	}, violations)
}

func TestCELJudge_RejectsBadExpressions(t *testing.T) {
	_, err := NewCELJudge([]string{"p99 <"})
	assert.Error(t, err)

	_, err = NewCELJudge([]string{"p99 + 1.0"})
	assert.ErrorContains(t, err, "must evaluate to bool")

	_, err = NewCELJudge([]string{"latency < 3.0"})
	assert.Error(t, err)
}

func TestChainVerdict(t *testing.T) {
	j, err := NewCELJudge([]string{"p50 < 100.0"})
	require.NoError(t, err)
	chain := &Chain{Judges: []Judge{j}}

	violations, err := chain.Run(context.Background(), []stats.Record{{P50: 120.5}})
	require.NoError(t, err)

	verdict := Verdict(violations)
	assert.ErrorIs(t, verdict, ErrThresholdViolated)
	assert.Contains(t, verdict.Error(), "p50 < 100.0")

	assert.NoError(t, Verdict(nil))
}
