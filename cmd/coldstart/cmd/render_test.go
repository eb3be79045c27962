package cmd

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartarus-sandbox/coldstart/pkg/config"
	"github.com/tartarus-sandbox/coldstart/pkg/domain"
	"github.com/tartarus-sandbox/coldstart/pkg/erebus"
	"github.com/tartarus-sandbox/coldstart/pkg/stats"
)

func sampleRun() *domain.Run {
	return &domain.Run{
		ID:       "run-1",
		Function: "my-fn",
		LogGroup: "/aws/lambda/my-fn",
		Iterations: []domain.Iteration{
			{Index: 1, Token: "a", StatusCode: 200},
			{Index: 2, Token: "b", StatusCode: 200},
		},
		Records: []stats.Record{
			{MemorySize: 512, Count: 7, Min: 100, Max: 150, StdDev: 12.5, P50: 120.5, P75: 130, P99: 149, P995: 149.5, P999: 149.9},
		},
		Status:    domain.RunStatusSucceeded,
		StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRenderRun_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderRun(&buf, "table", sampleRun()))

	out := buf.String()
	assert.Contains(t, out, "/aws/lambda/my-fn")
	assert.Contains(t, out, "Cold starts forced: 2")
	assert.Contains(t, out, "P99.5")
	assert.Contains(t, out, "512")
	assert.Contains(t, out, "120.50")
	assert.NotContains(t, out, "\x1b[", "buffers must not receive ANSI escapes")
}

func TestRenderRun_TableViolations(t *testing.T) {
	run := sampleRun()
	run.Status = domain.RunStatusViolated
	run.Violations = []string{"p99 < 100.0 (memory 512 MB)"}

	var buf bytes.Buffer
	require.NoError(t, renderRun(&buf, "table", run))
	assert.Contains(t, buf.String(), "p99 < 100.0 (memory 512 MB)")
}

func TestRenderRun_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderRun(&buf, "json", sampleRun()))

	var decoded domain.Run
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Records, 1)
	assert.Equal(t, 120.5, decoded.Records[0].P50)
	assert.Equal(t, uint64(7), decoded.Records[0].Count)
}

func TestRenderRun_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderRun(&buf, "yaml", sampleRun()))
	assert.Contains(t, buf.String(), "p50: 120.5")
	assert.Contains(t, buf.String(), "memory_size_mb: 512")
}

func TestRenderHistory_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderHistory(&buf, "table", []domain.Run{*sampleRun()}))

	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "SUCCEEDED")
	assert.Contains(t, out, "2026-03-01T12:00:00Z")
}

func TestRecordRow_UngroupedMemory(t *testing.T) {
	row := recordRow(stats.Record{Count: 3, P50: 1})
	assert.Equal(t, "-", row[0])
	assert.Equal(t, "3", row[1])
	assert.Equal(t, "1.00", row[5])
}

func TestNewJudges(t *testing.T) {
	chain, err := newJudges(nil)
	require.NoError(t, err)
	assert.Nil(t, chain)

	chain, err = newJudges([]string{"p99 < 500.0"})
	require.NoError(t, err)
	assert.Len(t, chain.Judges, 1)

	_, err = newJudges([]string{"p99 +"})
	assert.Error(t, err)
}

func TestBuildSinks_LocalReportDir(t *testing.T) {
	cfg := &config.Config{ReportDir: t.TempDir(), ReportFormat: "yaml"}

	sinks, closeSinks, err := buildSinks(aws.Config{}, cfg)
	require.NoError(t, err)
	defer closeSinks()

	require.Len(t, sinks, 1)
	archive, ok := sinks[0].(*erebus.Archive)
	require.True(t, ok)
	assert.Equal(t, erebus.FormatYAML, archive.Format)
}
