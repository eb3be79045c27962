package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce_DropsZeroGroupKey(t *testing.T) {
	rows := []Row{
		{{Name: "memorySize", Value: "128"}, {Name: "count", Value: "4"}, {Name: "p99", Value: "250.5"}},
		{{Name: "count", Value: "2"}, {Name: "p99", Value: "90"}},
	}

	records, err := Reduce(rows, true)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 128.0, records[0].MemorySize)
	assert.Equal(t, uint64(4), records[0].Count)
	assert.Equal(t, 250.5, records[0].P99)
}

func TestReduce_UngroupedKeepsEveryRow(t *testing.T) {
	rows := []Row{
		{{Name: "count", Value: "2"}},
		{{Name: "count", Value: "3"}},
	}

	records, err := Reduce(rows, false)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestReduce_ParseErrorAbortsWholeReduction(t *testing.T) {
	rows := []Row{
		{{Name: "memorySize", Value: "128"}, {Name: "count", Value: "4"}},
		{{Name: "memorySize", Value: "256"}, {Name: "p50", Value: "n/a"}},
	}

	records, err := Reduce(rows, true)
	require.Error(t, err)
	assert.Nil(t, records)
	assert.Contains(t, err.Error(), "row 1")
}

func TestFold_SingleRecord(t *testing.T) {
	rows := []Row{
		{{Name: "p50", Value: "120.5"}, {Name: "count", Value: "7"}},
	}

	rec, err := Fold(rows)
	require.NoError(t, err)
	assert.Equal(t, Record{P50: 120.5, Count: 7}, rec)
}

func TestFold_Empty(t *testing.T) {
	rec, err := Fold(nil)
	require.NoError(t, err)
	assert.Equal(t, Record{}, rec)
}
