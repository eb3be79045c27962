package hades_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartarus-sandbox/coldstart/pkg/domain"
	"github.com/tartarus-sandbox/coldstart/pkg/hades"
)

func runAt(id string, function domain.FunctionRef, offset time.Duration) *domain.Run {
	return &domain.Run{
		ID:        domain.RunID(id),
		Function:  function,
		Status:    domain.RunStatusSucceeded,
		StartedAt: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC).Add(offset),
	}
}

func testRegistry(t *testing.T, registry hades.Registry) {
	ctx := context.Background()

	require.NoError(t, registry.Save(ctx, runAt("a", "hello", 0)))
	require.NoError(t, registry.Save(ctx, runAt("b", "arn:aws:lambda:us-east-1:1:function:hello", time.Hour)))
	require.NoError(t, registry.Save(ctx, runAt("c", "other", 2*time.Hour)))

	run, err := registry.GetRun(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, domain.FunctionRef("arn:aws:lambda:us-east-1:1:function:hello"), run.Function)

	_, err = registry.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, hades.ErrRunNotFound)

	hello, err := registry.ListRuns(ctx, "hello", 0)
	require.NoError(t, err)
	require.Len(t, hello, 2)
	assert.Equal(t, domain.RunID("b"), hello[0].ID)
	assert.Equal(t, domain.RunID("a"), hello[1].ID)

	latest, err := registry.ListRuns(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, domain.RunID("c"), latest[0].ID)
}

func TestMemoryRegistry(t *testing.T) {
	testRegistry(t, hades.NewMemoryRegistry())
}
