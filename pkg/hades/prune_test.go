package hades_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartarus-sandbox/coldstart/pkg/domain"
	"github.com/tartarus-sandbox/coldstart/pkg/hades"
)

func testPrune(t *testing.T, registry hades.Registry) {
	ctx := context.Background()
	require.NoError(t, registry.Save(ctx, runAt("old", "hello", 0)))
	require.NoError(t, registry.Save(ctx, runAt("older", "other", -time.Hour)))
	require.NoError(t, registry.Save(ctx, runAt("new", "hello", 48*time.Hour)))

	var forgotten []domain.RunID
	cutoff := time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)
	n, err := hades.Prune(ctx, registry, cutoff, func(_ context.Context, run *domain.Run) error {
		forgotten = append(forgotten, run.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []domain.RunID{"old", "older"}, forgotten)

	_, err = registry.GetRun(ctx, "old")
	assert.ErrorIs(t, err, hades.ErrRunNotFound)

	hello, err := registry.ListRuns(ctx, "hello", 0)
	require.NoError(t, err)
	require.Len(t, hello, 1)
	assert.Equal(t, domain.RunID("new"), hello[0].ID)

	all, err := registry.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, registry.DeleteRun(ctx, "missing"))
}

func TestPrune_Memory(t *testing.T) {
	testPrune(t, hades.NewMemoryRegistry())
}

func TestPrune_Redis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	registry, err := hades.NewRedisRegistry(mr.Addr(), 0, "")
	require.NoError(t, err)
	defer registry.Close()

	testPrune(t, registry)
	assert.False(t, mr.Exists("coldstart:run:old"))
}

func TestPrune_ForgetErrorKeepsRun(t *testing.T) {
	registry := hades.NewMemoryRegistry()
	ctx := context.Background()
	require.NoError(t, registry.Save(ctx, runAt("old", "hello", 0)))

	boom := errors.New("bucket unavailable")
	n, err := hades.Prune(ctx, registry, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), func(context.Context, *domain.Run) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, n)

	_, err = registry.GetRun(ctx, "old")
	assert.NoError(t, err)
}
