package erebus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartarus-sandbox/coldstart/pkg/domain"
	"github.com/tartarus-sandbox/coldstart/pkg/stats"
)

func sampleRun() *domain.Run {
	return &domain.Run{
		ID:        "run-1",
		Function:  "arn:aws:lambda:us-east-1:123456789012:function:hello",
		LogGroup:  "/aws/lambda/hello",
		Records:   []stats.Record{{MemorySize: 128, Count: 3, P50: 101.5}},
		Status:    domain.RunStatusSucceeded,
		StartedAt: time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC),
	}
}

func TestArchive_SaveLoad(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			store, err := NewLocalStore(t.TempDir())
			require.NoError(t, err)
			archive := NewArchive(store, format)
			ctx := context.Background()
			run := sampleRun()

			require.NoError(t, archive.Save(ctx, run))

			key := archive.Key(run)
			assert.Equal(t, "runs/hello/20261018T093000Z-run-1."+string(format), key)

			exists, err := store.Exists(ctx, key)
			require.NoError(t, err)
			assert.True(t, exists)

			loaded, err := archive.Load(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, run.Records, loaded.Records)
			assert.Equal(t, run.Status, loaded.Status)
		})
	}
}

func TestArchive_Delete(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	archive := NewArchive(store, FormatJSON)
	ctx := context.Background()
	run := sampleRun()

	deleted, err := archive.Delete(ctx, run)
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, archive.Save(ctx, run))
	deleted, err = archive.Delete(ctx, run)
	require.NoError(t, err)
	assert.True(t, deleted)

	exists, err := store.Exists(ctx, archive.Key(run))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestArchive_LoadMissing(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = NewArchive(store, FormatJSON).Load(context.Background(), "runs/hello/nope.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestArchive_UnsupportedFormat(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	err = (&Archive{Store: store, Format: "xml"}).Save(context.Background(), sampleRun())
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", contentType("a/b.json"))
	assert.Equal(t, "application/yaml", contentType("a/b.yaml"))
	assert.Equal(t, "application/octet-stream", contentType("a/b"))
}
