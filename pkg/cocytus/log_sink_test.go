package cocytus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLogger struct {
	mock.Mock
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields map[string]any) {
	m.Called(ctx, msg, fields)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields map[string]any) {
	m.Called(ctx, msg, fields)
}

func (m *mockLogger) Error(ctx context.Context, msg string, fields map[string]any) {
	m.Called(ctx, msg, fields)
}

func TestLogSink_WritesAtErrorLevel(t *testing.T) {
	logger := new(mockLogger)
	logger.On("Error", mock.Anything, "Run failed", mock.MatchedBy(func(f map[string]any) bool {
		return f["stage"] == StageQuery && f["reason"] == "log group missing" && f["iterations_completed"] == 3
	})).Return()

	sink := NewLogSink(logger)
	err := sink.Write(context.Background(), &Record{
		RunID:      "run-1",
		Function:   "my-fn",
		Stage:      StageQuery,
		Reason:     "log group missing",
		Iterations: 3,
		CreatedAt:  time.Now(),
	})
	require.NoError(t, err)
	logger.AssertExpectations(t)
}

func TestMemorySink(t *testing.T) {
	var sink MemorySink
	require.NoError(t, sink.Write(context.Background(), &Record{RunID: "a"}))
	require.NoError(t, sink.Write(context.Background(), &Record{RunID: "b"}))
	assert.Len(t, sink.Records, 2)
	assert.Equal(t, "b", string(sink.Records[1].RunID))
}
