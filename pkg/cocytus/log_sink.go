package cocytus

import (
	"context"
	"time"

	"github.com/tartarus-sandbox/coldstart/pkg/hermes"
)

// LogSink is a simple dead letter sink that logs failed runs at error level.
type LogSink struct {
	logger hermes.Logger
}

func NewLogSink(logger hermes.Logger) *LogSink {
	if logger == nil {
		logger = hermes.NopLogger{}
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(ctx context.Context, rec *Record) error {
	s.logger.Error(ctx, "Run failed", map[string]any{
		"run_id":               rec.RunID,
		"function":             rec.Function,
		"log_group":            rec.LogGroup,
		"stage":                rec.Stage,
		"reason":               rec.Reason,
		"iterations_completed": rec.Iterations,
		"created_at":           rec.CreatedAt.Format(time.RFC3339),
	})
	return nil
}
