package hermes

import "context"

type Label struct {
	Key   string
	Value string
}

type Metrics interface {
	IncCounter(name string, value float64, labels ...Label)
	ObserveHistogram(name string, value float64, labels ...Label)
	SetGauge(name string, value float64, labels ...Label)
}

type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]any)
	Warn(ctx context.Context, msg string, fields map[string]any)
	Error(ctx context.Context, msg string, fields map[string]any)
}

// Metric names shared by the benchmark packages.
const (
	MetricReadinessPolls = "coldstart_readiness_polls_total"
	MetricQueryPolls     = "coldstart_query_polls_total"
	MetricIteration      = "coldstart_iteration_seconds"
	MetricFunctionErrors = "coldstart_function_errors_total"
	MetricInitDuration   = "coldstart_init_duration_ms"
	MetricColdStarts     = "coldstart_cold_starts"
)
