package olympus

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/tartarus-sandbox/coldstart/pkg/cocytus"
	"github.com/tartarus-sandbox/coldstart/pkg/domain"
	"github.com/tartarus-sandbox/coldstart/pkg/hermes"
	"github.com/tartarus-sandbox/coldstart/pkg/hypnos"
	"github.com/tartarus-sandbox/coldstart/pkg/judges"
	"github.com/tartarus-sandbox/coldstart/pkg/mnemosyne"
	"github.com/tartarus-sandbox/coldstart/pkg/stats"
)

// Bench is Olympus: it forces the cold starts, waits for the logs to land
// and asks Mnemosyne what happened.
type Bench struct {
	Driver   *hypnos.Driver
	Analyzer *mnemosyne.Analyzer
	Judges   *judges.Chain
	Sinks    []Sink
	// DeadLetters receives runs that fail before producing statistics.
	DeadLetters cocytus.Sink
	// Settle is the wait between the last invocation and the query.
	Settle  time.Duration
	Metrics hermes.Metrics
	Logger  hermes.Logger

	sleep func(context.Context, time.Duration) error
	now   func() time.Time
}

// Options describe one run.
type Options struct {
	Function domain.FunctionRef
	// LogGroup overrides the derived /aws/lambda/<name> group.
	LogGroup   string
	Iterations int
	// Lookback moves the query window start before the run start.
	Lookback      time.Duration
	StreamFilter  string
	GroupByMemory bool
}

func (o Options) logGroup() string {
	if o.LogGroup != "" {
		return o.LogGroup
	}
	return o.Function.LogGroup()
}

// Run executes the benchmark. With zero iterations only the query runs.
// The returned run is non-nil whenever statistics were produced, including
// when an assertion failed (judges.ErrThresholdViolated) or a sink failed.
func (b *Bench) Run(ctx context.Context, opts Options) (*domain.Run, error) {
	if b.Analyzer == nil {
		return nil, errors.New("bench requires an analyzer")
	}
	if opts.Iterations > 0 && b.Driver == nil {
		return nil, errors.New("bench requires a driver to run iterations")
	}

	started := b.clock()
	run := &domain.Run{
		ID:         domain.RunID(uuid.NewString()),
		Function:   opts.Function,
		LogGroup:   opts.logGroup(),
		Status:     domain.RunStatusRunning,
		QueryStart: started.Add(-opts.Lookback),
		StartedAt:  started,
	}

	if opts.Iterations > 0 {
		iterations, err := b.Driver.Run(ctx, opts.Iterations)
		run.Iterations = iterations
		if err != nil {
			return nil, b.bury(ctx, run, cocytus.StageIterate, err)
		}

		if b.Settle > 0 {
			b.logger().Info(ctx, "Waiting for logs to settle", map[string]any{"settle": b.Settle.String()})
			if err := b.pause(ctx, b.Settle); err != nil {
				return nil, b.bury(ctx, run, cocytus.StageSettle, fmt.Errorf("settle: %w", err))
			}
		}
	}

	records, err := b.analyze(ctx, run, opts)
	if err != nil {
		return nil, b.bury(ctx, run, cocytus.StageQuery, err)
	}
	run.Records = records
	b.observe(records)

	run.Status = domain.RunStatusSucceeded
	var verdict error
	if b.Judges != nil {
		violations, err := b.Judges.Run(ctx, records)
		if err != nil {
			return nil, b.bury(ctx, run, cocytus.StageJudge, err)
		}
		for _, v := range violations {
			run.Violations = append(run.Violations, v.String())
		}
		if verdict = judges.Verdict(violations); verdict != nil {
			run.Status = domain.RunStatusViolated
		}
	}
	run.FinishedAt = b.clock()

	if err := Publish(ctx, run, b.Sinks...); err != nil {
		return run, err
	}
	return run, verdict
}

// bury hands the failed run to the dead letter sink and returns cause.
func (b *Bench) bury(ctx context.Context, run *domain.Run, stage string, cause error) error {
	if b.DeadLetters == nil {
		return cause
	}
	rec := &cocytus.Record{
		RunID:      run.ID,
		Function:   run.Function,
		LogGroup:   run.LogGroup,
		Stage:      stage,
		Reason:     cause.Error(),
		Iterations: len(run.Iterations),
		CreatedAt:  b.clock(),
	}
	// The dead letter context must outlive a cancelled run.
	if err := b.DeadLetters.Write(context.WithoutCancel(ctx), rec); err != nil {
		b.logger().Warn(ctx, "Failed to record dead letter", map[string]any{"run_id": run.ID, "error": err.Error()})
	}
	return cause
}

func (b *Bench) analyze(ctx context.Context, run *domain.Run, opts Options) ([]stats.Record, error) {
	q := mnemosyne.Query{
		LogGroup: run.LogGroup,
		Start:    run.QueryStart,
		QueryOptions: mnemosyne.QueryOptions{
			StreamFilter:  opts.StreamFilter,
			GroupByMemory: opts.GroupByMemory,
		},
	}
	if opts.GroupByMemory {
		return b.Analyzer.Analyze(ctx, q)
	}
	rec, err := b.Analyzer.AnalyzeOne(ctx, q)
	if err != nil {
		return nil, err
	}
	return []stats.Record{rec}, nil
}

func (b *Bench) observe(records []stats.Record) {
	if b.Metrics == nil {
		return
	}
	for _, rec := range records {
		memory := hermes.Label{Key: "memory", Value: strconv.FormatFloat(rec.MemorySize, 'f', -1, 64)}
		b.Metrics.SetGauge(hermes.MetricColdStarts, float64(rec.Count), memory)
		for _, m := range rec.Metrics() {
			b.Metrics.SetGauge(hermes.MetricInitDuration, m.Value, memory, hermes.Label{Key: "stat", Value: m.Name})
		}
	}
}

func (b *Bench) logger() hermes.Logger {
	if b.Logger == nil {
		return hermes.NopLogger{}
	}
	return b.Logger
}

func (b *Bench) clock() time.Time {
	if b.now != nil {
		return b.now()
	}
	return time.Now()
}

func (b *Bench) pause(ctx context.Context, d time.Duration) error {
	if b.sleep != nil {
		return b.sleep(ctx, d)
	}
	return domain.SleepContext(ctx, d)
}
