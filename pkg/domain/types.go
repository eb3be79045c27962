package domain

import (
	"context"
	"strings"
	"time"

	"github.com/tartarus-sandbox/coldstart/pkg/stats"
)

// IDs

type RunID string

// FunctionRef is a Lambda function name, partial ARN or full ARN.
type FunctionRef string

// LogGroupPrefix is where Lambda delivers function logs.
const LogGroupPrefix = "/aws/lambda/"

// Name returns the final colon-delimited segment of the reference.
func (f FunctionRef) Name() string {
	s := string(f)
	if i := strings.LastIndex(s, ":"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// LogGroup derives the function's default log group.
func (f FunctionRef) LogGroup() string {
	return LogGroupPrefix + f.Name()
}

// Statuses

type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	// RunStatusViolated means the run completed but an assertion failed.
	RunStatusViolated RunStatus = "VIOLATED"
)

// Iteration records one forced cold start.
type Iteration struct {
	Index          int           `json:"index" yaml:"index"`
	Token          string        `json:"token" yaml:"token"`
	ReadinessPolls int           `json:"readiness_polls" yaml:"readiness_polls"`
	ReadyAfter     time.Duration `json:"ready_after" yaml:"ready_after"`
	StatusCode     int32         `json:"status_code" yaml:"status_code"`
	FunctionError  string        `json:"function_error,omitempty" yaml:"function_error,omitempty"`
}

// Run is the persisted summary of one benchmark run.
type Run struct {
	ID         RunID          `json:"id" yaml:"id"`
	Function   FunctionRef    `json:"function" yaml:"function"`
	LogGroup   string         `json:"log_group" yaml:"log_group"`
	Iterations []Iteration    `json:"iterations,omitempty" yaml:"iterations,omitempty"`
	Records    []stats.Record `json:"records" yaml:"records"`
	Violations []string       `json:"violations,omitempty" yaml:"violations,omitempty"`
	Status     RunStatus      `json:"status" yaml:"status"`
	QueryStart time.Time      `json:"query_start" yaml:"query_start"`
	StartedAt  time.Time      `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time      `json:"finished_at" yaml:"finished_at"`
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
