// Package cocytus collects runs that died before producing statistics.
package cocytus

import (
	"context"
	"time"

	"github.com/tartarus-sandbox/coldstart/pkg/domain"
)

// Stages a run can fail in.
const (
	StageIterate = "iterate"
	StageSettle  = "settle"
	StageQuery   = "query"
	StageJudge   = "judge"
)

// Record captures a failed run.
type Record struct {
	RunID      domain.RunID       `json:"run_id"`
	Function   domain.FunctionRef `json:"function"`
	LogGroup   string             `json:"log_group"`
	Stage      string             `json:"stage"`
	Reason     string             `json:"reason"`
	Iterations int                `json:"iterations_completed"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Sink is the interface for Cocytus.
type Sink interface {
	Write(ctx context.Context, rec *Record) error
}

// MemorySink keeps records in memory.
type MemorySink struct {
	Records []*Record
}

func (s *MemorySink) Write(_ context.Context, rec *Record) error {
	s.Records = append(s.Records, rec)
	return nil
}
