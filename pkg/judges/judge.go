// Package judges decides whether a run's statistics meet the operator's
// service level objectives.
package judges

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tartarus-sandbox/coldstart/pkg/stats"
)

// ErrThresholdViolated is returned by Chain.Verdict when any judge objected.
var ErrThresholdViolated = errors.New("cold start thresholds violated")

// Violation is one failed assertion for one bucket.
type Violation struct {
	Assertion  string
	MemorySize float64
}

func (v Violation) String() string {
	if v.MemorySize == 0 {
		return v.Assertion
	}
	return fmt.Sprintf("%s (memory %g MB)", v.Assertion, v.MemorySize)
}

// Judge inspects the records of a finished run.
type Judge interface {
	Judge(ctx context.Context, records []stats.Record) ([]Violation, error)
}

// Chain composes multiple judges.
type Chain struct {
	Judges []Judge
}

func (c *Chain) Run(ctx context.Context, records []stats.Record) ([]Violation, error) {
	var all []Violation
	for _, j := range c.Judges {
		v, err := j.Judge(ctx, records)
		if err != nil {
			return nil, err
		}
		all = append(all, v...)
	}
	return all, nil
}

// Verdict wraps ErrThresholdViolated with the violations, or returns nil.
func Verdict(violations []Violation) error {
	if len(violations) == 0 {
		return nil
	}
	msgs := make([]string, len(violations))
	for i, v := range violations {
		msgs[i] = v.String()
	}
	return fmt.Errorf("%w: %s", ErrThresholdViolated, strings.Join(msgs, "; "))
}
