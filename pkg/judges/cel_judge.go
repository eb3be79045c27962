package judges

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/tartarus-sandbox/coldstart/pkg/stats"
)

// CELJudge evaluates boolean CEL assertions against every record, e.g.
// `p99 < 800.0` or `memory < 512.0 || p50 < 300.0`. Durations are milliseconds.
type CELJudge struct {
	assertions []assertion
}

type assertion struct {
	expr string
	prg  cel.Program
}

// NewCELJudge compiles the assertions up front so a typo fails before any
// function is touched.
func NewCELJudge(exprs []string) (*CELJudge, error) {
	env, err := cel.NewEnv(
		cel.Variable("memory", cel.DoubleType),
		cel.Variable("count", cel.IntType),
		cel.Variable("min", cel.DoubleType),
		cel.Variable("max", cel.DoubleType),
		cel.Variable("stddev", cel.DoubleType),
		cel.Variable("p50", cel.DoubleType),
		cel.Variable("p75", cel.DoubleType),
		cel.Variable("p99", cel.DoubleType),
		cel.Variable("p995", cel.DoubleType),
		cel.Variable("p999", cel.DoubleType),
		// Lets "p99 < 500" compare a double with an int literal.
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	j := &CELJudge{}
	for _, expr := range exprs {
		ast, issues := env.Compile(expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("invalid assertion %q: %w", expr, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("assertion %q must evaluate to bool, got %s", expr, ast.OutputType())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("invalid assertion %q: %w", expr, err)
		}
		j.assertions = append(j.assertions, assertion{expr: expr, prg: prg})
	}
	return j, nil
}

func (j *CELJudge) Judge(ctx context.Context, records []stats.Record) ([]Violation, error) {
	var violations []Violation
	for _, rec := range records {
		vars := map[string]any{
			"memory": rec.MemorySize,
			"count":  int64(rec.Count),
			"min":    rec.Min,
			"max":    rec.Max,
			"stddev": rec.StdDev,
			"p50":    rec.P50,
			"p75":    rec.P75,
			"p99":    rec.P99,
			"p995":   rec.P995,
			"p999":   rec.P999,
		}
		for _, a := range j.assertions {
			out, _, err := a.prg.ContextEval(ctx, vars)
			if err != nil {
				return nil, fmt.Errorf("failed to evaluate assertion %q: %w", a.expr, err)
			}
			ok, isBool := out.Value().(bool)
			if !isBool {
				return nil, fmt.Errorf("assertion %q returned %T", a.expr, out.Value())
			}
			if !ok {
				violations = append(violations, Violation{Assertion: a.expr, MemorySize: rec.MemorySize})
			}
		}
	}
	return violations, nil
}
