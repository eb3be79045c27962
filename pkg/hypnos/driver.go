// Package hypnos forces Lambda cold starts: every iteration rewrites one
// environment variable so the platform has to provision a fresh execution
// environment, waits for the update to land, then invokes the function.
package hypnos

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/google/uuid"
	"github.com/tartarus-sandbox/coldstart/pkg/domain"
	"github.com/tartarus-sandbox/coldstart/pkg/hermes"
)

// DefaultEnvKey is the variable rewritten on every iteration.
const DefaultEnvKey = "cold_start_uuid"

// DefaultPollInterval is the delay between readiness polls.
const DefaultPollInterval = time.Second

// LambdaAPI is the subset of the Lambda client the driver needs.
type LambdaAPI interface {
	GetFunctionConfiguration(ctx context.Context, params *lambda.GetFunctionConfigurationInput, optFns ...func(*lambda.Options)) (*lambda.GetFunctionConfigurationOutput, error)
	UpdateFunctionConfiguration(ctx context.Context, params *lambda.UpdateFunctionConfigurationInput, optFns ...func(*lambda.Options)) (*lambda.UpdateFunctionConfigurationOutput, error)
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Target is the function under test.
type Target struct {
	Function domain.FunctionRef
	Payload  []byte
	// Environment is the last configuration fetched from the platform.
	Environment map[string]string
}

// ErrFunctionNotFound is returned when the target does not exist.
var ErrFunctionNotFound = errors.New("function not found")

// Driver runs cold-start iterations against a single target. Iterations are
// strictly sequential.
type Driver struct {
	Lambda       LambdaAPI
	Target       Target
	EnvKey       string
	PollInterval time.Duration
	// PollTimeout bounds one readiness wait. Zero waits forever.
	PollTimeout time.Duration
	Logger      hermes.Logger
	Metrics     hermes.Metrics

	newToken func() string
	sleep    func(context.Context, time.Duration) error
	now      func() time.Time
}

// NewDriver constructs a driver with default key and poll cadence.
func NewDriver(api LambdaAPI, target Target, logger hermes.Logger, metrics hermes.Metrics) *Driver {
	if logger == nil {
		logger = hermes.NopLogger{}
	}
	if metrics == nil {
		metrics = hermes.NewNoopMetrics()
	}
	return &Driver{
		Lambda:       api,
		Target:       target,
		EnvKey:       DefaultEnvKey,
		PollInterval: DefaultPollInterval,
		Logger:       logger,
		Metrics:      metrics,
		newToken:     uuid.NewString,
		sleep:        domain.SleepContext,
		now:          time.Now,
	}
}

// Run performs iterations forced cold starts. Any error aborts the run; the
// iterations completed so far are returned alongside it.
func (d *Driver) Run(ctx context.Context, iterations int) ([]domain.Iteration, error) {
	if iterations < 1 {
		return nil, fmt.Errorf("iterations must be positive, got %d", iterations)
	}

	done := make([]domain.Iteration, 0, iterations)
	for i := 1; i <= iterations; i++ {
		d.Logger.Info(ctx, "Starting iteration", map[string]any{
			"function":   d.Target.Function,
			"iteration":  i,
			"iterations": iterations,
		})

		it, err := d.iterate(ctx, i)
		if err != nil {
			return done, fmt.Errorf("iteration %d/%d: %w", i, iterations, err)
		}
		done = append(done, it)
	}

	d.Logger.Info(ctx, "Done", map[string]any{"function": d.Target.Function, "iterations": iterations})
	return done, nil
}

func (d *Driver) iterate(ctx context.Context, index int) (domain.Iteration, error) {
	started := d.now()
	it := domain.Iteration{Index: index}

	cfg, err := d.fetchConfiguration(ctx)
	if err != nil {
		return it, err
	}
	d.Target.Environment = environmentOf(cfg)

	it.Token = d.newToken()
	if err := d.refresh(ctx, it.Token); err != nil {
		return it, err
	}

	polls, err := d.WaitReady(ctx)
	it.ReadinessPolls = polls
	if err != nil {
		return it, err
	}
	it.ReadyAfter = d.now().Sub(started)

	out, err := d.invoke(ctx)
	if err != nil {
		return it, err
	}
	it.StatusCode = out.StatusCode
	it.FunctionError = aws.ToString(out.FunctionError)

	d.Metrics.ObserveHistogram(hermes.MetricIteration, d.now().Sub(started).Seconds())
	return it, nil
}

func (d *Driver) fetchConfiguration(ctx context.Context) (*lambda.GetFunctionConfigurationOutput, error) {
	cfg, err := d.Lambda.GetFunctionConfiguration(ctx, &lambda.GetFunctionConfigurationInput{
		FunctionName: aws.String(string(d.Target.Function)),
	})
	if err != nil {
		var nf *types.ResourceNotFoundException
		if errors.As(err, &nf) {
			return nil, fmt.Errorf("%w: %s: %w", ErrFunctionNotFound, d.Target.Function, err)
		}
		return nil, fmt.Errorf("failed to get function configuration: %w", err)
	}
	return cfg, nil
}

// refresh submits the last known environment with the forced token. The
// update is asynchronous: success here does not mean it has been applied.
func (d *Driver) refresh(ctx context.Context, token string) error {
	env := maps.Clone(d.Target.Environment)
	if env == nil {
		env = make(map[string]string, 1)
	}
	env[d.envKey()] = token

	d.Logger.Info(ctx, "Updating function configuration", map[string]any{
		"function": d.Target.Function,
		"key":      d.envKey(),
		"token":    token,
	})

	_, err := d.Lambda.UpdateFunctionConfiguration(ctx, &lambda.UpdateFunctionConfigurationInput{
		FunctionName: aws.String(string(d.Target.Function)),
		Environment:  &types.Environment{Variables: env},
	})
	if err != nil {
		return fmt.Errorf("failed to update function configuration: %w", err)
	}
	return nil
}

func (d *Driver) invoke(ctx context.Context) (*lambda.InvokeOutput, error) {
	d.Logger.Info(ctx, "Invoking function", map[string]any{"function": d.Target.Function})

	out, err := d.Lambda.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(string(d.Target.Function)),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        d.Target.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke function: %w", err)
	}

	// An application error does not affect the cold start being measured.
	if out.FunctionError != nil {
		d.Logger.Error(ctx, "Function returned an error", map[string]any{
			"function":       d.Target.Function,
			"function_error": aws.ToString(out.FunctionError),
			"status_code":    out.StatusCode,
		})
		d.Metrics.IncCounter(hermes.MetricFunctionErrors, 1)
	}
	return out, nil
}

func (d *Driver) envKey() string {
	if d.EnvKey == "" {
		return DefaultEnvKey
	}
	return d.EnvKey
}

func environmentOf(cfg *lambda.GetFunctionConfigurationOutput) map[string]string {
	if cfg == nil || cfg.Environment == nil {
		return map[string]string{}
	}
	return maps.Clone(cfg.Environment.Variables)
}
