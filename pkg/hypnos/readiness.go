package hypnos

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/tartarus-sandbox/coldstart/pkg/hermes"
)

// Readiness is the view of a function configuration the poll acts on.
type Readiness struct {
	State            types.State
	LastUpdateStatus types.LastUpdateStatus
	Ready            bool
}

// UnknownUpdateStatusError reports a LastUpdateStatus outside the modeled
// states. Config is the raw snapshot that carried it.
type UnknownUpdateStatusError struct {
	Status types.LastUpdateStatus
	Config *lambda.GetFunctionConfigurationOutput
}

func (e *UnknownUpdateStatusError) Error() string {
	if e.Config == nil {
		return fmt.Sprintf("unknown LastUpdateStatus %q", e.Status)
	}
	return fmt.Sprintf("unknown LastUpdateStatus %q, fn config is {FunctionArn: %s, State: %s, StateReason: %s, LastUpdateStatusReason: %s, Version: %s}",
		e.Status,
		aws.ToString(e.Config.FunctionArn),
		e.Config.State,
		aws.ToString(e.Config.StateReason),
		aws.ToString(e.Config.LastUpdateStatusReason),
		aws.ToString(e.Config.Version),
	)
}

// Classify derives readiness from a configuration snapshot. A Failed update is
// treated like InProgress and polled again.
func Classify(cfg *lambda.GetFunctionConfigurationOutput) (Readiness, error) {
	r := Readiness{State: cfg.State, LastUpdateStatus: cfg.LastUpdateStatus}

	if r.State != "" && r.State != types.StateActive {
		return r, nil
	}

	switch r.LastUpdateStatus {
	case types.LastUpdateStatusSuccessful:
		r.Ready = true
	case types.LastUpdateStatusFailed, types.LastUpdateStatusInProgress, "":
	default:
		return r, &UnknownUpdateStatusError{Status: r.LastUpdateStatus, Config: cfg}
	}
	return r, nil
}

// WaitReady polls the configuration until the function is active and its last
// update succeeded. It returns the number of polls made.
func (d *Driver) WaitReady(ctx context.Context) (int, error) {
	d.Logger.Info(ctx, "Waiting for function", map[string]any{"function": d.Target.Function})

	if d.PollTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.PollTimeout)
		defer cancel()
	}

	interval := d.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	for polls := 1; ; polls++ {
		d.Metrics.IncCounter(hermes.MetricReadinessPolls, 1)

		cfg, err := d.fetchConfiguration(ctx)
		if err != nil {
			return polls, err
		}

		r, err := Classify(cfg)
		if err != nil {
			d.Logger.Warn(ctx, "LastUpdateStatus unknown", map[string]any{
				"function": d.Target.Function,
				"status":   r.LastUpdateStatus,
			})
			return polls, err
		}
		if r.Ready {
			return polls, nil
		}

		fields := map[string]any{
			"function":           d.Target.Function,
			"state":              r.State,
			"last_update_status": r.LastUpdateStatus,
			"poll":               polls,
		}
		if r.LastUpdateStatus == "" && (r.State == "" || r.State == types.StateActive) {
			d.Logger.Warn(ctx, "Missing last update status", fields)
		}
		d.Logger.Info(ctx, "Function is not ready, sleeping", fields)

		if err := d.sleep(ctx, interval); err != nil {
			return polls, fmt.Errorf("waiting for function %s: %w", d.Target.Function, err)
		}
	}
}
