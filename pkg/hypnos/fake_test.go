package hypnos

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/tartarus-sandbox/coldstart/pkg/hermes"
)

// fakeLambda replays configuration snapshots in order, repeating the last one.
type fakeLambda struct {
	mu        sync.Mutex
	calls     []string
	configs   []*lambda.GetFunctionConfigurationOutput
	getErr    error
	updateErr error
	invokeOut *lambda.InvokeOutput
	invokeErr error
	updates   []map[string]string
	payloads  [][]byte
}

func (f *fakeLambda) GetFunctionConfiguration(ctx context.Context, params *lambda.GetFunctionConfigurationInput, optFns ...func(*lambda.Options)) (*lambda.GetFunctionConfigurationOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "get")
	if f.getErr != nil {
		return nil, f.getErr
	}
	cfg := f.configs[0]
	if len(f.configs) > 1 {
		f.configs = f.configs[1:]
	}
	return cfg, nil
}

func (f *fakeLambda) UpdateFunctionConfiguration(ctx context.Context, params *lambda.UpdateFunctionConfigurationInput, optFns ...func(*lambda.Options)) (*lambda.UpdateFunctionConfigurationOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update")
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updates = append(f.updates, maps.Clone(params.Environment.Variables))
	return &lambda.UpdateFunctionConfigurationOutput{}, nil
}

func (f *fakeLambda) Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "invoke")
	f.payloads = append(f.payloads, params.Payload)
	if f.invokeErr != nil {
		return nil, f.invokeErr
	}
	if f.invokeOut != nil {
		return f.invokeOut, nil
	}
	return &lambda.InvokeOutput{StatusCode: 200}, nil
}

func config(state types.State, status types.LastUpdateStatus, env map[string]string) *lambda.GetFunctionConfigurationOutput {
	cfg := &lambda.GetFunctionConfigurationOutput{
		FunctionArn:      aws.String("arn:aws:lambda:us-east-1:123456789012:function:hello"),
		State:            state,
		LastUpdateStatus: status,
	}
	if env != nil {
		cfg.Environment = &types.EnvironmentResponse{Variables: env}
	}
	return cfg
}

func ready(env map[string]string) *lambda.GetFunctionConfigurationOutput {
	return config(types.StateActive, types.LastUpdateStatusSuccessful, env)
}

// newTestDriver returns a driver whose sleeps only count.
func newTestDriver(api LambdaAPI) (*Driver, *int) {
	d := NewDriver(api, Target{Function: "hello", Payload: []byte(`{"ping":true}`)}, hermes.NopLogger{}, nil)
	sleeps := 0
	d.sleep = func(ctx context.Context, _ time.Duration) error {
		sleeps++
		return ctx.Err()
	}
	return d, &sleeps
}
