package charon

import (
	"context"
	"fmt"
	"sync"

	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/smithy-go/middleware"
	"golang.org/x/time/rate"
)

// ThrottleMiddlewareID identifies the throttle in an SDK middleware stack.
const ThrottleMiddlewareID = "ColdstartThrottle"

// Throttle paces AWS API calls with one token bucket per service operation.
// Lambda's control plane (GetFunctionConfiguration, UpdateFunctionConfiguration)
// and Logs Insights both enforce low per-account request rates.
type Throttle struct {
	requestsPerSecond float64
	burst             int

	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

// NewThrottle creates a throttle. A non-positive rate disables pacing.
func NewThrottle(requestsPerSecond float64, burst int) *Throttle {
	if burst < 1 {
		burst = 1
	}
	return &Throttle{
		requestsPerSecond: requestsPerSecond,
		burst:             burst,
		limiters:          make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a token for key is available or ctx is done.
func (t *Throttle) Wait(ctx context.Context, key string) error {
	if t == nil || t.requestsPerSecond <= 0 {
		return nil
	}
	if key == "" {
		key = "default"
	}
	if err := t.limiter(key).Wait(ctx); err != nil {
		return fmt.Errorf("throttle %s: %w", key, err)
	}
	return nil
}

func (t *Throttle) limiter(key string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(t.requestsPerSecond), t.burst)
		t.limiters[key] = l
	}
	return l
}

// AddToStack installs the throttle at the front of the Initialize step. It
// matches the signature of the SDK clients' Options.APIOptions entries.
func (t *Throttle) AddToStack(stack *middleware.Stack) error {
	return stack.Initialize.Add(middleware.InitializeMiddlewareFunc(ThrottleMiddlewareID,
		func(ctx context.Context, in middleware.InitializeInput, next middleware.InitializeHandler) (middleware.InitializeOutput, middleware.Metadata, error) {
			key := awsmiddleware.GetServiceID(ctx) + "." + awsmiddleware.GetOperationName(ctx)
			if err := t.Wait(ctx, key); err != nil {
				return middleware.InitializeOutput{}, middleware.Metadata{}, err
			}
			return next.HandleInitialize(ctx, in)
		}), middleware.Before)
}
