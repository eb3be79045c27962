package charon

import (
	"context"
	"testing"
	"time"

	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottle_DisabledNeverBlocks(t *testing.T) {
	th := NewThrottle(0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, th.Wait(ctx, "lambda.Invoke"))
}

func TestThrottle_NilIsNoop(t *testing.T) {
	var th *Throttle
	assert.NoError(t, th.Wait(context.Background(), "x"))
}

func TestThrottle_BurstThenPaced(t *testing.T) {
	th := NewThrottle(20, 2)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, th.Wait(ctx, "Lambda.GetFunctionConfiguration"))
	}
	// Third call has to wait roughly 1/20s for a new token.
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestThrottle_KeysAreIndependent(t *testing.T) {
	th := NewThrottle(1, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	require.NoError(t, th.Wait(ctx, "Lambda.GetFunctionConfiguration"))
	require.NoError(t, th.Wait(ctx, "CloudWatch Logs.GetQueryResults"))

	// Same key again exceeds the deadline.
	err := th.Wait(ctx, "Lambda.GetFunctionConfiguration")
	assert.Error(t, err)
}

func TestThrottle_AddToStack(t *testing.T) {
	stack := middleware.NewStack("test", smithyhttp.NewStackRequest)
	th := NewThrottle(5, 1)

	require.NoError(t, th.AddToStack(stack))

	_, ok := stack.Initialize.Get(ThrottleMiddlewareID)
	assert.True(t, ok)
}
