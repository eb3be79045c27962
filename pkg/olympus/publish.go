package olympus

import (
	"context"
	"fmt"

	"github.com/tartarus-sandbox/coldstart/pkg/domain"
	"golang.org/x/sync/errgroup"
)

// Sink receives finished runs: the history registry, the report archive.
type Sink interface {
	Save(ctx context.Context, run *domain.Run) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, run *domain.Run) error

func (f SinkFunc) Save(ctx context.Context, run *domain.Run) error {
	return f(ctx, run)
}

// Publish hands run to every sink concurrently. Sinks only read run.
func Publish(ctx context.Context, run *domain.Run, sinks ...Sink) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, s := range sinks {
		i, s := i, s
		g.Go(func() error {
			if err := s.Save(ctx, run); err != nil {
				return fmt.Errorf("sink %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}
