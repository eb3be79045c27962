package hades

import (
	"context"
	"fmt"
	"time"

	"github.com/tartarus-sandbox/coldstart/pkg/domain"
)

// Prune deletes every run started before cutoff. forget runs first for each
// run, so archived reports go before the registry entry that points at them.
// It returns the number of runs deleted.
func Prune(ctx context.Context, registry Registry, cutoff time.Time, forget func(context.Context, *domain.Run) error) (int, error) {
	runs, err := registry.ListRuns(ctx, "", 0)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for i := range runs {
		run := &runs[i]
		if !run.StartedAt.Before(cutoff) {
			continue
		}
		if forget != nil {
			if err := forget(ctx, run); err != nil {
				return deleted, fmt.Errorf("prune run %s: %w", run.ID, err)
			}
		}
		if err := registry.DeleteRun(ctx, run.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
