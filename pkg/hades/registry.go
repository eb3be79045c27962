package hades

import (
	"context"
	"errors"

	"github.com/tartarus-sandbox/coldstart/pkg/domain"
)

var ErrRunNotFound = errors.New("run not found")

// Registry is Hades: where finished runs go to be remembered.
type Registry interface {
	Save(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, id domain.RunID) (*domain.Run, error)
	// ListRuns returns the newest runs first. An empty function lists all.
	ListRuns(ctx context.Context, function string, limit int) ([]domain.Run, error)
	// DeleteRun removes a run. Deleting a missing run is not an error.
	DeleteRun(ctx context.Context, id domain.RunID) error
}
