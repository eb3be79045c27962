package hades

import (
	"context"
	"sort"
	"sync"

	"github.com/tartarus-sandbox/coldstart/pkg/domain"
)

type MemoryRegistry struct {
	mu   sync.RWMutex
	runs map[domain.RunID]domain.Run
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{runs: make(map[domain.RunID]domain.Run)}
}

func (r *MemoryRegistry) Save(ctx context.Context, run *domain.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = *run
	return nil
}

func (r *MemoryRegistry) GetRun(ctx context.Context, id domain.RunID) (*domain.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return &run, nil
}

func (r *MemoryRegistry) DeleteRun(ctx context.Context, id domain.RunID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, id)
	return nil
}

func (r *MemoryRegistry) ListRuns(ctx context.Context, function string, limit int) ([]domain.Run, error) {
	r.mu.RLock()
	list := make([]domain.Run, 0, len(r.runs))
	for _, run := range r.runs {
		if function == "" || run.Function.Name() == domain.FunctionRef(function).Name() {
			list = append(list, run)
		}
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].StartedAt.After(list[j].StartedAt)
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}
