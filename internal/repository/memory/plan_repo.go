package memory

import (
	"context"
	"finance_planner/internal/domain"
	"finance_planner/internal/repository"
	"fmt"
	"sync"
)

type PlanRepository struct {
	mu    sync.RWMutex
	plans map[string]domain.PlanRecord
}

func NewPlanRepository() *PlanRepository {
	return &PlanRepository{plans: make(map[string]domain.PlanRecord)}
}

func (r *PlanRepository) SavePlan(ctx context.Context, plan *domain.PlanRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[plan.ID] = *plan
	return nil
}

func (r *PlanRepository) GetPlan(ctx context.Context, id string) (*domain.PlanRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plan, exists := r.plans[id]
	if !exists {
		return nil, fmt.Errorf("%w: plan %s", repository.ErrNotFound, id)
	}
	return &plan, nil
}
