package memory

import (
	"context"
	"finance_planner/internal/domain"
	"finance_planner/internal/repository"
	"fmt"
	"sort"
	"sync"
	"time"
)

type DefinitionRepository struct {
	mu          sync.RWMutex
	definitions map[string]domain.RecurringDefinition
	byOwner     map[string][]string
}

func NewDefinitionRepository() *DefinitionRepository {
	return &DefinitionRepository{
		definitions: make(map[string]domain.RecurringDefinition),
		byOwner:     make(map[string][]string),
	}
}

func (r *DefinitionRepository) Create(ctx context.Context, def *domain.RecurringDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitions[def.ID]; exists {
		return fmt.Errorf("%w: recurring definition %s", repository.ErrDuplicate, def.ID)
	}

	now := time.Now().UTC()
	def.CreatedAt = now
	def.UpdatedAt = now
	r.definitions[def.ID] = def.Clone()
	r.byOwner[def.OwnerID] = append(r.byOwner[def.OwnerID], def.ID)
	return nil
}

func (r *DefinitionRepository) GetByID(ctx context.Context, id string) (*domain.RecurringDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.definitions[id]
	if !exists {
		return nil, fmt.Errorf("%w: recurring definition %s", repository.ErrNotFound, id)
	}
	out := def.Clone()
	return &out, nil
}

func (r *DefinitionRepository) GetByOwner(ctx context.Context, ownerID string) ([]*domain.RecurringDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.RecurringDefinition
	for _, id := range r.byOwner[ownerID] {
		def := r.definitions[id].Clone()
		result = append(result, &def)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].NextDueDate.Before(result[j].NextDueDate)
	})
	return result, nil
}

func (r *DefinitionRepository) ListDue(ctx context.Context, asOf time.Time) ([]domain.RecurringDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := domain.TruncateDay(asOf)
	var result []domain.RecurringDefinition
	for _, def := range r.definitions {
		if def.IsActive && !domain.TruncateDay(def.NextDueDate).After(cutoff) {
			result = append(result, def.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].NextDueDate.Equal(result[j].NextDueDate) {
			return result[i].NextDueDate.Before(result[j].NextDueDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *DefinitionRepository) Save(ctx context.Context, def domain.RecurringDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.definitions[def.ID]
	if !exists {
		return fmt.Errorf("%w: recurring definition %s", repository.ErrNotFound, def.ID)
	}

	def.CreatedAt = existing.CreatedAt
	def.UpdatedAt = time.Now().UTC()
	r.definitions[def.ID] = def.Clone()
	return nil
}
