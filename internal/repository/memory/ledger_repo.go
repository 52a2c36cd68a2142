package memory

import (
	"context"
	"finance_planner/internal/domain"
	"finance_planner/internal/repository"
	"fmt"
	"sort"
	"sync"
)

type LedgerRepository struct {
	mu      sync.RWMutex
	entries map[string]domain.LedgerEntryRequest
	index   map[string][]string
}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{
		entries: make(map[string]domain.LedgerEntryRequest),
		index:   make(map[string][]string),
	}
}

func (r *LedgerRepository) Append(ctx context.Context, entry domain.LedgerEntryRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[entry.IdempotencyKey]; exists {
		return fmt.Errorf("%w: ledger entry %s", repository.ErrDuplicate, entry.IdempotencyKey)
	}

	r.entries[entry.IdempotencyKey] = entry
	r.index[entry.SourceDefinitionID] = append(r.index[entry.SourceDefinitionID], entry.IdempotencyKey)
	return nil
}

func (r *LedgerRepository) GetByDefinition(ctx context.Context, definitionID string) ([]domain.LedgerEntryRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.LedgerEntryRequest
	for _, key := range r.index[definitionID] {
		result = append(result, r.entries[key])
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

func (r *LedgerRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
