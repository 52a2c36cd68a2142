package memory

import (
	"context"
	"finance_planner/internal/domain"
	"sort"
	"sync"
)

type OfferRepository struct {
	mu     sync.RWMutex
	offers map[string]domain.LenderOffer
}

func NewOfferRepository(offers ...domain.LenderOffer) *OfferRepository {
	r := &OfferRepository{offers: make(map[string]domain.LenderOffer)}
	for _, o := range offers {
		r.offers[o.ID] = o
	}
	return r
}

func (r *OfferRepository) SaveOffer(ctx context.Context, offer domain.LenderOffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offers[offer.ID] = offer
	return nil
}

func (r *OfferRepository) ListByPurpose(ctx context.Context, purpose domain.LoanPurpose) ([]domain.LenderOffer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.LenderOffer
	for _, o := range r.offers {
		if o.Purpose == purpose {
			result = append(result, o)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}
