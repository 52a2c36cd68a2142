package repository

import (
	"context"
	"errors"
	"finance_planner/internal/domain"
	"time"
)

type DefinitionStore interface {
	Create(ctx context.Context, def *domain.RecurringDefinition) error
	GetByID(ctx context.Context, id string) (*domain.RecurringDefinition, error)
	GetByOwner(ctx context.Context, ownerID string) ([]*domain.RecurringDefinition, error)
	ListDue(ctx context.Context, asOf time.Time) ([]domain.RecurringDefinition, error)
	Save(ctx context.Context, def domain.RecurringDefinition) error
}

// LedgerSink accepts materialized occurrences. An entry whose idempotency key was already
// appended is rejected with ErrDuplicate.
type LedgerSink interface {
	Append(ctx context.Context, entry domain.LedgerEntryRequest) error
}

type LedgerRepository interface {
	LedgerSink
	GetByDefinition(ctx context.Context, definitionID string) ([]domain.LedgerEntryRequest, error)
}

type OfferCatalog interface {
	ListByPurpose(ctx context.Context, purpose domain.LoanPurpose) ([]domain.LenderOffer, error)
}

type OfferRepository interface {
	OfferCatalog
	SaveOffer(ctx context.Context, offer domain.LenderOffer) error
}

type PlanSource interface {
	GetPlan(ctx context.Context, id string) (*domain.PlanRecord, error)
}

type PlanRepository interface {
	PlanSource
	SavePlan(ctx context.Context, plan *domain.PlanRecord) error
}

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate entry")
)
