package service

import (
	"context"
	"finance_planner/internal/domain"
	"finance_planner/internal/processor"
	"finance_planner/internal/repository"
	"finance_planner/pkg/validator"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type RecurringService struct {
	store     repository.DefinitionStore
	ledger    repository.LedgerRepository
	processor *processor.RecurrenceProcessor
	validator *validator.DefinitionValidator
	logger    *slog.Logger
}

func NewRecurringService(
	store repository.DefinitionStore,
	ledger repository.LedgerRepository,
	proc *processor.RecurrenceProcessor,
	logger *slog.Logger,
) *RecurringService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecurringService{
		store:     store,
		ledger:    ledger,
		processor: proc,
		validator: validator.NewDefinitionValidator(),
		logger:    logger,
	}
}

// CreateDefinitionRequest carries the client-supplied part of a recurring definition.
type CreateDefinitionRequest struct {
	ID             string                     `json:"id,omitempty"`
	OwnerID        string                     `json:"owner_id"`
	Template       domain.TransactionTemplate `json:"template"`
	Frequency      domain.Frequency           `json:"frequency"`
	Interval       int                        `json:"interval"`
	StartDate      time.Time                  `json:"start_date"`
	EndDate        *time.Time                 `json:"end_date,omitempty"`
	MaxOccurrences *int                       `json:"max_occurrences,omitempty"`
}

func (s *RecurringService) CreateDefinition(ctx context.Context, req CreateDefinitionRequest) (*domain.RecurringDefinition, error) {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	interval := req.Interval
	if interval == 0 {
		interval = 1
	}

	def := domain.NewRecurringDefinition(id, req.OwnerID, req.Template, req.Frequency, interval, req.StartDate)
	if req.EndDate != nil {
		def.WithEndDate(*req.EndDate)
	}
	if req.MaxOccurrences != nil {
		def.WithMaxOccurrences(*req.MaxOccurrences)
	}
	if err := s.validator.ValidateDefinition(def); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, def); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Recurring definition created",
		slog.String("definition_id", def.ID),
		slog.String("owner_id", def.OwnerID),
		slog.String("frequency", string(def.Frequency)),
		slog.Int("interval", def.Interval))
	return def, nil
}

func (s *RecurringService) GetDefinition(ctx context.Context, id string) (*domain.RecurringDefinition, error) {
	return s.store.GetByID(ctx, id)
}

func (s *RecurringService) ListByOwner(ctx context.Context, ownerID string) ([]*domain.RecurringDefinition, error) {
	return s.store.GetByOwner(ctx, ownerID)
}

func (s *RecurringService) Entries(ctx context.Context, definitionID string) ([]domain.LedgerEntryRequest, error) {
	if _, err := s.store.GetByID(ctx, definitionID); err != nil {
		return nil, err
	}
	return s.ledger.GetByDefinition(ctx, definitionID)
}

func (s *RecurringService) ProcessDue(ctx context.Context, asOf time.Time) (processor.RunReport, error) {
	return s.processor.Run(ctx, asOf)
}
