package memory

import (
	"finance_planner/internal/repository"
)

var (
	_ repository.DefinitionStore  = (*DefinitionRepository)(nil)
	_ repository.LedgerRepository = (*LedgerRepository)(nil)
	_ repository.OfferRepository  = (*OfferRepository)(nil)
	_ repository.PlanRepository   = (*PlanRepository)(nil)
)
