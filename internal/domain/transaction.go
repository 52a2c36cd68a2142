package domain

import (
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TypeIncome   TransactionType = "income"
	TypeExpense  TransactionType = "expense"
	TypeTransfer TransactionType = "transfer"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransfer:
		return true
	}
	return false
}

var ledgerNamespace = uuid.MustParse("6f0c3a4e-2b7d-5c1e-9a8f-3d4b5e6f7a80")

// LedgerEntryRequest is a snapshot of a recurring definition taken when one occurrence is materialized.
type LedgerEntryRequest struct {
	ID                 string          `json:"id"`
	IdempotencyKey     string          `json:"idempotency_key"`
	SourceDefinitionID string          `json:"source_definition_id"`
	OwnerID            string          `json:"owner_id"`
	Date               time.Time       `json:"date"`
	Type               TransactionType `json:"type"`
	Amount             float64         `json:"amount"`
	Currency           string          `json:"currency"`
	AccountID          string          `json:"account_id"`
	ToAccountID        string          `json:"to_account_id,omitempty"`
	CategoryID         string          `json:"category_id,omitempty"`
	Description        string          `json:"description,omitempty"`
	OccurrenceNumber   int             `json:"occurrence_number"`
}

func IdempotencyKey(definitionID string, dueDate time.Time) string {
	return definitionID + "@" + dueDate.UTC().Format(time.DateOnly)
}

// NewLedgerEntryRequest snapshots def for the occurrence due on dueDate.
// The entry ID is derived from the idempotency key, so re-materializing the same occurrence yields the same ID.
func NewLedgerEntryRequest(def RecurringDefinition, dueDate time.Time, occurrence int) LedgerEntryRequest {
	key := IdempotencyKey(def.ID, dueDate)
	return LedgerEntryRequest{
		ID:                 uuid.NewSHA1(ledgerNamespace, []byte(key)).String(),
		IdempotencyKey:     key,
		SourceDefinitionID: def.ID,
		OwnerID:            def.OwnerID,
		Date:               dueDate.UTC(),
		Type:               def.Template.Type,
		Amount:             def.Template.Amount,
		Currency:           def.Template.Currency,
		AccountID:          def.Template.AccountID,
		ToAccountID:        def.Template.ToAccountID,
		CategoryID:         def.Template.CategoryID,
		Description:        def.Template.Description,
		OccurrenceNumber:   occurrence,
	}
}
