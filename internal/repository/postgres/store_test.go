package postgres

import (
	"context"
	"errors"
	"finance_planner/internal/domain"
	"finance_planner/internal/repository"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// openTestStore connects to POSTGRES_TEST_DSN and skips when it is unset.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()
	store, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestStore_DefinitionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	id := "rd-" + uuid.NewString()
	def := domain.NewRecurringDefinition(id, "owner-"+id, domain.TransactionTemplate{
		Type: domain.TypeIncome, Amount: 5000, Currency: "USD", AccountID: "acc-1",
	}, domain.FrequencyMonthly, 1, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)).WithMaxOccurrences(3)

	if err := store.Create(ctx, def); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Create(ctx, def); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	got, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.NextDueDate.Equal(def.NextDueDate) || got.MaxOccurrences == nil || *got.MaxOccurrences != 3 {
		t.Errorf("expected %+v, got %+v", def, got)
	}

	entry := domain.NewLedgerEntryRequest(*got, got.NextDueDate, 1)
	if err := store.Append(ctx, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Append(ctx, entry); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	updated := got.Clone()
	updated.OccurrencesCreated = 1
	updated.NextDueDate = time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	if err := store.Save(ctx, updated); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries, err := store.GetByDefinition(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].IdempotencyKey != entry.IdempotencyKey {
		t.Errorf("expected one entry, got %+v", entries)
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetByID(context.Background(), "missing-"+uuid.NewString())

	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
