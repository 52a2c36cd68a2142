package postgres

import (
	"context"
	"database/sql"
	"errors"
	"finance_planner/internal/domain"
	"finance_planner/internal/repository"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const migrationSQL = `
CREATE TABLE IF NOT EXISTS recurring_definitions (
	id                  TEXT PRIMARY KEY,
	owner_id            TEXT NOT NULL,
	tx_type             TEXT NOT NULL,
	amount              DOUBLE PRECISION NOT NULL,
	currency            CHAR(3) NOT NULL,
	account_id          TEXT NOT NULL,
	to_account_id       TEXT NOT NULL DEFAULT '',
	category_id         TEXT NOT NULL DEFAULT '',
	description         TEXT NOT NULL DEFAULT '',
	frequency           TEXT NOT NULL,
	interval_count      INTEGER NOT NULL,
	start_date          DATE NOT NULL,
	end_date            DATE,
	max_occurrences     INTEGER,
	occurrences_created INTEGER NOT NULL DEFAULT 0,
	next_due_date       DATE NOT NULL,
	is_active           BOOLEAN NOT NULL DEFAULT TRUE,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_definitions_due ON recurring_definitions(next_due_date) WHERE is_active;

CREATE TABLE IF NOT EXISTS ledger_entries (
	id                   UUID PRIMARY KEY,
	idempotency_key      TEXT NOT NULL UNIQUE,
	source_definition_id TEXT NOT NULL,
	owner_id             TEXT NOT NULL,
	entry_date           DATE NOT NULL,
	tx_type              TEXT NOT NULL,
	amount               DOUBLE PRECISION NOT NULL,
	currency             CHAR(3) NOT NULL,
	account_id           TEXT NOT NULL,
	to_account_id        TEXT NOT NULL DEFAULT '',
	category_id          TEXT NOT NULL DEFAULT '',
	description          TEXT NOT NULL DEFAULT '',
	occurrence_number    INTEGER NOT NULL
);
`

// Store persists recurring definitions and the ledger they feed in PostgreSQL.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewStore(db), nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, migrationSQL); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const definitionColumns = `
	id, owner_id, tx_type, amount, currency, account_id, to_account_id, category_id, description,
	frequency, interval_count, start_date, end_date, max_occurrences, occurrences_created,
	next_due_date, is_active, created_at, updated_at`

func (s *Store) Create(ctx context.Context, def *domain.RecurringDefinition) error {
	query := `
		INSERT INTO recurring_definitions (` + definitionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := s.db.QueryRowContext(ctx, query,
		def.ID, def.OwnerID, string(def.Template.Type), def.Template.Amount, def.Template.Currency,
		def.Template.AccountID, def.Template.ToAccountID, def.Template.CategoryID, def.Template.Description,
		string(def.Frequency), def.Interval, def.StartDate, nullTime(def.EndDate), nullInt(def.MaxOccurrences),
		def.OccurrencesCreated, def.NextDueDate, def.IsActive,
	).Scan(&def.CreatedAt, &def.UpdatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: recurring definition %s", repository.ErrDuplicate, def.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to create recurring definition: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*domain.RecurringDefinition, error) {
	query := `SELECT ` + definitionColumns + ` FROM recurring_definitions WHERE id = $1`
	def, err := scanDefinition(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: recurring definition %s", repository.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring definition: %w", err)
	}
	return &def, nil
}

func (s *Store) GetByOwner(ctx context.Context, ownerID string) ([]*domain.RecurringDefinition, error) {
	query := `
		SELECT ` + definitionColumns + `
		FROM recurring_definitions
		WHERE owner_id = $1
		ORDER BY next_due_date, id`
	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}
	defer rows.Close()

	var result []*domain.RecurringDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan definition: %w", err)
		}
		result = append(result, &def)
	}
	return result, rows.Err()
}

func (s *Store) ListDue(ctx context.Context, asOf time.Time) ([]domain.RecurringDefinition, error) {
	query := `
		SELECT ` + definitionColumns + `
		FROM recurring_definitions
		WHERE is_active AND next_due_date <= $1
		ORDER BY next_due_date, id`
	rows, err := s.db.QueryContext(ctx, query, domain.TruncateDay(asOf))
	if err != nil {
		return nil, fmt.Errorf("failed to list due definitions: %w", err)
	}
	defer rows.Close()

	var result []domain.RecurringDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan definition: %w", err)
		}
		result = append(result, def)
	}
	return result, rows.Err()
}

func (s *Store) Save(ctx context.Context, def domain.RecurringDefinition) error {
	query := `
		UPDATE recurring_definitions SET
			owner_id = $2, tx_type = $3, amount = $4, currency = $5, account_id = $6,
			to_account_id = $7, category_id = $8, description = $9, frequency = $10,
			interval_count = $11, start_date = $12, end_date = $13, max_occurrences = $14,
			occurrences_created = $15, next_due_date = $16, is_active = $17,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query,
		def.ID, def.OwnerID, string(def.Template.Type), def.Template.Amount, def.Template.Currency,
		def.Template.AccountID, def.Template.ToAccountID, def.Template.CategoryID, def.Template.Description,
		string(def.Frequency), def.Interval, def.StartDate, nullTime(def.EndDate), nullInt(def.MaxOccurrences),
		def.OccurrencesCreated, def.NextDueDate, def.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to save recurring definition: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: recurring definition %s", repository.ErrNotFound, def.ID)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, e domain.LedgerEntryRequest) error {
	query := `
		INSERT INTO ledger_entries (
			id, idempotency_key, source_definition_id, owner_id, entry_date, tx_type, amount,
			currency, account_id, to_account_id, category_id, description, occurrence_number
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (idempotency_key) DO NOTHING`
	res, err := s.db.ExecContext(ctx, query,
		e.ID, e.IdempotencyKey, e.SourceDefinitionID, e.OwnerID, e.Date, string(e.Type), e.Amount,
		e.Currency, e.AccountID, e.ToAccountID, e.CategoryID, e.Description, e.OccurrenceNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: ledger entry %s", repository.ErrDuplicate, e.IdempotencyKey)
	}
	return nil
}

func (s *Store) GetByDefinition(ctx context.Context, definitionID string) ([]domain.LedgerEntryRequest, error) {
	query := `
		SELECT id, idempotency_key, source_definition_id, owner_id, entry_date, tx_type, amount,
			currency, account_id, to_account_id, category_id, description, occurrence_number
		FROM ledger_entries
		WHERE source_definition_id = $1
		ORDER BY entry_date`
	rows, err := s.db.QueryContext(ctx, query, definitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var result []domain.LedgerEntryRequest
	for rows.Next() {
		var e domain.LedgerEntryRequest
		var txType string
		if err := rows.Scan(&e.ID, &e.IdempotencyKey, &e.SourceDefinitionID, &e.OwnerID, &e.Date, &txType,
			&e.Amount, &e.Currency, &e.AccountID, &e.ToAccountID, &e.CategoryID, &e.Description,
			&e.OccurrenceNumber); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.Type = domain.TransactionType(txType)
		e.Date = domain.TruncateDay(e.Date)
		result = append(result, e)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row scanner) (domain.RecurringDefinition, error) {
	var d domain.RecurringDefinition
	var txType, freq string
	var end pq.NullTime
	var maxOcc sql.NullInt64
	if err := row.Scan(&d.ID, &d.OwnerID, &txType, &d.Template.Amount, &d.Template.Currency,
		&d.Template.AccountID, &d.Template.ToAccountID, &d.Template.CategoryID, &d.Template.Description,
		&freq, &d.Interval, &d.StartDate, &end, &maxOcc, &d.OccurrencesCreated, &d.NextDueDate,
		&d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return domain.RecurringDefinition{}, err
	}
	d.Template.Type = domain.TransactionType(txType)
	d.Frequency = domain.Frequency(freq)
	d.StartDate = domain.TruncateDay(d.StartDate)
	d.NextDueDate = domain.TruncateDay(d.NextDueDate)
	if end.Valid {
		e := domain.TruncateDay(end.Time)
		d.EndDate = &e
	}
	if maxOcc.Valid {
		n := int(maxOcc.Int64)
		d.MaxOccurrences = &n
	}
	return d, nil
}

func nullTime(t *time.Time) pq.NullTime {
	if t == nil {
		return pq.NullTime{}
	}
	return pq.NullTime{Time: *t, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

var (
	_ repository.DefinitionStore  = (*Store)(nil)
	_ repository.LedgerRepository = (*Store)(nil)
)
