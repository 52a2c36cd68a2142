package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"finance_planner/internal/domain"
	"finance_planner/internal/repository"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const dateLayout = time.DateOnly

// Store keeps definitions, ledger entries, lender offers and plans in one SQLite file.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating storage dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cleanPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const definitionColumns = `
	id, owner_id, tx_type, amount, currency, account_id, to_account_id, category_id, description,
	frequency, interval_count, start_date, end_date, max_occurrences, occurrences_created,
	next_due_date, is_active, created_at, updated_at`

func (s *Store) Create(ctx context.Context, def *domain.RecurringDefinition) error {
	now := time.Now().UTC()
	def.CreatedAt = now
	def.UpdatedAt = now

	res, err := s.db.ExecContext(ctx, `
INSERT INTO recurring_definitions (`+definitionColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING
`,
		def.ID, def.OwnerID, string(def.Template.Type), def.Template.Amount, def.Template.Currency,
		def.Template.AccountID, def.Template.ToAccountID, def.Template.CategoryID, def.Template.Description,
		string(def.Frequency), def.Interval, formatDate(def.StartDate), nullDate(def.EndDate),
		nullInt(def.MaxOccurrences), def.OccurrencesCreated, formatDate(def.NextDueDate), def.IsActive,
		def.CreatedAt.UnixMilli(), def.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("create recurring definition: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: recurring definition %s", repository.ErrDuplicate, def.ID)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*domain.RecurringDefinition, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+definitionColumns+` FROM recurring_definitions WHERE id = ?`, id)
	def, err := scanDefinition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: recurring definition %s", repository.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get recurring definition: %w", err)
	}
	return &def, nil
}

func (s *Store) GetByOwner(ctx context.Context, ownerID string) ([]*domain.RecurringDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+definitionColumns+`
FROM recurring_definitions
WHERE owner_id = ?
ORDER BY next_due_date, id
`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list definitions by owner: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*domain.RecurringDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring definition: %w", err)
		}
		result = append(result, &def)
	}
	return result, rows.Err()
}

func (s *Store) ListDue(ctx context.Context, asOf time.Time) ([]domain.RecurringDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+definitionColumns+`
FROM recurring_definitions
WHERE is_active = 1 AND next_due_date <= ?
ORDER BY next_due_date, id
`, formatDate(asOf))
	if err != nil {
		return nil, fmt.Errorf("list due definitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []domain.RecurringDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring definition: %w", err)
		}
		result = append(result, def)
	}
	return result, rows.Err()
}

func (s *Store) Save(ctx context.Context, def domain.RecurringDefinition) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE recurring_definitions SET
	owner_id = ?, tx_type = ?, amount = ?, currency = ?, account_id = ?, to_account_id = ?,
	category_id = ?, description = ?, frequency = ?, interval_count = ?, start_date = ?,
	end_date = ?, max_occurrences = ?, occurrences_created = ?, next_due_date = ?,
	is_active = ?, updated_at = ?
WHERE id = ?
`,
		def.OwnerID, string(def.Template.Type), def.Template.Amount, def.Template.Currency,
		def.Template.AccountID, def.Template.ToAccountID, def.Template.CategoryID, def.Template.Description,
		string(def.Frequency), def.Interval, formatDate(def.StartDate), nullDate(def.EndDate),
		nullInt(def.MaxOccurrences), def.OccurrencesCreated, formatDate(def.NextDueDate), def.IsActive,
		time.Now().UTC().UnixMilli(), def.ID,
	)
	if err != nil {
		return fmt.Errorf("save recurring definition: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: recurring definition %s", repository.ErrNotFound, def.ID)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, e domain.LedgerEntryRequest) error {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO ledger_entries (
	id, idempotency_key, source_definition_id, owner_id, entry_date, tx_type, amount, currency,
	account_id, to_account_id, category_id, description, occurrence_number
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING
`,
		e.ID, e.IdempotencyKey, e.SourceDefinitionID, e.OwnerID, formatDate(e.Date), string(e.Type),
		e.Amount, e.Currency, e.AccountID, e.ToAccountID, e.CategoryID, e.Description, e.OccurrenceNumber,
	)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: ledger entry %s", repository.ErrDuplicate, e.IdempotencyKey)
	}
	return nil
}

func (s *Store) GetByDefinition(ctx context.Context, definitionID string) ([]domain.LedgerEntryRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, idempotency_key, source_definition_id, owner_id, entry_date, tx_type, amount, currency,
	account_id, to_account_id, category_id, description, occurrence_number
FROM ledger_entries
WHERE source_definition_id = ?
ORDER BY entry_date
`, definitionID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []domain.LedgerEntryRequest
	for rows.Next() {
		var e domain.LedgerEntryRequest
		var date, txType string
		if err := rows.Scan(&e.ID, &e.IdempotencyKey, &e.SourceDefinitionID, &e.OwnerID, &date, &txType,
			&e.Amount, &e.Currency, &e.AccountID, &e.ToAccountID, &e.CategoryID, &e.Description,
			&e.OccurrenceNumber); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		if e.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		e.Type = domain.TransactionType(txType)
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *Store) SaveOffer(ctx context.Context, o domain.LenderOffer) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO lender_offers (
	id, bank_id, bank_name, purpose, interest_rate_percent, promotional_rate_percent,
	promotional_period_months, min_amount, max_amount, min_term_months, max_term_months,
	max_ltv_percent, processing_fee_percent
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	bank_id = excluded.bank_id,
	bank_name = excluded.bank_name,
	purpose = excluded.purpose,
	interest_rate_percent = excluded.interest_rate_percent,
	promotional_rate_percent = excluded.promotional_rate_percent,
	promotional_period_months = excluded.promotional_period_months,
	min_amount = excluded.min_amount,
	max_amount = excluded.max_amount,
	min_term_months = excluded.min_term_months,
	max_term_months = excluded.max_term_months,
	max_ltv_percent = excluded.max_ltv_percent,
	processing_fee_percent = excluded.processing_fee_percent
`,
		o.ID, o.BankID, o.BankName, string(o.Purpose), o.InterestRatePercent, nullFloat(o.PromotionalRatePercent),
		o.PromotionalPeriodMonths, o.MinAmount, o.MaxAmount, o.MinTermMonths, o.MaxTermMonths,
		o.MaxLTVPercent, o.ProcessingFeePercent,
	)
	if err != nil {
		return fmt.Errorf("save lender offer: %w", err)
	}
	return nil
}

func (s *Store) ListByPurpose(ctx context.Context, purpose domain.LoanPurpose) ([]domain.LenderOffer, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, bank_id, bank_name, purpose, interest_rate_percent, promotional_rate_percent,
	promotional_period_months, min_amount, max_amount, min_term_months, max_term_months,
	max_ltv_percent, processing_fee_percent
FROM lender_offers
WHERE purpose = ?
ORDER BY id
`, string(purpose))
	if err != nil {
		return nil, fmt.Errorf("list lender offers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []domain.LenderOffer
	for rows.Next() {
		var o domain.LenderOffer
		var p string
		var promo sql.NullFloat64
		if err := rows.Scan(&o.ID, &o.BankID, &o.BankName, &p, &o.InterestRatePercent, &promo,
			&o.PromotionalPeriodMonths, &o.MinAmount, &o.MaxAmount, &o.MinTermMonths, &o.MaxTermMonths,
			&o.MaxLTVPercent, &o.ProcessingFeePercent); err != nil {
			return nil, fmt.Errorf("scan lender offer: %w", err)
		}
		o.Purpose = domain.LoanPurpose(p)
		o.PromotionalRatePercent = floatPtr(promo)
		result = append(result, o)
	}
	return result, rows.Err()
}

func (s *Store) SavePlan(ctx context.Context, p *domain.PlanRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO plans (
	id, owner_id, name, loan_amount, interest_rate_percent, term_months, promotional_rate_percent,
	promotional_period_months, monthly_income, monthly_expenses, expected_rental_income,
	property_expenses, appreciation_rate_percent, property_value, economic_growth_percent,
	inflation_rate_percent, property_market_trend, personal_career_growth_percent, emergency_fund_months
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		p.ID, p.OwnerID, p.Name, nullFloat(p.LoanAmount), nullFloat(p.InterestRatePercent), nullInt(p.TermMonths),
		nullFloat(p.PromotionalRatePercent), nullInt(p.PromotionalPeriodMonths), nullFloat(p.MonthlyIncome),
		nullFloat(p.MonthlyExpenses), nullFloat(p.ExpectedRentalIncome), nullFloat(p.PropertyExpenses),
		nullFloat(p.AppreciationRatePercent), nullFloat(p.PropertyValue), nullFloat(p.EconomicGrowthPercent),
		nullFloat(p.InflationRatePercent), nullString(p.PropertyMarketTrend),
		nullFloat(p.PersonalCareerGrowthPercent), nullFloat(p.EmergencyFundMonths),
	)
	if err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

func (s *Store) GetPlan(ctx context.Context, id string) (*domain.PlanRecord, error) {
	var p domain.PlanRecord
	var loan, rate, promoRate, income, expenses, rent, propExp, appreciation, value sql.NullFloat64
	var growth, inflation, career, fund sql.NullFloat64
	var term, promoMonths sql.NullInt64
	var trend sql.NullString

	err := s.db.QueryRowContext(ctx, `
SELECT id, owner_id, name, loan_amount, interest_rate_percent, term_months, promotional_rate_percent,
	promotional_period_months, monthly_income, monthly_expenses, expected_rental_income,
	property_expenses, appreciation_rate_percent, property_value, economic_growth_percent,
	inflation_rate_percent, property_market_trend, personal_career_growth_percent, emergency_fund_months
FROM plans
WHERE id = ?
`, id).Scan(&p.ID, &p.OwnerID, &p.Name, &loan, &rate, &term, &promoRate, &promoMonths, &income, &expenses,
		&rent, &propExp, &appreciation, &value, &growth, &inflation, &trend, &career, &fund)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: plan %s", repository.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}

	p.LoanAmount = floatPtr(loan)
	p.InterestRatePercent = floatPtr(rate)
	p.TermMonths = intPtr(term)
	p.PromotionalRatePercent = floatPtr(promoRate)
	p.PromotionalPeriodMonths = intPtr(promoMonths)
	p.MonthlyIncome = floatPtr(income)
	p.MonthlyExpenses = floatPtr(expenses)
	p.ExpectedRentalIncome = floatPtr(rent)
	p.PropertyExpenses = floatPtr(propExp)
	p.AppreciationRatePercent = floatPtr(appreciation)
	p.PropertyValue = floatPtr(value)
	p.EconomicGrowthPercent = floatPtr(growth)
	p.InflationRatePercent = floatPtr(inflation)
	p.PersonalCareerGrowthPercent = floatPtr(career)
	p.EmergencyFundMonths = floatPtr(fund)
	if trend.Valid {
		p.PropertyMarketTrend = &trend.String
	}
	return &p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row scanner) (domain.RecurringDefinition, error) {
	var d domain.RecurringDefinition
	var txType, freq, start, next string
	var end sql.NullString
	var maxOcc sql.NullInt64
	var created, updated int64

	if err := row.Scan(&d.ID, &d.OwnerID, &txType, &d.Template.Amount, &d.Template.Currency,
		&d.Template.AccountID, &d.Template.ToAccountID, &d.Template.CategoryID, &d.Template.Description,
		&freq, &d.Interval, &start, &end, &maxOcc, &d.OccurrencesCreated, &next, &d.IsActive,
		&created, &updated); err != nil {
		return domain.RecurringDefinition{}, err
	}

	var err error
	if d.StartDate, err = parseDate(start); err != nil {
		return domain.RecurringDefinition{}, err
	}
	if d.NextDueDate, err = parseDate(next); err != nil {
		return domain.RecurringDefinition{}, err
	}
	if end.Valid {
		e, err := parseDate(end.String)
		if err != nil {
			return domain.RecurringDefinition{}, err
		}
		d.EndDate = &e
	}
	d.Template.Type = domain.TransactionType(txType)
	d.Frequency = domain.Frequency(freq)
	d.MaxOccurrences = intPtr(maxOcc)
	d.CreatedAt = time.UnixMilli(created).UTC()
	d.UpdatedAt = time.UnixMilli(updated).UTC()
	return d, nil
}

func formatDate(t time.Time) string {
	return domain.TruncateDay(t).Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatDate(*t), Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

var (
	_ repository.DefinitionStore  = (*Store)(nil)
	_ repository.LedgerRepository = (*Store)(nil)
	_ repository.OfferRepository  = (*Store)(nil)
	_ repository.PlanRepository   = (*Store)(nil)
)
