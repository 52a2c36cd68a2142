package sqlite

const schemaSQL = `
CREATE TABLE IF NOT EXISTS recurring_definitions (
	id                  TEXT PRIMARY KEY,
	owner_id            TEXT NOT NULL,
	tx_type             TEXT NOT NULL,
	amount              REAL NOT NULL,
	currency            TEXT NOT NULL,
	account_id          TEXT NOT NULL,
	to_account_id       TEXT NOT NULL DEFAULT '',
	category_id         TEXT NOT NULL DEFAULT '',
	description         TEXT NOT NULL DEFAULT '',
	frequency           TEXT NOT NULL,
	interval_count      INTEGER NOT NULL,
	start_date          TEXT NOT NULL,
	end_date            TEXT,
	max_occurrences     INTEGER,
	occurrences_created INTEGER NOT NULL DEFAULT 0,
	next_due_date       TEXT NOT NULL,
	is_active           INTEGER NOT NULL DEFAULT 1,
	created_at          INTEGER NOT NULL,
	updated_at          INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_definitions_due ON recurring_definitions(is_active, next_due_date);
CREATE INDEX IF NOT EXISTS idx_definitions_owner ON recurring_definitions(owner_id);

CREATE TABLE IF NOT EXISTS ledger_entries (
	id                   TEXT PRIMARY KEY,
	idempotency_key      TEXT NOT NULL UNIQUE,
	source_definition_id TEXT NOT NULL,
	owner_id             TEXT NOT NULL,
	entry_date           TEXT NOT NULL,
	tx_type              TEXT NOT NULL,
	amount               REAL NOT NULL,
	currency             TEXT NOT NULL,
	account_id           TEXT NOT NULL,
	to_account_id        TEXT NOT NULL DEFAULT '',
	category_id          TEXT NOT NULL DEFAULT '',
	description          TEXT NOT NULL DEFAULT '',
	occurrence_number    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ledger_definition ON ledger_entries(source_definition_id, entry_date);

CREATE TABLE IF NOT EXISTS lender_offers (
	id                        TEXT PRIMARY KEY,
	bank_id                   TEXT NOT NULL,
	bank_name                 TEXT NOT NULL,
	purpose                   TEXT NOT NULL,
	interest_rate_percent     REAL NOT NULL,
	promotional_rate_percent  REAL,
	promotional_period_months INTEGER NOT NULL DEFAULT 0,
	min_amount                REAL NOT NULL,
	max_amount                REAL NOT NULL,
	min_term_months           INTEGER NOT NULL,
	max_term_months           INTEGER NOT NULL,
	max_ltv_percent           REAL NOT NULL DEFAULT 0,
	processing_fee_percent    REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_offers_purpose ON lender_offers(purpose);

CREATE TABLE IF NOT EXISTS plans (
	id                             TEXT PRIMARY KEY,
	owner_id                       TEXT NOT NULL DEFAULT '',
	name                           TEXT NOT NULL DEFAULT '',
	loan_amount                    REAL,
	interest_rate_percent          REAL,
	term_months                    INTEGER,
	promotional_rate_percent       REAL,
	promotional_period_months      INTEGER,
	monthly_income                 REAL,
	monthly_expenses               REAL,
	expected_rental_income         REAL,
	property_expenses              REAL,
	appreciation_rate_percent      REAL,
	property_value                 REAL,
	economic_growth_percent        REAL,
	inflation_rate_percent         REAL,
	property_market_trend          TEXT,
	personal_career_growth_percent REAL,
	emergency_fund_months          REAL
);
`
