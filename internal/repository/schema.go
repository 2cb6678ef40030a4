package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS loans (
		id UUID PRIMARY KEY,
		loan_id VARCHAR(64) NOT NULL UNIQUE,
		principal NUMERIC(20, 4) NOT NULL,
		annual_rate_percent NUMERIC(10, 4) NOT NULL,
		tenure INTEGER NOT NULL,
		interest_type VARCHAR(16) NOT NULL,
		frequency VARCHAR(16) NOT NULL,
		grace_period_days INTEGER NOT NULL DEFAULT 0,
		start_date DATE NOT NULL,
		emi_amount NUMERIC(20, 4) NOT NULL DEFAULT 0,
		status VARCHAR(16) NOT NULL,
		disbursed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS installments (
		id UUID PRIMARY KEY,
		loan_id VARCHAR(64) NOT NULL REFERENCES loans (loan_id),
		installment_number INTEGER NOT NULL,
		due_date DATE NOT NULL,
		emi_amount NUMERIC(20, 4) NOT NULL,
		principal_component NUMERIC(20, 4) NOT NULL,
		interest_component NUMERIC(20, 4) NOT NULL,
		penalty_amount NUMERIC(20, 4) NOT NULL DEFAULT 0,
		total_due NUMERIC(20, 4) NOT NULL,
		status VARCHAR(16) NOT NULL,
		paid_amount NUMERIC(20, 4) NOT NULL DEFAULT 0,
		paid_date DATE,
		outstanding_balance NUMERIC(20, 4) NOT NULL,
		version BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (loan_id, installment_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_installments_status_due ON installments (status, due_date)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id UUID PRIMARY KEY,
		loan_id VARCHAR(64) NOT NULL REFERENCES loans (loan_id),
		installment_number INTEGER NOT NULL DEFAULT 0,
		amount NUMERIC(20, 4) NOT NULL,
		principal_portion NUMERIC(20, 4) NOT NULL,
		interest_portion NUMERIC(20, 4) NOT NULL,
		penalty_portion NUMERIC(20, 4) NOT NULL,
		payment_date DATE NOT NULL,
		journal_entry_id BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		code VARCHAR(16) PRIMARY KEY,
		name VARCHAR(128) NOT NULL,
		account_type VARCHAR(16) NOT NULL,
		parent_code VARCHAR(16) REFERENCES accounts (code),
		balance NUMERIC(20, 4) NOT NULL DEFAULT 0,
		version BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS journal_entries (
		id BIGSERIAL PRIMARY KEY,
		entry_date DATE NOT NULL,
		reference VARCHAR(64) NOT NULL,
		description TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_journal_entries_reference ON journal_entries (reference)`,
	`CREATE TABLE IF NOT EXISTS journal_lines (
		entry_id BIGINT NOT NULL REFERENCES journal_entries (id),
		line_no INTEGER NOT NULL,
		account_code VARCHAR(16) NOT NULL REFERENCES accounts (code),
		debit NUMERIC(20, 4) NOT NULL DEFAULT 0,
		credit NUMERIC(20, 4) NOT NULL DEFAULT 0,
		PRIMARY KEY (entry_id, line_no)
	)`,
}

// SQLite has no NUMERIC precision guarantee, so amounts are stored as TEXT
// and summed in Go.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		loan_id TEXT NOT NULL UNIQUE,
		principal TEXT NOT NULL,
		annual_rate_percent TEXT NOT NULL,
		tenure INTEGER NOT NULL,
		interest_type TEXT NOT NULL,
		frequency TEXT NOT NULL,
		grace_period_days INTEGER NOT NULL DEFAULT 0,
		start_date DATE NOT NULL,
		emi_amount TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL,
		disbursed_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS installments (
		id TEXT PRIMARY KEY,
		loan_id TEXT NOT NULL REFERENCES loans (loan_id),
		installment_number INTEGER NOT NULL,
		due_date DATE NOT NULL,
		emi_amount TEXT NOT NULL,
		principal_component TEXT NOT NULL,
		interest_component TEXT NOT NULL,
		penalty_amount TEXT NOT NULL DEFAULT '0',
		total_due TEXT NOT NULL,
		status TEXT NOT NULL,
		paid_amount TEXT NOT NULL DEFAULT '0',
		paid_date DATE,
		outstanding_balance TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (loan_id, installment_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_installments_status_due ON installments (status, due_date)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		loan_id TEXT NOT NULL REFERENCES loans (loan_id),
		installment_number INTEGER NOT NULL DEFAULT 0,
		amount TEXT NOT NULL,
		principal_portion TEXT NOT NULL,
		interest_portion TEXT NOT NULL,
		penalty_portion TEXT NOT NULL,
		payment_date DATE NOT NULL,
		journal_entry_id INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		account_type TEXT NOT NULL,
		parent_code TEXT REFERENCES accounts (code),
		balance TEXT NOT NULL DEFAULT '0',
		version INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS journal_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entry_date DATE NOT NULL,
		reference TEXT NOT NULL,
		description TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_journal_entries_reference ON journal_entries (reference)`,
	`CREATE TABLE IF NOT EXISTS journal_lines (
		entry_id INTEGER NOT NULL REFERENCES journal_entries (id),
		line_no INTEGER NOT NULL,
		account_code TEXT NOT NULL REFERENCES accounts (code),
		debit TEXT NOT NULL DEFAULT '0',
		credit TEXT NOT NULL DEFAULT '0',
		PRIMARY KEY (entry_id, line_no)
	)`,
}

// Migrate creates the tables for the connected driver. It is safe to run repeatedly.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	var statements []string
	switch db.DriverName() {
	case "postgres", "pgx":
		statements = postgresSchema
	case "sqlite3":
		statements = sqliteSchema
	default:
		return fmt.Errorf("unsupported database driver %q", db.DriverName())
	}

	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}

	return nil
}
