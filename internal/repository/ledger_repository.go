package repository

import (
	"context"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const accountColumns = `code, name, account_type, parent_code, balance, version`

type ledgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) SeedChart(ctx context.Context) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`
			INSERT INTO accounts (` + accountColumns + `)
			VALUES (?, ?, ?, ?, ?, 0)
			ON CONFLICT (code) DO NOTHING
		`)

		for _, account := range domain.ChartOfAccounts() {
			if _, err := tx.ExecContext(ctx, query,
				account.Code,
				account.Name,
				account.Type,
				account.ParentCode,
				decimal.Zero,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ledgerRepository) Accounts(ctx context.Context, codes []string) (map[string]*domain.Account, error) {
	return selectAccounts(ctx, conn(ctx, r.db), codes)
}

func (r *ledgerRepository) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	accounts := []*domain.Account{}
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &accounts, `SELECT `+accountColumns+` FROM accounts ORDER BY code`); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Append inserts the entry and its lines, then moves every touched balance
// with a compare-and-swap on the account version. It joins the context's
// transaction when there is one.
func (r *ledgerRepository) Append(ctx context.Context, entry *domain.JournalEntry) error {
	if err := checkBalanced(entry); err != nil {
		return err
	}

	createdAt := time.Now().UTC()
	var entryID int64

	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		codes, deltas := balanceDeltas(entry)
		accounts, err := selectAccounts(ctx, tx, codes)
		if err != nil {
			return err
		}
		for _, code := range codes {
			if _, ok := accounts[code]; !ok {
				return customError.WrapUnknownAccount(code)
			}
		}

		insertEntry := tx.Rebind(`
			INSERT INTO journal_entries (entry_date, reference, description, created_at)
			VALUES (?, ?, ?, ?)
			RETURNING id
		`)
		if err := tx.QueryRowxContext(ctx, insertEntry,
			entry.EntryDate,
			entry.Reference,
			entry.Description,
			createdAt,
		).Scan(&entryID); err != nil {
			return err
		}

		insertLine := tx.Rebind(`
			INSERT INTO journal_lines (entry_id, line_no, account_code, debit, credit)
			VALUES (?, ?, ?, ?, ?)
		`)
		for _, line := range entry.Lines {
			if _, err := tx.ExecContext(ctx, insertLine, entryID, line.LineNo, line.AccountCode, line.Debit, line.Credit); err != nil {
				return err
			}
		}

		updateBalance := tx.Rebind(`
			UPDATE accounts
			SET balance = ?, version = version + 1
			WHERE code = ? AND version = ?
		`)
		for _, code := range codes {
			account := accounts[code]
			result, err := tx.ExecContext(ctx, updateBalance, account.Balance.Add(deltas[code]), code, account.Version)
			if err != nil {
				return err
			}
			rows, err := result.RowsAffected()
			if err != nil {
				return err
			}
			if rows == 0 {
				return customError.WrapConcurrentUpdateConflict(code)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	entry.ID = entryID
	entry.CreatedAt = createdAt
	for i := range entry.Lines {
		entry.Lines[i].EntryID = entryID
	}

	return nil
}

func (r *ledgerRepository) GetEntriesByReference(ctx context.Context, reference string) ([]*domain.JournalEntry, error) {
	q := conn(ctx, r.db)
	query := q.Rebind(`
		SELECT id, entry_date, reference, description, created_at
		FROM journal_entries
		WHERE reference = ?
		ORDER BY id
	`)

	entries := []*domain.JournalEntry{}
	if err := sqlx.SelectContext(ctx, q, &entries, query, reference); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return entries, nil
	}

	ids := make([]int64, len(entries))
	byID := make(map[int64]*domain.JournalEntry, len(entries))
	for i, entry := range entries {
		ids[i] = entry.ID
		byID[entry.ID] = entry
	}

	linesQuery, args, err := sqlx.In(`
		SELECT entry_id, line_no, account_code, debit, credit
		FROM journal_lines
		WHERE entry_id IN (?)
		ORDER BY entry_id, line_no
	`, ids)
	if err != nil {
		return nil, err
	}

	var lines []domain.JournalLine
	if err := sqlx.SelectContext(ctx, q, &lines, q.Rebind(linesQuery), args...); err != nil {
		return nil, err
	}
	for _, line := range lines {
		entry := byID[line.EntryID]
		entry.Lines = append(entry.Lines, line)
	}

	return entries, nil
}

func selectAccounts(ctx context.Context, q sqlx.ExtContext, codes []string) (map[string]*domain.Account, error) {
	result := make(map[string]*domain.Account, len(codes))
	if len(codes) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT `+accountColumns+` FROM accounts WHERE code IN (?)`, codes)
	if err != nil {
		return nil, err
	}

	var accounts []*domain.Account
	if err := sqlx.SelectContext(ctx, q, &accounts, q.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, account := range accounts {
		result[account.Code] = account
	}

	return result, nil
}

func checkBalanced(entry *domain.JournalEntry) error {
	debits, credits := entry.TotalDebit(), entry.TotalCredit()
	if len(entry.Lines) < 2 || !debits.Equal(credits) {
		return customError.WrapImbalancedEntry(debits.String(), credits.String())
	}
	return nil
}

// balanceDeltas returns the touched account codes in line order and the net
// debit minus credit per code.
func balanceDeltas(entry *domain.JournalEntry) ([]string, map[string]decimal.Decimal) {
	codes := make([]string, 0, len(entry.Lines))
	deltas := make(map[string]decimal.Decimal, len(entry.Lines))
	for _, line := range entry.Lines {
		delta, seen := deltas[line.AccountCode]
		if !seen {
			codes = append(codes, line.AccountCode)
			delta = decimal.Zero
		}
		deltas[line.AccountCode] = delta.Add(line.Debit).Sub(line.Credit)
	}
	return codes, deltas
}
