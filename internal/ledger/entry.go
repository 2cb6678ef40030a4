package ledger

import (
	"context"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"

	"github.com/shopspring/decimal"
)

// Store owns account balances. Append must apply the entry and every balance
// change atomically, assign the entry id, and fail with
// ErrConcurrentUpdateConflict when an account changed underneath it.
type Store interface {
	Accounts(ctx context.Context, codes []string) (map[string]*domain.Account, error)
	Append(ctx context.Context, entry *domain.JournalEntry) error
}

// Debit builds a debit line.
func Debit(code string, amount decimal.Decimal) domain.JournalLine {
	return domain.JournalLine{AccountCode: code, Debit: amount, Credit: decimal.Zero}
}

// Credit builds a credit line.
func Credit(code string, amount decimal.Decimal) domain.JournalLine {
	return domain.JournalLine{AccountCode: code, Debit: decimal.Zero, Credit: amount}
}

// NewJournalEntry validates lines and returns an unsaved entry. Every line
// must carry exactly one positive side and the entry must balance.
func NewJournalEntry(date time.Time, reference, description string, lines []domain.JournalLine) (*domain.JournalEntry, error) {
	if len(lines) < 2 {
		return nil, customError.WrapMalformedLine(len(lines), "", "an entry needs at least two lines")
	}

	numbered := make([]domain.JournalLine, len(lines))
	for i, line := range lines {
		if line.AccountCode == "" {
			return nil, customError.WrapMalformedLine(i+1, line.AccountCode, "has no account code")
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return nil, customError.WrapMalformedLine(i+1, line.AccountCode, "has a negative amount")
		}
		if line.Debit.IsPositive() == line.Credit.IsPositive() {
			return nil, customError.WrapMalformedLine(i+1, line.AccountCode, "must debit or credit, not both or neither")
		}
		line.LineNo = i + 1
		line.EntryID = 0
		numbered[i] = line
	}

	entry := &domain.JournalEntry{
		EntryDate:   date,
		Reference:   reference,
		Description: description,
		Lines:       numbered,
	}

	debits, credits := entry.TotalDebit(), entry.TotalCredit()
	if !debits.Equal(credits) {
		return nil, customError.WrapImbalancedEntry(debits.String(), credits.String())
	}

	return entry, nil
}

// BalanceChange is the signed amount a line moves its account by.
func BalanceChange(line domain.JournalLine) decimal.Decimal {
	return line.Debit.Sub(line.Credit)
}

// AccountCodes lists the distinct accounts an entry touches, in line order.
func AccountCodes(entry *domain.JournalEntry) []string {
	seen := make(map[string]bool, len(entry.Lines))
	codes := make([]string, 0, len(entry.Lines))
	for _, line := range entry.Lines {
		if !seen[line.AccountCode] {
			seen[line.AccountCode] = true
			codes = append(codes, line.AccountCode)
		}
	}
	return codes
}
