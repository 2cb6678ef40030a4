package repository

import (
	"context"

	"github.com/segyhp/lending-engine/internal/domain"

	"github.com/shopspring/decimal"
)

// LoanRepository defines the interface for loan and installment data operations
type LoanRepository interface {
	// Create creates a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByLoanID retrieves a loan by its business id; sql.ErrNoRows when absent
	GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error)

	// TransitionStatus stores loan.Status and DisbursedAt if the stored status
	// is still from; false means another writer moved the loan first
	TransitionStatus(ctx context.Context, loan *domain.Loan, from domain.LoanStatus) (bool, error)

	// ListByStatus lists loans in the given status ordered by loan id
	ListByStatus(ctx context.Context, status domain.LoanStatus) ([]*domain.Loan, error)

	// CreateSchedule stores all installments of a loan in one transaction
	CreateSchedule(ctx context.Context, installments []*domain.Installment) error

	// GetScheduleByLoanID retrieves installments ordered by number
	GetScheduleByLoanID(ctx context.Context, loanID string) ([]*domain.Installment, error)

	// UpdateInstallment persists penalty, total due, status and paid fields of one
	// installment. It fails with ErrConcurrentUpdateConflict when the stored
	// version moved since the installment was read, and bumps Version on success.
	UpdateInstallment(ctx context.Context, installment *domain.Installment) error

	// UpdateInstallmentPenalty is UpdateInstallment restricted to penalty, total due and status
	UpdateInstallmentPenalty(ctx context.Context, installment *domain.Installment) error
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// Create creates a new payment record
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByLoanID retrieves all payments for a loan in payment order
	GetByLoanID(ctx context.Context, loanID string) ([]*domain.Payment, error)

	// GetTotalPaid sums all payments for a loan
	GetTotalPaid(ctx context.Context, loanID string) (decimal.Decimal, error)

	// GetLatestPayment gets the most recent payment for a loan; sql.ErrNoRows when none
	GetLatestPayment(ctx context.Context, loanID string) (*domain.Payment, error)
}

// LedgerRepository owns the chart of accounts, balances and the journal.
type LedgerRepository interface {
	// SeedChart inserts the chart of accounts; existing accounts are left untouched
	SeedChart(ctx context.Context) error

	// Accounts returns the requested accounts keyed by code; unknown codes are absent
	Accounts(ctx context.Context, codes []string) (map[string]*domain.Account, error)

	// ListAccounts returns the whole chart ordered by code
	ListAccounts(ctx context.Context) ([]*domain.Account, error)

	// Append stores a balanced entry and applies its balance changes atomically
	Append(ctx context.Context, entry *domain.JournalEntry) error

	// GetEntriesByReference returns entries with their lines in id order
	GetEntriesByReference(ctx context.Context, reference string) ([]*domain.JournalEntry, error)
}

// ScheduleCache keeps computed schedules close to the read path.
type ScheduleCache interface {
	Get(ctx context.Context, loanID string) ([]*domain.Installment, bool)
	Set(ctx context.Context, loanID string, schedule []*domain.Installment) error
	Invalidate(ctx context.Context, loanID string) error
}
