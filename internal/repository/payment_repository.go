package repository

import (
	"context"

	"github.com/segyhp/lending-engine/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const paymentColumns = `id, loan_id, installment_number, amount, principal_portion, interest_portion,
	penalty_portion, payment_date, journal_entry_id, created_at`

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	q := conn(ctx, r.db)
	query := q.Rebind(`
		INSERT INTO payments (` + paymentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := q.ExecContext(ctx, query,
		payment.ID,
		payment.LoanID,
		payment.InstallmentNumber,
		payment.Amount,
		payment.PrincipalPortion,
		payment.InterestPortion,
		payment.PenaltyPortion,
		payment.PaymentDate,
		payment.JournalEntryID,
		payment.CreatedAt,
	)

	return err
}

func (r *paymentRepository) GetByLoanID(ctx context.Context, loanID string) ([]*domain.Payment, error) {
	q := conn(ctx, r.db)
	query := q.Rebind(`
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE loan_id = ?
		ORDER BY payment_date, created_at
	`)

	payments := []*domain.Payment{}
	if err := sqlx.SelectContext(ctx, q, &payments, query, loanID); err != nil {
		return nil, err
	}

	return payments, nil
}

// GetTotalPaid sums in Go; SQLite keeps amounts as text.
func (r *paymentRepository) GetTotalPaid(ctx context.Context, loanID string) (decimal.Decimal, error) {
	q := conn(ctx, r.db)
	query := q.Rebind(`SELECT amount FROM payments WHERE loan_id = ?`)

	var amounts []decimal.Decimal
	if err := sqlx.SelectContext(ctx, q, &amounts, query, loanID); err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}

	return total, nil
}

func (r *paymentRepository) GetLatestPayment(ctx context.Context, loanID string) (*domain.Payment, error) {
	q := conn(ctx, r.db)
	query := q.Rebind(`
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE loan_id = ?
		ORDER BY payment_date DESC, created_at DESC
		LIMIT 1
	`)

	var payment domain.Payment
	if err := sqlx.GetContext(ctx, q, &payment, query, loanID); err != nil {
		return nil, err
	}

	return &payment, nil
}
