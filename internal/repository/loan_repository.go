package repository

import (
	"context"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"

	"github.com/jmoiron/sqlx"
)

const loanColumns = `id, loan_id, principal, annual_rate_percent, tenure, interest_type, frequency,
	grace_period_days, start_date, emi_amount, status, disbursed_at, created_at, updated_at`

const installmentColumns = `id, loan_id, installment_number, due_date, emi_amount, principal_component,
	interest_component, penalty_amount, total_due, status, paid_amount, paid_date, outstanding_balance,
	version, created_at, updated_at`

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	q := conn(ctx, r.db)
	query := q.Rebind(`
		INSERT INTO loans (` + loanColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := q.ExecContext(ctx, query,
		loan.ID,
		loan.LoanID,
		loan.Principal,
		loan.AnnualRatePercent,
		loan.Tenure,
		loan.InterestType,
		loan.Frequency,
		loan.GracePeriodDays,
		loan.StartDate,
		loan.EMIAmount,
		loan.Status,
		loan.DisbursedAt,
		loan.CreatedAt,
		loan.UpdatedAt,
	)

	return err
}

func (r *loanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	q := conn(ctx, r.db)
	query := q.Rebind(`SELECT ` + loanColumns + ` FROM loans WHERE loan_id = ?`)

	var loan domain.Loan
	if err := sqlx.GetContext(ctx, q, &loan, query, loanID); err != nil {
		return nil, err
	}

	return &loan, nil
}

// TransitionStatus writes the loan's status and disbursement date only while
// the stored status still equals from.
func (r *loanRepository) TransitionStatus(ctx context.Context, loan *domain.Loan, from domain.LoanStatus) (bool, error) {
	q := conn(ctx, r.db)
	query := q.Rebind(`
		UPDATE loans
		SET status = ?, disbursed_at = ?, updated_at = ?
		WHERE loan_id = ? AND status = ?
	`)

	loan.UpdatedAt = time.Now().UTC()
	result, err := q.ExecContext(ctx, query,
		loan.Status,
		loan.DisbursedAt,
		loan.UpdatedAt,
		loan.LoanID,
		from,
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *loanRepository) ListByStatus(ctx context.Context, status domain.LoanStatus) ([]*domain.Loan, error) {
	q := conn(ctx, r.db)
	query := q.Rebind(`SELECT ` + loanColumns + ` FROM loans WHERE status = ? ORDER BY loan_id`)

	loans := []*domain.Loan{}
	if err := sqlx.SelectContext(ctx, q, &loans, query, status); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) CreateSchedule(ctx context.Context, installments []*domain.Installment) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`
			INSERT INTO installments (` + installmentColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)

		for _, inst := range installments {
			if _, err := tx.ExecContext(ctx, query,
				inst.ID,
				inst.LoanID,
				inst.Number,
				inst.DueDate,
				inst.EMIAmount,
				inst.PrincipalComponent,
				inst.InterestComponent,
				inst.PenaltyAmount,
				inst.TotalDue,
				inst.Status,
				inst.PaidAmount,
				inst.PaidDate,
				inst.OutstandingBalance,
				inst.Version,
				inst.CreatedAt,
				inst.UpdatedAt,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *loanRepository) GetScheduleByLoanID(ctx context.Context, loanID string) ([]*domain.Installment, error) {
	q := conn(ctx, r.db)
	query := q.Rebind(`
		SELECT ` + installmentColumns + `
		FROM installments
		WHERE loan_id = ?
		ORDER BY installment_number
	`)

	installments := []*domain.Installment{}
	if err := sqlx.SelectContext(ctx, q, &installments, query, loanID); err != nil {
		return nil, err
	}

	return installments, nil
}

func (r *loanRepository) UpdateInstallment(ctx context.Context, inst *domain.Installment) error {
	return r.updateInstallment(ctx, inst, `
		UPDATE installments
		SET penalty_amount = ?, total_due = ?, status = ?, paid_amount = ?, paid_date = ?,
			updated_at = ?, version = version + 1
		WHERE loan_id = ? AND installment_number = ? AND version = ?
	`,
		inst.PenaltyAmount,
		inst.TotalDue,
		inst.Status,
		inst.PaidAmount,
		inst.PaidDate,
	)
}

func (r *loanRepository) UpdateInstallmentPenalty(ctx context.Context, inst *domain.Installment) error {
	return r.updateInstallment(ctx, inst, `
		UPDATE installments
		SET penalty_amount = ?, total_due = ?, status = ?, updated_at = ?, version = version + 1
		WHERE loan_id = ? AND installment_number = ? AND version = ?
	`,
		inst.PenaltyAmount,
		inst.TotalDue,
		inst.Status,
	)
}

// updateInstallment runs a versioned update whose leading arguments are
// followed by updated_at and the key plus expected version.
func (r *loanRepository) updateInstallment(ctx context.Context, inst *domain.Installment, query string, fields ...interface{}) error {
	q := conn(ctx, r.db)

	inst.UpdatedAt = time.Now().UTC()
	args := append(fields, inst.UpdatedAt, inst.LoanID, inst.Number, inst.Version)

	result, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return customError.WrapInstallmentChanged(inst.LoanID, inst.Number)
	}

	inst.Version++
	return nil
}
