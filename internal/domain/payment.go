package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is a collected repayment. InstallmentNumber is 0 when no installment was matched.
type Payment struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	LoanID            string          `json:"loan_id" db:"loan_id"`
	InstallmentNumber int             `json:"installment_number" db:"installment_number"`
	Amount            decimal.Decimal `json:"amount" db:"amount"`
	PrincipalPortion  decimal.Decimal `json:"principal_portion" db:"principal_portion"`
	InterestPortion   decimal.Decimal `json:"interest_portion" db:"interest_portion"`
	PenaltyPortion    decimal.Decimal `json:"penalty_portion" db:"penalty_portion"`
	PaymentDate       time.Time       `json:"payment_date" db:"payment_date"`
	JournalEntryID    int64           `json:"journal_entry_id" db:"journal_entry_id"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}

type MakePaymentRequest struct {
	LoanID            string          `json:"-"`
	Amount            decimal.Decimal `json:"amount" validate:"decimal_gt_zero"`
	InstallmentNumber int             `json:"installment_number,omitempty" validate:"gte=0"`
	PaymentDate       string          `json:"payment_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type MakePaymentResponse struct {
	Payment     *Payment      `json:"payment"`
	Installment *Installment  `json:"installment,omitempty"`
	Entry       *JournalEntry `json:"journal_entry"`
}

type AccrualRequest struct {
	AsOf string `json:"as_of,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// AccrualResult summarises one batch penalty run.
type AccrualResult struct {
	AsOf         time.Time       `json:"as_of"`
	Scanned      int             `json:"scanned"`
	Updated      int             `json:"updated"`
	TotalPenalty decimal.Decimal `json:"total_penalty"`
}
