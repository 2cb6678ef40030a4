package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InterestType selects how interest is spread across installments.
type InterestType string

const (
	InterestTypeFlat     InterestType = "flat"
	InterestTypeReducing InterestType = "reducing"
)

func (t InterestType) Valid() bool {
	return t == InterestTypeFlat || t == InterestTypeReducing
}

// Frequency is the repayment period unit.
type Frequency string

const (
	FrequencyMonthly Frequency = "monthly"
	FrequencyWeekly  Frequency = "weekly"
)

func (f Frequency) Valid() bool {
	return f == FrequencyMonthly || f == FrequencyWeekly
}

// PeriodsPerYear is the divisor that turns an annual rate into a per-period rate.
func (f Frequency) PeriodsPerYear() int64 {
	if f == FrequencyWeekly {
		return 52
	}
	return 12
}

type LoanStatus string

const (
	LoanStatusPending LoanStatus = "pending"
	LoanStatusActive  LoanStatus = "active"
	LoanStatusClosed  LoanStatus = "closed"
)

func (s LoanStatus) Valid() bool {
	switch s {
	case LoanStatusPending, LoanStatusActive, LoanStatusClosed:
		return true
	}
	return false
}

// LoanTerms are the inputs to the amortization engine. They are immutable once a loan is approved.
type LoanTerms struct {
	Principal         decimal.Decimal `json:"principal" db:"principal"`
	AnnualRatePercent decimal.Decimal `json:"annual_rate_percent" db:"annual_rate_percent"`
	Tenure            int             `json:"tenure" db:"tenure"`
	InterestType      InterestType    `json:"interest_type" db:"interest_type"`
	Frequency         Frequency       `json:"frequency" db:"frequency"`
	GracePeriodDays   int             `json:"grace_period_days" db:"grace_period_days"`
	StartDate         time.Time       `json:"start_date" db:"start_date"`
}

// Loan represents a loan entity
type Loan struct {
	ID     uuid.UUID `json:"id" db:"id"`
	LoanID string    `json:"loan_id" db:"loan_id"`
	LoanTerms
	EMIAmount   decimal.Decimal `json:"emi_amount" db:"emi_amount"`
	Status      LoanStatus      `json:"status" db:"status"`
	DisbursedAt *time.Time      `json:"disbursed_at,omitempty" db:"disbursed_at"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	LoanID            string          `json:"loan_id" validate:"required,max=64"`
	Principal         decimal.Decimal `json:"principal" validate:"decimal_gt_zero"`
	AnnualRatePercent decimal.Decimal `json:"annual_rate_percent" validate:"decimal_gte_zero"`
	Tenure            int             `json:"tenure" validate:"required,gt=0"`
	InterestType      InterestType    `json:"interest_type" validate:"required,oneof=flat reducing"`
	Frequency         Frequency       `json:"frequency" validate:"required,oneof=monthly weekly"`
	GracePeriodDays   *int            `json:"grace_period_days,omitempty" validate:"omitempty,gte=0"`
	StartDate         string          `json:"start_date" validate:"required,datetime=2006-01-02"`
}

type ApproveLoanRequest struct {
	ApprovedOn string `json:"approved_on,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type SchedulePreviewRequest struct {
	Principal         decimal.Decimal `json:"principal" validate:"decimal_gt_zero"`
	AnnualRatePercent decimal.Decimal `json:"annual_rate_percent" validate:"decimal_gte_zero"`
	Tenure            int             `json:"tenure" validate:"required,gt=0"`
	InterestType      InterestType    `json:"interest_type" validate:"required,oneof=flat reducing"`
	Frequency         Frequency       `json:"frequency" validate:"required,oneof=monthly weekly"`
	StartDate         string          `json:"start_date" validate:"required,datetime=2006-01-02"`
}

type CreateLoanResponse struct {
	Loan *Loan `json:"loan"`
}

type ApproveLoanResponse struct {
	Loan     *Loan          `json:"loan"`
	Schedule []*Installment `json:"schedule"`
	Entry    *JournalEntry  `json:"journal_entry"`
}

type OutstandingResponse struct {
	LoanID             string          `json:"loan_id"`
	OutstandingEMI     decimal.Decimal `json:"outstanding_emi"`
	OutstandingPenalty decimal.Decimal `json:"outstanding_penalty"`
	Outstanding        decimal.Decimal `json:"outstanding"`
	TotalPaid          decimal.Decimal `json:"total_paid"`
	LastPaymentDate    *time.Time      `json:"last_payment_date,omitempty"`
}
