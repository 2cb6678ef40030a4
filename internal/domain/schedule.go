package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InstallmentStatus string

const (
	InstallmentStatusUnpaid  InstallmentStatus = "unpaid"
	InstallmentStatusPartial InstallmentStatus = "partial"
	InstallmentStatusPaid    InstallmentStatus = "paid"
	InstallmentStatusOverdue InstallmentStatus = "overdue"
)

func (s InstallmentStatus) Valid() bool {
	switch s {
	case InstallmentStatusUnpaid, InstallmentStatusPartial, InstallmentStatusPaid, InstallmentStatusOverdue:
		return true
	}
	return false
}

// Installment is one period of a loan's repayment schedule.
type Installment struct {
	ID                 uuid.UUID         `json:"id" db:"id"`
	LoanID             string            `json:"loan_id" db:"loan_id"`
	Number             int               `json:"installment_number" db:"installment_number"`
	DueDate            time.Time         `json:"due_date" db:"due_date"`
	EMIAmount          decimal.Decimal   `json:"emi_amount" db:"emi_amount"`
	PrincipalComponent decimal.Decimal   `json:"principal_component" db:"principal_component"`
	InterestComponent  decimal.Decimal   `json:"interest_component" db:"interest_component"`
	PenaltyAmount      decimal.Decimal   `json:"penalty_amount" db:"penalty_amount"`
	TotalDue           decimal.Decimal   `json:"total_due" db:"total_due"`
	Status             InstallmentStatus `json:"status" db:"status"`
	PaidAmount         decimal.Decimal   `json:"paid_amount" db:"paid_amount"`
	PaidDate           *time.Time        `json:"paid_date,omitempty" db:"paid_date"`
	OutstandingBalance decimal.Decimal   `json:"outstanding_balance" db:"outstanding_balance"`
	Version            int64             `json:"version" db:"version"`
	CreatedAt          time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at" db:"updated_at"`
}

// EMIPaid is the part of PaidAmount applied to the EMI; payments cover the EMI before the penalty.
func (i *Installment) EMIPaid() decimal.Decimal {
	return decimal.Min(i.PaidAmount, i.EMIAmount)
}

// UnpaidEMI is the EMI remainder still owed.
func (i *Installment) UnpaidEMI() decimal.Decimal {
	return i.EMIAmount.Sub(i.EMIPaid())
}

// UnpaidPenalty is the penalty remainder still owed.
func (i *Installment) UnpaidPenalty() decimal.Decimal {
	penaltyPaid := decimal.Max(i.PaidAmount.Sub(i.EMIAmount), decimal.Zero)
	return decimal.Max(i.PenaltyAmount.Sub(penaltyPaid), decimal.Zero)
}

// Remaining is the amount still needed to settle the installment.
func (i *Installment) Remaining() decimal.Decimal {
	return decimal.Max(i.TotalDue.Sub(i.PaidAmount), decimal.Zero)
}

func (i *Installment) IsPaid() bool {
	return i.Status == InstallmentStatusPaid
}

// ApplyPayment adds amount to the paid accumulator and moves the installment to partial or paid.
func (i *Installment) ApplyPayment(amount decimal.Decimal, paidOn time.Time) {
	i.PaidAmount = i.PaidAmount.Add(amount)
	paidDate := paidOn
	i.PaidDate = &paidDate

	switch {
	case i.PaidAmount.GreaterThanOrEqual(i.TotalDue):
		i.Status = InstallmentStatusPaid
	case i.PaidAmount.IsPositive():
		i.Status = InstallmentStatusPartial
	}
}

type ScheduleResponse struct {
	LoanID   string         `json:"loan_id"`
	Schedule []*Installment `json:"schedule"`
}
