package calculator

import (
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"

	"github.com/shopspring/decimal"
)

// GracePeriodEnd is the last calendar day on which no penalty accrues.
func GracePeriodEnd(dueDate time.Time, gracePeriodDays int) time.Time {
	return utils.DateOf(dueDate).AddDate(0, 0, gracePeriodDays)
}

// OverdueDays counts whole calendar days past the grace period end. Zero within grace.
func OverdueDays(dueDate time.Time, gracePeriodDays int, asOf time.Time) int {
	days := utils.DaysBetween(GracePeriodEnd(dueDate, gracePeriodDays), asOf)
	if days < 0 {
		return 0
	}
	return days
}

// ComputePenalty returns emi x dailyRatePercent x overdueDays / 100, rounded to places.
// It depends only on its arguments, so repeated runs with the same asOf agree.
func ComputePenalty(emi decimal.Decimal, dueDate time.Time, gracePeriodDays int, dailyRatePercent decimal.Decimal, asOf time.Time, places int32) (decimal.Decimal, error) {
	if emi.IsNegative() {
		return decimal.Zero, customError.WrapInvalidInput("emi_amount", "must not be negative")
	}
	if gracePeriodDays < 0 {
		return decimal.Zero, customError.WrapInvalidInput("grace_period_days", "must not be negative")
	}
	if dailyRatePercent.IsNegative() {
		return decimal.Zero, customError.WrapInvalidInput("daily_penalty_rate", "must not be negative")
	}

	days := OverdueDays(dueDate, gracePeriodDays, asOf)
	if days == 0 {
		return decimal.Zero, nil
	}

	penalty := emi.Mul(utils.Percent(dailyRatePercent)).Mul(decimal.NewFromInt(int64(days)))
	return utils.RoundMoney(penalty, places), nil
}

// ApplyPenalty recomputes the penalty of inst as of asOf and updates its penalty,
// total due and status. Paid installments are skipped. The basis is the unpaid
// part of the EMI; once the EMI is settled the accrued penalty is kept as is.
// It reports whether the installment changed.
func ApplyPenalty(inst *domain.Installment, gracePeriodDays int, dailyRatePercent decimal.Decimal, asOf time.Time, places int32) (bool, error) {
	if inst.IsPaid() {
		return false, nil
	}

	basis := inst.UnpaidEMI()
	if basis.IsZero() {
		return false, nil
	}

	penalty, err := ComputePenalty(basis, inst.DueDate, gracePeriodDays, dailyRatePercent, asOf, places)
	if err != nil {
		return false, err
	}

	status := inst.Status
	if penalty.IsPositive() && status == domain.InstallmentStatusUnpaid {
		status = domain.InstallmentStatusOverdue
	}
	total := inst.EMIAmount.Add(penalty)

	if penalty.Equal(inst.PenaltyAmount) && total.Equal(inst.TotalDue) && status == inst.Status {
		return false, nil
	}

	inst.PenaltyAmount = penalty
	inst.TotalDue = total
	inst.Status = status
	return true, nil
}
