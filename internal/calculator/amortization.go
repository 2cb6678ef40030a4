package calculator

import (
	"fmt"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"

	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// ValidateTerms rejects loan terms the engine cannot schedule.
func ValidateTerms(terms domain.LoanTerms) error {
	if !terms.Principal.IsPositive() {
		return customError.WrapInvalidInput("principal", "must be greater than zero")
	}
	if terms.AnnualRatePercent.IsNegative() {
		return customError.WrapInvalidInput("annual_rate_percent", "must not be negative")
	}
	if terms.Tenure < 1 {
		return customError.WrapInvalidInput("tenure", "must be at least 1")
	}
	if !terms.InterestType.Valid() {
		return customError.WrapInvalidInput("interest_type", fmt.Sprintf("must be flat or reducing, got %q", terms.InterestType))
	}
	if !terms.Frequency.Valid() {
		return customError.WrapInvalidInput("frequency", fmt.Sprintf("must be monthly or weekly, got %q", terms.Frequency))
	}
	if terms.GracePeriodDays < 0 {
		return customError.WrapInvalidInput("grace_period_days", "must not be negative")
	}
	if terms.StartDate.IsZero() {
		return customError.WrapInvalidInput("start_date", "is required")
	}
	return nil
}

// DueDate returns the due date of installment n (1-based).
func DueDate(start time.Time, frequency domain.Frequency, n int) time.Time {
	if frequency == domain.FrequencyWeekly {
		return utils.AddWeeks(start, n)
	}
	return utils.AddMonths(start, n)
}

// PeriodicRate converts an annual percentage into the per-period fraction for frequency.
func PeriodicRate(annualRatePercent decimal.Decimal, frequency domain.Frequency) decimal.Decimal {
	divisor := decimal.NewFromInt(frequency.PeriodsPerYear()).Mul(hundred)
	return annualRatePercent.Div(divisor)
}

// ComputeSchedule builds the full installment schedule for terms, rounding every
// monetary figure to places as it is computed. The last installment takes the
// remaining balance as its principal so the components sum to the principal and
// the final outstanding balance is zero.
func ComputeSchedule(terms domain.LoanTerms, places int32) ([]*domain.Installment, error) {
	if err := ValidateTerms(terms); err != nil {
		return nil, err
	}

	switch terms.InterestType {
	case domain.InterestTypeFlat:
		return flatSchedule(terms, places), nil
	default:
		return reducingSchedule(terms, places), nil
	}
}

// EMI returns the periodic installment amount for terms without building the schedule.
func EMI(terms domain.LoanTerms, places int32) (decimal.Decimal, error) {
	if err := ValidateTerms(terms); err != nil {
		return decimal.Zero, err
	}
	if terms.InterestType == domain.InterestTypeFlat {
		principalPart, interestPart := flatParts(terms, places)
		return principalPart.Add(interestPart), nil
	}
	return reducingEMI(terms, places), nil
}

func flatParts(terms domain.LoanTerms, places int32) (decimal.Decimal, decimal.Decimal) {
	n := decimal.NewFromInt(int64(terms.Tenure))
	// P x rate x n / (periodsPerYear x 100)
	totalInterest := terms.Principal.Mul(PeriodicRate(terms.AnnualRatePercent, terms.Frequency)).Mul(n)

	principalPart := utils.RoundMoney(terms.Principal.Div(n), places)
	interestPart := utils.RoundMoney(totalInterest.Div(n), places)
	return principalPart, interestPart
}

func flatSchedule(terms domain.LoanTerms, places int32) []*domain.Installment {
	principalPart, interestPart := flatParts(terms, places)
	emi := principalPart.Add(interestPart)

	schedule := make([]*domain.Installment, 0, terms.Tenure)
	remaining := terms.Principal

	for i := 1; i <= terms.Tenure; i++ {
		principal := decimal.Min(principalPart, remaining)
		interest := interestPart

		if i == terms.Tenure {
			// the last installment takes the remaining principal. Interest absorbs the
			// difference to keep the EMI constant; a zero-interest loan has none to
			// absorb it with, so its last EMI carries the remainder.
			principal = remaining
			if interestPart.IsPositive() {
				interest = decimal.Max(emi.Sub(principal), decimal.Zero)
			}
		}

		remaining = decimal.Max(remaining.Sub(principal), decimal.Zero)
		schedule = append(schedule, newInstallment(terms, i, principal, interest, remaining))
	}

	return schedule
}

func reducingEMI(terms domain.LoanTerms, places int32) decimal.Decimal {
	n := int64(terms.Tenure)
	r := PeriodicRate(terms.AnnualRatePercent, terms.Frequency)
	if r.IsZero() {
		return utils.RoundMoney(terms.Principal.Div(decimal.NewFromInt(n)), places)
	}

	// P x r x (1+r)^n / ((1+r)^n - 1)
	factor := one.Add(r).Pow(decimal.NewFromInt(n))
	emi := terms.Principal.Mul(r).Mul(factor).Div(factor.Sub(one))
	return utils.RoundMoney(emi, places)
}

func reducingSchedule(terms domain.LoanTerms, places int32) []*domain.Installment {
	emi := reducingEMI(terms, places)
	r := PeriodicRate(terms.AnnualRatePercent, terms.Frequency)

	schedule := make([]*domain.Installment, 0, terms.Tenure)
	remaining := terms.Principal

	for i := 1; i <= terms.Tenure; i++ {
		interest := utils.RoundMoney(remaining.Mul(r), places)
		principal := emi.Sub(interest)

		if i == terms.Tenure || principal.GreaterThan(remaining) {
			principal = remaining
		}

		remaining = decimal.Max(remaining.Sub(principal), decimal.Zero)
		schedule = append(schedule, newInstallment(terms, i, principal, interest, remaining))
	}

	return schedule
}

func newInstallment(terms domain.LoanTerms, n int, principal, interest, outstanding decimal.Decimal) *domain.Installment {
	emi := principal.Add(interest)
	return &domain.Installment{
		Number:             n,
		DueDate:            DueDate(terms.StartDate, terms.Frequency, n),
		EMIAmount:          emi,
		PrincipalComponent: principal,
		InterestComponent:  interest,
		PenaltyAmount:      decimal.Zero,
		TotalDue:           emi,
		Status:             domain.InstallmentStatusUnpaid,
		PaidAmount:         decimal.Zero,
		OutstandingBalance: outstanding,
	}
}
