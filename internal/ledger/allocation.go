package ledger

import (
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/pkg/utils"

	"github.com/shopspring/decimal"
)

// Allocation is how one payment splits across the receivable and the income accounts.
type Allocation struct {
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Penalty   decimal.Decimal `json:"penalty"`
}

// Total is the sum of all portions; it always equals the allocated amount.
func (a Allocation) Total() decimal.Decimal {
	return a.Principal.Add(a.Interest).Add(a.Penalty)
}

// AllocatePayment splits amount against inst as it stood before the payment.
//
// The unpaid EMI is covered first, divided by the installment's own
// interest/EMI ratio with principal taking the rounding remainder. The next
// slice pays the outstanding penalty and anything left reduces principal.
// When inst is nil the fallback principal ratio splits the whole amount.
func AllocatePayment(amount decimal.Decimal, inst *domain.Installment, fallbackPrincipalRatio decimal.Decimal, places int32) Allocation {
	if inst == nil || !inst.EMIAmount.IsPositive() {
		interest := utils.RoundMoney(amount.Mul(decimal.NewFromInt(1).Sub(fallbackPrincipalRatio)), places)
		return Allocation{
			Principal: amount.Sub(interest),
			Interest:  interest,
			Penalty:   decimal.Zero,
		}
	}

	emiSlice := decimal.Min(amount, inst.UnpaidEMI())
	interest := utils.RoundMoney(emiSlice.Mul(inst.InterestComponent).Div(inst.EMIAmount), places)
	principal := emiSlice.Sub(interest)

	rest := amount.Sub(emiSlice)
	penalty := decimal.Min(rest, inst.UnpaidPenalty())
	principal = principal.Add(rest.Sub(penalty))

	return Allocation{
		Principal: principal,
		Interest:  interest,
		Penalty:   penalty,
	}
}
