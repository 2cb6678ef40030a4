package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func newTestInstallment() *Installment {
	return &Installment{
		Number:             1,
		EMIAmount:          decimal.NewFromInt(1000),
		PrincipalComponent: decimal.NewFromInt(800),
		InterestComponent:  decimal.NewFromInt(200),
		PenaltyAmount:      decimal.NewFromInt(50),
		TotalDue:           decimal.NewFromInt(1050),
		Status:             InstallmentStatusOverdue,
		PaidAmount:         decimal.Zero,
	}
}

func TestInstallment_ApplyPayment(t *testing.T) {
	paidOn := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)

	t.Run("partial payment", func(t *testing.T) {
		inst := newTestInstallment()
		inst.ApplyPayment(decimal.NewFromInt(400), paidOn)

		assert.Equal(t, InstallmentStatusPartial, inst.Status)
		assert.True(t, inst.PaidAmount.Equal(decimal.NewFromInt(400)))
		assert.Equal(t, paidOn, *inst.PaidDate)
		assert.True(t, inst.UnpaidEMI().Equal(decimal.NewFromInt(600)))
		assert.True(t, inst.UnpaidPenalty().Equal(decimal.NewFromInt(50)))
		assert.True(t, inst.Remaining().Equal(decimal.NewFromInt(650)))
	})

	t.Run("payment covering emi and part of penalty", func(t *testing.T) {
		inst := newTestInstallment()
		inst.ApplyPayment(decimal.NewFromInt(1020), paidOn)

		assert.Equal(t, InstallmentStatusPartial, inst.Status)
		assert.True(t, inst.UnpaidEMI().IsZero())
		assert.True(t, inst.UnpaidPenalty().Equal(decimal.NewFromInt(30)))
	})

	t.Run("full settlement", func(t *testing.T) {
		inst := newTestInstallment()
		inst.ApplyPayment(decimal.NewFromInt(1000), paidOn)
		inst.ApplyPayment(decimal.NewFromInt(50), paidOn.AddDate(0, 0, 1))

		assert.True(t, inst.IsPaid())
		assert.True(t, inst.Remaining().IsZero())
		assert.Equal(t, paidOn.AddDate(0, 0, 1), *inst.PaidDate)
	})
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, InterestTypeFlat.Valid())
	assert.False(t, InterestType("compound").Valid())
	assert.True(t, FrequencyWeekly.Valid())
	assert.False(t, Frequency("daily").Valid())
	assert.True(t, InstallmentStatusOverdue.Valid())
	assert.False(t, InstallmentStatus("pending").Valid())
	assert.True(t, LoanStatusClosed.Valid())
	assert.True(t, AccountTypeIncome.Valid())
	assert.False(t, AccountType("revenue").Valid())

	assert.Equal(t, int64(12), FrequencyMonthly.PeriodsPerYear())
	assert.Equal(t, int64(52), FrequencyWeekly.PeriodsPerYear())
}

func TestChartOfAccounts(t *testing.T) {
	chart := ChartOfAccounts()
	codes := make(map[string]Account, len(chart))
	for _, a := range chart {
		_, dup := codes[a.Code]
		assert.False(t, dup, "duplicate account code %s", a.Code)
		assert.True(t, a.Type.Valid())
		codes[a.Code] = a
	}

	for _, a := range chart {
		if a.ParentCode != nil {
			parent, ok := codes[*a.ParentCode]
			assert.True(t, ok, "parent of %s missing", a.Code)
			assert.Equal(t, parent.Type, a.Type)
		}
	}

	for _, code := range []string{AccountCashAndBank, AccountLoanReceivable, AccountInterestIncome, AccountPenaltyIncome} {
		_, ok := codes[code]
		assert.True(t, ok, "posting account %s missing", code)
	}
}

func TestJournalEntryTotals(t *testing.T) {
	entry := &JournalEntry{Lines: []JournalLine{
		{AccountCode: AccountCashAndBank, Debit: decimal.NewFromInt(8500), Credit: decimal.Zero},
		{AccountCode: AccountLoanReceivable, Debit: decimal.Zero, Credit: decimal.NewFromInt(7000)},
		{AccountCode: AccountInterestIncome, Debit: decimal.Zero, Credit: decimal.NewFromInt(1500)},
	}}

	assert.True(t, entry.TotalDebit().Equal(decimal.NewFromInt(8500)))
	assert.True(t, entry.TotalCredit().Equal(decimal.NewFromInt(8500)))
}
