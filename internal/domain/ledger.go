package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeIncome    AccountType = "income"
	AccountTypeExpense   AccountType = "expense"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// Account codes the poster writes to.
const (
	AccountCashAndBank    = "1010"
	AccountLoanReceivable = "1020"
	AccountInterestIncome = "4010"
	AccountPenaltyIncome  = "4020"
)

// Account is a chart-of-accounts row with its running balance.
// Version increments on every balance change and guards concurrent postings.
type Account struct {
	Code       string          `json:"code" db:"code"`
	Name       string          `json:"name" db:"name"`
	Type       AccountType     `json:"type" db:"account_type"`
	ParentCode *string         `json:"parent_code,omitempty" db:"parent_code"`
	Balance    decimal.Decimal `json:"balance" db:"balance"`
	Version    int64           `json:"-" db:"version"`
}

func strPtr(s string) *string { return &s }

// ChartOfAccounts is the fixed chart seeded into every ledger store.
func ChartOfAccounts() []Account {
	return []Account{
		{Code: "1000", Name: "Assets", Type: AccountTypeAsset},
		{Code: AccountCashAndBank, Name: "Cash & Bank", Type: AccountTypeAsset, ParentCode: strPtr("1000")},
		{Code: AccountLoanReceivable, Name: "Loan Receivable", Type: AccountTypeAsset, ParentCode: strPtr("1000")},
		{Code: "2000", Name: "Liabilities", Type: AccountTypeLiability},
		{Code: "3000", Name: "Equity", Type: AccountTypeEquity},
		{Code: "3010", Name: "Owner Capital", Type: AccountTypeEquity, ParentCode: strPtr("3000")},
		{Code: "4000", Name: "Income", Type: AccountTypeIncome},
		{Code: AccountInterestIncome, Name: "Interest Income", Type: AccountTypeIncome, ParentCode: strPtr("4000")},
		{Code: AccountPenaltyIncome, Name: "Penalty Income", Type: AccountTypeIncome, ParentCode: strPtr("4000")},
		{Code: "5000", Name: "Expenses", Type: AccountTypeExpense},
		{Code: "5010", Name: "Bad Debt Expense", Type: AccountTypeExpense, ParentCode: strPtr("5000")},
	}
}

// JournalLine debits or credits one account. Exactly one side is nonzero.
type JournalLine struct {
	EntryID     int64           `json:"-" db:"entry_id"`
	LineNo      int             `json:"line_no" db:"line_no"`
	AccountCode string          `json:"account_code" db:"account_code"`
	Debit       decimal.Decimal `json:"debit" db:"debit"`
	Credit      decimal.Decimal `json:"credit" db:"credit"`
}

// JournalEntry is an append-only, balanced set of lines.
type JournalEntry struct {
	ID          int64         `json:"id" db:"id"`
	EntryDate   time.Time     `json:"entry_date" db:"entry_date"`
	Reference   string        `json:"reference" db:"reference"`
	Description string        `json:"description" db:"description"`
	Lines       []JournalLine `json:"lines" db:"-"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}

func (e *JournalEntry) TotalDebit() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.Debit)
	}
	return total
}

func (e *JournalEntry) TotalCredit() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.Credit)
	}
	return total
}
