package ledger

import (
	"context"
	"fmt"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/logger"
	customError "github.com/segyhp/lending-engine/pkg/errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Poster turns loan lifecycle events into balanced journal entries.
type Poster struct {
	store                  Store
	places                 int32
	fallbackPrincipalRatio decimal.Decimal
	log                    zerolog.Logger
}

func NewPoster(store Store, places int32, fallbackPrincipalRatio decimal.Decimal) *Poster {
	return &Poster{
		store:                  store,
		places:                 places,
		fallbackPrincipalRatio: fallbackPrincipalRatio,
		log:                    logger.WithComponent("ledger-poster"),
	}
}

// PostDisbursement moves the principal from cash into the loan receivable.
func (p *Poster) PostDisbursement(ctx context.Context, loan *domain.Loan) (*domain.JournalEntry, error) {
	if !loan.Principal.IsPositive() {
		return nil, customError.WrapInvalidInput("principal", "must be greater than zero")
	}

	date := loan.StartDate
	if loan.DisbursedAt != nil {
		date = *loan.DisbursedAt
	}

	entry, err := NewJournalEntry(date, loan.LoanID,
		fmt.Sprintf("Disbursement of loan %s", loan.LoanID),
		[]domain.JournalLine{
			Debit(domain.AccountLoanReceivable, loan.Principal),
			Credit(domain.AccountCashAndBank, loan.Principal),
		})
	if err != nil {
		return nil, err
	}

	if err := p.post(ctx, entry); err != nil {
		return nil, err
	}

	p.log.Info().
		Str("loan_id", loan.LoanID).
		Int64("entry_id", entry.ID).
		Str("amount", loan.Principal.String()).
		Msg("disbursement posted")

	return entry, nil
}

// PostPayment debits cash by the full amount and credits principal, interest
// and penalty portions. inst is the matched installment before the payment
// is applied, or nil when the payment matched none. The payment's portions
// and journal entry id are filled in on success.
func (p *Poster) PostPayment(ctx context.Context, payment *domain.Payment, loan *domain.Loan, inst *domain.Installment) (*domain.JournalEntry, error) {
	if !payment.Amount.IsPositive() {
		return nil, customError.WrapInvalidPaymentAmount(payment.Amount.String(), "must be greater than zero")
	}

	alloc := AllocatePayment(payment.Amount, inst, p.fallbackPrincipalRatio, p.places)

	lines := []domain.JournalLine{Debit(domain.AccountCashAndBank, payment.Amount)}
	if alloc.Principal.IsPositive() {
		lines = append(lines, Credit(domain.AccountLoanReceivable, alloc.Principal))
	}
	if alloc.Interest.IsPositive() {
		lines = append(lines, Credit(domain.AccountInterestIncome, alloc.Interest))
	}
	if alloc.Penalty.IsPositive() {
		lines = append(lines, Credit(domain.AccountPenaltyIncome, alloc.Penalty))
	}

	description := fmt.Sprintf("Repayment of loan %s", loan.LoanID)
	if inst != nil {
		description = fmt.Sprintf("Repayment of installment %d of loan %s", inst.Number, loan.LoanID)
	}

	entry, err := NewJournalEntry(payment.PaymentDate, loan.LoanID, description, lines)
	if err != nil {
		return nil, err
	}

	if err := p.post(ctx, entry); err != nil {
		return nil, err
	}

	payment.PrincipalPortion = alloc.Principal
	payment.InterestPortion = alloc.Interest
	payment.PenaltyPortion = alloc.Penalty
	payment.JournalEntryID = entry.ID

	p.log.Info().
		Str("loan_id", loan.LoanID).
		Int("installment", payment.InstallmentNumber).
		Int64("entry_id", entry.ID).
		Str("principal", alloc.Principal.String()).
		Str("interest", alloc.Interest.String()).
		Str("penalty", alloc.Penalty.String()).
		Msg("payment posted")

	return entry, nil
}

func (p *Poster) post(ctx context.Context, entry *domain.JournalEntry) error {
	codes := AccountCodes(entry)
	accounts, err := p.store.Accounts(ctx, codes)
	if err != nil {
		return err
	}
	for _, code := range codes {
		if _, ok := accounts[code]; !ok {
			return customError.WrapUnknownAccount(code)
		}
	}

	return p.store.Append(ctx, entry)
}
