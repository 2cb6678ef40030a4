package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/lending-engine/internal/calculator"
	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/ledger"
	"github.com/segyhp/lending-engine/internal/logger"
	"github.com/segyhp/lending-engine/internal/repository"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// retryBackoff is the base delay between conflicted units of work.
const retryBackoff = 10 * time.Millisecond

type BillingService struct {
	LoanRepo    repository.LoanRepository
	PaymentRepo repository.PaymentRepository
	LedgerRepo  repository.LedgerRepository
	Tx          repository.Transactor
	Cache       repository.ScheduleCache
	Poster      *ledger.Poster
	Clock       func() time.Time
	config      *config.Config
	log         zerolog.Logger
}

func NewBillingService(
	loanRepo repository.LoanRepository,
	paymentRepo repository.PaymentRepository,
	ledgerRepo repository.LedgerRepository,
	tx repository.Transactor,
	cache repository.ScheduleCache,
	config *config.Config,
) *BillingService {
	if tx == nil {
		tx = repository.NewPassthroughTransactor()
	}
	if cache == nil {
		cache = repository.NewMemoryScheduleCache()
	}

	return &BillingService{
		LoanRepo:    loanRepo,
		PaymentRepo: paymentRepo,
		LedgerRepo:  ledgerRepo,
		Tx:          tx,
		Cache:       cache,
		Poster:      ledger.NewPoster(ledgerRepo, config.Business.CurrencyPlaces, config.GetFallbackPrincipalRatio()),
		Clock:       time.Now,
		config:      config,
		log:         logger.WithComponent("billing-service"),
	}
}

func (s *BillingService) places() int32 {
	return s.config.Business.CurrencyPlaces
}

func (s *BillingService) now() time.Time {
	return s.Clock()
}

// CreateLoan registers a pending loan and fixes its EMI
func (s *BillingService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, error) {
	startDate, err := utils.ParseDate(request.StartDate, s.now())
	if err != nil {
		return nil, customError.WrapInvalidInput("start_date", "must be a YYYY-MM-DD date")
	}

	graceDays := s.config.Business.DefaultGracePeriodDays
	if request.GracePeriodDays != nil {
		graceDays = *request.GracePeriodDays
	}

	terms := domain.LoanTerms{
		Principal:         request.Principal,
		AnnualRatePercent: request.AnnualRatePercent,
		Tenure:            request.Tenure,
		InterestType:      request.InterestType,
		Frequency:         request.Frequency,
		GracePeriodDays:   graceDays,
		StartDate:         startDate,
	}

	emi, err := calculator.EMI(terms, s.places())
	if err != nil {
		return nil, err
	}

	// Check if loan already exists
	existingLoan, err := s.LoanRepo.GetByLoanID(ctx, request.LoanID)
	if err == nil && existingLoan != nil {
		return nil, customError.WrapLoanAlreadyExists(request.LoanID)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapDatabaseError(err)
	}

	now := s.now()
	loan := &domain.Loan{
		ID:        uuid.New(),
		LoanID:    request.LoanID,
		LoanTerms: terms,
		EMIAmount: emi,
		Status:    domain.LoanStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.LoanRepo.Create(ctx, loan); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.log.Info().
		Str("loan_id", loan.LoanID).
		Str("principal", loan.Principal.String()).
		Str("emi", emi.String()).
		Msg("loan created")

	return loan, nil
}

// ApproveLoan claims the pending loan, stores its schedule and disburses the
// principal in one transaction. Of two concurrent approvals only the one that
// moves the stored status off pending goes on to disburse.
func (s *BillingService) ApproveLoan(ctx context.Context, loanID string, request *domain.ApproveLoanRequest) (*domain.ApproveLoanResponse, error) {
	var resp *domain.ApproveLoanResponse
	err := s.withRetry(ctx, loanID, "approve", func() error {
		var err error
		resp, err = s.approve(ctx, loanID, request)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cacheSchedule(ctx, loanID, resp.Schedule)

	s.log.Info().
		Str("loan_id", loanID).
		Int("installments", len(resp.Schedule)).
		Int64("entry_id", resp.Entry.ID).
		Msg("loan approved and disbursed")

	return resp, nil
}

func (s *BillingService) approve(ctx context.Context, loanID string, request *domain.ApproveLoanRequest) (*domain.ApproveLoanResponse, error) {
	current, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if err := approvalStatusError(current); err != nil {
		return nil, err
	}

	approvedOn, err := utils.ParseDate(request.ApprovedOn, s.now())
	if err != nil {
		return nil, customError.WrapInvalidInput("approved_on", "must be a YYYY-MM-DD date")
	}

	loan := *current
	loan.Status = domain.LoanStatusActive
	loan.DisbursedAt = &approvedOn

	resp := &domain.ApproveLoanResponse{Loan: &loan}
	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		claimed, err := s.LoanRepo.TransitionStatus(ctx, &loan, domain.LoanStatusPending)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		if !claimed {
			latest, err := s.getLoan(ctx, loanID)
			if err != nil {
				return err
			}
			if latest.Status == domain.LoanStatusClosed {
				return customError.WrapLoanAlreadyClosed(loanID)
			}
			return customError.WrapLoanAlreadyApproved(loanID)
		}

		resp.Schedule, err = s.storeSchedule(ctx, &loan)
		if err != nil {
			return err
		}

		resp.Entry, err = s.Poster.PostDisbursement(ctx, &loan)
		if err != nil {
			return storeError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func approvalStatusError(loan *domain.Loan) error {
	switch loan.Status {
	case domain.LoanStatusActive:
		return customError.WrapLoanAlreadyApproved(loan.LoanID)
	case domain.LoanStatusClosed:
		return customError.WrapLoanAlreadyClosed(loan.LoanID)
	}
	return nil
}

// storeSchedule computes and stores the loan's schedule. A schedule already
// stored for the loan is returned as it is.
func (s *BillingService) storeSchedule(ctx context.Context, loan *domain.Loan) ([]*domain.Installment, error) {
	schedule, err := s.LoanRepo.GetScheduleByLoanID(ctx, loan.LoanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if len(schedule) > 0 {
		return schedule, nil
	}

	schedule, err = calculator.ComputeSchedule(loan.LoanTerms, s.places())
	if err != nil {
		return nil, err
	}

	now := s.now()
	for _, inst := range schedule {
		inst.ID = uuid.New()
		inst.LoanID = loan.LoanID
		inst.CreatedAt = now
		inst.UpdatedAt = now
	}

	if err := s.LoanRepo.CreateSchedule(ctx, schedule); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return schedule, nil
}

// GetSchedule returns the installment schedule, served from cache when possible
func (s *BillingService) GetSchedule(ctx context.Context, loanID string) ([]*domain.Installment, error) {
	if schedule, ok := s.Cache.Get(ctx, loanID); ok {
		return schedule, nil
	}

	if _, err := s.getLoan(ctx, loanID); err != nil {
		return nil, err
	}

	schedule, err := s.LoanRepo.GetScheduleByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	if len(schedule) > 0 {
		s.cacheSchedule(ctx, loanID, schedule)
	}

	return schedule, nil
}

// GetOutstanding sums the unpaid EMI and penalty over all open installments
func (s *BillingService) GetOutstanding(ctx context.Context, loanID string) (*domain.OutstandingResponse, error) {
	if _, err := s.getLoan(ctx, loanID); err != nil {
		return nil, err
	}

	schedule, err := s.LoanRepo.GetScheduleByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	resp := &domain.OutstandingResponse{
		LoanID:             loanID,
		OutstandingEMI:     decimal.Zero,
		OutstandingPenalty: decimal.Zero,
	}
	for _, inst := range schedule {
		if inst.IsPaid() {
			continue
		}
		resp.OutstandingEMI = resp.OutstandingEMI.Add(inst.UnpaidEMI())
		resp.OutstandingPenalty = resp.OutstandingPenalty.Add(inst.UnpaidPenalty())
	}
	resp.Outstanding = resp.OutstandingEMI.Add(resp.OutstandingPenalty)

	resp.TotalPaid, err = s.PaymentRepo.GetTotalPaid(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	latest, err := s.PaymentRepo.GetLatestPayment(ctx, loanID)
	switch {
	case err == nil:
		resp.LastPaymentDate = &latest.PaymentDate
	case !errors.Is(err, sql.ErrNoRows):
		return nil, customError.WrapDatabaseError(err)
	}

	return resp, nil
}

// GetPayments lists the payments collected on a loan
func (s *BillingService) GetPayments(ctx context.Context, loanID string) ([]*domain.Payment, error) {
	if _, err := s.getLoan(ctx, loanID); err != nil {
		return nil, err
	}

	payments, err := s.PaymentRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return payments, nil
}

// RecordPayment allocates a payment to an installment, posts it to the ledger
// and closes the loan once every installment is paid. The installment update,
// the posting and the payment row are written in one transaction; a unit that
// lost an optimistic update is rerun against fresh state.
func (s *BillingService) RecordPayment(ctx context.Context, request *domain.MakePaymentRequest) (*domain.MakePaymentResponse, error) {
	loanID := request.LoanID
	if !request.Amount.IsPositive() {
		return nil, customError.WrapInvalidPaymentAmount(request.Amount.String(), "must be greater than zero")
	}

	var (
		resp   *domain.MakePaymentResponse
		closed bool
	)
	err := s.withRetry(ctx, loanID, "payment", func() error {
		var err error
		resp, closed, err = s.recordPayment(ctx, request)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSchedule(ctx, loanID)

	if closed {
		s.log.Info().Str("loan_id", loanID).Msg("loan fully repaid and closed")
	}

	s.log.Info().
		Str("loan_id", loanID).
		Int("installment", resp.Payment.InstallmentNumber).
		Str("amount", resp.Payment.Amount.String()).
		Msg("payment recorded")

	return resp, nil
}

func (s *BillingService) recordPayment(ctx context.Context, request *domain.MakePaymentRequest) (*domain.MakePaymentResponse, bool, error) {
	loanID := request.LoanID

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, false, err
	}

	switch loan.Status {
	case domain.LoanStatusClosed:
		return nil, false, customError.WrapLoanAlreadyClosed(loanID)
	case domain.LoanStatusPending:
		return nil, false, customError.WrapLoanNotActive(loanID, string(loan.Status))
	}

	paidOn, err := utils.ParseDate(request.PaymentDate, s.now())
	if err != nil {
		return nil, false, customError.WrapInvalidInput("payment_date", "must be a YYYY-MM-DD date")
	}

	schedule, err := s.LoanRepo.GetScheduleByLoanID(ctx, loanID)
	if err != nil {
		return nil, false, customError.WrapDatabaseError(err)
	}

	inst, err := s.matchInstallment(loanID, schedule, request.InstallmentNumber)
	if err != nil {
		return nil, false, err
	}

	payment := &domain.Payment{
		ID:          uuid.New(),
		LoanID:      loanID,
		Amount:      request.Amount,
		PaymentDate: paidOn,
		CreatedAt:   s.now(),
	}

	var before *domain.Installment
	if inst != nil {
		// bring the penalty up to the payment date before splitting
		if _, err := calculator.ApplyPenalty(inst, loan.GracePeriodDays, s.config.GetDailyPenaltyRate(), paidOn, s.places()); err != nil {
			return nil, false, err
		}

		if request.Amount.GreaterThan(inst.Remaining()) {
			return nil, false, customError.WrapInvalidPaymentAmount(request.Amount.String(),
				fmt.Sprintf("exceeds remaining %s of installment %d", inst.Remaining(), inst.Number))
		}

		snapshot := *inst
		before = &snapshot
		payment.InstallmentNumber = inst.Number
	}

	var (
		entry  *domain.JournalEntry
		closed bool
	)
	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if inst != nil {
			inst.ApplyPayment(request.Amount, paidOn)
			inst.UpdatedAt = s.now()
			if err := s.LoanRepo.UpdateInstallment(ctx, inst); err != nil {
				return storeError(err)
			}
		}

		if len(schedule) > 0 && allPaid(schedule) {
			closing := *loan
			closing.Status = domain.LoanStatusClosed
			ok, err := s.LoanRepo.TransitionStatus(ctx, &closing, domain.LoanStatusActive)
			if err != nil {
				return customError.WrapDatabaseError(err)
			}
			closed = ok
		}

		var err error
		entry, err = s.Poster.PostPayment(ctx, payment, loan, before)
		if err != nil {
			return storeError(err)
		}

		if err := s.PaymentRepo.Create(ctx, payment); err != nil {
			return customError.WrapDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return &domain.MakePaymentResponse{
		Payment:     payment,
		Installment: inst,
		Entry:       entry,
	}, closed, nil
}

// matchInstallment picks the requested installment, or the earliest open one
// when number is 0. A loan without a stored schedule matches nothing.
func (s *BillingService) matchInstallment(loanID string, schedule []*domain.Installment, number int) (*domain.Installment, error) {
	if len(schedule) == 0 {
		if number > 0 {
			return nil, customError.WrapInstallmentNotFound(loanID, number)
		}
		return nil, nil
	}

	if number > 0 {
		for _, inst := range schedule {
			if inst.Number != number {
				continue
			}
			if inst.IsPaid() {
				return nil, customError.WrapInvalidInput("installment_number", fmt.Sprintf("%d is already paid", number))
			}
			return inst, nil
		}
		return nil, customError.WrapInstallmentNotFound(loanID, number)
	}

	for _, inst := range schedule {
		if !inst.IsPaid() {
			return inst, nil
		}
	}
	return nil, customError.WrapNoOutstandingBalance(loanID)
}

func allPaid(schedule []*domain.Installment) bool {
	for _, inst := range schedule {
		if !inst.IsPaid() {
			return false
		}
	}
	return true
}

// AccruePenalties recomputes penalties of every active loan as of the
// requested date. Loans are processed concurrently by a bounded worker pool.
func (s *BillingService) AccruePenalties(ctx context.Context, request *domain.AccrualRequest) (*domain.AccrualResult, error) {
	asOf, err := utils.ParseDate(request.AsOf, s.now())
	if err != nil {
		return nil, customError.WrapInvalidInput("as_of", "must be a YYYY-MM-DD date")
	}

	loans, err := s.LoanRepo.ListByStatus(ctx, domain.LoanStatusActive)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	result := &domain.AccrualResult{AsOf: asOf, TotalPenalty: decimal.Zero}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Business.PenaltyWorkers)

	for _, loan := range loans {
		loan := loan
		g.Go(func() error {
			scanned, updated, total, err := s.accrueLoan(gctx, loan, asOf)
			if err != nil {
				return err
			}

			mu.Lock()
			result.Scanned += scanned
			result.Updated += updated
			result.TotalPenalty = result.TotalPenalty.Add(total)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.log.Error().Err(err).Str("as_of", asOf.Format("2006-01-02")).Msg("penalty accrual failed")
		return nil, err
	}

	s.log.Info().
		Str("as_of", asOf.Format("2006-01-02")).
		Int("loans", len(loans)).
		Int("scanned", result.Scanned).
		Int("updated", result.Updated).
		Str("total_penalty", result.TotalPenalty.String()).
		Msg("penalty accrual completed")

	return result, nil
}

func (s *BillingService) accrueLoan(ctx context.Context, loan *domain.Loan, asOf time.Time) (int, int, decimal.Decimal, error) {
	schedule, err := s.LoanRepo.GetScheduleByLoanID(ctx, loan.LoanID)
	if err != nil {
		return 0, 0, decimal.Zero, customError.WrapDatabaseError(err)
	}

	scanned, updated := 0, 0
	total := decimal.Zero
	for _, inst := range schedule {
		if inst.IsPaid() {
			continue
		}
		scanned++

		changed, err := calculator.ApplyPenalty(inst, loan.GracePeriodDays, s.config.GetDailyPenaltyRate(), asOf, s.places())
		if err != nil {
			return 0, 0, decimal.Zero, err
		}
		if !changed {
			total = total.Add(inst.PenaltyAmount)
			continue
		}

		inst.UpdatedAt = s.now()
		err = s.LoanRepo.UpdateInstallmentPenalty(ctx, inst)
		if errors.Is(err, customError.ErrConcurrentUpdateConflict) {
			// a payment landed after the read; the next run sees it
			log := logger.WithLoan("billing-service", loan.LoanID)
			log.Debug().Int("installment", inst.Number).Msg("installment changed during accrual, skipped")
			continue
		}
		if err != nil {
			return 0, 0, decimal.Zero, customError.WrapDatabaseError(err)
		}
		total = total.Add(inst.PenaltyAmount)
		updated++
	}

	if updated > 0 {
		s.invalidateSchedule(ctx, loan.LoanID)
		log := logger.WithLoan("billing-service", loan.LoanID)
		log.Debug().
			Int("updated", updated).
			Str("penalty", total.String()).
			Msg("penalties accrued")
	}

	return scanned, updated, total, nil
}

// PreviewSchedule computes a schedule without storing anything
func (s *BillingService) PreviewSchedule(ctx context.Context, request *domain.SchedulePreviewRequest) ([]*domain.Installment, error) {
	startDate, err := utils.ParseDate(request.StartDate, s.now())
	if err != nil {
		return nil, customError.WrapInvalidInput("start_date", "must be a YYYY-MM-DD date")
	}

	return calculator.ComputeSchedule(domain.LoanTerms{
		Principal:         request.Principal,
		AnnualRatePercent: request.AnnualRatePercent,
		Tenure:            request.Tenure,
		InterestType:      request.InterestType,
		Frequency:         request.Frequency,
		StartDate:         startDate,
	}, s.places())
}

// ListAccounts returns the chart of accounts with current balances
func (s *BillingService) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	accounts, err := s.LedgerRepo.ListAccounts(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return accounts, nil
}

// GetJournal returns every journal entry posted for a loan
func (s *BillingService) GetJournal(ctx context.Context, loanID string) ([]*domain.JournalEntry, error) {
	if _, err := s.getLoan(ctx, loanID); err != nil {
		return nil, err
	}

	entries, err := s.LedgerRepo.GetEntriesByReference(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return entries, nil
}

func (s *BillingService) getLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	loan, err := s.LoanRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return loan, nil
}

// withRetry reruns a unit of work that lost an optimistic update, up to
// LEDGER_MAX_RETRIES attempts with a linear backoff. Other errors end it.
func (s *BillingService) withRetry(ctx context.Context, loanID, op string, unit func() error) error {
	attempts := s.config.Business.LedgerMaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = unit()
		if err == nil || !errors.Is(err, customError.ErrConcurrentUpdateConflict) {
			return err
		}

		s.log.Warn().
			Err(err).
			Str("loan_id", loanID).
			Str("op", op).
			Int("attempt", attempt).
			Msg("concurrent update conflict, retrying")

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}

	return err
}

// storeError keeps business errors from the stores as they are and wraps the rest.
func storeError(err error) error {
	if customError.CodeOf(err) != "" {
		return err
	}
	return customError.WrapDatabaseError(err)
}

func (s *BillingService) cacheSchedule(ctx context.Context, loanID string, schedule []*domain.Installment) {
	if err := s.Cache.Set(ctx, loanID, schedule); err != nil {
		s.log.Warn().Err(customError.WrapCacheError(err)).Str("loan_id", loanID).Msg("failed to cache schedule")
	}
}

func (s *BillingService) invalidateSchedule(ctx context.Context, loanID string) {
	if err := s.Cache.Invalidate(ctx, loanID); err != nil {
		s.log.Warn().Err(customError.WrapCacheError(err)).Str("loan_id", loanID).Msg("failed to invalidate schedule cache")
	}
}
