package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/repository"
	customError "github.com/segyhp/lending-engine/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, repository.Migrate(context.Background(), db))
	return db
}

func newLoan(loanID string) *domain.Loan {
	now := time.Now().UTC()
	return &domain.Loan{
		ID:     uuid.New(),
		LoanID: loanID,
		LoanTerms: domain.LoanTerms{
			Principal:         decimal.NewFromInt(120000),
			AnnualRatePercent: decimal.NewFromInt(12),
			Tenure:            12,
			InterestType:      domain.InterestTypeFlat,
			Frequency:         domain.FrequencyMonthly,
			GracePeriodDays:   5,
			StartDate:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		EMIAmount: decimal.NewFromInt(11200),
		Status:    domain.LoanStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestLoanRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewLoanRepository(db)
	ctx := context.Background()

	loan := newLoan("LOAN-001")
	require.NoError(t, repo.Create(ctx, loan))

	result, err := repo.GetByLoanID(ctx, "LOAN-001")
	require.NoError(t, err)
	assert.Equal(t, loan.ID, result.ID)
	assert.True(t, loan.Principal.Equal(result.Principal))
	assert.True(t, loan.AnnualRatePercent.Equal(result.AnnualRatePercent))
	assert.Equal(t, 12, result.Tenure)
	assert.Equal(t, domain.InterestTypeFlat, result.InterestType)
	assert.Equal(t, domain.FrequencyMonthly, result.Frequency)
	assert.Equal(t, 5, result.GracePeriodDays)
	assert.True(t, loan.StartDate.Equal(result.StartDate))
	assert.True(t, loan.EMIAmount.Equal(result.EMIAmount))
	assert.Equal(t, domain.LoanStatusPending, result.Status)
	assert.Nil(t, result.DisbursedAt)
}

func TestLoanRepository_GetByLoanID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewLoanRepository(db)

	_, err := repo.GetByLoanID(context.Background(), "NON-EXISTENT")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestLoanRepository_CreateDuplicate(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewLoanRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newLoan("LOAN-DUP")))
	assert.Error(t, repo.Create(ctx, newLoan("LOAN-DUP")))
}

func TestLoanRepository_TransitionStatusAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewLoanRepository(db)
	ctx := context.Background()

	first := newLoan("LOAN-A")
	second := newLoan("LOAN-B")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	disbursed := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	second.Status = domain.LoanStatusActive
	second.DisbursedAt = &disbursed
	moved, err := repo.TransitionStatus(ctx, second, domain.LoanStatusPending)
	require.NoError(t, err)
	assert.True(t, moved)

	// the stored status is no longer pending
	moved, err = repo.TransitionStatus(ctx, second, domain.LoanStatusPending)
	require.NoError(t, err)
	assert.False(t, moved)

	active, err := repo.ListByStatus(ctx, domain.LoanStatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "LOAN-B", active[0].LoanID)
	require.NotNil(t, active[0].DisbursedAt)
	assert.True(t, disbursed.Equal(*active[0].DisbursedAt))

	pending, err := repo.ListByStatus(ctx, domain.LoanStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "LOAN-A", pending[0].LoanID)

	closed, err := repo.ListByStatus(ctx, domain.LoanStatusClosed)
	require.NoError(t, err)
	assert.Empty(t, closed)
}

func TestLoanRepository_Schedule(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewLoanRepository(db)
	ctx := context.Background()

	loan := newLoan("LOAN-SCHED")
	require.NoError(t, repo.Create(ctx, loan))

	now := time.Now().UTC()
	var installments []*domain.Installment
	for n := 3; n >= 1; n-- {
		installments = append(installments, &domain.Installment{
			ID:                 uuid.New(),
			LoanID:             loan.LoanID,
			Number:             n,
			DueDate:            loan.StartDate.AddDate(0, n, 0),
			EMIAmount:          decimal.NewFromInt(11200),
			PrincipalComponent: decimal.NewFromInt(10000),
			InterestComponent:  decimal.NewFromInt(1200),
			PenaltyAmount:      decimal.Zero,
			TotalDue:           decimal.NewFromInt(11200),
			Status:             domain.InstallmentStatusUnpaid,
			PaidAmount:         decimal.Zero,
			OutstandingBalance: decimal.NewFromInt(int64(120000 - 10000*n)),
			CreatedAt:          now,
			UpdatedAt:          now,
		})
	}
	require.NoError(t, repo.CreateSchedule(ctx, installments))

	schedule, err := repo.GetScheduleByLoanID(ctx, loan.LoanID)
	require.NoError(t, err)
	require.Len(t, schedule, 3)
	for i, inst := range schedule {
		assert.Equal(t, i+1, inst.Number)
		assert.True(t, loan.StartDate.AddDate(0, i+1, 0).Equal(inst.DueDate))
		assert.Nil(t, inst.PaidDate)
	}

	first := schedule[0]
	paidOn := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	first.PenaltyAmount = decimal.NewFromInt(800)
	first.TotalDue = decimal.NewFromInt(12000)
	first.ApplyPayment(decimal.NewFromInt(12000), paidOn)
	require.NoError(t, repo.UpdateInstallment(ctx, first))

	schedule, err = repo.GetScheduleByLoanID(ctx, loan.LoanID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstallmentStatusPaid, schedule[0].Status)
	assert.True(t, schedule[0].PenaltyAmount.Equal(decimal.NewFromInt(800)))
	assert.True(t, schedule[0].PaidAmount.Equal(decimal.NewFromInt(12000)))
	require.NotNil(t, schedule[0].PaidDate)
	assert.True(t, paidOn.Equal(*schedule[0].PaidDate))
	assert.Equal(t, int64(1), schedule[0].Version)
	assert.Equal(t, domain.InstallmentStatusUnpaid, schedule[1].Status)
	assert.Equal(t, int64(0), schedule[1].Version)
}

func TestLoanRepository_ScheduleUniquePerLoan(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewLoanRepository(db)
	ctx := context.Background()

	loan := newLoan("LOAN-UNIQ")
	require.NoError(t, repo.Create(ctx, loan))

	inst := func() *domain.Installment {
		return &domain.Installment{
			ID: uuid.New(), LoanID: loan.LoanID, Number: 1, DueDate: loan.StartDate,
			EMIAmount: decimal.NewFromInt(1), PrincipalComponent: decimal.NewFromInt(1), InterestComponent: decimal.Zero,
			PenaltyAmount: decimal.Zero, TotalDue: decimal.NewFromInt(1), Status: domain.InstallmentStatusUnpaid,
			PaidAmount: decimal.Zero, OutstandingBalance: decimal.Zero,
		}
	}

	assert.Error(t, repo.CreateSchedule(ctx, []*domain.Installment{inst(), inst()}))

	// the failed batch rolled back as a whole
	schedule, err := repo.GetScheduleByLoanID(ctx, loan.LoanID)
	require.NoError(t, err)
	assert.Empty(t, schedule)
}

func TestPaymentRepository(t *testing.T) {
	db := setupTestDB(t)
	loans := repository.NewLoanRepository(db)
	repo := repository.NewPaymentRepository(db)
	ctx := context.Background()

	require.NoError(t, loans.Create(ctx, newLoan("LOAN-PAY")))

	_, err := repo.GetLatestPayment(ctx, "LOAN-PAY")
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	total, err := repo.GetTotalPaid(ctx, "LOAN-PAY")
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	for i, amount := range []string{"11200", "5000.50"} {
		payment := &domain.Payment{
			ID:                uuid.New(),
			LoanID:            "LOAN-PAY",
			InstallmentNumber: i + 1,
			Amount:            decimal.RequireFromString(amount),
			PrincipalPortion:  decimal.Zero,
			InterestPortion:   decimal.Zero,
			PenaltyPortion:    decimal.Zero,
			PaymentDate:       time.Date(2024, time.Month(2+i), 1, 0, 0, 0, 0, time.UTC),
			JournalEntryID:    int64(i + 10),
			CreatedAt:         time.Now().UTC(),
		}
		require.NoError(t, repo.Create(ctx, payment))
	}

	payments, err := repo.GetByLoanID(ctx, "LOAN-PAY")
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, 1, payments[0].InstallmentNumber)
	assert.Equal(t, int64(10), payments[0].JournalEntryID)

	total, err = repo.GetTotalPaid(ctx, "LOAN-PAY")
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("16200.50")), "got %s", total)

	latest, err := repo.GetLatestPayment(ctx, "LOAN-PAY")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.InstallmentNumber)
}

func seededLedger(t *testing.T) repository.LedgerRepository {
	t.Helper()
	repo := repository.NewLedgerRepository(setupTestDB(t))
	require.NoError(t, repo.SeedChart(context.Background()))
	return repo
}

func TestLedgerRepository_SeedChartIsIdempotent(t *testing.T) {
	repo := seededLedger(t)
	ctx := context.Background()

	require.NoError(t, repo.SeedChart(ctx))

	accounts, err := repo.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, len(domain.ChartOfAccounts()))
	assert.Equal(t, "1000", accounts[0].Code)
	for _, account := range accounts {
		assert.True(t, account.Balance.IsZero())
		assert.Equal(t, int64(0), account.Version)
	}
}

func disbursementEntry(reference string, amount int64) *domain.JournalEntry {
	return &domain.JournalEntry{
		EntryDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Reference:   reference,
		Description: "Disbursement of loan " + reference,
		Lines: []domain.JournalLine{
			{LineNo: 1, AccountCode: domain.AccountLoanReceivable, Debit: decimal.NewFromInt(amount), Credit: decimal.Zero},
			{LineNo: 2, AccountCode: domain.AccountCashAndBank, Debit: decimal.Zero, Credit: decimal.NewFromInt(amount)},
		},
	}
}

func TestLedgerRepository_Append(t *testing.T) {
	repo := seededLedger(t)
	ctx := context.Background()

	entry := disbursementEntry("LOAN-250", 250000)
	require.NoError(t, repo.Append(ctx, entry))
	assert.Positive(t, entry.ID)
	assert.Equal(t, entry.ID, entry.Lines[0].EntryID)

	second := disbursementEntry("LOAN-OTHER", 1000)
	require.NoError(t, repo.Append(ctx, second))
	assert.Greater(t, second.ID, entry.ID)

	accounts, err := repo.Accounts(ctx, []string{domain.AccountLoanReceivable, domain.AccountCashAndBank, "9999"})
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.True(t, accounts[domain.AccountLoanReceivable].Balance.Equal(decimal.NewFromInt(251000)))
	assert.True(t, accounts[domain.AccountCashAndBank].Balance.Equal(decimal.NewFromInt(-251000)))
	assert.Equal(t, int64(2), accounts[domain.AccountCashAndBank].Version)

	entries, err := repo.GetEntriesByReference(ctx, "LOAN-250")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Len(t, entries[0].Lines, 2)
	assert.Equal(t, domain.AccountLoanReceivable, entries[0].Lines[0].AccountCode)
	assert.True(t, entries[0].Lines[0].Debit.Equal(decimal.NewFromInt(250000)))
	assert.True(t, entries[0].TotalDebit().Equal(entries[0].TotalCredit()))

	none, err := repo.GetEntriesByReference(ctx, "UNKNOWN")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLedgerRepository_AppendRejectsWholeEntry(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*domain.JournalEntry)
		target error
	}{
		{
			name: "unknown account",
			mutate: func(e *domain.JournalEntry) {
				e.Lines[1].AccountCode = "9999"
			},
			target: customError.ErrUnknownAccount,
		},
		{
			name: "imbalanced",
			mutate: func(e *domain.JournalEntry) {
				e.Lines[1].Credit = decimal.NewFromInt(999)
			},
			target: customError.ErrImbalancedEntry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := seededLedger(t)
			entry := disbursementEntry("LOAN-BAD", 1000)
			tt.mutate(entry)

			err := repo.Append(ctx, entry)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
			assert.Zero(t, entry.ID)

			entries, err := repo.GetEntriesByReference(ctx, "LOAN-BAD")
			require.NoError(t, err)
			assert.Empty(t, entries)

			accounts, err := repo.ListAccounts(ctx)
			require.NoError(t, err)
			for _, account := range accounts {
				assert.True(t, account.Balance.IsZero(), "account %s moved", account.Code)
			}
		})
	}
}

func storedSchedule(t *testing.T, db *sqlx.DB, loanID string) []*domain.Installment {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewLoanRepository(db)

	loan := newLoan(loanID)
	require.NoError(t, repo.Create(ctx, loan))

	now := time.Now().UTC()
	var installments []*domain.Installment
	for n := 1; n <= 2; n++ {
		installments = append(installments, &domain.Installment{
			ID: uuid.New(), LoanID: loanID, Number: n, DueDate: loan.StartDate.AddDate(0, n, 0),
			EMIAmount: decimal.NewFromInt(11200), PrincipalComponent: decimal.NewFromInt(10000),
			InterestComponent: decimal.NewFromInt(1200), PenaltyAmount: decimal.Zero, TotalDue: decimal.NewFromInt(11200),
			Status: domain.InstallmentStatusUnpaid, PaidAmount: decimal.Zero, OutstandingBalance: decimal.Zero,
			CreatedAt: now, UpdatedAt: now,
		})
	}
	require.NoError(t, repo.CreateSchedule(ctx, installments))

	schedule, err := repo.GetScheduleByLoanID(ctx, loanID)
	require.NoError(t, err)
	return schedule
}

func TestLoanRepository_InstallmentUpdatesRejectStaleVersion(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewLoanRepository(db)
	ctx := context.Background()

	payer := storedSchedule(t, db, "LOAN-CAS")[0]
	accrual, err := repo.GetScheduleByLoanID(ctx, "LOAN-CAS")
	require.NoError(t, err)
	stale := accrual[0]

	paidOn := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	payer.ApplyPayment(decimal.NewFromInt(11200), paidOn)
	require.NoError(t, repo.UpdateInstallment(ctx, payer))
	assert.Equal(t, int64(1), payer.Version)

	// a penalty computed from the pre-payment read must not land
	stale.PenaltyAmount = decimal.NewFromInt(800)
	stale.TotalDue = decimal.NewFromInt(12000)
	stale.Status = domain.InstallmentStatusOverdue
	err = repo.UpdateInstallmentPenalty(ctx, stale)
	assert.True(t, errors.Is(err, customError.ErrConcurrentUpdateConflict), "got %v", err)
	assert.Equal(t, customError.ErrCodeConcurrentUpdateConflict, customError.CodeOf(err))
	assert.Equal(t, int64(0), stale.Version)

	err = repo.UpdateInstallment(ctx, stale)
	assert.True(t, errors.Is(err, customError.ErrConcurrentUpdateConflict), "got %v", err)

	schedule, err := repo.GetScheduleByLoanID(ctx, "LOAN-CAS")
	require.NoError(t, err)
	assert.Equal(t, domain.InstallmentStatusPaid, schedule[0].Status)
	assert.True(t, schedule[0].PaidAmount.Equal(decimal.NewFromInt(11200)))
	assert.True(t, schedule[0].PenaltyAmount.IsZero())
	assert.Equal(t, int64(1), schedule[0].Version)
}

func TestLoanRepository_UpdateInstallmentPenaltyKeepsPaidFields(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewLoanRepository(db)
	ctx := context.Background()

	inst := storedSchedule(t, db, "LOAN-PENALTY")[1]
	paidOn := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	inst.ApplyPayment(decimal.NewFromInt(5000), paidOn)
	require.NoError(t, repo.UpdateInstallment(ctx, inst))

	// paid fields changed in memory only are not written by the penalty update
	inst.PenaltyAmount = decimal.NewFromInt(448)
	inst.TotalDue = decimal.NewFromInt(11648)
	inst.Status = domain.InstallmentStatusOverdue
	inst.PaidAmount = decimal.Zero
	inst.PaidDate = nil
	require.NoError(t, repo.UpdateInstallmentPenalty(ctx, inst))
	assert.Equal(t, int64(2), inst.Version)

	schedule, err := repo.GetScheduleByLoanID(ctx, "LOAN-PENALTY")
	require.NoError(t, err)
	stored := schedule[1]
	assert.Equal(t, domain.InstallmentStatusOverdue, stored.Status)
	assert.True(t, stored.PenaltyAmount.Equal(decimal.NewFromInt(448)))
	assert.True(t, stored.TotalDue.Equal(decimal.NewFromInt(11648)))
	assert.True(t, stored.PaidAmount.Equal(decimal.NewFromInt(5000)))
	require.NotNil(t, stored.PaidDate)
	assert.True(t, paidOn.Equal(*stored.PaidDate))
}

func TestTransactor_WithinTx(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		fail      error
		wantLoans int
	}{
		{name: "commits", wantLoans: 2},
		{name: "rolls back", fail: errors.New("payment rejected"), wantLoans: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			loans := repository.NewLoanRepository(db)
			tx := repository.NewTransactor(db)

			err := tx.WithinTx(ctx, func(ctx context.Context) error {
				if err := loans.Create(ctx, newLoan("LOAN-TX-1")); err != nil {
					return err
				}
				// a nested unit joins the outer transaction
				if err := tx.WithinTx(ctx, func(ctx context.Context) error {
					return loans.Create(ctx, newLoan("LOAN-TX-2"))
				}); err != nil {
					return err
				}

				pending, err := loans.ListByStatus(ctx, domain.LoanStatusPending)
				if err != nil {
					return err
				}
				if len(pending) != 2 {
					return errors.New("writes not visible inside the transaction")
				}
				return tt.fail
			})
			assert.Equal(t, tt.fail, err)

			pending, err := loans.ListByStatus(ctx, domain.LoanStatusPending)
			require.NoError(t, err)
			assert.Len(t, pending, tt.wantLoans)
		})
	}
}

func TestPassthroughTransactor(t *testing.T) {
	called := false
	err := repository.NewPassthroughTransactor().WithinTx(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestLedgerRepository_AppendConflictRollsBack(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewLedgerRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.SeedChart(ctx))

	// another writer moves the account version between the read and the balance update
	_, err := db.ExecContext(ctx, `
		CREATE TRIGGER bump_account_version AFTER INSERT ON journal_lines
		BEGIN
			UPDATE accounts SET version = version + 1 WHERE code = NEW.account_code;
		END
	`)
	require.NoError(t, err)

	entry := disbursementEntry("LOAN-CONFLICT", 5000)
	err = repo.Append(ctx, entry)
	assert.True(t, errors.Is(err, customError.ErrConcurrentUpdateConflict), "got %v", err)
	assert.Equal(t, customError.ErrCodeConcurrentUpdateConflict, customError.CodeOf(err))
	assert.Zero(t, entry.ID)

	entries, err := repo.GetEntriesByReference(ctx, "LOAN-CONFLICT")
	require.NoError(t, err)
	assert.Empty(t, entries)

	accounts, err := repo.ListAccounts(ctx)
	require.NoError(t, err)
	for _, account := range accounts {
		assert.True(t, account.Balance.IsZero(), "account %s moved", account.Code)
		assert.Equal(t, int64(0), account.Version, "account %s version", account.Code)
	}

	_, err = db.ExecContext(ctx, `DROP TRIGGER bump_account_version`)
	require.NoError(t, err)

	require.NoError(t, repo.Append(ctx, entry))
	assert.Positive(t, entry.ID)

	accounts, err = repo.ListAccounts(ctx)
	require.NoError(t, err)
	for _, account := range accounts {
		switch account.Code {
		case domain.AccountLoanReceivable:
			assert.True(t, account.Balance.Equal(decimal.NewFromInt(5000)))
			assert.Equal(t, int64(1), account.Version)
		case domain.AccountCashAndBank:
			assert.True(t, account.Balance.Equal(decimal.NewFromInt(-5000)))
			assert.Equal(t, int64(1), account.Version)
		}
	}
}

func TestLedgerRepository_AppendJoinsTransaction(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewLedgerRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.SeedChart(ctx))

	failed := errors.New("payment insert failed")
	err := repository.NewTransactor(db).WithinTx(ctx, func(ctx context.Context) error {
		if err := repo.Append(ctx, disbursementEntry("LOAN-JOINED", 700)); err != nil {
			return err
		}
		return failed
	})
	assert.Equal(t, failed, err)

	entries, err := repo.GetEntriesByReference(ctx, "LOAN-JOINED")
	require.NoError(t, err)
	assert.Empty(t, entries)

	accounts, err := repo.Accounts(ctx, []string{domain.AccountLoanReceivable})
	require.NoError(t, err)
	assert.True(t, accounts[domain.AccountLoanReceivable].Balance.IsZero())
}
