package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/repository"
	"github.com/segyhp/lending-engine/internal/service"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a loan through its whole lifecycle and print the ledger",
	Long: `Create, approve and repay one loan against a throwaway SQLite database
and an in-memory ledger. Every installment is paid late-days after its due
date, after a penalty accrual run on that day, so late payments collect
penalty income. Prints the payments and the final account balances.`,
	Example: `  # Pay every installment 10 days late with a 3 day grace period
  lendctl simulate --principal 120000 --rate 12 --type flat --late-days 10 --grace 3`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	addTermFlags(simulateCmd)

	simulateCmd.Flags().String("loan-id", "SIM-001", "Loan identifier")
	simulateCmd.Flags().Int("grace", -1, "Grace period in days (default: DEFAULT_GRACE_PERIOD_DAYS)")
	simulateCmd.Flags().Int("late-days", 0, "Days after each due date the installment is paid")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	terms, err := termsFromFlags(cmd)
	if err != nil {
		return err
	}
	loanID, _ := cmd.Flags().GetString("loan-id")
	grace, _ := cmd.Flags().GetInt("grace")
	lateDays, _ := cmd.Flags().GetInt("late-days")
	if lateDays < 0 {
		return fmt.Errorf("late-days must not be negative")
	}

	ctx := cmd.Context()

	db, err := sqlx.Connect("sqlite3", ":memory:")
	if err != nil {
		return fmt.Errorf("open simulation database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := repository.Migrate(ctx, db); err != nil {
		return err
	}

	ledgerRepo := repository.NewMemoryLedgerRepository()
	svc := service.NewBillingService(
		repository.NewLoanRepository(db),
		repository.NewPaymentRepository(db),
		ledgerRepo,
		repository.NewTransactor(db),
		repository.NewMemoryScheduleCache(),
		cfg,
	)

	clock := terms.StartDate
	svc.Clock = func() time.Time { return clock }

	request := &domain.CreateLoanRequest{
		LoanID:            loanID,
		Principal:         terms.Principal,
		AnnualRatePercent: terms.AnnualRatePercent,
		Tenure:            terms.Tenure,
		InterestType:      terms.InterestType,
		Frequency:         terms.Frequency,
		StartDate:         terms.StartDate.Format("2006-01-02"),
	}
	if grace >= 0 {
		request.GracePeriodDays = &grace
	}

	loan, err := svc.CreateLoan(ctx, request)
	if err != nil {
		return err
	}
	approved, err := svc.ApproveLoan(ctx, loan.LoanID, &domain.ApproveLoanRequest{})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Loan %s: principal %s, EMI %s, %d installments\n\n",
		loan.LoanID, loan.Principal.String(), loan.EMIAmount.String(), len(approved.Schedule))

	payments, err := repayAll(ctx, svc, loan.LoanID, approved.Schedule, lateDays, func(t time.Time) { clock = t })
	if err != nil {
		return err
	}

	accounts, err := svc.ListAccounts(ctx)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(out, map[string]interface{}{
			"loan":     loan,
			"payments": payments,
			"accounts": accounts,
		})
	}

	if err := printPayments(out, payments); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return printAccounts(out, accounts)
}

// repayAll pays each installment in order, running accrual on the payment day first
func repayAll(ctx context.Context, svc *service.BillingService, loanID string, schedule []*domain.Installment, lateDays int, setClock func(time.Time)) ([]*domain.Payment, error) {
	payments := make([]*domain.Payment, 0, len(schedule))

	for _, inst := range schedule {
		paidOn := inst.DueDate.AddDate(0, 0, lateDays)
		setClock(paidOn)

		if _, err := svc.AccruePenalties(ctx, &domain.AccrualRequest{}); err != nil {
			return nil, err
		}

		outstanding, err := installmentDue(ctx, svc, loanID, inst.Number)
		if err != nil {
			return nil, err
		}

		resp, err := svc.RecordPayment(ctx, &domain.MakePaymentRequest{
			LoanID:            loanID,
			Amount:            outstanding,
			InstallmentNumber: inst.Number,
			PaymentDate:       paidOn.Format("2006-01-02"),
		})
		if err != nil {
			return nil, fmt.Errorf("pay installment %d: %w", inst.Number, err)
		}
		payments = append(payments, resp.Payment)
	}

	return payments, nil
}

func installmentDue(ctx context.Context, svc *service.BillingService, loanID string, number int) (decimal.Decimal, error) {
	schedule, err := svc.GetSchedule(ctx, loanID)
	if err != nil {
		return decimal.Zero, err
	}
	for _, inst := range schedule {
		if inst.Number == number {
			return inst.Remaining(), nil
		}
	}
	return decimal.Zero, fmt.Errorf("installment %d missing from schedule", number)
}

func printPayments(out io.Writer, payments []*domain.Payment) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "#\tPAID ON\tAMOUNT\tPRINCIPAL\tINTEREST\tPENALTY\t")
	for _, p := range payments {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t\n",
			p.InstallmentNumber,
			p.PaymentDate.Format("2006-01-02"),
			p.Amount.StringFixed(2),
			p.PrincipalPortion.StringFixed(2),
			p.InterestPortion.StringFixed(2),
			p.PenaltyPortion.StringFixed(2),
		)
	}
	return w.Flush()
}

func printAccounts(out io.Writer, accounts []*domain.Account) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tACCOUNT\tTYPE\tBALANCE")
	total := decimal.Zero
	for _, a := range accounts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Code, a.Name, a.Type, a.Balance.StringFixed(2))
		total = total.Add(a.Balance)
	}
	fmt.Fprintf(w, "\t\tTOTAL\t%s\n", total.StringFixed(2))
	return w.Flush()
}
