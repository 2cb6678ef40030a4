package main

import (
	"fmt"
	"time"

	"github.com/segyhp/lending-engine/internal/calculator"
	"github.com/segyhp/lending-engine/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var penaltyCmd = &cobra.Command{
	Use:   "penalty",
	Short: "Compute the late penalty of one installment",
	Example: `  # EMI of 10000 due 2024-01-01, 5 grace days, checked on 2024-01-10
  lendctl penalty --emi 10000 --due 2024-01-01 --grace 5 --as-of 2024-01-10`,
	RunE: runPenalty,
}

func init() {
	rootCmd.AddCommand(penaltyCmd)

	penaltyCmd.Flags().String("emi", "", "Installment amount the penalty is charged on")
	penaltyCmd.Flags().String("due", "", "Due date (format: YYYY-MM-DD)")
	penaltyCmd.Flags().Int("grace", -1, "Grace period in days (default: DEFAULT_GRACE_PERIOD_DAYS)")
	penaltyCmd.Flags().String("rate", "", "Daily penalty rate in percent (default: DAILY_PENALTY_RATE)")
	penaltyCmd.Flags().String("as-of", "", "Evaluation date (format: YYYY-MM-DD, default: today)")
	_ = penaltyCmd.MarkFlagRequired("emi")
	_ = penaltyCmd.MarkFlagRequired("due")
}

type penaltyResult struct {
	GracePeriodEnd string          `json:"grace_period_end"`
	OverdueDays    int             `json:"overdue_days"`
	Penalty        decimal.Decimal `json:"penalty"`
}

func runPenalty(cmd *cobra.Command, args []string) error {
	emiStr, _ := cmd.Flags().GetString("emi")
	dueStr, _ := cmd.Flags().GetString("due")
	grace, _ := cmd.Flags().GetInt("grace")
	rateStr, _ := cmd.Flags().GetString("rate")
	asOfStr, _ := cmd.Flags().GetString("as-of")

	emi, err := utils.DecimalFromString(emiStr)
	if err != nil {
		return fmt.Errorf("invalid emi %q: %w", emiStr, err)
	}
	due, err := time.Parse("2006-01-02", dueStr)
	if err != nil {
		return fmt.Errorf("invalid due date format. Use YYYY-MM-DD: %w", err)
	}
	asOf, err := utils.ParseDate(asOfStr, time.Now())
	if err != nil {
		return fmt.Errorf("invalid as-of date format. Use YYYY-MM-DD: %w", err)
	}

	if grace < 0 {
		grace = cfg.Business.DefaultGracePeriodDays
	}
	rate := cfg.GetDailyPenaltyRate()
	if rateStr != "" {
		if rate, err = utils.DecimalFromString(rateStr); err != nil {
			return fmt.Errorf("invalid rate %q: %w", rateStr, err)
		}
	}

	penalty, err := calculator.ComputePenalty(emi, due, grace, rate, asOf, cfg.Business.CurrencyPlaces)
	if err != nil {
		return err
	}

	result := penaltyResult{
		GracePeriodEnd: calculator.GracePeriodEnd(due, grace).Format("2006-01-02"),
		OverdueDays:    calculator.OverdueDays(due, grace, asOf),
		Penalty:        penalty,
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(cmd.OutOrStdout(), result)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Grace period ends: %s\n", result.GracePeriodEnd)
	fmt.Fprintf(out, "Overdue days:      %d\n", result.OverdueDays)
	fmt.Fprintf(out, "Penalty:           %s\n", penalty.StringFixed(cfg.Business.CurrencyPlaces))
	return nil
}
