package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/segyhp/lending-engine/internal/calculator"
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/pkg/utils"

	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Preview an amortization schedule",
	Example: `  # Reducing balance, 12 monthly installments
  lendctl schedule --principal 100000 --rate 12 --tenure 12 --type reducing

  # Flat weekly schedule in whole currency units
  CURRENCY_PLACES=0 lendctl schedule --principal 5000000 --rate 10 --tenure 50 --frequency weekly`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	addTermFlags(scheduleCmd)
}

// addTermFlags registers the loan term flags shared by schedule and simulate
func addTermFlags(cmd *cobra.Command) {
	cmd.Flags().String("principal", "100000", "Loan principal")
	cmd.Flags().String("rate", "12", "Annual interest rate in percent")
	cmd.Flags().Int("tenure", 12, "Number of installments")
	cmd.Flags().String("type", string(domain.InterestTypeReducing), "Interest type: flat or reducing")
	cmd.Flags().String("frequency", string(domain.FrequencyMonthly), "Repayment frequency: monthly or weekly")
	cmd.Flags().String("start", "", "Start date (format: YYYY-MM-DD, default: today)")
}

func termsFromFlags(cmd *cobra.Command) (domain.LoanTerms, error) {
	principalStr, _ := cmd.Flags().GetString("principal")
	rateStr, _ := cmd.Flags().GetString("rate")
	tenure, _ := cmd.Flags().GetInt("tenure")
	interestType, _ := cmd.Flags().GetString("type")
	frequency, _ := cmd.Flags().GetString("frequency")
	startStr, _ := cmd.Flags().GetString("start")

	principal, err := utils.DecimalFromString(principalStr)
	if err != nil {
		return domain.LoanTerms{}, fmt.Errorf("invalid principal %q: %w", principalStr, err)
	}
	rate, err := utils.DecimalFromString(rateStr)
	if err != nil {
		return domain.LoanTerms{}, fmt.Errorf("invalid rate %q: %w", rateStr, err)
	}
	start, err := utils.ParseDate(startStr, time.Now())
	if err != nil {
		return domain.LoanTerms{}, fmt.Errorf("invalid start date format. Use YYYY-MM-DD: %w", err)
	}

	return domain.LoanTerms{
		Principal:         principal,
		AnnualRatePercent: rate,
		Tenure:            tenure,
		InterestType:      domain.InterestType(interestType),
		Frequency:         domain.Frequency(frequency),
		StartDate:         start,
	}, nil
}

func runSchedule(cmd *cobra.Command, args []string) error {
	terms, err := termsFromFlags(cmd)
	if err != nil {
		return err
	}

	schedule, err := calculator.ComputeSchedule(terms, cfg.Business.CurrencyPlaces)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(cmd.OutOrStdout(), schedule)
	}
	return printSchedule(cmd.OutOrStdout(), schedule)
}

func printSchedule(out io.Writer, schedule []*domain.Installment) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "#\tDUE DATE\tEMI\tPRINCIPAL\tINTEREST\tPENALTY\tSTATUS\tOUTSTANDING\t")
	for _, inst := range schedule {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			inst.Number,
			inst.DueDate.Format("2006-01-02"),
			inst.EMIAmount.StringFixed(2),
			inst.PrincipalComponent.StringFixed(2),
			inst.InterestComponent.StringFixed(2),
			inst.PenaltyAmount.StringFixed(2),
			inst.Status,
			inst.OutstandingBalance.StringFixed(2),
		)
	}
	return w.Flush()
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
