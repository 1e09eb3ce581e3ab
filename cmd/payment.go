package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"tachyon/constellation/internal/financing"
)

var (
	paymentCompare bool
	paymentJSON    bool
)

var paymentCmd = &cobra.Command{
	Use:   "payment <principal> <rate> <term>",
	Short: "Compute a monthly loan payment",
	Long: `Computes the fixed monthly payment for a loan. rate is the APR in percent
(5.5 for 5.5%) and term is in months. With --compare the principal is used as
the vehicle price and every configured financing plan is evaluated against it.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		principal, rate, term, err := parsePaymentArgs(args)
		if err != nil {
			return err
		}
		monthly, err := financing.MonthlyPayment(principal, rate, term)
		if err != nil {
			return err
		}

		var scenarios []financing.Scenario
		if paymentCompare {
			if scenarios, err = financing.Scenarios(principal, appCfg.Plans); err != nil {
				return err
			}
		}

		if paymentJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"principal":       principal,
				"interest_rate":   rate,
				"term_months":     term,
				"monthly_payment": monthly,
				"scenarios":       scenarios,
			})
		}

		total := monthly * float64(term)
		fmt.Printf("  Monthly payment: $%.2f\n", monthly)
		fmt.Printf("  Total paid:      %s over %d months\n", financing.Dollars(total), term)
		fmt.Printf("  Interest:        %s\n", financing.Dollars(total-principal))
		if paymentCompare {
			printScenarios(scenarios)
		}
		return nil
	},
}

func init() {
	paymentCmd.Flags().BoolVar(&paymentCompare, "compare", false, "Compare the configured financing plans for this price")
	paymentCmd.Flags().BoolVar(&paymentJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(paymentCmd)
}

func parsePaymentArgs(args []string) (principal, rate float64, term int, err error) {
	if principal, err = strconv.ParseFloat(args[0], 64); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid principal %q", args[0])
	}
	if rate, err = strconv.ParseFloat(args[1], 64); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid rate %q", args[1])
	}
	if term, err = strconv.Atoi(args[2]); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid term %q", args[2])
	}
	return principal, rate, term, nil
}

func printScenarios(scenarios []financing.Scenario) {
	fmt.Println("\n  PLANS")
	fmt.Println("  ────────────────────────────────────────")
	for _, s := range scenarios {
		mark := " "
		if s.IsBaseline {
			mark = "*"
		}
		fmt.Printf("  %s %-18s %9s/mo  %3d mo  down %9s  total %10s  %s\n",
			mark, s.Plan.Name, financing.Dollars(s.MonthlyPayment), s.Plan.TermMonths,
			financing.Dollars(s.DownPayment), financing.Dollars(s.TotalCost), s.Outcome)
	}
}
