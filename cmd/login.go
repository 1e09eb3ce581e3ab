package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tachyon/constellation/internal/financing"
)

var (
	loginToken string
	loginCheck bool

	profileJSON  bool
	profileFlags financing.Profile
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the bearer token used for the recommendation service",
	RunE: func(cmd *cobra.Command, args []string) error {
		token := strings.TrimSpace(loginToken)
		if token == "" {
			return fmt.Errorf("--token is required")
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if loginCheck {
			a.client.SetToken(token)
			if err := a.client.Health(cmd.Context()); err != nil {
				return fmt.Errorf("checking service: %w", err)
			}
		}
		if err := a.db.SaveToken(token); err != nil {
			return err
		}
		fmt.Println("Logged in.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the token, transcript and constellation of the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()
		if err := d.Clear(); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or update the financial profile sent with every expansion",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		p := a.profile
		if profileChanged(cmd) {
			p = profileFlags.Merge(a.profile)
			if err := a.db.SaveProfile(p); err != nil {
				return err
			}
		}

		if profileJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		}
		fmt.Printf("  Income:         %s/mo\n", financing.Dollars(p.Income))
		fmt.Printf("  Credit score:   %s\n", p.CreditScore)
		fmt.Printf("  Down payment:   %s\n", financing.Dollars(p.DownPayment))
		fmt.Printf("  Monthly budget: %s\n", financing.Dollars(p.MonthlyBudget))
		fmt.Printf("  Loan term:      %d months\n", p.LoanTerm)
		fmt.Printf("  Vehicle types:  %s\n", strings.Join(p.VehicleTypes, ", "))
		fmt.Printf("  Priorities:     %s\n", strings.Join(p.Priorities, ", "))
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "Bearer token issued by the identity provider")
	loginCmd.Flags().BoolVar(&loginCheck, "check", false, "Verify the service is reachable before saving")

	profileCmd.Flags().BoolVar(&profileJSON, "json", false, "Output as JSON")
	profileCmd.Flags().Float64Var(&profileFlags.Income, "income", 0, "Monthly income")
	profileCmd.Flags().StringVar(&profileFlags.CreditScore, "credit-score", "", "Credit score band, e.g. 670-739")
	profileCmd.Flags().Float64Var(&profileFlags.DownPayment, "down-payment", 0, "Available down payment")
	profileCmd.Flags().Float64Var(&profileFlags.MonthlyBudget, "budget", 0, "Monthly payment budget")
	profileCmd.Flags().IntVar(&profileFlags.LoanTerm, "term", 0, "Preferred loan term in months")
	profileCmd.Flags().StringSliceVar(&profileFlags.VehicleTypes, "vehicle-types", nil, "Vehicle types, comma separated")
	profileCmd.Flags().StringSliceVar(&profileFlags.Priorities, "priorities", nil, "Priorities, comma separated")

	rootCmd.AddCommand(loginCmd, logoutCmd, profileCmd)
}

func profileChanged(cmd *cobra.Command) bool {
	for _, name := range []string{"income", "credit-score", "down-payment", "budget", "term", "vehicle-types", "priorities"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}
