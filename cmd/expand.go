package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tachyon/constellation/internal/constellation"
	"tachyon/constellation/internal/expand"
)

var (
	expandPlans bool
	expandJSON  bool
)

var expandCmd = &cobra.Command{
	Use:   "expand <id>",
	Short: "Generate the next level of scenarios below a node",
	Long: `Asks the recommendation service for the next branch below the node
(financing, trims, add-ons, ... down to alternatives at level 10).
With --plans the five standard financing plans are computed locally instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseNodeID(args[0])
		if err != nil {
			return err
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		var children []constellation.Node
		if expandPlans {
			children, err = a.flow.ExpandFinancing(id)
		} else {
			children, err = a.flow.Expand(cmd.Context(), id, a.profile)
		}
		if err != nil {
			// a fully explored node is an end state, not a failure
			if expand.Terminal(err) {
				fmt.Println(expand.Message(err))
				return nil
			}
			slog.Debug("expansion failed", "id", id, "err", err)
			return errors.New(expand.Message(err))
		}
		if err := a.save(); err != nil {
			return err
		}

		if expandJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(children)
		}
		parent, _ := a.store.Get(id)
		fmt.Printf("Expanded #%d %s into %d %s scenarios:\n", parent.ID, parent.Label, len(children),
			children[0].BranchType.DisplayName())
		for _, c := range children {
			fmt.Printf("  #%-4d %-40s %s  [%s]\n", c.ID, truncTitle(c.Label, 40), c.PriceRange, c.Affordability)
			if c.Financing != nil {
				fmt.Printf("         %s\n", c.Financing.Outcome)
			}
		}
		return nil
	},
}

var detailsCmd = &cobra.Command{
	Use:   "details <id>",
	Short: "Show everything known about one scenario",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseNodeID(args[0])
		if err != nil {
			return err
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.store.Get(id)
		if err != nil {
			return err
		}
		fmt.Println(constellation.Details(n))
		return nil
	},
}

func init() {
	expandCmd.Flags().BoolVar(&expandPlans, "plans", false, "Attach the standard financing plans instead of calling the service")
	expandCmd.Flags().BoolVar(&expandJSON, "json", false, "Output the new children as JSON")
	rootCmd.AddCommand(expandCmd, detailsCmd)
}
