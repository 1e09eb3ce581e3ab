package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tachyon/constellation/internal/constellation"
)

var loadCmd = &cobra.Command{
	Use:   "load <file.json>",
	Short: "Replace the constellation with root scenarios read from a file",
	Long: `Reads either a JSON array of scenarios or an interview status document
({"scenarios": [...]}) and lays the scenarios out as the root ring.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading scenario file: %w", err)
		}
		descs, err := parseScenarioFile(data)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		roots, err := a.store.LoadRoots(descs)
		if err != nil {
			return err
		}
		if err := a.save(); err != nil {
			return err
		}
		fmt.Printf("Loaded %d root scenarios.\n", len(roots))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func parseScenarioFile(data []byte) ([]constellation.ScenarioDescriptor, error) {
	data = bytes.TrimSpace(data)
	var descs []constellation.ScenarioDescriptor
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &descs); err != nil {
			return nil, fmt.Errorf("parsing scenarios: %w", err)
		}
	} else {
		var doc struct {
			Scenarios []constellation.ScenarioDescriptor `json:"scenarios"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing scenarios: %w", err)
		}
		descs = doc.Scenarios
	}
	if len(descs) == 0 {
		return nil, constellation.ErrEmptyBatch
	}
	for i, d := range descs {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("scenario %d: %w", i, err)
		}
	}
	return descs, nil
}
