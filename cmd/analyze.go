package cmd

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tachyon/constellation/internal/graph"
)

var (
	analyzeJSON   bool
	analyzeRegion int
	analyzeTopN   int
	analyzeMinSep float64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze the constellation: levels, frontier, spacing, health score",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		snap := graph.SnapshotFromStore(a.store)

		if analyzeRegion != 0 {
			if _, err := a.store.Get(analyzeRegion); err != nil {
				return err
			}
			snap = snap.FilterToRegion(analyzeRegion)
		}

		config := &graph.AnalyzerConfig{
			MinSeparation: a.store.Layout().MinSeparation,
			TopN:          analyzeTopN,
		}
		if analyzeMinSep > 0 {
			config.MinSeparation = analyzeMinSep
		}

		report := graph.Analyze(snap, config)

		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		printHumanReadable(report, snap)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output as JSON")
	analyzeCmd.Flags().IntVar(&analyzeRegion, "region", 0, "Scope analysis to descendants of this node ID")
	analyzeCmd.Flags().IntVar(&analyzeTopN, "top-n", 10, "Number of top items to show per section")
	analyzeCmd.Flags().Float64Var(&analyzeMinSep, "min-separation", 0, "Override the layout's minimum separation")
	rootCmd.AddCommand(analyzeCmd)
}

func printHumanReadable(report *graph.AnalysisReport, snap *graph.GraphSnapshot) {
	// Health bar
	barLen := int(report.HealthScore * 20)
	if barLen > 20 {
		barLen = 20
	}
	bar := strings.Repeat("█", barLen) + strings.Repeat("░", 20-barLen)
	fmt.Printf("\n  Constellation Health: %.0f%%  [%s]\n", report.HealthScore*100, bar)
	fmt.Printf("  breakdown: integrity=%.2f spacing=%.2f crowding=%.2f exploration=%.2f\n\n",
		report.HealthBreakdown.Integrity,
		report.HealthBreakdown.Spacing,
		report.HealthBreakdown.Crowding,
		report.HealthBreakdown.Exploration)

	// Topology
	t := report.Topology
	fmt.Println("  TOPOLOGY")
	fmt.Println("  ────────────────────────────────────────")
	fmt.Printf("  Nodes: %d  Edges: %d  Roots: %d  Components: %d\n", t.TotalNodes, t.TotalEdges, t.Roots, t.NumComponents)
	fmt.Printf("  Expanded: %d  Frontier: %d  Fully explored: %d  Deepest level: %d\n",
		t.Expanded, t.Frontier, t.FullyExplored, t.DeepestLevel)

	if len(t.LevelMismatches) > 0 {
		fmt.Printf("  %d nodes sit at the wrong level for their parent\n", len(t.LevelMismatches))
	}

	// Level distribution
	fmt.Println("\n  Nodes per level:")
	for _, b := range t.LevelHistogram {
		barWidth := 1
		if b.Count > 0 {
			barWidth = int(math.Log2(float64(b.Count))) + 2
		}
		fmt.Printf("    %2d %-13s %4d  %s\n", b.Level, b.Branch, b.Count, strings.Repeat("=", barWidth))
	}

	if len(t.Regions) > 1 {
		fmt.Println("\n  Regions:")
		for _, r := range t.Regions {
			fmt.Printf("    #%-4d %4d nodes  %s\n", r.RootID, r.Nodes, truncTitle(r.Label, 40))
		}
	}

	if len(t.Hubs) > 0 {
		fmt.Println("\n  Most expanded:")
		for _, hub := range t.Hubs {
			fmt.Printf("    #%-4d children=%d  %s\n", hub.ID, hub.Children, truncTitle(hub.Label, 40))
		}
	}

	if len(t.FrontierIDs) > 0 {
		fmt.Println("\n  Ready to expand:")
		for _, id := range t.FrontierIDs {
			title := "?"
			if n := snap.Nodes[id]; n != nil {
				title = truncTitle(n.Label, 50)
			}
			fmt.Printf("    #%-4d %s\n", id, title)
		}
		if t.Frontier > len(t.FrontierIDs) {
			fmt.Printf("    ... and %d more\n", t.Frontier-len(t.FrontierIDs))
		}
	}

	// Spacing
	s := report.Spacing
	fmt.Println("\n  SPACING")
	fmt.Println("  ────────────────────────────────────────")
	fmt.Printf("  Minimum separation: %.1f  Closest pair: #%d/#%d at %.1f\n",
		s.MinSeparation, s.ClosestPair[0], s.ClosestPair[1], s.MinPairDistance)
	fmt.Printf("  Mean parent-child distance: %.1f  Crowded placements: %d\n", s.MeanChildDist, s.CrowdedCount)
	if s.ViolationCount > 0 {
		fmt.Printf("  %d pairs closer than the minimum (%d not flagged at placement):\n", s.ViolationCount, s.Unflagged)
		for _, v := range s.Violations {
			flag := ""
			if v.Flagged {
				flag = "  (crowded)"
			}
			fmt.Printf("    #%d <-> #%d  %.1f%s\n", v.A, v.B, v.Distance, flag)
		}
	}

	fmt.Println()
}
