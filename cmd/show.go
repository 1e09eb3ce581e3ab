package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tachyon/constellation/internal/constellation"
)

var (
	showJSON   bool
	showRegion int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the constellation as a tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		nodes := a.store.Nodes()
		if showRegion != 0 {
			if _, err := a.store.Get(showRegion); err != nil {
				return err
			}
			nodes = subtree(nodes, showRegion)
		}

		if showJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(nodes)
		}
		if len(nodes) == 0 {
			fmt.Println("The constellation is empty. Run `constellation interview` or `constellation load <file>`.")
			return nil
		}
		renderTree(os.Stdout, nodes)
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output as JSON")
	showCmd.Flags().IntVar(&showRegion, "region", 0, "Only show this node and its descendants")
	rootCmd.AddCommand(showCmd)
}

// subtree keeps rootID and every node below it. nodes must be in id order.
func subtree(nodes []constellation.Node, rootID int) []constellation.Node {
	keep := map[int]bool{rootID: true}
	var out []constellation.Node
	for _, n := range nodes {
		// children always have larger ids than their parent
		if n.ID == rootID || (n.ParentID != nil && keep[*n.ParentID]) {
			keep[n.ID] = true
			out = append(out, n)
		}
	}
	return out
}

// renderTree prints each node under its parent, depth first
func renderTree(w io.Writer, nodes []constellation.Node) {
	byID := make(map[int]constellation.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	var walk func(n constellation.Node, depth int)
	walk = func(n constellation.Node, depth int) {
		indent := strings.Repeat("  ", depth)
		marker := "○"
		switch {
		case n.IsExpanded:
			marker = "●"
		case !n.CanExpand():
			marker = "◆"
		}
		line := fmt.Sprintf("%s%s #%d %s", indent, marker, n.ID, truncTitle(n.Label, 48))
		if n.PriceRange != "" {
			line += "  " + n.PriceRange
		}
		line += fmt.Sprintf("  [%s, %s]", n.PlanType, n.Affordability)
		if n.Level > 0 {
			line += "  " + strings.TrimSpace(n.BranchType.DisplayName())
		}
		if n.Crowded {
			line += "  (crowded)"
		}
		fmt.Fprintln(w, line)
		for _, id := range n.Children {
			if child, ok := byID[id]; ok {
				walk(child, depth+1)
			}
		}
	}

	for _, n := range nodes {
		if _, ok := parentIn(n, byID); !ok {
			walk(n, 0)
		}
	}
}

func parentIn(n constellation.Node, byID map[int]constellation.Node) (constellation.Node, bool) {
	if n.ParentID == nil {
		return constellation.Node{}, false
	}
	p, ok := byID[*n.ParentID]
	return p, ok
}

func truncTitle(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Find a safe UTF-8 boundary
	truncated := s[:max]
	for len(truncated) > 0 && truncated[len(truncated)-1]>>6 == 2 {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated + "..."
}
