package constellation

import (
	"fmt"
	"strings"

	"tachyon/constellation/internal/financing"
)

const defaultLabel = "Toyota Vehicle"

// AffordabilityFor grades a 0-100 positivity score: >=80 excellent, >=60 good, else stretch
func AffordabilityFor(score float64) Affordability {
	switch {
	case score >= 80:
		return AffordabilityExcellent
	case score >= 60:
		return AffordabilityGood
	default:
		return AffordabilityStretch
	}
}

// SizeFor maps a 0-100 score to a visual size in [6, 12]
func SizeFor(score float64) float64 {
	return 6 + clamp(score, 0, 100)/100*6
}

// ColorFor returns the display color band of a plan type
func ColorFor(p PlanType) string {
	if p == PlanLease {
		return "#10B981"
	}
	return "#4A90E2"
}

// ColorForAffordability is the band used by financing-plan children
func ColorForAffordability(a Affordability) string {
	switch a {
	case AffordabilityExcellent:
		return "#4ade80"
	case AffordabilityGood:
		return "#60a5fa"
	default:
		return "#fbbf24"
	}
}

// FromDescriptor fills the display fields of a node from a backend scenario.
// Identity, position and tree fields are left for the Store and placement engine.
func FromDescriptor(d ScenarioDescriptor) Node {
	label := d.SuggestedModel
	if label == "" {
		label = d.Name
	}
	if label == "" {
		label = defaultLabel
	}
	plan := d.PlanType
	if !plan.Valid() {
		plan = PlanFinance
	}
	return Node{
		Label:          label,
		SizeScore:      clamp(d.PositivityScore, 0, 100),
		Size:           SizeFor(d.PositivityScore),
		MonthlyPayment: d.MonthlyPayment,
		PlanType:       plan,
		Color:          ColorFor(plan),
		Affordability:  AffordabilityFor(d.PositivityScore),
		PriceRange:     fmt.Sprintf("$%s/mo for %d months", trimFloat(d.MonthlyPayment), d.TermMonths),
		Narrative:      narrative(d),
		TermMonths:     d.TermMonths,
		Scenario:       d,
	}
}

// Details renders the long-form description shown when a node is selected
func Details(n Node) string {
	var b strings.Builder
	d := n.Scenario
	fmt.Fprintf(&b, "🚗 %s\n\n", n.Label)
	title := d.Title
	if title == "" {
		title = n.Label
	}
	fmt.Fprintf(&b, "📋 Plan: %s\n", title)
	if d.Description != "" {
		fmt.Fprintf(&b, "%s\n", d.Description)
	}

	b.WriteString("\n💰 Financial Details:\n")
	if n.Financing != nil {
		f := n.Financing
		fmt.Fprintf(&b, "• Down Payment: %s\n", financing.Dollars(f.DownPayment))
		fmt.Fprintf(&b, "• Monthly Payment: %s\n", financing.Dollars(n.MonthlyPayment))
		fmt.Fprintf(&b, "• Term: %d months (%d years)\n", f.LoanTermMonths, f.LoanTermMonths/12)
		fmt.Fprintf(&b, "• Interest Rate: %s%%\n", trimFloat(f.InterestRatePct))
		fmt.Fprintf(&b, "• Total Cost: %s\n", financing.Dollars(f.TotalCost))
		fmt.Fprintf(&b, "• %s\n", f.Outcome)
	} else {
		fmt.Fprintf(&b, "• Down Payment: %s\n", financing.Dollars(d.DownPayment))
		fmt.Fprintf(&b, "• Monthly Payment: %s\n", financing.Dollars(n.MonthlyPayment))
		fmt.Fprintf(&b, "• Term: %d months (%d years)\n", n.TermMonths, n.TermMonths/12)
		fmt.Fprintf(&b, "• Interest Rate: %s%%\n", trimFloat(d.InterestRate))
	}
	if n.PlanType == PlanLease {
		b.WriteString("• Type: 📄 Lease\n")
	} else {
		b.WriteString("• Type: 🏦 Financing\n")
	}

	fmt.Fprintf(&b, "\n⭐ Match Score: %s/100 (%s)\n", trimFloat(n.SizeScore), n.Affordability)
	fmt.Fprintf(&b, "🧭 Level %d: %s\n", n.Level, n.BranchType.DisplayName())
	if d.Recommendations != "" {
		fmt.Fprintf(&b, "\n💡 Expert Recommendation:\n%s\n", d.Recommendations)
	}
	return strings.TrimSpace(b.String())
}

func narrative(d ScenarioDescriptor) string {
	parts := make([]string, 0, 3)
	if d.Title != "" {
		parts = append(parts, d.Title)
	}
	if d.Description != "" {
		parts = append(parts, d.Description)
	}
	if d.Recommendations != "" {
		parts = append(parts, "💡 "+d.Recommendations)
	}
	return strings.Join(parts, "\n\n")
}

// trimFloat prints whole numbers without a decimal part
func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
