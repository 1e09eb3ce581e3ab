package financing

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// Plan is one named financing structure: down payment share, term and APR
type Plan struct {
	Name           string  `json:"name" yaml:"name"`
	DownPaymentPct float64 `json:"down_payment_pct" yaml:"down_payment_pct"` // 0.1 == 10%
	TermMonths     int     `json:"term_months" yaml:"term_months"`
	InterestRate   float64 `json:"interest_rate" yaml:"interest_rate"` // percent APR
	Baseline       bool    `json:"baseline,omitempty" yaml:"baseline,omitempty"`
}

// Scenario is a plan evaluated against a concrete base price
type Scenario struct {
	Plan           Plan    `json:"plan"`
	Slug           string  `json:"slug"`
	DownPayment    float64 `json:"down_payment"`
	LoanAmount     float64 `json:"loan_amount"`
	MonthlyPayment float64 `json:"monthly_payment"`
	TotalCost      float64 `json:"total_cost"`
	SavingsVsBase  float64 `json:"savings_vs_base"`
	Affordability  string  `json:"affordability"`
	Outcome        string  `json:"outcome"`
	IsBaseline     bool    `json:"is_baseline"`
}

// DefaultPlans is the fixed plan table offered for every vehicle. Standard Plan is the baseline.
func DefaultPlans() []Plan {
	return []Plan{
		{Name: "Low Down Payment", DownPaymentPct: 0.0, TermMonths: 72, InterestRate: 6.5},
		{Name: "Standard Plan", DownPaymentPct: 0.1, TermMonths: 60, InterestRate: 5.5, Baseline: true},
		{Name: "High Down Payment", DownPaymentPct: 0.2, TermMonths: 48, InterestRate: 4.5},
		{Name: "Short Term", DownPaymentPct: 0.15, TermMonths: 36, InterestRate: 4.0},
		{Name: "Extended Term", DownPaymentPct: 0.05, TermMonths: 84, InterestRate: 7.0},
	}
}

// Scenarios evaluates every plan against basePrice. Savings are measured against the
// plan flagged Baseline (the first plan when none is flagged): positive means cheaper.
func Scenarios(basePrice float64, plans []Plan) ([]Scenario, error) {
	if len(plans) == 0 {
		return nil, fmt.Errorf("%w: no plans to evaluate", ErrInvalidInput)
	}
	if !isFinite(basePrice) || basePrice < 0 {
		return nil, fmt.Errorf("%w: base price must be a non-negative number, got %v", ErrInvalidInput, basePrice)
	}

	out := make([]Scenario, 0, len(plans))
	baseIdx := 0
	for i, p := range plans {
		if p.DownPaymentPct < 0 || p.DownPaymentPct > 1 {
			return nil, fmt.Errorf("%w: plan %q down payment share %v outside [0,1]", ErrInvalidInput, p.Name, p.DownPaymentPct)
		}
		down := basePrice * p.DownPaymentPct
		loan := basePrice - down
		monthly, err := MonthlyPayment(loan, p.InterestRate, p.TermMonths)
		if err != nil {
			return nil, fmt.Errorf("plan %q: %w", p.Name, err)
		}
		if p.Baseline {
			baseIdx = i
		}
		out = append(out, Scenario{
			Plan:           p,
			Slug:           slug(p.Name),
			DownPayment:    down,
			LoanAmount:     loan,
			MonthlyPayment: monthly,
			TotalCost:      monthly*float64(p.TermMonths) + down,
			Affordability:  RatePlan(p.Name),
		})
	}

	baseline := out[baseIdx].TotalCost
	for i := range out {
		out[i].IsBaseline = i == baseIdx
		out[i].SavingsVsBase = baseline - out[i].TotalCost
		out[i].Outcome = outcome(out[i].SavingsVsBase)
	}
	return out, nil
}

// RatePlan grades a named plan: larger down payments and short terms are excellent,
// the standard plan is good, everything else a stretch.
func RatePlan(name string) string {
	switch {
	case strings.Contains(name, "High Down"), strings.Contains(name, "Short Term"):
		return "excellent"
	case strings.Contains(name, "Standard"):
		return "good"
	default:
		return "stretch"
	}
}

// Dollars formats an amount rounded to whole dollars with thousands separators
func Dollars(v float64) string {
	return "$" + humanize.Comma(int64(math.Round(v)))
}

func outcome(savings float64) string {
	rounded := math.Round(savings)
	switch {
	case rounded > 0:
		return fmt.Sprintf("Save %s over standard plan", Dollars(rounded))
	case rounded < 0:
		return fmt.Sprintf("Costs %s more than standard plan", Dollars(-rounded))
	default:
		return "Same total cost as standard plan"
	}
}

func slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}
