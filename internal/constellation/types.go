package constellation

import (
	"fmt"

	"tachyon/constellation/internal/placement"
)

// MaxLevel is the deepest level a node can reach. Root nodes are level 0.
const MaxLevel = 10

// PlanType distinguishes financed purchases from leases
type PlanType string

const (
	PlanFinance PlanType = "finance"
	PlanLease   PlanType = "lease"
)

// Valid reports whether p is one of the known plan types
func (p PlanType) Valid() bool { return p == PlanFinance || p == PlanLease }

// Affordability is the three-tier grade derived from a 0-100 match score
type Affordability string

const (
	AffordabilityExcellent Affordability = "excellent"
	AffordabilityGood      Affordability = "good"
	AffordabilityStretch   Affordability = "stretch"
)

// BranchType names the decision a tree level explores
type BranchType string

const (
	BranchRoot         BranchType = "root"
	BranchFinancing    BranchType = "financing"
	BranchTrimLevels   BranchType = "trim_levels"
	BranchAddOns       BranchType = "add_ons"
	BranchInsurance    BranchType = "insurance"
	BranchMaintenance  BranchType = "maintenance"
	BranchTradeIn      BranchType = "trade_in"
	BranchLeaseVsBuy   BranchType = "lease_vs_buy"
	BranchRefinancing  BranchType = "refinancing"
	BranchEarlyPayoff  BranchType = "early_payoff"
	BranchAlternatives BranchType = "alternatives"
)

var levelBranches = [MaxLevel + 1]BranchType{
	BranchRoot,
	BranchFinancing,
	BranchTrimLevels,
	BranchAddOns,
	BranchInsurance,
	BranchMaintenance,
	BranchTradeIn,
	BranchLeaseVsBuy,
	BranchRefinancing,
	BranchEarlyPayoff,
	BranchAlternatives,
}

var branchNames = map[BranchType]string{
	BranchRoot:         "Recommendations",
	BranchFinancing:    "Payment Structures",
	BranchTrimLevels:   "Vehicle Trims",
	BranchAddOns:       "Warranties & Packages",
	BranchInsurance:    "Insurance Options",
	BranchMaintenance:  "Service Plans",
	BranchTradeIn:      "Trade-In Scenarios",
	BranchLeaseVsBuy:   "Lease vs. Buy",
	BranchRefinancing:  "Refinancing",
	BranchEarlyPayoff:  "Early Payoff",
	BranchAlternatives: "Alternative Vehicles",
}

// BranchFor maps a level to its branch type. Levels outside [0, MaxLevel] have none.
func BranchFor(level int) (BranchType, error) {
	if level < 0 || level > MaxLevel {
		return "", fmt.Errorf("%w: level %d outside 0..%d", ErrDepthExceeded, level, MaxLevel)
	}
	return levelBranches[level], nil
}

// DisplayName is the human label of the branch
func (b BranchType) DisplayName() string {
	if name, ok := branchNames[b]; ok {
		return name
	}
	return string(b)
}

// ScenarioDescriptor is the scenario shape returned by the recommendation backend
type ScenarioDescriptor struct {
	Name            string   `json:"name,omitempty"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	PlanType        PlanType `json:"plan_type"`
	DownPayment     float64  `json:"down_payment"`
	MonthlyPayment  float64  `json:"monthly_payment"`
	TermMonths      int      `json:"term_months"`
	InterestRate    float64  `json:"interest_rate"`
	PositivityScore float64  `json:"positivity_score"`
	Recommendations string   `json:"recommendations"`
	SuggestedModel  string   `json:"suggested_model"`
}

// Validate checks the fields the constellation depends on
func (d ScenarioDescriptor) Validate() error {
	if !d.PlanType.Valid() {
		return fmt.Errorf("plan_type %q is not finance or lease", d.PlanType)
	}
	if d.PositivityScore < 0 || d.PositivityScore > 100 {
		return fmt.Errorf("positivity_score %v outside 0..100", d.PositivityScore)
	}
	if d.MonthlyPayment < 0 {
		return fmt.Errorf("monthly_payment %v is negative", d.MonthlyPayment)
	}
	if d.TermMonths < 0 {
		return fmt.Errorf("term_months %d is negative", d.TermMonths)
	}
	return nil
}

// FinancingDetail is attached to synthetic financing-plan children only
type FinancingDetail struct {
	PlanName        string  `json:"plan_name"`
	DownPayment     float64 `json:"down_payment"`
	LoanTermMonths  int     `json:"loan_term_months"`
	InterestRatePct float64 `json:"interest_rate_percent"`
	TotalCost       float64 `json:"total_cost"`
	SavingsVsBase   float64 `json:"savings_vs_baseline"`
	Outcome         string  `json:"outcome"`
}

// Node is one star in the constellation
type Node struct {
	ID             int                `json:"id"`
	Label          string             `json:"label"`
	Position       placement.Vec3     `json:"position"`
	SizeScore      float64            `json:"size_score"`
	Size           float64            `json:"size"`
	MonthlyPayment float64            `json:"monthly_payment"`
	PlanType       PlanType           `json:"plan_type"`
	Color          string             `json:"color"`
	Affordability  Affordability      `json:"affordability"`
	ParentID       *int               `json:"parent_id,omitempty"`
	Level          int                `json:"level"`
	BranchType     BranchType         `json:"branch_type"`
	IsExpanded     bool               `json:"is_expanded"`
	Children       []int              `json:"children,omitempty"`
	PriceRange     string             `json:"price_range,omitempty"`
	Narrative      string             `json:"narrative,omitempty"`
	TermMonths     int                `json:"term_months,omitempty"`
	Scenario       ScenarioDescriptor `json:"scenario"`
	Financing      *FinancingDetail   `json:"financing,omitempty"`
	// Crowded marks a node placed after the collision retry budget ran out
	Crowded bool `json:"crowded,omitempty"`
}

// IsRoot reports whether the node came straight from the interview
func (n Node) IsRoot() bool { return n.ParentID == nil }

// CanExpand reports whether the node is a leaf that still has a level below it
func (n Node) CanExpand() bool { return !n.IsExpanded && n.Level < MaxLevel }

func (n Node) clone() Node {
	out := n
	if n.ParentID != nil {
		p := *n.ParentID
		out.ParentID = &p
	}
	if n.Children != nil {
		out.Children = append([]int(nil), n.Children...)
	}
	if n.Financing != nil {
		f := *n.Financing
		out.Financing = &f
	}
	return out
}
