package financing

// Profile is the buyer's financial situation sent along with every expansion request
type Profile struct {
	Income        float64  `json:"income" yaml:"income"`
	CreditScore   string   `json:"credit_score" yaml:"credit_score"`
	DownPayment   float64  `json:"down_payment" yaml:"down_payment"`
	MonthlyBudget float64  `json:"monthly_budget" yaml:"monthly_budget"`
	LoanTerm      int      `json:"loan_term" yaml:"loan_term"`
	VehicleTypes  []string `json:"vehicle_types,omitempty" yaml:"vehicle_types"`
	Priorities    []string `json:"priorities,omitempty" yaml:"priorities"`
}

// DefaultProfile is used when the interview has not produced one
func DefaultProfile() Profile {
	return Profile{
		Income:        5000,
		CreditScore:   "670-739",
		DownPayment:   5000,
		MonthlyBudget: 400,
		LoanTerm:      60,
		VehicleTypes:  []string{"sedan", "suv"},
		Priorities:    []string{"safety", "fuel_efficiency", "reliability"},
	}
}

// Merge fills zero fields of p from fallback
func (p Profile) Merge(fallback Profile) Profile {
	if p.Income == 0 {
		p.Income = fallback.Income
	}
	if p.CreditScore == "" {
		p.CreditScore = fallback.CreditScore
	}
	if p.DownPayment == 0 {
		p.DownPayment = fallback.DownPayment
	}
	if p.MonthlyBudget == 0 {
		p.MonthlyBudget = fallback.MonthlyBudget
	}
	if p.LoanTerm == 0 {
		p.LoanTerm = fallback.LoanTerm
	}
	if len(p.VehicleTypes) == 0 {
		p.VehicleTypes = fallback.VehicleTypes
	}
	if len(p.Priorities) == 0 {
		p.Priorities = fallback.Priorities
	}
	return p
}
