package models

// LineItem is one priced row inside a cost scenario.
type LineItem struct {
	Label string  `json:"label"`
	Cost  float64 `json:"cost"`
}

// Scenario is one of the two cost estimates generated for a project.
type Scenario struct {
	Name          string     `json:"name"`
	Summary       string     `json:"summary"`
	TotalCost     float64    `json:"total_cost"`
	DurationWeeks int        `json:"duration_weeks"`
	LineItems     []LineItem `json:"line_items,omitempty"`

	// BudgetConstrained is set when a client budget forced the estimate into
	// constrained mode and the scenario could not be fit under it.
	BudgetConstrained bool   `json:"budget_constrained,omitempty"`
	BudgetDisclaimer  string `json:"budget_disclaimer,omitempty"`
}

// WithinBudget reports whether the scenario satisfies the budget invariant:
// either the total fits under the budget, or the scenario carries an explicit
// constrained flag with a non-empty disclaimer.
func (s *Scenario) WithinBudget(budget float64) bool {
	if s.TotalCost <= budget {
		return true
	}
	return s.BudgetConstrained && s.BudgetDisclaimer != ""
}

// ApplyBudgetConstraint enforces the budget invariant on the scenario,
// stamping the constrained flag and a disclaimer when the total exceeds the
// budget. Applied once at the boundary after parsing provider output.
func (s *Scenario) ApplyBudgetConstraint(budget float64, disclaimer string) {
	if s.TotalCost <= budget {
		return
	}
	s.BudgetConstrained = true
	if s.BudgetDisclaimer == "" {
		s.BudgetDisclaimer = disclaimer
	}
}

// ROIAnalysis summarizes expected return for the two scenarios.
type ROIAnalysis struct {
	Summary          string  `json:"summary"`
	PaybackMonthsA   int     `json:"payback_months_a,omitempty"`
	PaybackMonthsB   int     `json:"payback_months_b,omitempty"`
	ProjectedRevenue float64 `json:"projected_revenue,omitempty"`
}
