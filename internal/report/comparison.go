package report

// Variation compares one KPI across two fiscal years. VariationPercent is nil
// when the previous value is zero or negative.
type Variation struct {
	Current          float64  `json:"current"`
	Previous         float64  `json:"previous"`
	VariationPercent *float64 `json:"variation_percent"`
}

func NewVariation(current, previous float64) Variation {
	v := Variation{Current: current, Previous: previous}
	if previous > 0 {
		pct := (current - previous) / previous * 100
		v.VariationPercent = &pct
	}
	return v
}

// Comparison is the year-over-year view of the headline KPIs.
type Comparison struct {
	CurrentYear  int       `json:"current_year"`
	PreviousYear int       `json:"previous_year"`
	RevenueTotal Variation `json:"revenue_total"`
	ExpenseTotal Variation `json:"expense_total"`
	BudgetResult Variation `json:"budget_result"`
}

func Compare(current, previous KPIs) Comparison {
	return Comparison{
		RevenueTotal: NewVariation(current.RevenueTotal, previous.RevenueTotal),
		ExpenseTotal: NewVariation(current.ExpenseTotal, previous.ExpenseTotal),
		BudgetResult: NewVariation(current.BudgetResult, previous.BudgetResult),
	}
}
