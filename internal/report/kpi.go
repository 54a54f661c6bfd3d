package report

import (
	"github.com/farxc/envelopa-rreo/internal/aggregate"
	"github.com/farxc/envelopa-rreo/internal/fiscal"
)

// RevenueCategories composes total revenue.
var RevenueCategories = []string{
	"Receitas Correntes",
	"Receitas de Capital",
}

// ExpensePatterns composes total expense.
var ExpensePatterns = []aggregate.Pattern{
	{Label: "Despesas com Pessoal e Encargos", Match: "Pessoal e Encargos"},
	{Label: "Outras Despesas Correntes", Match: "Outras Despesas Correntes"},
	{Label: "Investimentos", Match: "Investimentos"},
}

// KPIs is the flat headline view of one scope.
type KPIs struct {
	RevenueTotal       float64          `json:"revenue_total"`
	ExpenseTotal       float64          `json:"expense_total"`
	BudgetResult       float64          `json:"budget_result"`
	RevenueComposition aggregate.Totals `json:"revenue_composition"`
	ExpenseComposition aggregate.Totals `json:"expense_composition"`
}

func ComputeKPIs(items []fiscal.LineItem) KPIs {
	revenue := aggregate.SumByCategories(items, RevenueCategories)
	expense := aggregate.SumByPatterns(items, ExpensePatterns)

	k := KPIs{
		RevenueTotal:       revenue.Sum(),
		ExpenseTotal:       expense.Sum(),
		RevenueComposition: revenue,
		ExpenseComposition: expense,
	}
	k.BudgetResult = k.RevenueTotal - k.ExpenseTotal
	return k
}
