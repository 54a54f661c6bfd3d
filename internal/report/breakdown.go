package report

import (
	"github.com/farxc/envelopa-rreo/internal/aggregate"
	"github.com/farxc/envelopa-rreo/internal/fiscal"
)

var revenueBreakdownCategories = []string{
	"Receitas Correntes",
	"Receitas de Capital",
	"Transferências Correntes",
	"Transferências de Capital",
}

var taxPatterns = []aggregate.Pattern{
	{Label: "ISS", Match: "ISS"},
	{Label: "IPTU", Match: "IPTU"},
	{Label: "ITBI", Match: "ITBI"},
	{Label: "IRRF", Match: "IRRF"},
}

type Revenues struct {
	Categories aggregate.Totals `json:"categories"`
	Taxes      aggregate.Totals `json:"taxes"`
	ByColumn   aggregate.Totals `json:"by_column"`
}

func ComputeRevenues(items []fiscal.LineItem) Revenues {
	return Revenues{
		Categories: aggregate.SumByCategories(items, revenueBreakdownCategories),
		Taxes:      aggregate.SumByPatterns(items, taxPatterns),
		ByColumn:   aggregate.SummarizeByColumn(items, aggregate.DomainRevenue),
	}
}

type Expenses struct {
	Personnel          float64          `json:"personnel"`
	OtherCurrent       float64          `json:"other_current"`
	Investments        float64          `json:"investments"`
	ContingencyReserve float64          `json:"contingency_reserve"`
	ByColumn           aggregate.Totals `json:"by_column"`
}

func ComputeExpenses(items []fiscal.LineItem) Expenses {
	return Expenses{
		Personnel:          aggregate.SumByPattern(items, "Pessoal e Encargos"),
		OtherCurrent:       aggregate.SumByPattern(items, "Outras Despesas Correntes"),
		Investments:        aggregate.SumByPattern(items, "Investimentos"),
		ContingencyReserve: aggregate.SumByPattern(items, "Reserva de Contingência"),
		ByColumn:           aggregate.SummarizeByColumn(items, aggregate.DomainExpense),
	}
}
