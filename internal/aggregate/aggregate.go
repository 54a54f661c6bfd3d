// Package aggregate classifies normalized line items into fiscal categories
// and sums them without counting the same account twice across overlapping
// value columns.
package aggregate

import (
	"sort"
	"strings"

	"github.com/farxc/envelopa-rreo/internal/fiscal"
)

// Domain selects revenue or expense lines for a column overview.
type Domain string

const (
	DomainRevenue Domain = "receita"
	DomainExpense Domain = "despesa"
)

// matches reports whether a normalized description equals or contains a
// normalized target.
func matches(description, target string) bool {
	return description == target || strings.Contains(description, target)
}

// SumByCategories accumulates each item into the first category whose
// normalized name equals or occurs in the item's normalized description.
// Category order decides ambiguous matches. Every category appears in the
// result, in input order, even when nothing matched it.
func SumByCategories(items []fiscal.LineItem, categories []string) Totals {
	targets := make([]string, len(categories))
	accs := make([]*Accumulator, len(categories))
	for i, c := range categories {
		targets[i] = fiscal.NormalizeLabel(c)
		accs[i] = NewAccumulator()
	}

	for _, item := range items {
		desc := fiscal.NormalizeLabel(item.AccountDescription)
		if desc == "" {
			continue
		}
		for i, target := range targets {
			if target == "" {
				continue
			}
			if matches(desc, target) {
				accs[i].AddItem(item, desc)
				break
			}
		}
	}

	out := make(Totals, len(categories))
	for i, c := range categories {
		out[i] = Entry{Label: c, Total: accs[i].Total()}
	}
	return out
}

// SumByPattern applies the same matching and priority rule against a single
// free text pattern.
func SumByPattern(items []fiscal.LineItem, pattern string) float64 {
	target := fiscal.NormalizeLabel(pattern)
	if target == "" {
		return 0
	}
	acc := NewAccumulator()
	for _, item := range items {
		desc := fiscal.NormalizeLabel(item.AccountDescription)
		if desc == "" {
			continue
		}
		if matches(desc, target) {
			acc.AddItem(item, desc)
		}
	}
	return acc.Total()
}

// Pattern is a labelled free text pattern.
type Pattern struct {
	Label string
	Match string
}

// SumByPatterns evaluates SumByPattern for each pattern, keeping their order.
func SumByPatterns(items []fiscal.LineItem, patterns []Pattern) Totals {
	out := make(Totals, len(patterns))
	for i, p := range patterns {
		out[i] = Entry{Label: p.Label, Total: SumByPattern(items, p.Match)}
	}
	return out
}

// SummarizeByColumn sums raw values per column label over the items whose
// normalized description mentions the domain. No priority rule applies.
// Columns are ordered by priority, then case-insensitively.
func SummarizeByColumn(items []fiscal.LineItem, domain Domain) Totals {
	sums := make(map[string]float64)
	for _, item := range items {
		desc := fiscal.NormalizeLabel(item.AccountDescription)
		if desc == "" || !strings.Contains(desc, string(domain)) {
			continue
		}
		col := strings.TrimSpace(item.ColumnLabel)
		if col == "" {
			col = fiscal.DefaultColumn
		}
		sums[col] += item.Value
	}

	labels := make([]string, 0, len(sums))
	for col := range sums {
		labels = append(labels, col)
	}
	sort.Strings(labels)
	fiscal.SortColumns(labels)

	out := make(Totals, len(labels))
	for i, col := range labels {
		out[i] = Entry{Label: col, Total: sums[col]}
	}
	return out
}
