package report

import (
	"sort"
	"strings"

	"github.com/farxc/envelopa-rreo/internal/aggregate"
	"github.com/farxc/envelopa-rreo/internal/fiscal"
)

// DetailRow is one account with its value per column. Columns the account
// never reported are absent from Values.
type DetailRow struct {
	AccountCode        string             `json:"account_code"`
	AccountDescription string             `json:"account_description"`
	Values             map[string]float64 `json:"values"`
}

// Details is the per-account table of one scope.
type Details struct {
	Columns []string    `json:"columns"`
	Rows    []DetailRow `json:"rows"`
}

type detailGroup struct {
	code, desc string
	columns    *aggregate.Accumulator
	seen       []string
}

// ComputeDetails groups items by (code, description). Repeated observations
// of an account/column pair follow the priority rule. Rows are ordered by
// code then description, byte-wise; columns by priority then name.
func ComputeDetails(items []fiscal.LineItem) Details {
	groups := make(map[string]*detailGroup)
	columnSet := make(map[string]struct{})

	for _, item := range items {
		col := strings.TrimSpace(item.ColumnLabel)
		if col == "" {
			col = fiscal.DefaultColumn
		}
		columnSet[col] = struct{}{}

		key := item.AccountCode + "|" + item.AccountDescription
		g, ok := groups[key]
		if !ok {
			g = &detailGroup{code: item.AccountCode, desc: item.AccountDescription, columns: aggregate.NewAccumulator()}
			groups[key] = g
		}
		if _, had := g.columns.Value(col); !had {
			g.seen = append(g.seen, col)
		}
		g.columns.Add(col, item.Value, fiscal.ColumnPriority(col))
	}

	columns := make([]string, 0, len(columnSet))
	for col := range columnSet {
		columns = append(columns, col)
	}
	fiscal.SortColumns(columns)

	rows := make([]DetailRow, 0, len(groups))
	for _, g := range groups {
		values := make(map[string]float64, len(g.seen))
		for _, col := range g.seen {
			values[col], _ = g.columns.Value(col)
		}
		rows = append(rows, DetailRow{AccountCode: g.code, AccountDescription: g.desc, Values: values})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AccountCode != rows[j].AccountCode {
			return rows[i].AccountCode < rows[j].AccountCode
		}
		return rows[i].AccountDescription < rows[j].AccountDescription
	})

	return Details{Columns: columns, Rows: rows}
}
