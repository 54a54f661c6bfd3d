package fiscal

import (
	"sort"
	"strings"
)

// DefaultColumn is used when an item does not name its column.
const DefaultColumn = "Valor"

var priorityTokens = []struct {
	priority int
	tokens   []string
}{
	{4, []string{"REALIZ", "EXECUT", "LIQUID", "ARREC", "PAGO", "EMPENH"}},
	{3, []string{"ATUALIZ", "ATUAL"}},
	{2, []string{"PREVISÃO", "PREVISAO", "PREVIST", "PREV"}},
	{1, []string{"VALOR"}},
}

// ColumnPriority ranks a column label by the realization stage it names:
// realized 4, updated 3, forecast 2, generic value 1, anything else 0.
func ColumnPriority(label string) int {
	upper := strings.ToUpper(strings.TrimSpace(label))
	if upper == "" {
		return 0
	}
	for _, group := range priorityTokens {
		for _, token := range group.tokens {
			if strings.Contains(upper, token) {
				return group.priority
			}
		}
	}
	return 0
}

// SortColumns orders labels by priority descending, then case-insensitively.
func SortColumns(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		pi, pj := ColumnPriority(labels[i]), ColumnPriority(labels[j])
		if pi != pj {
			return pi > pj
		}
		li, lj := strings.ToLower(labels[i]), strings.ToLower(labels[j])
		if li != lj {
			return li < lj
		}
		return labels[i] < labels[j]
	})
}
