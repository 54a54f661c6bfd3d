package aggregate

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/farxc/envelopa-rreo/internal/fiscal"
	"gonum.org/v1/gonum/floats"
)

type selected struct {
	value    float64
	priority int
}

// Accumulator keeps one selected value per account identity. A higher
// column priority replaces the stored value, an equal one adds to it and a
// lower one is ignored.
type Accumulator struct {
	order   []string
	entries map[string]*selected
}

func NewAccumulator() *Accumulator {
	return &Accumulator{entries: make(map[string]*selected)}
}

func (a *Accumulator) Add(key string, value float64, priority int) {
	cur, ok := a.entries[key]
	switch {
	case !ok:
		a.entries[key] = &selected{value: value, priority: priority}
		a.order = append(a.order, key)
	case priority > cur.priority:
		cur.value = value
		cur.priority = priority
	case priority == cur.priority:
		cur.value += value
	}
}

// AddItem adds an item under its account identity using its column priority.
func (a *Accumulator) AddItem(item fiscal.LineItem, normalizedDescription string) {
	a.Add(AccountKey(item, normalizedDescription), item.Value, fiscal.ColumnPriority(item.ColumnLabel))
}

// Value returns the selected value for key.
func (a *Accumulator) Value(key string) (float64, bool) {
	e, ok := a.entries[key]
	if !ok {
		return 0, false
	}
	return e.value, true
}

func (a *Accumulator) Len() int { return len(a.order) }

// Total sums the selected value of every identity.
func (a *Accumulator) Total() float64 {
	if len(a.order) == 0 {
		return 0
	}
	values := make([]float64, len(a.order))
	for i, key := range a.order {
		values[i] = a.entries[key].value
	}
	return floats.Sum(values)
}

// AccountKey is the account code, or an MD5 of the normalized description
// when the code is absent.
func AccountKey(item fiscal.LineItem, normalizedDescription string) string {
	if item.AccountCode != "" {
		return item.AccountCode
	}
	sum := md5.Sum([]byte(normalizedDescription))
	return "md5:" + hex.EncodeToString(sum[:])
}
