package aggregate

import (
	"bytes"
	"encoding/json"

	"gonum.org/v1/gonum/floats"
)

// Entry is one labelled total.
type Entry struct {
	Label string
	Total float64
}

// Totals is an ordered list of labelled totals. It marshals to a JSON object
// whose keys keep the slice order.
type Totals []Entry

// Get returns the total for label, or 0.
func (t Totals) Get(label string) float64 {
	for _, e := range t {
		if e.Label == label {
			return e.Total
		}
	}
	return 0
}

func (t Totals) Sum() float64 {
	if len(t) == 0 {
		return 0
	}
	values := make([]float64, len(t))
	for i, e := range t {
		values[i] = e.Total
	}
	return floats.Sum(values)
}

func (t Totals) Labels() []string {
	out := make([]string, len(t))
	for i, e := range t {
		out[i] = e.Label
	}
	return out
}

func (t Totals) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Label)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Total)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
