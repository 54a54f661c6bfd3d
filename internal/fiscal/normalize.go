package fiscal

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ParseAmount converts an upstream amount into a float. Numbers pass through
// unchanged. Strings containing a comma use the Brazilian convention
// ("1.234,56"); strings without a comma are read with a dot decimal unless
// they carry more than one dot, in which case the dots are thousands
// separators. ok is false for nil, empty or unparseable input.
func ParseAmount(raw any) (value float64, ok bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		return parseAmountString(string(v))
	case string:
		return parseAmountString(v)
	default:
		return 0, false
	}
}

func parseAmountString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, false
	}

	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// NormalizeLabel produces the comparison form of an account description:
// trimmed, single-spaced, without Latin diacritics and lowercased.
func NormalizeLabel(raw string) string {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return ""
	}
	// Chained transformers keep state, so each call builds its own.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(stripMarks, s)
	if err == nil {
		s = stripped
	}
	return strings.ToLower(s)
}
