package main

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/farxc/envelopa-rreo/internal/fiscal"
)

// filterFromQuery reads a scope from the SICONFI-named query parameters.
// The report type defaults to the full RREO.
func filterFromQuery(r *http.Request) (fiscal.Filter, error) {
	q := r.URL.Query()

	f := fiscal.Filter{
		EntityID:    strings.TrimSpace(q.Get("id_ente")),
		ReportType:  fiscal.ReportType(q.Get("co_tipo_demonstrativo")),
		Annex:       strings.TrimSpace(q.Get("no_anexo")),
		Sphere:      fiscal.Sphere(strings.ToUpper(strings.TrimSpace(q.Get("co_esfera")))),
		Periodicity: strings.TrimSpace(q.Get("co_periodicidade")),
	}
	if f.ReportType == "" {
		f.ReportType = fiscal.ReportFull
	}

	var bad []string
	if v := q.Get("an_exercicio"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			bad = append(bad, "an_exercicio (integer)")
		}
		f.Year = year
	}
	if v := q.Get("nr_periodo"); v != "" {
		period, err := strconv.Atoi(v)
		if err != nil {
			bad = append(bad, "nr_periodo (integer)")
		}
		f.Period = period
	}
	if len(bad) > 0 {
		return f, &fiscal.ValidationError{Fields: bad}
	}

	return f, f.Validate()
}

func intParam(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
