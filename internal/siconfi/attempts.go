package siconfi

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/farxc/envelopa-rreo/internal/fiscal"
)

// Upstream query parameter names.
const (
	ParamYear        = "an_exercicio"
	ParamPeriod      = "nr_periodo"
	ParamReportType  = "co_tipo_demonstrativo"
	ParamAnnex       = "no_anexo"
	ParamSphere      = "co_esfera"
	ParamEntity      = "id_ente"
	ParamPeriodicity = "co_periodicidade"
	paramLimit       = "limit"
	paramOffset      = "offset"
)

// BimonthlyPeriodicity is the hint applied to periods 1..6 when no explicit
// default is configured.
const BimonthlyPeriodicity = "B"

// Attempt is one concrete upstream parameter set.
type Attempt map[string]string

// Key is the canonical sorted form used to compare attempts.
func (a Attempt) Key() string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(a[k])
		b.WriteByte('&')
	}
	return b.String()
}

// Values returns the attempt as url.Values.
func (a Attempt) Values() url.Values {
	v := make(url.Values, len(a))
	for k, val := range a {
		v.Set(k, val)
	}
	return v
}

func (a Attempt) clone() Attempt {
	out := make(Attempt, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

func (a Attempt) without(key string) Attempt {
	out := a.clone()
	delete(out, key)
	return out
}

// BaseAttempt maps a filter plus extra static parameters to the upstream
// parameter set, keeping only non-empty values.
func BaseAttempt(f fiscal.Filter, extra map[string]string) Attempt {
	a := Attempt{}
	set := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			a[k] = v
		}
	}
	if f.Year > 0 {
		set(ParamYear, strconv.Itoa(f.Year))
	}
	if f.Period > 0 {
		set(ParamPeriod, strconv.Itoa(f.Period))
	}
	set(ParamReportType, string(f.ReportType))
	set(ParamAnnex, f.Annex)
	set(ParamSphere, string(f.Sphere))
	set(ParamEntity, f.EntityID)
	set(ParamPeriodicity, f.Periodicity)
	for k, v := range extra {
		set(k, v)
	}
	return a
}

// periodicityFor returns the hint to add for a period, or "" for none.
func periodicityFor(period int, configured string) string {
	if configured != "" {
		return configured
	}
	if period >= 1 && period <= 6 {
		return BimonthlyPeriodicity
	}
	return ""
}

// BuildAttempts expands a filter into the ordered, de-duplicated list of
// parameter sets to try, most specific first:
//
//  1. base + periodicity hint
//  2. base + periodicity hint, without sphere
//  3. base
//  4. base without sphere
//
// Variants that do not apply (hint already present, no sphere) collapse
// into earlier ones and are removed.
func BuildAttempts(f fiscal.Filter, defaultPeriodicity string, extra map[string]string) []Attempt {
	base := BaseAttempt(f, extra)

	var candidates []Attempt
	if _, present := base[ParamPeriodicity]; !present {
		if hint := periodicityFor(f.Period, defaultPeriodicity); hint != "" {
			withHint := base.clone()
			withHint[ParamPeriodicity] = hint
			candidates = append(candidates, withHint)
			if _, ok := withHint[ParamSphere]; ok {
				candidates = append(candidates, withHint.without(ParamSphere))
			}
		}
	}
	candidates = append(candidates, base)
	if _, ok := base[ParamSphere]; ok {
		candidates = append(candidates, base.without(ParamSphere))
	}

	seen := make(map[string]struct{}, len(candidates))
	attempts := make([]Attempt, 0, len(candidates))
	for _, c := range candidates {
		key := c.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		attempts = append(attempts, c)
	}
	return attempts
}
