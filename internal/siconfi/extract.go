package siconfi

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/farxc/envelopa-rreo/internal/fetcher"
	"github.com/farxc/envelopa-rreo/internal/fiscal"
)

// envelope is the resolved shape of an upstream body.
type envelope interface {
	records() []any
}

// ItemsEnvelope is an object carrying its records under "items" (or
// "value") plus optional continuation hints.
type ItemsEnvelope struct {
	Items   []any
	HasMore bool
	Links   []any
}

func (e ItemsEnvelope) records() []any { return e.Items }

// BareList is a body that is itself the list of records.
type BareList []any

func (l BareList) records() []any { return l }

// Unrecognized is an object with no known record list. It yields nothing.
type Unrecognized struct{}

func (Unrecognized) records() []any { return nil }

var envelopeItemKeys = []string{"items", "value"}

func classify(body any) (envelope, error) {
	switch v := body.(type) {
	case []any:
		return BareList(v), nil
	case map[string]any:
		for _, key := range envelopeItemKeys {
			if list, ok := v[key].([]any); ok {
				env := ItemsEnvelope{Items: list, HasMore: truthy(v["hasMore"])}
				env.Links, _ = v["links"].([]any)
				return env, nil
			}
		}
		return Unrecognized{}, nil
	default:
		return nil, &fetcher.MalformedResponseError{Reason: fmt.Sprintf("unexpected top-level %T", body)}
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	default:
		return false
	}
}

// Page is the normalized content of one upstream response.
type Page struct {
	Items    []fiscal.LineItem
	Meta     fiscal.Metadata
	HasMore  bool
	NextLink string
	Dropped  int
}

// ExtractPage resolves the body shape, normalizes every record and finds the
// continuation link, resolving relative hrefs against baseURL.
func ExtractPage(body any, baseURL string) (Page, error) {
	env, err := classify(body)
	if err != nil {
		return Page{}, err
	}

	var page Page
	if items, ok := env.(ItemsEnvelope); ok {
		page.HasMore = items.HasMore
		page.NextLink = nextLink(items.Links, baseURL)
	}

	records := env.records()
	page.Items = make([]fiscal.LineItem, 0, len(records))
	for _, rec := range records {
		raw := foldKeys(rec)
		if raw == nil {
			page.Dropped++
			continue
		}
		if page.Meta == (fiscal.Metadata{}) {
			page.Meta = metadataOf(raw)
		}
		item, ok := lineItem(raw)
		if !ok {
			page.Dropped++
			continue
		}
		page.Items = append(page.Items, item)
	}
	return page, nil
}

// foldKeys lowercases record keys. An exact lowercase key wins over a
// differently cased duplicate.
func foldKeys(rec any) map[string]any {
	m, ok := rec.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		lk := strings.ToLower(k)
		if _, exists := out[lk]; exists && k != lk {
			continue
		}
		out[lk] = v
	}
	return out
}

var (
	codeKeys        = []string{"cd_conta", "cod_conta"}
	descriptionKeys = []string{"ds_conta", "conta"}
	columnKeys      = []string{"coluna"}
	valueKeys       = []string{"valor", "vl_ate_periodo", "vl_realizado", "vl_atualizado", "vl_previsto"}
	entityNameKeys  = []string{"instituicao", "no_ente"}
	ufKeys          = []string{"uf", "sg_uf"}
)

func lineItem(raw map[string]any) (fiscal.LineItem, bool) {
	item := fiscal.LineItem{
		AccountCode:        firstText(raw, codeKeys),
		AccountDescription: firstText(raw, descriptionKeys),
		ColumnLabel:        firstText(raw, columnKeys),
	}
	if item.AccountCode == "" && item.AccountDescription == "" {
		return item, false
	}
	if item.ColumnLabel == "" {
		return item, false
	}
	for _, key := range valueKeys {
		if v, ok := fiscal.ParseAmount(raw[key]); ok {
			item.Value = v
			return item, true
		}
	}
	return item, false
}

func metadataOf(raw map[string]any) fiscal.Metadata {
	return fiscal.Metadata{
		EntityName: firstText(raw, entityNameKeys),
		UF:         firstText(raw, ufKeys),
	}
}

func firstText(raw map[string]any, keys []string) string {
	for _, key := range keys {
		if s := text(raw[key]); s != "" {
			return s
		}
	}
	return ""
}

func text(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return fmt.Sprintf("%v", t)
	default:
		return ""
	}
}

func nextLink(links []any, baseURL string) string {
	for _, l := range links {
		link, ok := l.(map[string]any)
		if !ok {
			continue
		}
		rel, _ := link["rel"].(string)
		href, _ := link["href"].(string)
		if rel == "next" && href != "" {
			return resolveLink(href, baseURL)
		}
	}
	return ""
}

// resolveLink resolves href as a URL reference against baseURL, which is
// treated as a directory. Absolute hrefs are returned verbatim.
func resolveLink(href, baseURL string) string {
	ref, err := url.Parse(href)
	if err != nil || ref.IsAbs() {
		return href
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
