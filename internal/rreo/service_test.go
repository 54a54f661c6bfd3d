package rreo

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farxc/envelopa-rreo/internal/cache"
	"github.com/farxc/envelopa-rreo/internal/fetcher"
	"github.com/farxc/envelopa-rreo/internal/fiscal"
	"github.com/farxc/envelopa-rreo/internal/logger"
	"github.com/farxc/envelopa-rreo/internal/siconfi"
	"github.com/farxc/envelopa-rreo/internal/store"
)

func testFilter() fiscal.Filter {
	return fiscal.Filter{EntityID: "3550308", Year: 2024, Period: 6, ReportType: fiscal.ReportFull}
}

func itemsByYear() map[int][]fiscal.LineItem {
	return map[int][]fiscal.LineItem{
		2024: {
			{AccountCode: "RO1", AccountDescription: "Receitas Correntes", ColumnLabel: "Realizado", Value: 250},
			{AccountCode: "DO1", AccountDescription: "Pessoal e Encargos Sociais", ColumnLabel: "Liquidado", Value: 100},
		},
		2023: {
			{AccountCode: "RO1", AccountDescription: "Receitas Correntes", ColumnLabel: "Realizado", Value: 200},
			{AccountCode: "DO1", AccountDescription: "Pessoal e Encargos Sociais", ColumnLabel: "Liquidado", Value: 100},
		},
	}
}

func newTestService(data map[int][]fiscal.LineItem, failures map[int]error) *Service {
	loader := func(_ context.Context, f fiscal.Filter) (*fiscal.Dataset, error) {
		if err, ok := failures[f.Year]; ok {
			return nil, err
		}
		items, ok := data[f.Year]
		if !ok {
			return nil, siconfi.ErrNoData
		}
		return &fiscal.Dataset{Filter: f, Items: items, Meta: fiscal.Metadata{EntityName: "Prefeitura de São Paulo", UF: "SP"}, FetchedAt: time.Now()}, nil
	}
	c := cache.New(nil, loader, cache.Options{MemoryTTL: time.Minute}, logger.Discard())
	return NewService(c, nil, nil, logger.Discard())
}

func TestServiceKPIs(t *testing.T) {
	svc := newTestService(itemsByYear(), nil)
	res, err := svc.KPIs(context.Background(), testFilter())
	require.NoError(t, err)
	assert.InDelta(t, 250.0, res.Data.RevenueTotal, 1e-9)
	assert.InDelta(t, 100.0, res.Data.ExpenseTotal, 1e-9)
	assert.InDelta(t, 150.0, res.Data.BudgetResult, 1e-9)
	assert.Equal(t, cache.SourceUpstream, res.Source)
}

func TestServiceRejectsInvalidFilter(t *testing.T) {
	svc := newTestService(itemsByYear(), nil)
	f := testFilter()
	f.Period = 9
	_, err := svc.KPIs(context.Background(), f)
	kind, status, _ := Classify(err)
	assert.Equal(t, KindInvalidRequest, kind)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestServiceComparison(t *testing.T) {
	svc := newTestService(itemsByYear(), nil)
	res, err := svc.Comparison(context.Background(), testFilter())
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 2024, res.Data.CurrentYear)
	assert.Equal(t, 2023, res.Data.PreviousYear)
	require.NotNil(t, res.Data.RevenueTotal.VariationPercent)
	assert.InDelta(t, 25.0, *res.Data.RevenueTotal.VariationPercent, 1e-9)
}

func TestServiceComparisonDegradesFailedYearToZero(t *testing.T) {
	data := itemsByYear()
	delete(data, 2023)
	svc := newTestService(data, nil)

	res, err := svc.Comparison(context.Background(), testFilter())
	require.NoError(t, err)
	assert.InDelta(t, 250.0, res.Data.RevenueTotal.Current, 1e-9)
	assert.Zero(t, res.Data.RevenueTotal.Previous)
	assert.Nil(t, res.Data.RevenueTotal.VariationPercent)
	require.Len(t, res.Warnings, 1)

	var yearErr *YearUnavailableError
	require.True(t, errors.As(res.Warnings[0], &yearErr))
	assert.Equal(t, 2023, yearErr.Year)
	kind, _, _ := Classify(res.Warnings[0])
	assert.Equal(t, KindNoData, kind)
}

func TestServiceComparisonSurvivesBothYearsFailing(t *testing.T) {
	boom := &fetcher.StatusError{StatusCode: 503}
	svc := newTestService(nil, map[int]error{2024: boom, 2023: boom})

	res, err := svc.Comparison(context.Background(), testFilter())
	require.NoError(t, err)
	assert.Zero(t, res.Data.RevenueTotal.Current)
	assert.Len(t, res.Warnings, 2)
}

func TestServiceDashboard(t *testing.T) {
	svc := newTestService(itemsByYear(), nil)
	f := testFilter()
	f.Annex = "RREO-Anexo 01"

	res, err := svc.Dashboard(context.Background(), f)
	require.NoError(t, err)
	require.NotNil(t, res.Data.EntityName)
	assert.Equal(t, "Prefeitura de São Paulo", *res.Data.EntityName)
	assert.Equal(t, "Balanço Orçamentário", res.Data.AnnexLabel)
	assert.InDelta(t, 250.0, res.Data.KPIs.RevenueTotal, 1e-9)
	assert.InDelta(t, 100.0, res.Data.Expenses.Personnel, 1e-9)
	assert.NotNil(t, res.Data.Comparison.RevenueTotal.VariationPercent)
}

type fakeRegistry struct {
	names   map[string]string
	entries []store.CacheEntry
	err     error
}

func (r *fakeRegistry) EntityName(_ context.Context, id string) (string, bool, error) {
	if r.err != nil {
		return "", false, r.err
	}
	name, ok := r.names[id]
	return name, ok, nil
}

func (r *fakeRegistry) Availability(context.Context, string) ([]store.CacheEntry, error) {
	return r.entries, r.err
}

func TestServiceEntityNamePrefersRegistry(t *testing.T) {
	reg := &fakeRegistry{names: map[string]string{"3550308": "São Paulo"}}
	svc := NewService(nil, reg, reg, logger.Discard())
	ds := &fiscal.Dataset{Meta: fiscal.Metadata{EntityName: "Prefeitura Municipal de São Paulo"}}

	assert.Equal(t, "São Paulo", *svc.EntityName(context.Background(), "3550308", ds))
	assert.Equal(t, "Prefeitura Municipal de São Paulo", *svc.EntityName(context.Background(), "1", ds))
	assert.Nil(t, svc.EntityName(context.Background(), "1", nil))

	reg.err = errors.New("db down")
	assert.Equal(t, "Prefeitura Municipal de São Paulo", *svc.EntityName(context.Background(), "3550308", ds))
}

func TestServiceAvailability(t *testing.T) {
	reg := &fakeRegistry{entries: []store.CacheEntry{{EntityID: "3550308", Year: 2024, Period: 6}}}
	svc := NewService(nil, nil, reg, logger.Discard())

	entries, err := svc.Availability(context.Background(), "3550308")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = svc.Availability(context.Background(), "")
	kind, _, _ := Classify(err)
	assert.Equal(t, KindInvalidRequest, kind)

	reg.err = errors.New("db down")
	_, err = svc.Availability(context.Background(), "3550308")
	kind, _, _ = Classify(err)
	assert.Equal(t, KindPersistence, kind)
}

func TestServiceRefreshReloads(t *testing.T) {
	calls := 0
	loader := func(_ context.Context, f fiscal.Filter) (*fiscal.Dataset, error) {
		calls++
		return &fiscal.Dataset{Filter: f}, nil
	}
	svc := NewService(cache.New(nil, loader, cache.Options{MemoryTTL: time.Minute}, nil), nil, nil, nil)

	_, err := svc.Dataset(context.Background(), testFilter())
	require.NoError(t, err)
	_, err = svc.Dataset(context.Background(), testFilter())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	res, err := svc.Refresh(context.Background(), testFilter())
	require.NoError(t, err)
	assert.Equal(t, cache.SourceUpstream, res.Source)
	assert.Equal(t, 2, calls)
}

func TestServiceRefreshFailureKeepsCachedDataset(t *testing.T) {
	failing := false
	loader := func(_ context.Context, f fiscal.Filter) (*fiscal.Dataset, error) {
		if failing {
			return nil, &fetcher.StatusError{StatusCode: 503}
		}
		return &fiscal.Dataset{Filter: f, Items: itemsByYear()[2024], FetchedAt: time.Now()}, nil
	}
	svc := NewService(cache.New(nil, loader, cache.Options{MemoryTTL: time.Minute}, nil), nil, nil, nil)

	_, err := svc.KPIs(context.Background(), testFilter())
	require.NoError(t, err)

	failing = true
	_, err = svc.Refresh(context.Background(), testFilter())
	kind, _, _ := Classify(err)
	assert.Equal(t, KindUpstreamUnavailable, kind)

	res, err := svc.KPIs(context.Background(), testFilter())
	require.NoError(t, err)
	assert.Equal(t, cache.SourceMemory, res.Source)
	assert.InDelta(t, 250.0, res.Data.RevenueTotal, 1e-9)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		kind   Kind
		status int
	}{
		{siconfi.ErrNoData, KindNoData, http.StatusNotFound},
		{&fetcher.TransportError{Err: errors.New("dial tcp: lookup apidatalake")}, KindUpstreamUnavailable, http.StatusBadGateway},
		{&fetcher.StatusError{StatusCode: 500}, KindUpstreamUnavailable, http.StatusBadGateway},
		{&fetcher.MalformedResponseError{Reason: "x"}, KindUpstreamUnavailable, http.StatusBadGateway},
		{&cache.PersistenceError{Op: "read", Err: errors.New("x")}, KindPersistence, http.StatusInternalServerError},
		{context.DeadlineExceeded, KindUpstreamUnavailable, http.StatusGatewayTimeout},
		{errors.New("boom"), KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		kind, status, msg := Classify(tc.err)
		assert.Equal(t, tc.kind, kind, tc.err.Error())
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.NotContains(t, msg, "apidatalake")
	}
}

func TestAnnexLabel(t *testing.T) {
	assert.Len(t, Annexes(), 7)
	assert.Equal(t, "Demonstrativo do Resultado Primário e Nominal", AnnexLabel("RREO-Anexo 06"))
	assert.Equal(t, "RREO-Anexo 99", AnnexLabel("RREO-Anexo 99"))
	assert.Equal(t, "", AnnexLabel(""))
}
