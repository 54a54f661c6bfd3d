package rreo

import (
	"context"
	"fmt"
	"time"

	"github.com/farxc/envelopa-rreo/internal/cache"
	"github.com/farxc/envelopa-rreo/internal/fiscal"
	"github.com/farxc/envelopa-rreo/internal/logger"
	"github.com/farxc/envelopa-rreo/internal/report"
	"github.com/farxc/envelopa-rreo/internal/store"
)

// EntityNamer resolves display names from the local entity registry.
type EntityNamer interface {
	EntityName(ctx context.Context, entityID string) (string, bool, error)
}

// AvailabilityLister lists the scopes cached for an entity.
type AvailabilityLister interface {
	Availability(ctx context.Context, entityID string) ([]store.CacheEntry, error)
}

// Result is a computed view plus the non-fatal problems met building it.
type Result[T any] struct {
	Data     T
	Source   cache.Source
	Warnings []error
}

type Service struct {
	cache    *cache.Cache
	entities EntityNamer
	catalog  AvailabilityLister
	logger   *logger.Logger
}

// NewService wires the dataset cache to the view builders. entities and
// catalog may be nil when no relational store is configured.
func NewService(c *cache.Cache, entities EntityNamer, catalog AvailabilityLister, log *logger.Logger) *Service {
	return &Service{cache: c, entities: entities, catalog: catalog, logger: log}
}

// Dataset returns the normalized items of a scope through the cache.
func (s *Service) Dataset(ctx context.Context, f fiscal.Filter) (*cache.Result, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return s.cache.Get(ctx, f)
}

func compute[T any](ctx context.Context, s *Service, f fiscal.Filter, build func([]fiscal.LineItem) T) (*Result[T], error) {
	res, err := s.Dataset(ctx, f)
	if err != nil {
		return nil, err
	}
	return &Result[T]{Data: build(res.Dataset.Items), Source: res.Source, Warnings: res.Warnings}, nil
}

func (s *Service) KPIs(ctx context.Context, f fiscal.Filter) (*Result[report.KPIs], error) {
	return compute(ctx, s, f, report.ComputeKPIs)
}

func (s *Service) Revenues(ctx context.Context, f fiscal.Filter) (*Result[report.Revenues], error) {
	return compute(ctx, s, f, report.ComputeRevenues)
}

func (s *Service) Expenses(ctx context.Context, f fiscal.Filter) (*Result[report.Expenses], error) {
	return compute(ctx, s, f, report.ComputeExpenses)
}

func (s *Service) Details(ctx context.Context, f fiscal.Filter) (*Result[report.Details], error) {
	return compute(ctx, s, f, report.ComputeDetails)
}

// YearUnavailableError records that one side of a comparison fell back to
// zero KPIs.
type YearUnavailableError struct {
	Year int
	Err  error
}

func (e *YearUnavailableError) Error() string {
	_, _, msg := Classify(e.Err)
	return fmt.Sprintf("year %d unavailable: %s", e.Year, msg)
}

func (e *YearUnavailableError) Unwrap() error { return e.Err }

// Comparison compares the scope with the same scope one year earlier. Only
// an invalid filter fails it; a year that cannot be loaded counts as all
// zero and is reported as a warning.
func (s *Service) Comparison(ctx context.Context, f fiscal.Filter) (*Result[report.Comparison], error) {
	const component = "Service"

	if err := f.Validate(); err != nil {
		return nil, err
	}

	out := &Result[report.Comparison]{}
	kpisFor := func(scope fiscal.Filter) report.KPIs {
		res, err := s.cache.Get(ctx, scope)
		if err != nil {
			s.logger.Warn(component, "Comparison year degraded to zero: scope=%s err=%v", scope.Key(), err)
			out.Warnings = append(out.Warnings, &YearUnavailableError{Year: scope.Year, Err: err})
			return report.ComputeKPIs(nil)
		}
		out.Warnings = append(out.Warnings, res.Warnings...)
		if out.Source == "" {
			out.Source = res.Source
		}
		return report.ComputeKPIs(res.Dataset.Items)
	}

	current := kpisFor(f)
	previous := kpisFor(f.PreviousYear())

	out.Data = report.Compare(current, previous)
	out.Data.CurrentYear = f.Year
	out.Data.PreviousYear = f.Year - 1
	return out, nil
}

// Dashboard is every view of one scope computed from a single dataset load.
type Dashboard struct {
	EntityName *string           `json:"entity_name"`
	UF         string            `json:"uf,omitempty"`
	AnnexLabel string            `json:"annex_label,omitempty"`
	FetchedAt  time.Time         `json:"fetched_at"`
	Truncated  bool              `json:"truncated"`
	KPIs       report.KPIs       `json:"kpis"`
	Revenues   report.Revenues   `json:"revenues"`
	Expenses   report.Expenses   `json:"expenses"`
	Comparison report.Comparison `json:"comparison"`
}

func (s *Service) Dashboard(ctx context.Context, f fiscal.Filter) (*Result[Dashboard], error) {
	res, err := s.Dataset(ctx, f)
	if err != nil {
		return nil, err
	}
	ds := res.Dataset

	cmp, err := s.Comparison(ctx, f)
	if err != nil {
		return nil, err
	}

	warnings := append([]error{}, res.Warnings...)
	warnings = append(warnings, cmp.Warnings...)

	return &Result[Dashboard]{
		Data: Dashboard{
			EntityName: s.EntityName(ctx, f.EntityID, ds),
			UF:         ds.Meta.UF,
			AnnexLabel: AnnexLabel(f.Annex),
			FetchedAt:  ds.FetchedAt,
			Truncated:  ds.Truncated,
			KPIs:       report.ComputeKPIs(ds.Items),
			Revenues:   report.ComputeRevenues(ds.Items),
			Expenses:   report.ComputeExpenses(ds.Items),
			Comparison: cmp.Data,
		},
		Source:   res.Source,
		Warnings: dedupeWarnings(warnings),
	}, nil
}

// EntityName resolves a display name from the entity registry, then from
// the dataset metadata. nil means unknown.
func (s *Service) EntityName(ctx context.Context, entityID string, ds *fiscal.Dataset) *string {
	const component = "Service"

	if s.entities != nil {
		name, ok, err := s.entities.EntityName(ctx, entityID)
		if err != nil {
			s.logger.Warn(component, "Entity lookup failed: id=%s err=%v", entityID, err)
		} else if ok && name != "" {
			return &name
		}
	}
	if ds != nil && ds.Meta.EntityName != "" {
		name := ds.Meta.EntityName
		return &name
	}
	return nil
}

// Availability lists the cached scopes of an entity.
func (s *Service) Availability(ctx context.Context, entityID string) ([]store.CacheEntry, error) {
	if entityID == "" {
		return nil, &fiscal.ValidationError{Fields: []string{"EntityID (required)"}}
	}
	if s.catalog == nil {
		return []store.CacheEntry{}, nil
	}
	entries, err := s.catalog.Availability(ctx, entityID)
	if err != nil {
		return nil, &cache.PersistenceError{Op: "availability", Err: err}
	}
	return entries, nil
}

// Refresh loads a scope from upstream and, on success, replaces the cached
// copy in both tiers. On failure the previous copy keeps being served.
func (s *Service) Refresh(ctx context.Context, f fiscal.Filter) (*cache.Result, error) {
	const component = "Service"

	if err := f.Validate(); err != nil {
		return nil, err
	}
	res, err := s.cache.Reload(ctx, f)
	if err != nil {
		s.logger.Warn(component, "Refresh failed, keeping cached copy: scope=%s err=%v", f.Key(), err)
		return nil, err
	}
	return res, nil
}

func dedupeWarnings(in []error) []error {
	seen := make(map[string]struct{}, len(in))
	out := make([]error, 0, len(in))
	for _, w := range in {
		if _, ok := seen[w.Error()]; ok {
			continue
		}
		seen[w.Error()] = struct{}{}
		out = append(out, w)
	}
	return out
}
