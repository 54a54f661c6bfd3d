package warmup

import (
	"context"
	"sync"
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

type fakeLoader struct {
	mu        sync.Mutex
	calls     map[string]int
	refreshes int
	// failures maps an entity id to the errors returned on successive calls.
	failures map[string][]error
}

func (l *fakeLoader) load(f fiscal.Filter) (*cache.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.calls == nil {
		l.calls = map[string]int{}
	}
	n := l.calls[f.EntityID]
	l.calls[f.EntityID]++
	if errs := l.failures[f.EntityID]; n < len(errs) && errs[n] != nil {
		return nil, errs[n]
	}
	return &cache.Result{Dataset: &fiscal.Dataset{Filter: f}, Source: cache.SourceUpstream}, nil
}

func (l *fakeLoader) Dataset(_ context.Context, f fiscal.Filter) (*cache.Result, error) {
	return l.load(f)
}

func (l *fakeLoader) Refresh(_ context.Context, f fiscal.Filter) (*cache.Result, error) {
	l.mu.Lock()
	l.refreshes++
	l.mu.Unlock()
	return l.load(f)
}

func (l *fakeLoader) callsFor(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[id]
}

type fakeHistory struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*store.SyncHistory
	latest []store.SyncHistory
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{rows: map[int64]*store.SyncHistory{}}
}

func (h *fakeHistory) InsertSyncHistory(_ context.Context, row *store.SyncHistory) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	row.ID = h.nextID
	cp := *row
	h.rows[row.ID] = &cp
	return nil
}

func (h *fakeHistory) UpdateSyncStatus(_ context.Context, id int64, status, message string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rows[id].Status = status
	h.rows[id].Message = message
	return nil
}

func (h *fakeHistory) GetLatestByScope(context.Context, []string) ([]store.SyncHistory, error) {
	return h.latest, nil
}

func (h *fakeHistory) statuses() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := map[string]int{}
	for _, r := range h.rows {
		out[r.Status]++
	}
	return out
}

func jobFor(id string) Job {
	return Job{
		Filter:  fiscal.Filter{EntityID: id, Year: 2024, Period: 6, ReportType: fiscal.ReportFull},
		Trigger: store.TriggerTypeManual,
	}
}

func TestRunOutcomes(t *testing.T) {
	upstreamDown := &fetcher.StatusError{StatusCode: 503}
	loader := &fakeLoader{failures: map[string][]error{
		"nodata": {siconfi.ErrNoData},
		"flaky":  {upstreamDown, upstreamDown},
		"down":   {upstreamDown, upstreamDown, upstreamDown, upstreamDown},
	}}
	history := newFakeHistory()
	o := NewOrchestrator(loader, history, logger.Discard(), Options{Concurrency: 2})

	summary := o.Run(context.Background(), []Job{jobFor("ok"), jobFor("nodata"), jobFor("flaky"), jobFor("down")})

	assert.Equal(t, o.RunID(), summary.RunID)
	assert.Equal(t, 2, summary.Success)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Failure)

	assert.Equal(t, 1, loader.callsFor("nodata"), "no data is never retried")
	assert.Equal(t, 3, loader.callsFor("flaky"))
	assert.Equal(t, 3, loader.callsFor("down"), "retry limit caps attempts")

	// one row per attempt: ok 1, nodata 1, flaky 3, down 3
	assert.Equal(t, map[string]int{
		store.StatusSuccess: 2,
		store.StatusSkipped: 1,
		store.StatusFailure: 5,
	}, history.statuses())
}

func TestRunDoesNotRetryInvalidFilter(t *testing.T) {
	loader := &fakeLoader{failures: map[string][]error{
		"bad": {&fiscal.ValidationError{Fields: []string{"Period (max)"}}},
	}}
	o := NewOrchestrator(loader, nil, logger.Discard(), Options{})

	summary := o.Run(context.Background(), []Job{jobFor("bad")})
	assert.Equal(t, 1, summary.Failure)
	assert.Equal(t, 1, loader.callsFor("bad"))
}

func TestShouldProcessFromHistory(t *testing.T) {
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	fp := func(id string) string { return jobFor(id).Filter.Fingerprint() }

	history := newFakeHistory()
	history.latest = []store.SyncHistory{
		{Fingerprint: fp("fresh"), Status: store.StatusSuccess, ProcessedAt: now.Add(-time.Hour)},
		{Fingerprint: fp("old"), Status: store.StatusSuccess, ProcessedAt: now.Add(-48 * time.Hour)},
		{Fingerprint: fp("skipped"), Status: store.StatusSkipped, ProcessedAt: now.Add(-time.Hour)},
		{Fingerprint: fp("skipped-long-ago"), Status: store.StatusSkipped, ProcessedAt: now.Add(-90 * 24 * time.Hour)},
		{Fingerprint: fp("running"), Status: store.StatusInProgress, ProcessedAt: now.Add(-5 * time.Minute)},
		{Fingerprint: fp("stale"), Status: store.StatusInProgress, ProcessedAt: now.Add(-2 * time.Hour)},
		{Fingerprint: fp("failed"), Status: store.StatusFailure, ProcessedAt: now.Add(-time.Hour)},
	}

	o := NewOrchestrator(&fakeLoader{}, history, logger.Discard(), Options{RefreshAfter: 24 * time.Hour})
	o.now = func() time.Time { return now }

	jobs := []Job{jobFor("fresh"), jobFor("old"), jobFor("skipped"), jobFor("skipped-long-ago"), jobFor("running"), jobFor("stale"), jobFor("failed"), jobFor("new")}
	require.NoError(t, o.InitializeState(context.Background(), jobs))

	want := map[string]bool{
		"fresh": false, "old": true, "skipped": false, "skipped-long-ago": true, "running": false,
		"stale": true, "failed": true, "new": true,
	}
	for id, expected := range want {
		assert.Equal(t, expected, o.ShouldProcess(jobFor(id).Filter), id)
	}
}

func TestRunIgnoresUpToDateScopesAndForceRefreshes(t *testing.T) {
	history := newFakeHistory()
	history.latest = []store.SyncHistory{
		{Fingerprint: jobFor("fresh").Filter.Fingerprint(), Status: store.StatusSuccess, ProcessedAt: time.Now()},
	}

	loader := &fakeLoader{}
	o := NewOrchestrator(loader, history, logger.Discard(), Options{})
	jobs := []Job{jobFor("fresh")}
	require.NoError(t, o.InitializeState(context.Background(), jobs))
	summary := o.Run(context.Background(), jobs)
	assert.Equal(t, 1, summary.Ignored)
	assert.Zero(t, loader.callsFor("fresh"))

	forced := NewOrchestrator(loader, history, logger.Discard(), Options{Force: true})
	require.NoError(t, forced.InitializeState(context.Background(), jobs))
	summary = forced.Run(context.Background(), jobs)
	assert.Equal(t, 1, summary.Success)
	assert.Equal(t, 1, loader.refreshes)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loader := &fakeLoader{}
	o := NewOrchestrator(loader, nil, logger.Discard(), Options{})
	summary := o.Run(ctx, []Job{jobFor("a"), jobFor("b")})

	assert.Equal(t, 2, summary.Failure)
	assert.Zero(t, loader.callsFor("a"))
}

func TestPlan(t *testing.T) {
	jobs := Plan(Scope{
		EntityIDs: []string{"3550308", "33"},
		Years:     []int{2024},
		Periods:   []int{1, 2, 7},
	}, store.TriggerTypeScheduled)

	require.Len(t, jobs, 4)
	assert.Equal(t, 2, jobs[0].Filter.Period)
	assert.Equal(t, 1, jobs[1].Filter.Period)
	assert.Equal(t, fiscal.ReportFull, jobs[0].Filter.ReportType)
	assert.Equal(t, "33", jobs[2].Filter.EntityID)
	assert.Equal(t, 1, jobs[0].Attempt)
	assert.Equal(t, store.TriggerTypeScheduled, jobs[0].Trigger)
	assert.NoError(t, jobs[0].Filter.Validate())
}
