package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/farxc/envelopa-rreo/internal/cache"
	"github.com/farxc/envelopa-rreo/internal/fiscal"
	"github.com/farxc/envelopa-rreo/internal/logger"
	"github.com/farxc/envelopa-rreo/internal/siconfi"
	"github.com/farxc/envelopa-rreo/internal/store"
	"github.com/farxc/envelopa-rreo/internal/warmup"
)

const (
	QueueDefault = "default"

	// TaskRefresh reloads one scope from upstream into both cache tiers.
	TaskRefresh = "rreo:refresh"
	// TaskWarmup pre-loads every scope of a warm-up plan.
	TaskWarmup = "rreo:warmup"
)

type RefreshPayload struct {
	Filter fiscal.Filter `json:"filter"`
}

func NewRefreshTask(f fiscal.Filter) (*asynq.Task, error) {
	data, err := json.Marshal(RefreshPayload{Filter: f})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRefresh, data), nil
}

type WarmupPayload struct {
	Scope warmup.Scope `json:"scope"`
	Force bool         `json:"force"`
}

func NewWarmupTask(payload WarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWarmup, data), nil
}

// Refresher is the part of the RREO service the refresh job drives.
type Refresher interface {
	Refresh(ctx context.Context, f fiscal.Filter) (*cache.Result, error)
}

type RefreshJob struct {
	Service Refresher
	Logger  *logger.Logger
	Metrics *Metrics
}

func NewRefreshJob(svc Refresher, log *logger.Logger, metrics *Metrics) *RefreshJob {
	return &RefreshJob{Service: svc, Logger: log, Metrics: metrics}
}

// Handle processes TaskRefresh. Malformed payloads, invalid filters and
// scopes without data are not retried.
func (j *RefreshJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	const component = "RefreshJob"

	if j == nil || j.Service == nil {
		return errors.New("refresh: handler not configured")
	}
	var payload RefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskRefresh)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	f := payload.Filter
	if err := f.Validate(); err != nil {
		j.Logger.Warn(component, "Rejected refresh payload: err=%v", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	res, err := j.Service.Refresh(ctx, f)
	switch {
	case errors.Is(err, siconfi.ErrNoData):
		j.Logger.Info(component, "No data for scope, not retrying: scope=%s", f.Key())
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	case err != nil:
		j.Logger.Error(component, "Refresh failed: scope=%s err=%v", f.Key(), err)
		return err
	}

	j.Logger.Info(component, "Scope refreshed: scope=%s items=%d warnings=%d", f.Key(), len(res.Dataset.Items), len(res.Warnings))
	return nil
}

// WarmupJob runs a warm-up orchestrator for a scheduled plan.
type WarmupJob struct {
	Loader      warmup.Loader
	History     warmup.History
	Logger      *logger.Logger
	Metrics     *Metrics
	Concurrency int

	// RefreshAfter is passed to the orchestrator so aged successful and
	// skipped scopes are loaded again.
	RefreshAfter time.Duration
}

func (j *WarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	const component = "WarmupJob"

	if j == nil || j.Loader == nil {
		return errors.New("warmup: handler not configured")
	}
	var payload WarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	plan := warmup.Plan(payload.Scope, store.TriggerTypeScheduled)
	if len(plan) == 0 {
		j.Logger.Info(component, "Empty warm-up plan, nothing to do")
		return nil
	}

	o := warmup.NewOrchestrator(j.Loader, j.History, j.Logger, warmup.Options{
		Concurrency:  j.Concurrency,
		RefreshAfter: j.RefreshAfter,
		Force:        payload.Force,
	})
	if err := o.InitializeState(ctx, plan); err != nil {
		return err
	}
	summary := o.Run(ctx, plan)
	if summary.Failure > 0 {
		return fmt.Errorf("warm-up run %s: %d of %d scopes failed", summary.RunID, summary.Failure, len(plan))
	}
	return nil
}
