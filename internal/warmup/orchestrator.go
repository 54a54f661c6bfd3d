package warmup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/farxc/envelopa-rreo/internal/cache"
	"github.com/farxc/envelopa-rreo/internal/fiscal"
	"github.com/farxc/envelopa-rreo/internal/logger"
	"github.com/farxc/envelopa-rreo/internal/siconfi"
	"github.com/farxc/envelopa-rreo/internal/store"
)

type Job struct {
	Filter  fiscal.Filter
	Attempt int
	Trigger string
}

type Result struct {
	Job    Job
	ID     int64
	Status string
	Error  error
}

// Loader pre-loads one scope into the cache tiers.
type Loader interface {
	Dataset(ctx context.Context, f fiscal.Filter) (*cache.Result, error)
	Refresh(ctx context.Context, f fiscal.Filter) (*cache.Result, error)
}

// History persists one row per job and reads back the latest row per scope.
type History interface {
	InsertSyncHistory(ctx context.Context, history *store.SyncHistory) error
	UpdateSyncStatus(ctx context.Context, id int64, status, message string) error
	GetLatestByScope(ctx context.Context, fingerprints []string) ([]store.SyncHistory, error)
}

type Options struct {
	Concurrency int
	RetryLimit  int
	// StaleTimeout after which an in_progress record is considered abandoned.
	StaleTimeout time.Duration
	// RefreshAfter re-runs successful or skipped scopes older than this. Zero never does.
	RefreshAfter time.Duration
	// Force bypasses the history check and reloads through both cache tiers.
	Force bool
}

type Summary struct {
	RunID   string `json:"run_id"`
	Success int    `json:"success"`
	Skipped int    `json:"skipped"`
	Failure int    `json:"failure"`
	Ignored int    `json:"ignored"`
}

type Orchestrator struct {
	loader    Loader
	history   History
	appLogger *logger.Logger

	// Settings
	runID          string
	maxConcurrency int
	retryLimit     int
	staleTimeout   time.Duration
	refreshAfter   time.Duration
	force          bool
	now            func() time.Time

	// Internal State
	statusMap map[string]store.SyncHistory
	summary   Summary
	mu        sync.RWMutex
	wg        sync.WaitGroup
	pending   sync.WaitGroup
	done      chan struct{}

	// Channels
	jobChan    chan Job
	resultChan chan Result
}

// NewOrchestrator builds an orchestrator for one run. history may be nil,
// in which case nothing is persisted and every scope is processed.
func NewOrchestrator(loader Loader, history History, appLogger *logger.Logger, opts Options) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.RetryLimit <= 0 {
		opts.RetryLimit = 3
	}
	if opts.StaleTimeout <= 0 {
		opts.StaleTimeout = 30 * time.Minute
	}
	runID := uuid.NewString()
	return &Orchestrator{
		loader:         loader,
		history:        history,
		appLogger:      appLogger,
		runID:          runID,
		maxConcurrency: opts.Concurrency,
		retryLimit:     opts.RetryLimit,
		staleTimeout:   opts.StaleTimeout,
		refreshAfter:   opts.RefreshAfter,
		force:          opts.Force,
		now:            time.Now,
		statusMap:      make(map[string]store.SyncHistory),
		summary:        Summary{RunID: runID},
		done:           make(chan struct{}),
		jobChan:        make(chan Job, 100),
		resultChan:     make(chan Result, 100),
	}
}

func (o *Orchestrator) RunID() string { return o.runID }

// InitializeState loads the latest history record of every planned scope.
func (o *Orchestrator) InitializeState(ctx context.Context, jobs []Job) error {
	const component = "Orchestrator-Init"
	if o.history == nil {
		return nil
	}

	fingerprints := make([]string, 0, len(jobs))
	for _, job := range jobs {
		fingerprints = append(fingerprints, job.Filter.Fingerprint())
	}
	o.appLogger.Info(component, "Syncing initial state from database: scopes=%d", len(fingerprints))

	history, err := o.history.GetLatestByScope(ctx, fingerprints)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for _, h := range history {
		if existing, ok := o.statusMap[h.Fingerprint]; !ok || h.ProcessedAt.After(existing.ProcessedAt) {
			o.statusMap[h.Fingerprint] = h
		}
	}

	o.appLogger.Info(component, "State sync complete: scopesFound=%d", len(o.statusMap))
	return nil
}

func (o *Orchestrator) ShouldProcess(f fiscal.Filter) bool {
	if o.force {
		return true
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	h, ok := o.statusMap[f.Fingerprint()]
	if !ok {
		return true
	}

	switch h.Status {
	case store.StatusInProgress:
		return o.now().Sub(h.ProcessedAt) > o.staleTimeout
	case store.StatusSkipped, store.StatusSuccess:
		// A skipped scope is usually a bimester not filed yet; it ages out
		// like a successful one.
		return o.refreshAfter > 0 && o.now().Sub(h.ProcessedAt) > o.refreshAfter
	}
	return true
}

// Run processes jobs to completion, retries included, and returns the tally.
func (o *Orchestrator) Run(ctx context.Context, jobs []Job) Summary {
	const component = "Orchestrator"

	o.Start(ctx)
	for _, job := range jobs {
		if !o.ShouldProcess(job.Filter) {
			o.appLogger.Debug(component, "Scope up to date, ignoring: scope=%s", job.Filter.Key())
			o.mu.Lock()
			o.summary.Ignored++
			o.mu.Unlock()
			continue
		}
		o.AddJob(job)
	}
	o.pending.Wait()
	o.Close()
	o.Wait()

	s := o.Summary()
	o.appLogger.Info(component, "Run finished: runID=%s success=%d skipped=%d failure=%d ignored=%d",
		s.RunID, s.Success, s.Skipped, s.Failure, s.Ignored)
	return s
}

func (o *Orchestrator) Start(ctx context.Context) {
	const component = "Orchestrator"
	o.appLogger.Info(component, "Starting orchestrator: runID=%s concurrency=%d", o.runID, o.maxConcurrency)

	for i := 0; i < o.maxConcurrency; i++ {
		o.wg.Add(1)
		go o.worker(ctx, &o.wg)
	}

	go o.listenToResults()
}

// Wait blocks until workers and the feedback loop have drained.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
	close(o.resultChan)
	<-o.done
}

func (o *Orchestrator) AddJob(job Job) {
	if job.Attempt <= 0 {
		job.Attempt = 1
	}
	o.pending.Add(1)
	o.jobChan <- job
}

func (o *Orchestrator) Close() {
	close(o.jobChan)
}

func (o *Orchestrator) Summary() Summary {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.summary
}

func (o *Orchestrator) worker(ctx context.Context, wg *sync.WaitGroup) {
	const component = "Worker"
	defer wg.Done()

	for job := range o.jobChan {
		scope := job.Filter.Key()
		o.appLogger.Debug(component, "Processing job: scope=%s attempt=%d", scope, job.Attempt)

		history := &store.SyncHistory{
			RunID:       o.runID,
			Fingerprint: job.Filter.Fingerprint(),
			EntityID:    job.Filter.EntityID,
			Year:        job.Filter.Year,
			Period:      job.Filter.Period,
			ReportType:  string(job.Filter.ReportType),
			TriggerType: job.Trigger,
			Status:      store.StatusInProgress,
		}
		if o.history != nil {
			if err := o.history.InsertSyncHistory(ctx, history); err != nil {
				o.appLogger.Error(component, "Failed to create IN_PROGRESS record: scope=%s err=%v", scope, err)
				o.resultChan <- Result{Job: job, Status: store.StatusFailure, Error: err}
				continue
			}
		}

		result := o.process(ctx, job)
		result.ID = history.ID

		if o.history != nil {
			message := ""
			if result.Error != nil {
				message = result.Error.Error()
			}
			if err := o.history.UpdateSyncStatus(ctx, history.ID, result.Status, message); err != nil {
				o.appLogger.Error(component, "Failed to update final status: id=%d status=%s err=%v", history.ID, result.Status, err)
			}
		}

		o.resultChan <- result
	}
}

func (o *Orchestrator) process(ctx context.Context, job Job) Result {
	if err := ctx.Err(); err != nil {
		return Result{Job: job, Status: store.StatusFailure, Error: err}
	}

	load := o.loader.Dataset
	if o.force {
		load = o.loader.Refresh
	}
	res, err := load(ctx, job.Filter)
	switch {
	case errors.Is(err, siconfi.ErrNoData):
		return Result{Job: job, Status: store.StatusSkipped, Error: err}
	case err != nil:
		return Result{Job: job, Status: store.StatusFailure, Error: err}
	}

	for _, w := range res.Warnings {
		o.appLogger.Warn("Processor", "Scope loaded with warning: scope=%s warning=%v", job.Filter.Key(), w)
	}
	return Result{Job: job, Status: store.StatusSuccess}
}

func retryable(err error) bool {
	var verr *fiscal.ValidationError
	switch {
	case errors.As(err, &verr):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

func (o *Orchestrator) listenToResults() {
	const component = "Orchestrator-Feedback"
	defer close(o.done)

	for result := range o.resultChan {
		scope := result.Job.Filter.Key()

		switch {
		case result.Status == store.StatusSuccess:
			o.appLogger.Info(component, "Job completed successfully: scope=%s", scope)
			o.finish(result)
		case result.Status == store.StatusSkipped:
			o.appLogger.Info(component, "Job marked as skipped: scope=%s err=%v", scope, result.Error)
			o.finish(result)
		case result.Job.Attempt < o.retryLimit && retryable(result.Error):
			o.appLogger.Warn(component, "Job failed, queuing for retry: scope=%s attempt=%d err=%v", scope, result.Job.Attempt, result.Error)
			result.Job.Attempt++
			go o.requeue(result.Job)
		default:
			o.appLogger.Error(component, "Job failed after max retries: scope=%s attempt=%d err=%v", scope, result.Job.Attempt, result.Error)
			o.finish(result)
		}
	}
}

// requeue sends a retried job back without touching the pending count; the
// job is still outstanding.
func (o *Orchestrator) requeue(job Job) {
	o.jobChan <- job
}

func (o *Orchestrator) finish(result Result) {
	defer o.pending.Done()
	observeJob(result.Status)

	o.mu.Lock()
	defer o.mu.Unlock()

	switch result.Status {
	case store.StatusSuccess:
		o.summary.Success++
	case store.StatusSkipped:
		o.summary.Skipped++
	default:
		o.summary.Failure++
	}
	o.statusMap[result.Job.Filter.Fingerprint()] = store.SyncHistory{
		Fingerprint: result.Job.Filter.Fingerprint(),
		Status:      result.Status,
		ProcessedAt: o.now(),
	}
}
