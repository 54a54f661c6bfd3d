package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/farxc/envelopa-rreo/internal/app"
	"github.com/farxc/envelopa-rreo/internal/env"
	"github.com/farxc/envelopa-rreo/internal/jobs"
	"github.com/farxc/envelopa-rreo/internal/logger"
	"github.com/farxc/envelopa-rreo/internal/warmup"
)

// warmupSchedule reads the optional nightly warm-up from WARMUP_CRON and
// WARMUP_ENTITIES. Both must be set.
func warmupSchedule() (*jobs.CronRegistration, error) {
	spec := env.GetString("WARMUP_CRON", "")
	entities := env.GetString("WARMUP_ENTITIES", "")
	if spec == "" || entities == "" {
		return nil, nil
	}

	var ids []string
	for _, id := range strings.Split(entities, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	year := time.Now().Year()
	task, err := jobs.NewWarmupTask(jobs.WarmupPayload{Scope: warmup.Scope{
		EntityIDs: ids,
		Years:     []int{year - 1, year},
		Periods:   []int{1, 2, 3, 4, 5, 6},
	}})
	if err != nil {
		return nil, err
	}
	return &jobs.CronRegistration{Spec: spec, Task: task, Options: []asynq.Option{asynq.MaxRetry(1)}}, nil
}

func main() {
	const component = "Worker"

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := env.Load()
	if err != nil {
		log.Fatal(err)
	}
	appLogger := logger.New(logger.ParseLevel(cfg.LogLevel))
	app.SetupMetrics(nil)

	deps, err := app.Build(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal(component, "Failed to build dependencies: err=%v", err)
	}
	defer deps.Close()

	metrics := jobs.NewMetrics(nil)
	refreshJob := jobs.NewRefreshJob(deps.Service, appLogger, metrics)
	warmupJob := &jobs.WarmupJob{
		Loader:       deps.Service,
		Logger:       appLogger,
		Metrics:      metrics,
		Concurrency:  env.GetInt("WARMUP_CONCURRENCY", 1),
		RefreshAfter: cfg.CacheTTL,
	}
	if deps.Storage != nil {
		warmupJob.History = deps.Storage.SyncHistory
	}

	var cron []jobs.CronRegistration
	schedule, err := warmupSchedule()
	if err != nil {
		appLogger.Fatal(component, "Failed to build warm-up schedule: err=%v", err)
	}
	if schedule != nil {
		cron = append(cron, *schedule)
		appLogger.Info(component, "Warm-up scheduled: spec=%s", schedule.Spec)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.Redis.Addr},
		Logger:      appLogger,
		Concurrency: env.GetInt("WORKER_CONCURRENCY", 2),
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRefresh, Handler: refreshJob.Handle},
			{Type: jobs.TaskWarmup, Handler: warmupJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		appLogger.Fatal(component, "Failed to init worker: err=%v", err)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Fatal(component, "Worker stopped: err=%v", err)
	}
}
