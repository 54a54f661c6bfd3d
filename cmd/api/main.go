package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/farxc/envelopa-rreo/internal/app"
	"github.com/farxc/envelopa-rreo/internal/env"
	"github.com/farxc/envelopa-rreo/internal/jobs"
	"github.com/farxc/envelopa-rreo/internal/logger"
)

func main() {
	const component = "Main"

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := env.Load()
	if err != nil {
		log.Fatal(err)
	}
	appLogger := logger.New(logger.ParseLevel(cfg.LogLevel))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.SetupMetrics(registry)

	deps, err := app.Build(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal(component, "Failed to build dependencies: err=%v", err)
	}
	defer deps.Close()

	api := &application{
		config:  cfg,
		logger:  appLogger,
		service: deps.Service,
		store:   deps.Storage,
		metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	if deps.DB != nil {
		api.db = deps.DB
	}
	if cfg.Redis.Addr != "" {
		queue := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr})
		defer queue.Close()
		api.queue = queue
	}

	mux := api.mount()

	if err := api.run(ctx, mux); err != nil {
		appLogger.Fatal(component, "Server stopped: err=%v", err)
	}
}
