package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/farxc/envelopa-rreo/internal/cache"
	"github.com/farxc/envelopa-rreo/internal/db"
	"github.com/farxc/envelopa-rreo/internal/env"
	"github.com/farxc/envelopa-rreo/internal/fetcher"
	"github.com/farxc/envelopa-rreo/internal/logger"
	"github.com/farxc/envelopa-rreo/internal/rreo"
	"github.com/farxc/envelopa-rreo/internal/siconfi"
	"github.com/farxc/envelopa-rreo/internal/store"
	"github.com/farxc/envelopa-rreo/internal/warmup"
)

// Deps is the dependency graph shared by the api, worker and sync binaries.
type Deps struct {
	Config  *env.Config
	Logger  *logger.Logger
	DB      *sqlx.DB
	Storage *store.Storage
	Redis   *redis.Client
	Service *rreo.Service
}

// SetupMetrics registers every collector of the pipeline on reg.
func SetupMetrics(reg prometheus.Registerer) {
	fetcher.SetupMetrics(reg)
	siconfi.SetupMetrics(reg)
	cache.SetupMetrics(reg)
	warmup.SetupMetrics(reg)
}

// Build connects the configured stores and wires the RREO service. The
// relational store is skipped when CACHE_BACKEND is none and DB_ADDR is empty.
func Build(ctx context.Context, cfg *env.Config, appLogger *logger.Logger) (*Deps, error) {
	const component = "Bootstrap"

	d := &Deps{Config: cfg, Logger: appLogger}

	if cfg.CacheBackend != env.CacheBackendNone || cfg.DB.Addr != "" {
		conn, err := db.New(cfg.DB.Addr, cfg.DB.MaxOpenConns, cfg.DB.MaxIdleConns, cfg.DB.MaxIdleTime)
		if err != nil {
			return nil, fmt.Errorf("failed to connect database: %w", err)
		}
		if err := db.Migrate(ctx, conn); err != nil {
			conn.Close()
			return nil, err
		}
		d.DB = conn
		d.Storage = store.NewStorage(conn)
		appLogger.Info(component, "Database connection pool established")
	}

	var persistent cache.Persistent
	switch cfg.CacheBackend {
	case env.CacheBackendPostgres:
		persistent = d.Storage.FiscalItems
	case env.CacheBackendRedis:
		d.Redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := d.Redis.Ping(ctx).Err(); err != nil {
			appLogger.Warn(component, "Redis ping failed, continuing: addr=%s err=%v", cfg.Redis.Addr, err)
		}
		persistent = cache.NewRedisTier(d.Redis, cfg.CacheTTL)
	}
	appLogger.Info(component, "Cache configured: backend=%s ttl=%s memoryTTL=%s", cfg.CacheBackend, cfg.CacheTTL, cfg.MemoryCacheTTL)

	limiter := fetcher.NewRateLimiter(cfg.Siconfi.RateInterval)
	f := fetcher.New(limiter, appLogger, fetcher.Options{
		Timeout:   cfg.Siconfi.Timeout,
		UserAgent: cfg.Siconfi.UserAgent,
	})
	client := siconfi.NewClient(f, siconfi.ConfigFromEnv(cfg.Siconfi), appLogger)

	c := cache.New(persistent, client.FetchRREO, cache.Options{
		TTL:       cfg.CacheTTL,
		MemoryTTL: cfg.MemoryCacheTTL,
	}, appLogger)

	var (
		entities rreo.EntityNamer
		catalog  rreo.AvailabilityLister
	)
	if d.Storage != nil {
		entities = d.Storage.Entities
		catalog = d.Storage.FiscalItems
	}
	d.Service = rreo.NewService(c, entities, catalog, appLogger)
	return d, nil
}

func (d *Deps) Close() {
	if d == nil {
		return
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}
