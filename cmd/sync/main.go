package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/farxc/envelopa-rreo/internal/app"
	"github.com/farxc/envelopa-rreo/internal/env"
	"github.com/farxc/envelopa-rreo/internal/fiscal"
	"github.com/farxc/envelopa-rreo/internal/ibge"
	"github.com/farxc/envelopa-rreo/internal/logger"
	"github.com/farxc/envelopa-rreo/internal/store"
	"github.com/farxc/envelopa-rreo/internal/warmup"
)

func syncEntities(ctx context.Context, cfg *env.Config, storage *store.Storage, appLogger *logger.Logger) error {
	const component = "EntitySync"

	client := ibge.NewClient(cfg.IBGE.BaseURL, cfg.IBGE.Timeout, appLogger)

	states, err := client.States(ctx)
	if err != nil {
		return err
	}
	if err := storage.Entities.UpsertStates(ctx, states); err != nil {
		return err
	}
	appLogger.Info(component, "States upserted: count=%d", len(states))

	municipalities, err := client.Municipalities(ctx)
	if err != nil {
		return err
	}
	if err := storage.Entities.UpsertMunicipalities(ctx, municipalities); err != nil {
		return err
	}
	appLogger.Info(component, "Municipalities upserted: count=%d", len(municipalities))
	return nil
}

func main() {
	const component = "Main"

	monitor := NewMonitor()
	appLogger := logger.New(logger.LevelInfo)
	monitor.Start(env.GetDuration("SYNC_MONITOR_INTERVAL", 400*time.Millisecond), appLogger)

	// Configure log output format
	log.SetFlags(0) // Remove default timestamp since we add our own

	startingTime := time.Now()
	lastYear := strconv.Itoa(time.Now().Year() - 1)

	modePtr := flag.String("mode", "rreo", "Sync mode: entities, rreo")
	entitiesPtr := flag.String("entities", "", "Comma-separated list of IBGE entity codes to warm up")
	ufPtr := flag.String("uf", "", "Warm up every municipality of this UF (requires a prior -mode=entities run)")
	yearsPtr := flag.String("years", lastYear, "Fiscal years, e.g. 2023,2024 or 2020-2024")
	periodsPtr := flag.String("periods", "1-6", "Bimesters, e.g. 6 or 1-6")
	reportTypePtr := flag.String("type", string(fiscal.ReportFull), "Report type: RREO, RREO Simplificado")
	annexPtr := flag.String("annex", "", "Annex code, e.g. RREO-Anexo 01")
	spherePtr := flag.String("sphere", "", "Sphere: M, E")
	triggerPtr := flag.String("trigger", store.TriggerTypeManual, "Trigger source: manual, scheduled")
	forcePtr := flag.Bool("force", false, "Reload scopes even when the history says they are up to date")
	concurrencyPtr := flag.Int("concurrency", 2, "Number of warm-up workers")
	logLevelPtr := flag.String("loglevel", "", "Log level: debug, info, warn, error (defaults to LOG_LEVEL)")
	flag.Parse()

	cfg, err := env.Load()
	if err != nil {
		appLogger.Fatal(component, "Failed to load configuration: error=%v", err)
	}
	level := cfg.LogLevel
	if *logLevelPtr != "" {
		level = *logLevelPtr
	}
	appLogger.SetLogLevel(logger.ParseLevel(level))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLogger.Info(component, "Application starting: mode=%s startTime=%s", *modePtr, startingTime.Format(time.RFC3339))

	deps, err := app.Build(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal(component, "Failed to build dependencies: error=%v", err)
	}
	defer deps.Close()

	switch *modePtr {
	case "entities":
		if deps.Storage == nil {
			appLogger.Fatal(component, "Entity sync requires a database: set DB_ADDR")
		}
		if err := syncEntities(ctx, cfg, deps.Storage, appLogger); err != nil {
			appLogger.Fatal(component, "Entity sync failed: error=%v", err)
		}

	case "rreo":
		years, err := parseIntList(*yearsPtr)
		if err != nil {
			appLogger.Fatal(component, "Invalid years: error=%v", err)
		}
		periods, err := parseIntList(*periodsPtr)
		if err != nil {
			appLogger.Fatal(component, "Invalid periods: error=%v", err)
		}

		entityIDs := splitCodes(*entitiesPtr)
		if *ufPtr != "" && deps.Storage != nil {
			municipalities, err := deps.Storage.Entities.ListMunicipalities(ctx, *ufPtr)
			if err != nil {
				appLogger.Fatal(component, "Failed to list municipalities: uf=%s error=%v", *ufPtr, err)
			}
			for _, m := range municipalities {
				entityIDs = append(entityIDs, m.EntityID)
			}
		}
		if len(entityIDs) == 0 {
			appLogger.Fatal(component, "No entities to warm up: pass -entities or -uf")
		}

		jobs := warmup.Plan(warmup.Scope{
			EntityIDs:  entityIDs,
			Years:      years,
			Periods:    periods,
			ReportType: fiscal.ReportType(*reportTypePtr),
			Annex:      *annexPtr,
			Sphere:     fiscal.Sphere(*spherePtr),
		}, *triggerPtr)
		appLogger.Info(component, "Warm-up planned: entities=%d years=%v periods=%v jobs=%d", len(entityIDs), years, periods, len(jobs))

		var history warmup.History
		if deps.Storage != nil {
			history = deps.Storage.SyncHistory
		}
		orchestrator := warmup.NewOrchestrator(deps.Service, history, appLogger, warmup.Options{
			Concurrency:  *concurrencyPtr,
			RefreshAfter: cfg.CacheTTL,
			Force:        *forcePtr,
		})
		if err := orchestrator.InitializeState(ctx, jobs); err != nil {
			appLogger.Fatal(component, "Failed to initialize state: error=%v", err)
		}
		summary := orchestrator.Run(ctx, jobs)
		if summary.Failure > 0 {
			appLogger.Warn(component, "Warm-up finished with failures: runID=%s failure=%d", summary.RunID, summary.Failure)
		}

	default:
		appLogger.Fatal(component, "Unknown mode: mode=%s", *modePtr)
	}

	stats := monitor.Stop()
	timeTaken := time.Since(startingTime)
	appLogger.Info(component, "Application completed successfully: duration=%.2f seconds peakGoroutines=%d peakMemoryMB=%d",
		timeTaken.Seconds(), stats.PeakGoroutines, stats.PeakMemoryMB)
}
