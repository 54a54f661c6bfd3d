package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/farxc/envelopa-rreo/internal/env"
	"github.com/farxc/envelopa-rreo/internal/fiscal"
	"github.com/farxc/envelopa-rreo/internal/logger"
	"github.com/farxc/envelopa-rreo/internal/rreo"
	"github.com/farxc/envelopa-rreo/internal/store"
)

type refreshQueue interface {
	EnqueueRefresh(ctx context.Context, f fiscal.Filter) (string, bool, error)
}

type pinger interface {
	PingContext(ctx context.Context) error
}

type application struct {
	config  *env.Config
	logger  *logger.Logger
	service *rreo.Service
	store   *store.Storage
	db      pinger
	queue   refreshQueue
	metrics http.Handler
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        app.config.IsProduction(),
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:      !app.config.IsProduction(),
	})

	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(secureMiddleware.Handler)

	// Set a timeout value on the request context (ctx), that will signal
	// through ctx.Done() that the request has timed out and further
	// processing should be stopped.
	r.Use(middleware.Timeout(120 * time.Second))

	if app.metrics != nil {
		r.Method(http.MethodGet, "/metrics", app.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", app.healthCheckHandler)
		r.Get("/annexes", app.handleGetAnnexes)

		r.Group(func(r chi.Router) {
			if app.config.APIRateLimit > 0 {
				r.Use(httprate.Limit(app.config.APIRateLimit, time.Minute,
					httprate.WithKeyFuncs(httprate.KeyByIP),
					httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
						writeJSONError(w, http.StatusTooManyRequests, "too many requests", "rate_limited")
					}),
				))
			}

			r.Route("/rreo", func(r chi.Router) {
				r.Get("/kpis", app.handleGetKPIs)
				r.Get("/revenues", app.handleGetRevenues)
				r.Get("/expenses", app.handleGetExpenses)
				r.Get("/comparison", app.handleGetComparison)
				r.Get("/details", app.handleGetDetails)
				r.Get("/details/export", app.handleExportDetails)
				r.Get("/dashboard", app.handleGetDashboard)
				r.Get("/availability", app.handleGetAvailability)
				r.Post("/refresh", app.handleRefresh)
			})
			r.Route("/entities", func(r chi.Router) {
				r.Get("/states", app.handleGetStates)
				r.Get("/municipalities", app.handleGetMunicipalities)
			})
			r.Get("/sync/history", app.handleGetSyncHistory)
		})
	})

	return r
}

func (app *application) run(ctx context.Context, mux http.Handler) error {
	const component = "Server"

	srv := &http.Server{
		Addr:         app.config.Addr,
		Handler:      mux,
		WriteTimeout: time.Second * 150,
		ReadTimeout:  time.Second * 40,
		IdleTimeout:  time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(component, "Server started: addr=%s env=%s", app.config.Addr, app.config.AppEnv)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(component, "Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
