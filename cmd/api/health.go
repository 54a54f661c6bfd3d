package main

import (
	"net/http"

	"github.com/farxc/envelopa-rreo/internal/rreo"
)

const version = "0.1.0"

// @Summary		Health check
// @Description	returns the status of the service
// @Tags			Health
// @Produce		json
// @Success		200	{object}	map[string]string
// @Router			/health [get]
func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {

	data := map[string]string{
		"status":  "available",
		"env":     app.config.AppEnv,
		"cache":   app.config.CacheBackend,
		"version": version,
	}

	if app.db != nil {
		if err := app.db.PingContext(r.Context()); err != nil {
			data["status"] = "degraded"
			data["database"] = "unreachable"
		}
	}

	if err := writeJSON(w, http.StatusOK, data); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error(), rreo.KindInternal)
	}
}
