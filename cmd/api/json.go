package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/farxc/envelopa-rreo/internal/cache"
	"github.com/farxc/envelopa-rreo/internal/response"
	"github.com/farxc/envelopa-rreo/internal/rreo"
)

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, status int, message string, kind rreo.Kind) error {
	return writeJSON(w, status, &response.ErrorResponse{Error: message, Kind: string(kind)})
}

func readJSON(w http.ResponseWriter, r *http.Request, data any) error {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	return dec.Decode(data)
}

// writeServiceError maps a service error onto its status and kind. Internal
// details are logged, never returned.
func (app *application) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	const component = "API"

	kind, status, message := rreo.Classify(err)
	if status >= http.StatusInternalServerError {
		app.logger.Error(component, "Request failed: path=%s kind=%s err=%v", r.URL.Path, kind, err)
	} else {
		app.logger.Debug(component, "Request rejected: path=%s kind=%s err=%v", r.URL.Path, kind, err)
	}
	writeJSONError(w, status, message, kind)
}

func toWarnings(errs []error) []response.Warning {
	if len(errs) == 0 {
		return nil
	}
	out := make([]response.Warning, 0, len(errs))
	for _, err := range errs {
		kind, _, message := rreo.Classify(err)
		var yearErr *rreo.YearUnavailableError
		if errors.As(err, &yearErr) {
			message = yearErr.Error()
		}
		out = append(out, response.Warning{Kind: string(kind), Message: message})
	}
	return out
}

func setSource(w http.ResponseWriter, source cache.Source) {
	if source != "" {
		w.Header().Set("X-Cache-Source", string(source))
	}
}
