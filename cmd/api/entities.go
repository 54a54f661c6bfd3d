package main

import (
	"net/http"
	"strings"

	"github.com/farxc/envelopa-rreo/internal/response"
	"github.com/farxc/envelopa-rreo/internal/rreo"
	"github.com/farxc/envelopa-rreo/internal/store"
)

type GetStatesResponse = response.APIResponse[[]store.State]
type GetMunicipalitiesResponse = response.APIResponse[[]store.Municipality]
type GetSyncHistoryResponse = response.APIResponse[[]store.SyncHistory]

func (app *application) handleGetStates(w http.ResponseWriter, r *http.Request) {
	if app.store == nil {
		writeJSON(w, http.StatusOK, &GetStatesResponse{Success: true, Data: []store.State{}})
		return
	}

	data, err := app.store.Entities.ListStates(r.Context())
	if err != nil {
		app.logger.Error("API", "Failed to list states: err=%v", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list states", rreo.KindPersistence)
		return
	}

	resp := &GetStatesResponse{
		Success: true,
		Data:    data,
		Message: "Successfully retrieved states",
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response", rreo.KindInternal)
	}
}

// @Summary		List municipalities
// @Tags			Entities
// @Produce		json
// @Param			uf	query		string	false	"Two letter state code"
// @Success		200	{object}	GetMunicipalitiesResponse
// @Failure		500	{object}	response.ErrorResponse
// @Router			/entities/municipalities [get]
func (app *application) handleGetMunicipalities(w http.ResponseWriter, r *http.Request) {
	uf := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("uf")))
	if len(uf) > 2 {
		uf = uf[:2]
	}

	if app.store == nil {
		writeJSON(w, http.StatusOK, &GetMunicipalitiesResponse{Success: true, Data: []store.Municipality{}})
		return
	}

	data, err := app.store.Entities.ListMunicipalities(r.Context(), uf)
	if err != nil {
		app.logger.Error("API", "Failed to list municipalities: uf=%s err=%v", uf, err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list municipalities", rreo.KindPersistence)
		return
	}

	resp := &GetMunicipalitiesResponse{
		Success: true,
		Data:    data,
		Message: "Successfully retrieved municipalities",
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response", rreo.KindInternal)
	}
}

// @Summary		Get sync history
// @Description	Get a list of the latest warm-up job records.
// @Tags			Sync
// @Produce		json
// @Param			limit	query		int						false	"Limit the number of results"	default(10)
// @Success		200		{object}	GetSyncHistoryResponse	"Successfully retrieved latest sync records"
// @Failure		500		{object}	response.ErrorResponse	"Failed to get sync history"
// @Router			/sync/history [get]
func (app *application) handleGetSyncHistory(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r, "limit", 10)

	if app.store == nil {
		writeJSON(w, http.StatusOK, &GetSyncHistoryResponse{Success: true, Data: []store.SyncHistory{}})
		return
	}

	data, err := app.store.SyncHistory.GetLatest(r.Context(), limit)
	if err != nil {
		app.logger.Error("API", "Failed to get sync history: err=%v", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to get sync history", rreo.KindPersistence)
		return
	}

	resp := &GetSyncHistoryResponse{
		Success: true,
		Data:    data,
		Message: "Successfully retrieved latest sync records",
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response", rreo.KindInternal)
	}
}
