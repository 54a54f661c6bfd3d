package main

import (
	"context"
	"net/http"

	"github.com/farxc/envelopa-rreo/internal/fiscal"
	"github.com/farxc/envelopa-rreo/internal/report"
	"github.com/farxc/envelopa-rreo/internal/response"
	"github.com/farxc/envelopa-rreo/internal/rreo"
	"github.com/farxc/envelopa-rreo/internal/store"
)

type GetKPIsResponse = response.APIResponse[report.KPIs]
type GetRevenuesResponse = response.APIResponse[report.Revenues]
type GetExpensesResponse = response.APIResponse[report.Expenses]
type GetComparisonResponse = response.APIResponse[report.Comparison]
type GetDetailsResponse = response.APIResponse[report.Details]
type GetDashboardResponse = response.APIResponse[rreo.Dashboard]
type GetAvailabilityResponse = response.APIResponse[[]store.CacheEntry]
type GetAnnexesResponse = response.APIResponse[[]rreo.Annex]

// viewHandler serves one computed view of the scope in the query string.
func viewHandler[T any](app *application, compute func(context.Context, fiscal.Filter) (*rreo.Result[T], error), message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := filterFromQuery(r)
		if err != nil {
			app.writeServiceError(w, r, err)
			return
		}

		res, err := compute(r.Context(), filter)
		if err != nil {
			app.writeServiceError(w, r, err)
			return
		}

		setSource(w, res.Source)
		resp := &response.APIResponse[T]{
			Success:  true,
			Data:     res.Data,
			Message:  message,
			Warnings: toWarnings(res.Warnings),
		}
		if err := writeJSON(w, http.StatusOK, resp); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to write response", rreo.KindInternal)
		}
	}
}

// @Summary		Headline KPIs
// @Description	Total revenue, total expense and budget result of one RREO scope.
// @Tags			RREO
// @Produce		json
// @Param			id_ente					query		string			true	"IBGE entity code"
// @Param			an_exercicio			query		int				true	"Fiscal year"
// @Param			nr_periodo				query		int				true	"Bimester (1..6)"
// @Param			co_tipo_demonstrativo	query		string			false	"RREO or RREO Simplificado"	default(RREO)
// @Param			no_anexo				query		string			false	"Annex code"
// @Param			co_esfera				query		string			false	"M or E"
// @Success		200						{object}	GetKPIsResponse
// @Failure		400						{object}	response.ErrorResponse
// @Failure		404						{object}	response.ErrorResponse
// @Failure		502						{object}	response.ErrorResponse
// @Router			/rreo/kpis [get]
func (app *application) handleGetKPIs(w http.ResponseWriter, r *http.Request) {
	viewHandler(app, app.service.KPIs, "Successfully computed KPIs")(w, r)
}

func (app *application) handleGetRevenues(w http.ResponseWriter, r *http.Request) {
	viewHandler(app, app.service.Revenues, "Successfully computed revenue breakdown")(w, r)
}

func (app *application) handleGetExpenses(w http.ResponseWriter, r *http.Request) {
	viewHandler(app, app.service.Expenses, "Successfully computed expense breakdown")(w, r)
}

// @Summary		Year over year comparison
// @Description	Compares the scope with the same scope one year earlier. A year that cannot be loaded counts as zero and is reported in warnings.
// @Tags			RREO
// @Produce		json
// @Success		200	{object}	GetComparisonResponse
// @Failure		400	{object}	response.ErrorResponse
// @Router			/rreo/comparison [get]
func (app *application) handleGetComparison(w http.ResponseWriter, r *http.Request) {
	viewHandler(app, app.service.Comparison, "Successfully compared fiscal years")(w, r)
}

func (app *application) handleGetDetails(w http.ResponseWriter, r *http.Request) {
	viewHandler(app, app.service.Details, "Successfully retrieved account details")(w, r)
}

func (app *application) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	viewHandler(app, app.service.Dashboard, "Successfully built dashboard")(w, r)
}

// @Summary		Cached scopes of an entity
// @Tags			RREO
// @Produce		json
// @Param			id_ente	query		string	true	"IBGE entity code"
// @Success		200		{object}	GetAvailabilityResponse
// @Failure		400		{object}	response.ErrorResponse
// @Failure		500		{object}	response.ErrorResponse
// @Router			/rreo/availability [get]
func (app *application) handleGetAvailability(w http.ResponseWriter, r *http.Request) {
	data, err := app.service.Availability(r.Context(), r.URL.Query().Get("id_ente"))
	if err != nil {
		app.writeServiceError(w, r, err)
		return
	}

	resp := &GetAvailabilityResponse{
		Success: true,
		Data:    data,
		Message: "Successfully retrieved cached scopes",
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response", rreo.KindInternal)
	}
}

type refreshResult struct {
	TaskID string `json:"task_id,omitempty"`
	Queued bool   `json:"queued"`
	Scope  string `json:"scope"`
}

// @Summary		Refresh a scope
// @Description	Queues a background reload of one scope through both cache tiers. Without a queue the reload runs inline.
// @Tags			RREO
// @Accept			json
// @Produce		json
// @Param			filter	body		fiscal.Filter	true	"Scope to refresh"
// @Success		202		{object}	response.APIResponse[refreshResult]
// @Failure		400		{object}	response.ErrorResponse
// @Router			/rreo/refresh [post]
func (app *application) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var filter fiscal.Filter
	if err := readJSON(w, r, &filter); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload", rreo.KindInvalidRequest)
		return
	}
	if filter.ReportType == "" {
		filter.ReportType = fiscal.ReportFull
	}
	if err := filter.Validate(); err != nil {
		app.writeServiceError(w, r, err)
		return
	}

	ctx := r.Context()
	if app.queue == nil {
		res, err := app.service.Refresh(ctx, filter)
		if err != nil {
			app.writeServiceError(w, r, err)
			return
		}
		resp := &response.APIResponse[refreshResult]{
			Success:  true,
			Data:     refreshResult{Scope: filter.Key()},
			Message:  "Scope reloaded",
			Warnings: toWarnings(res.Warnings),
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	id, queued, err := app.queue.EnqueueRefresh(ctx, filter)
	if err != nil {
		app.logger.Error("API", "Failed to enqueue refresh: scope=%s err=%v", filter.Key(), err)
		writeJSONError(w, http.StatusInternalServerError, "failed to enqueue refresh", rreo.KindInternal)
		return
	}

	message := "Refresh queued"
	if !queued {
		message = "Refresh already queued for this scope"
	}
	resp := &response.APIResponse[refreshResult]{
		Success: true,
		Data:    refreshResult{TaskID: id, Queued: queued, Scope: filter.Key()},
		Message: message,
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (app *application) handleGetAnnexes(w http.ResponseWriter, r *http.Request) {
	resp := &GetAnnexesResponse{
		Success: true,
		Data:    rreo.Annexes(),
	}
	writeJSON(w, http.StatusOK, resp)
}
