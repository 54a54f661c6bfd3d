package main

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/farxc/envelopa-rreo/internal/fiscal"
	"github.com/farxc/envelopa-rreo/internal/report"
	"github.com/farxc/envelopa-rreo/internal/rreo"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func exportFilename(f fiscal.Filter, ext string) string {
	return fmt.Sprintf("rreo_%s_%d_%d.%s", f.EntityID, f.Year, f.Period, ext)
}

// @Summary		Export account details
// @Tags			RREO
// @Produce		text/csv
// @Param			format	query	string	false	"csv or xlsx"	default(csv)
// @Success		200
// @Failure		400	{object}	response.ErrorResponse
// @Router			/rreo/details/export [get]
func (app *application) handleExportDetails(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		writeJSONError(w, http.StatusBadRequest, "format must be csv or xlsx", rreo.KindInvalidRequest)
		return
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		app.writeServiceError(w, r, err)
		return
	}
	res, err := app.service.Details(r.Context(), filter)
	if err != nil {
		app.writeServiceError(w, r, err)
		return
	}

	var (
		buf         bytes.Buffer
		contentType string
	)
	switch format {
	case "xlsx":
		contentType = xlsxContentType
		err = report.WriteDetailsXLSX(&buf, res.Data)
	default:
		contentType = "text/csv; charset=utf-8"
		err = report.WriteDetailsCSV(&buf, res.Data)
	}
	if err != nil {
		app.logger.Error("API", "Export failed: scope=%s format=%s err=%v", filter.Key(), format, err)
		writeJSONError(w, http.StatusInternalServerError, "failed to build export", rreo.KindInternal)
		return
	}

	setSource(w, res.Source)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportFilename(filter, format)))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
