package api

import (
	"net/http"

	"github.com/mtlprog/cartera/internal/export"
	"github.com/mtlprog/cartera/internal/store"
)

// ExportBundle handles GET /api/v1/export and GET /api/v1/sync/pull.
func (h *Handler) ExportBundle(w http.ResponseWriter, r *http.Request) {
	b, err := store.Export(r.Context(), h.store, h.now())
	if err != nil {
		writeServiceError(w, "exporting bundle", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ImportBundle handles POST /api/v1/import and POST /api/v1/sync/push.
func (h *Handler) ImportBundle(w http.ResponseWriter, r *http.Request) {
	var b store.Bundle
	if !decodeJSON(w, r, &b) {
		return
	}
	stats, err := store.Import(r.Context(), h.store, b)
	if err != nil {
		writeServiceError(w, "importing bundle", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetReportXLSX handles GET /api/v1/report.xlsx.
func (h *Handler) GetReportXLSX(w http.ResponseWriter, r *http.Request) {
	p, err := h.tracker.Valuate(r.Context())
	if err != nil {
		writeServiceError(w, "valuating portfolio", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="cartera.xlsx"`)
	if err := export.WriteXLSX(w, export.BuildReport(p)); err != nil {
		writeServiceError(w, "writing workbook", err)
	}
}
