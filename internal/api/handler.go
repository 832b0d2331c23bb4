package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mtlprog/cartera/internal/domain"
	"github.com/mtlprog/cartera/internal/snapshot"
	"github.com/mtlprog/cartera/internal/store"
	"github.com/mtlprog/cartera/internal/tracker"
)

const maxBodyBytes = 16 << 20

// Handler provides HTTP endpoints for the portfolio API.
type Handler struct {
	tracker   *tracker.Service
	snapshots *snapshot.Service
	store     store.Store
	now       func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(t *tracker.Service, snapshots *snapshot.Service, st store.Store) *Handler {
	return &Handler{tracker: t, snapshots: snapshots, store: st, now: time.Now}
}

// GetPortfolio handles GET /api/v1/portfolio.
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := h.tracker.Valuate(r.Context())
	if err != nil {
		writeServiceError(w, "valuating portfolio", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetFixedTerms handles GET /api/v1/fixed-terms.
func (h *Handler) GetFixedTerms(w http.ResponseWriter, r *http.Request) {
	positions, warnings, err := h.tracker.FixedTerms(r.Context(), h.now())
	if err != nil {
		writeServiceError(w, "deriving fixed terms", err)
		return
	}
	if positions == nil {
		positions = []domain.FixedTermPosition{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"fixedTerms": positions, "warnings": warnings})
}

// GetAccountYield handles GET /api/v1/accounts/{id}/yield.
func (h *Handler) GetAccountYield(w http.ResponseWriter, r *http.Request) {
	summary, err := h.tracker.YieldSummary(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "computing yield summary", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Accrue handles POST /api/v1/accrue.
func (h *Handler) Accrue(w http.ResponseWriter, r *http.Request) {
	report, err := h.tracker.Accrue(r.Context(), h.now())
	if err != nil {
		writeServiceError(w, "accruing", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// writeServiceError maps service errors to status codes: unknown records are 404, invalid
// input is 400 and anything else is logged and reported as 500.
func writeServiceError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, snapshot.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidMovement), errors.Is(err, tracker.ErrInvalid), errors.Is(err, store.ErrInvalidBundle):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("API: request failed", "action", action, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("API: failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("API: failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
