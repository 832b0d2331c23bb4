package api

import (
	"net/http"

	"github.com/mtlprog/cartera/internal/domain"
	"github.com/mtlprog/cartera/internal/store"
)

// ListMovements handles GET /api/v1/movements, optionally filtered by ?account=.
func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	movements, err := store.ListAs[domain.Movement](r.Context(), h.store, store.Movements)
	if err != nil {
		writeServiceError(w, "listing movements", err)
		return
	}
	if account := r.URL.Query().Get("account"); account != "" {
		filtered := movements[:0]
		for _, m := range movements {
			if m.AccountID == account {
				filtered = append(filtered, m)
			}
		}
		movements = filtered
	}
	writeJSON(w, http.StatusOK, movements)
}

// SaveMovement handles POST /api/v1/movements.
func (h *Handler) SaveMovement(w http.ResponseWriter, r *http.Request) {
	var m domain.Movement
	if !decodeJSON(w, r, &m) {
		return
	}
	saved, err := h.tracker.SaveMovement(r.Context(), m)
	if err != nil {
		writeServiceError(w, "saving movement", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// DeleteMovement handles DELETE /api/v1/movements/{id}.
func (h *Handler) DeleteMovement(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.DeleteMovement(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, "deleting movement", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAccounts handles GET /api/v1/accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := store.ListAs[domain.Account](r.Context(), h.store, store.Accounts)
	if err != nil {
		writeServiceError(w, "listing accounts", err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// SaveAccount handles POST /api/v1/accounts.
func (h *Handler) SaveAccount(w http.ResponseWriter, r *http.Request) {
	var a domain.Account
	if !decodeJSON(w, r, &a) {
		return
	}
	saved, err := h.tracker.SaveAccount(r.Context(), a)
	if err != nil {
		writeServiceError(w, "saving account", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// ListInstruments handles GET /api/v1/instruments.
func (h *Handler) ListInstruments(w http.ResponseWriter, r *http.Request) {
	instruments, err := store.ListAs[domain.Instrument](r.Context(), h.store, store.Instruments)
	if err != nil {
		writeServiceError(w, "listing instruments", err)
		return
	}
	writeJSON(w, http.StatusOK, instruments)
}

// SaveInstrument handles POST /api/v1/instruments.
func (h *Handler) SaveInstrument(w http.ResponseWriter, r *http.Request) {
	var inst domain.Instrument
	if !decodeJSON(w, r, &inst) {
		return
	}
	saved, err := h.tracker.SaveInstrument(r.Context(), inst)
	if err != nil {
		writeServiceError(w, "saving instrument", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// SaveManualPrice handles POST /api/v1/manual-prices.
func (h *Handler) SaveManualPrice(w http.ResponseWriter, r *http.Request) {
	var p domain.ManualPrice
	if !decodeJSON(w, r, &p) {
		return
	}
	saved, err := h.tracker.SaveManualPrice(r.Context(), p)
	if err != nil {
		writeServiceError(w, "saving manual price", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
