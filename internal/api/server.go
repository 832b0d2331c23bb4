package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// NewRouter configures every route. When adminAPIKey is set, routes that change data or
// expose the whole book require it as a bearer token.
func NewRouter(handler *Handler, adminAPIKey string) http.Handler {
	protect := func(h http.HandlerFunc) http.Handler {
		if adminAPIKey == "" {
			return h
		}
		return requireAuth(adminAPIKey, h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/portfolio", handler.GetPortfolio)
	mux.HandleFunc("GET /api/v1/fixed-terms", handler.GetFixedTerms)
	mux.HandleFunc("GET /api/v1/report.xlsx", handler.GetReportXLSX)

	mux.Handle("GET /api/v1/movements", protect(handler.ListMovements))
	mux.Handle("POST /api/v1/movements", protect(handler.SaveMovement))
	mux.Handle("DELETE /api/v1/movements/{id}", protect(handler.DeleteMovement))

	mux.Handle("GET /api/v1/accounts", protect(handler.ListAccounts))
	mux.Handle("POST /api/v1/accounts", protect(handler.SaveAccount))
	mux.HandleFunc("GET /api/v1/accounts/{id}/yield", handler.GetAccountYield)

	mux.HandleFunc("GET /api/v1/instruments", handler.ListInstruments)
	mux.Handle("POST /api/v1/instruments", protect(handler.SaveInstrument))
	mux.Handle("POST /api/v1/manual-prices", protect(handler.SaveManualPrice))

	mux.Handle("POST /api/v1/accrue", protect(handler.Accrue))

	mux.Handle("GET /api/v1/export", protect(handler.ExportBundle))
	mux.Handle("POST /api/v1/import", protect(handler.ImportBundle))
	mux.Handle("GET /api/v1/sync/pull", protect(handler.ExportBundle))
	mux.Handle("POST /api/v1/sync/push", protect(handler.ImportBundle))

	mux.HandleFunc("GET /api/v1/snapshots/latest", handler.GetLatestSnapshot)
	mux.HandleFunc("GET /api/v1/snapshots/{date}", handler.GetSnapshotByDate)
	mux.HandleFunc("GET /api/v1/snapshots", handler.ListSnapshots)
	mux.Handle("POST /api/v1/snapshots/generate", protect(handler.GenerateSnapshot))

	return mux
}

// NewServer creates an HTTP server with all routes configured.
func NewServer(port string, handler *Handler, adminAPIKey string) *http.Server {
	if adminAPIKey == "" {
		slog.Warn("API: ADMIN_API_KEY not set, mutating endpoints are unprotected")
	}
	return &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(handler, adminAPIKey),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
