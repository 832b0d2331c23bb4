package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/cartera/internal/domain"
	"github.com/mtlprog/cartera/internal/external"
	"github.com/mtlprog/cartera/internal/snapshot"
	"github.com/mtlprog/cartera/internal/store"
	"github.com/mtlprog/cartera/internal/tracker"
)

type offlineMarket struct{}

func (offlineMarket) FxRates(context.Context) (domain.FxRates, error) {
	return domain.FxRates{}, fmt.Errorf("fx rates: %w", external.ErrNoFallback)
}

func (offlineMarket) Quotes(context.Context, []string) (map[string]domain.Quote, error) {
	return nil, fmt.Errorf("quotes: %w", external.ErrNoFallback)
}

func (offlineMarket) Refresh(context.Context, []string) error { return nil }

var fixedNow = time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T, adminKey string) (http.Handler, store.Store) {
	t.Helper()
	st := store.NewMemory()
	tr := tracker.NewService(st, offlineMarket{}, domain.DefaultPreferences())
	snaps := snapshot.NewService(tr, snapshot.NewStoreRepository(st))
	h := NewHandler(tr, snaps, st)
	h.now = func() time.Time { return fixedNow }

	ctx := context.Background()
	if _, err := tr.SaveAccount(ctx, domain.Account{ID: "galicia", Name: "Galicia", Kind: domain.AccountKindBank, DefaultCurrency: domain.CurrencyARS}); err != nil {
		t.Fatalf("seeding account: %v", err)
	}
	return NewRouter(h, adminKey), st
}

func do(t *testing.T, router http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const depositJSON = `{"id":"dep-1","datetimeISO":"2024-06-01T12:00:00Z","type":"DEPOSIT","accountId":"galicia","tradeCurrency":"ARS","totalAmount":"50000"}`

func TestSaveAndListMovements(t *testing.T) {
	router, _ := newTestRouter(t, "")

	w := do(t, router, http.MethodPost, "/api/v1/movements", depositJSON, "")
	if w.Code != http.StatusOK {
		t.Fatalf("POST status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/api/v1/movements?account=galicia", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET status = %d", w.Code)
	}
	var movements []domain.Movement
	if err := json.NewDecoder(w.Body).Decode(&movements); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(movements) != 1 || movements[0].ID != "dep-1" {
		t.Fatalf("movements = %+v, want dep-1", movements)
	}
	if movements[0].Source != domain.SourceUser {
		t.Errorf("source = %q, want user", movements[0].Source)
	}

	w = do(t, router, http.MethodGet, "/api/v1/movements?account=other", "", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("filtered body = %s, want []", w.Body.String())
	}
}

func TestSaveMovementRejectsInvalid(t *testing.T) {
	router, _ := newTestRouter(t, "")

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"id":`},
		{"unknown type", `{"id":"x","type":"SWAP","accountId":"galicia","tradeCurrency":"ARS","totalAmount":"1"}`},
		{"buy without quantity", `{"id":"x","datetimeISO":"2024-06-01T12:00:00Z","type":"BUY","accountId":"galicia","instrumentId":"btc","tradeCurrency":"USD","totalAmount":"10"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/api/v1/movements", tt.body, "")
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
			}
		})
	}
}

func TestDeleteMovement(t *testing.T) {
	router, _ := newTestRouter(t, "")
	do(t, router, http.MethodPost, "/api/v1/movements", depositJSON, "")

	w := do(t, router, http.MethodDelete, "/api/v1/movements/dep-1", "", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	w = do(t, router, http.MethodDelete, "/api/v1/movements/dep-1", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestGetPortfolioWithoutMarketData(t *testing.T) {
	router, _ := newTestRouter(t, "")
	do(t, router, http.MethodPost, "/api/v1/movements", depositJSON, "")

	w := do(t, router, http.MethodGet, "/api/v1/portfolio", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var p domain.Portfolio
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if v := p.Totals.ARS.Value; v == nil || !v.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("ARS value = %s, want 50000", p.Totals.ARS.Value)
	}
	if p.Totals.USD.Value != nil || p.Totals.USD.NetWorth != nil {
		t.Errorf("USD totals = %s / %s, want null without rates", p.Totals.USD.Value, p.Totals.USD.NetWorth)
	}
}

func TestAccountYieldUnknownAccount(t *testing.T) {
	router, _ := newTestRouter(t, "")

	w := do(t, router, http.MethodGet, "/api/v1/accounts/nope/yield", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestSaveAccountInvalid(t *testing.T) {
	router, _ := newTestRouter(t, "")

	w := do(t, router, http.MethodPost, "/api/v1/accounts", `{"id":"","name":"x"}`, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSnapshotRoutes(t *testing.T) {
	router, _ := newTestRouter(t, "")

	w := do(t, router, http.MethodGet, "/api/v1/snapshots/latest", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("latest before generate = %d, want 404", w.Code)
	}

	w = do(t, router, http.MethodPost, "/api/v1/snapshots/generate", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("generate status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/api/v1/snapshots/2024-06-10", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("by date status = %d, want 200", w.Code)
	}
	w = do(t, router, http.MethodGet, "/api/v1/snapshots/10-06-2024", "", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d, want 400", w.Code)
	}
	w = do(t, router, http.MethodGet, "/api/v1/snapshots?limit=abc", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("list status = %d, want 200", w.Code)
	}
	var list []snapshot.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("len(list) = %d, want 1", len(list))
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	router, _ := newTestRouter(t, "")
	do(t, router, http.MethodPost, "/api/v1/movements", depositJSON, "")

	w := do(t, router, http.MethodGet, "/api/v1/export", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d", w.Code)
	}
	bundle := w.Body.String()

	other, otherStore := newTestRouter(t, "")
	w = do(t, other, http.MethodPost, "/api/v1/import", bundle, "")
	if w.Code != http.StatusOK {
		t.Fatalf("import status = %d, body = %s", w.Code, w.Body.String())
	}
	if _, err := store.GetAs[domain.Movement](context.Background(), otherStore, store.Movements, "dep-1"); err != nil {
		t.Errorf("imported movement missing: %v", err)
	}

	w = do(t, other, http.MethodPost, "/api/v1/import", `{"version":99}`, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad bundle status = %d, want 400", w.Code)
	}
}

func TestProtectedRoutes(t *testing.T) {
	router, _ := newTestRouter(t, "secret")

	w := do(t, router, http.MethodPost, "/api/v1/movements", depositJSON, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated POST = %d, want 401", w.Code)
	}
	w = do(t, router, http.MethodGet, "/api/v1/sync/pull", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated pull = %d, want 401", w.Code)
	}
	w = do(t, router, http.MethodPost, "/api/v1/movements", depositJSON, "secret")
	if w.Code != http.StatusOK {
		t.Errorf("authenticated POST = %d, want 200", w.Code)
	}
	for _, path := range []string{"/api/v1/movements", "/api/v1/accounts"} {
		if w := do(t, router, http.MethodGet, path, "", ""); w.Code != http.StatusUnauthorized {
			t.Errorf("unauthenticated GET %s = %d, want 401", path, w.Code)
		}
		if w := do(t, router, http.MethodGet, path, "", "secret"); w.Code != http.StatusOK {
			t.Errorf("authenticated GET %s = %d, want 200", path, w.Code)
		}
	}
	w = do(t, router, http.MethodGet, "/api/v1/instruments", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("public GET = %d, want 200", w.Code)
	}
}

func TestReportXLSX(t *testing.T) {
	router, _ := newTestRouter(t, "")

	w := do(t, router, http.MethodGet, "/api/v1/report.xlsx", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "PK") {
		t.Error("body is not a zip container")
	}
}
