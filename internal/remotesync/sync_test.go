package remotesync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/cartera/internal/domain"
	"github.com/mtlprog/cartera/internal/store"
)

const token = "secret"

// newRemote serves the sync endpoints over an in-memory store.
func newRemote(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()
	remote := store.NewMemory()
	mux := http.NewServeMux()
	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+token {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("POST "+pushPath, auth(func(w http.ResponseWriter, r *http.Request) {
		var b store.Bundle
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		stats, err := store.Import(r.Context(), remote, b)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(stats)
	}))
	mux.HandleFunc("GET "+pullPath, auth(func(w http.ResponseWriter, r *http.Request) {
		b, err := store.Export(r.Context(), remote, time.Now())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(b)
	}))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, remote
}

func seedLocal(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()
	local := store.NewMemory()
	acc := domain.Account{ID: "mp", Name: "Mercado Pago", Kind: domain.AccountKindWallet, DefaultCurrency: domain.CurrencyARS}
	m := domain.Movement{
		ID: "dep-1", DateTime: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), Type: domain.MovementDeposit,
		AccountID: "mp", TradeCurrency: domain.CurrencyARS, TotalAmount: decimal.NewFromInt(1000),
		Source: domain.SourceUser, Detail: domain.CashDetail{},
	}
	if err := store.PutAs(ctx, local, store.Accounts, acc.ID, acc); err != nil {
		t.Fatal(err)
	}
	if err := store.PutAs(ctx, local, store.Movements, m.ID, m); err != nil {
		t.Fatal(err)
	}
	return local
}

func TestPushThenPull(t *testing.T) {
	ctx := context.Background()
	server, remote := newRemote(t)
	client := NewClient(server.URL+"/", token)

	stats, err := NewService(seedLocal(t), client).Push(ctx)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if stats.Accounts != 1 || stats.Movements != 1 {
		t.Errorf("push stats = %+v", stats)
	}
	if _, err := store.GetAs[domain.Movement](ctx, remote, store.Movements, "dep-1"); err != nil {
		t.Errorf("remote missing movement: %v", err)
	}

	fresh := store.NewMemory()
	if _, err := NewService(fresh, client).Pull(ctx); err != nil {
		t.Fatalf("pull: %v", err)
	}
	m, err := store.GetAs[domain.Movement](ctx, fresh, store.Movements, "dep-1")
	if err != nil {
		t.Fatalf("pulled movement: %v", err)
	}
	if !m.TotalAmount.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("amount = %s, want 1000", m.TotalAmount)
	}
}

func TestPushIsIdempotent(t *testing.T) {
	ctx := context.Background()
	server, remote := newRemote(t)
	svc := NewService(seedLocal(t), NewClient(server.URL, token))

	for range 3 {
		if _, err := svc.Push(ctx); err != nil {
			t.Fatalf("push: %v", err)
		}
	}
	movements, err := remote.List(ctx, store.Movements)
	if err != nil {
		t.Fatal(err)
	}
	if len(movements) != 1 {
		t.Errorf("remote has %d movements, want 1", len(movements))
	}
}

func TestUnauthorized(t *testing.T) {
	server, _ := newRemote(t)
	svc := NewService(seedLocal(t), NewClient(server.URL, "wrong"))

	if _, err := svc.Push(context.Background()); err == nil {
		t.Fatal("expected error for bad token")
	}
	if _, err := svc.Pull(context.Background()); err == nil {
		t.Fatal("expected error for bad token")
	}
}

func TestDisabled(t *testing.T) {
	svc := NewService(store.NewMemory(), nil)
	if svc.Enabled() {
		t.Error("service without remote should be disabled")
	}
	if _, err := svc.Push(context.Background()); !errors.Is(err, ErrDisabled) {
		t.Errorf("Push err = %v, want ErrDisabled", err)
	}
	if _, err := svc.Pull(context.Background()); !errors.Is(err, ErrDisabled) {
		t.Errorf("Pull err = %v, want ErrDisabled", err)
	}
}
