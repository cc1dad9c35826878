package http

import (
	"errors"
	"net/http"

	"registrydash/internal/billing"
	"registrydash/internal/http/middleware"
	"registrydash/internal/logging"
	"registrydash/internal/session"
	"registrydash/internal/view"

	"github.com/jonboulle/clockwork"
)

const defaultPageSize = 50

// BillingHandler serves the session's billing collections as JSON. Each
// answer is what that request fetched.
type BillingHandler struct {
	Views *session.Registry[*view.View]
}

func (h *BillingHandler) Routes(mux *http.ServeMux, clock clockwork.Clock) {
	mux.Handle("GET /api/v1/billing/transactions", middleware.RequireSession(clock, http.HandlerFunc(h.Transactions)))
	mux.Handle("GET /api/v1/billing/float-ledgers", middleware.RequireSession(clock, http.HandlerFunc(h.FloatLedgers)))
	mux.Handle("GET /api/v1/billing/float-requests", middleware.RequireSession(clock, http.HandlerFunc(h.FloatRequests)))
}

func (h *BillingHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	v := viewOf(h.Views, r)
	if v == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	set, err := v.Billing.FetchTransactions(r.Context(), queryFrom(r, defaultPageSize))
	if !fetchOK(w, r, err) {
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (h *BillingHandler) FloatLedgers(w http.ResponseWriter, r *http.Request) {
	v := viewOf(h.Views, r)
	if v == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	entries, err := v.Billing.FetchFloatLedgers(r.Context(), queryFrom(r, defaultPageSize))
	if !fetchOK(w, r, err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"float_ledgers": entries})
}

func (h *BillingHandler) FloatRequests(w http.ResponseWriter, r *http.Request) {
	v := viewOf(h.Views, r)
	if v == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	reqs, err := v.Billing.FetchFloatRequests(r.Context(), queryFrom(r, defaultPageSize))
	if !fetchOK(w, r, err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"float_requests": reqs})
}

func fetchOK(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, billing.ErrInvalidQuery) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	logging.From(r.Context()).Error("billing.fetch", "path", r.URL.Path, "err", err)
	http.Error(w, "data provider error", http.StatusBadGateway)
	return false
}
