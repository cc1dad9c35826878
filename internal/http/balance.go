package http

import (
	"encoding/json"
	"net/http"

	"registrydash/internal/http/middleware"
	"registrydash/internal/ledger"
	"registrydash/internal/logging"
	"registrydash/internal/session"
	"registrydash/internal/view"

	"github.com/jonboulle/clockwork"
)

// BalanceHandler exposes the signed-in session's balance ledger.
type BalanceHandler struct {
	Views *session.Registry[*view.View]
}

func (h *BalanceHandler) Routes(mux *http.ServeMux, clock clockwork.Clock) {
	mux.Handle("GET /api/v1/balance", middleware.RequireSession(clock, http.HandlerFunc(h.Get)))
	mux.Handle("POST /api/v1/balance/increase", middleware.RequireSession(clock, http.HandlerFunc(h.Increase)))
	mux.Handle("POST /api/v1/balance/decrease", middleware.RequireSession(clock, http.HandlerFunc(h.Decrease)))
}

type amountReq struct {
	Amount *int64 `json:"amount"`
}

func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	v := viewOf(h.Views, r)
	if v == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, v.Balance.Refresh())
}

func (h *BalanceHandler) Increase(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, (*ledger.Ledger).Increase, "increase")
}

func (h *BalanceHandler) Decrease(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, (*ledger.Ledger).Decrease, "decrease")
}

func (h *BalanceHandler) mutate(w http.ResponseWriter, r *http.Request, op func(*ledger.Ledger, int64) ledger.Snapshot, name string) {
	v := viewOf(h.Views, r)
	if v == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req amountReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount == nil {
		http.Error(w, "amount required", http.StatusBadRequest)
		return
	}
	snap := op(v.Balance, *req.Amount)
	logging.From(r.Context()).Info("balance."+name,
		"user_id", middleware.UserID(r),
		"session_id", sessionOf(r).ID(),
		"amount", *req.Amount,
		"prev", snap.Prev,
		"current", snap.Current,
	)
	writeJSON(w, http.StatusOK, snap)
}

func sessionOf(r *http.Request) session.Session {
	return session.From(r.Context())
}
