package http

import (
	"bytes"
	"context"
	"net/http"

	"registrydash/internal/billing"
	"registrydash/internal/catalog"
	"registrydash/internal/guard"
	"registrydash/internal/ledger"
	"registrydash/internal/logging"
	"registrydash/internal/routes"
	"registrydash/internal/web"
)

// PageHandler serves every route of the table behind the guard.
type PageHandler struct {
	Deps
}

type dashboardContent struct {
	Balance      ledger.Snapshot
	Transactions []billing.Transaction
	TotalAmount  int64
}

type ledgerContent struct {
	Entries []billing.FloatLedger
}

type financesContent struct {
	Transactions  []billing.Transaction
	TotalAmount   int64
	TotalBalance  int64
	FloatRequests []billing.FloatRequest
}

type servicesContent struct {
	Services []catalog.Service
	Error    bool
}

type serviceContent struct {
	ID             string
	Service        *catalog.Service
	Specifications []catalog.ServiceSpecification
}

// loader builds a page's template name and content.
type loader func(r *http.Request, rt routes.Route) (tpl string, content any)

func (h *PageHandler) Routes(mux *http.ServeMux) error {
	pages := &guard.Pages{Guard: h.Guard, Table: h.Table, Sessions: h.Sessions}
	for _, rt := range h.Table.All() {
		pattern := "GET " + routes.Pattern(rt.Path)
		if rt.Redirect != "" {
			target, err := h.Table.PathFor(rt.Redirect, nil)
			if err != nil {
				return err
			}
			mux.Handle(pattern, http.RedirectHandler(target, http.StatusFound))
			continue
		}
		mux.Handle(pattern, pages.Wrap(rt, h.page(rt, h.loaderFor(rt.Name))))
	}
	return nil
}

func (h *PageHandler) loaderFor(name string) loader {
	switch name {
	case routes.Home, routes.Dashboard:
		return h.dashboard
	case routes.Ledger:
		return h.ledger
	case routes.Finances:
		return h.finances
	case routes.Services:
		return h.services
	case routes.ServiceDetails:
		return h.service
	case routes.ProviderDetails:
		return h.provider
	case routes.SignIn:
		return func(r *http.Request, _ routes.Route) (string, any) {
			return "signin", r.URL.Query().Get("status")
		}
	case routes.SignOut:
		// Signing out changes state, so the page only offers the POST form.
		return func(*http.Request, routes.Route) (string, any) {
			return "signout", nil
		}
	}
	return func(_ *http.Request, rt routes.Route) (string, any) {
		return "page", rt.Meta.Title + " will appear here once the registry backend serves it."
	}
}

func (h *PageHandler) page(rt routes.Route, load loader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tpl, content := load(r, rt)
		page := web.Page[any]{
			Title:   rt.Meta.Title,
			Header:  loadHeader(r, h.Deps),
			Nav:     navItems(h.Table, rt),
			Content: content,
		}
		var buf bytes.Buffer
		if err := h.TPL.Render(&buf, tpl, page); err != nil {
			logging.From(r.Context()).Error("template error", "page", tpl, "err", err)
			http.Error(w, "template error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	})
}

func (h *PageHandler) dashboard(r *http.Request, _ routes.Route) (string, any) {
	v := viewOf(h.Views, r)
	if v == nil {
		return "dashboard", dashboardContent{}
	}
	set := fetchOr(r.Context(), "transactions", v.Billing.FetchTransactions, v.Billing.TransactionSet, queryFrom(r, defaultPageSize))
	return "dashboard", dashboardContent{
		Balance:      v.Balance.Refresh(),
		Transactions: set.Transactions,
		TotalAmount:  set.TotalAmount,
	}
}

func (h *PageHandler) ledger(r *http.Request, _ routes.Route) (string, any) {
	v := viewOf(h.Views, r)
	if v == nil {
		return "ledger", ledgerContent{}
	}
	entries := fetchOr(r.Context(), "float_ledgers", v.Billing.FetchFloatLedgers, v.Billing.FloatLedgers, queryFrom(r, defaultPageSize))
	return "ledger", ledgerContent{Entries: entries}
}

func (h *PageHandler) finances(r *http.Request, _ routes.Route) (string, any) {
	v := viewOf(h.Views, r)
	if v == nil {
		return "finances", financesContent{}
	}
	q := queryFrom(r, defaultPageSize)
	set := fetchOr(r.Context(), "transactions", v.Billing.FetchTransactions, v.Billing.TransactionSet, q)
	reqs := fetchOr(r.Context(), "float_requests", v.Billing.FetchFloatRequests, v.Billing.FloatRequests, q)
	return "finances", financesContent{
		Transactions:  set.Transactions,
		TotalAmount:   set.TotalAmount,
		TotalBalance:  set.TotalBalance,
		FloatRequests: reqs,
	}
}

// catalogOf returns the session's catalog store, nil without a registry.
func (h *PageHandler) catalogOf(r *http.Request) *catalog.Store {
	if v := viewOf(h.Views, r); v != nil {
		return v.Catalog
	}
	return nil
}

func (h *PageHandler) services(r *http.Request, _ routes.Route) (string, any) {
	c := h.catalogOf(r)
	if c == nil {
		return "services", servicesContent{}
	}
	q := queryFrom(r, 15)
	list, err := c.FetchServices(r.Context(), q.Page, q.Limit)
	if err != nil {
		logging.From(r.Context()).Warn("catalog.fetch", "err", err)
		return "services", servicesContent{Services: c.State().Services, Error: true}
	}
	return "services", servicesContent{Services: list}
}

func (h *PageHandler) provider(r *http.Request, _ routes.Route) (string, any) {
	c := h.catalogOf(r)
	if c == nil {
		return "services", servicesContent{}
	}
	page := parseIntDefault(r.URL.Query().Get("page"), 1)
	list, err := c.FetchServicesByProvider(r.Context(), r.PathValue("id"), page)
	if err != nil {
		logging.From(r.Context()).Warn("catalog.fetch_by_provider", "provider_id", r.PathValue("id"), "err", err)
		return "services", servicesContent{Error: true}
	}
	return "services", servicesContent{Services: list}
}

func (h *PageHandler) service(r *http.Request, _ routes.Route) (string, any) {
	id := r.PathValue("id")
	content := serviceContent{ID: id}
	c := h.catalogOf(r)
	if c == nil {
		return "service", content
	}
	svc, err := c.FindService(r.Context(), id)
	if err != nil {
		logging.From(r.Context()).Warn("catalog.find_service", "service_id", id, "err", err)
		return "service", content
	}
	content.Service = &svc
	specs, err := c.FindServiceSpecsByService(r.Context(), id)
	if err != nil {
		logging.From(r.Context()).Warn("catalog.find_specs", "service_id", id, "err", err)
	}
	content.Specifications = specs
	return "service", content
}

// fetchOr refreshes one billing collection and returns it. On failure the
// page shows what the session's store already held.
func fetchOr[T any](ctx context.Context, what string, fetch func(context.Context, billing.Query) (T, error), held func() T, q billing.Query) T {
	v, err := fetch(ctx, q)
	if err != nil {
		logging.From(ctx).Warn("billing.page_fetch", "collection", what, "err", err)
		return held()
	}
	return v
}
