package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"registrydash/internal/catalog"
	"registrydash/internal/http/middleware"
	"registrydash/internal/logging"
	"registrydash/internal/session"
	"registrydash/internal/view"

	"github.com/jonboulle/clockwork"
)

const maxPayload = 1 << 20

// CatalogHandler proxies the service registry through the session's catalog
// store. Payloads pass through to the registry as sent.
type CatalogHandler struct {
	Views *session.Registry[*view.View]
}

func (h *CatalogHandler) Routes(mux *http.ServeMux, clock clockwork.Clock) {
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, middleware.RequireSession(clock, fn))
	}
	handle("GET /api/v1/services", h.ListServices)
	handle("POST /api/v1/services", h.CreateService)
	handle("GET /api/v1/services/{id}", h.FindService)
	handle("PUT /api/v1/services/{id}", h.EditService)
	handle("GET /api/v1/services/{id}/specs", h.ServiceSpecs)
	handle("GET /api/v1/providers/{id}/services", h.ProviderServices)
	handle("POST /api/v1/service-specs", h.CreateServiceSpec)
	handle("PUT /api/v1/service-specs", h.UpdateServiceSpec)
	handle("PUT /api/v1/service-specs/status", h.UpdateServiceSpecStatus)
	handle("GET /api/v1/service-specs/{id}", h.FindServiceSpec)
}

func (h *CatalogHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	c, ok := h.store(w, r)
	if !ok {
		return
	}
	q := queryFrom(r, 15)
	list, err := c.FetchServices(r.Context(), q.Page, q.Limit)
	reply(w, r, map[string]any{"services": list}, err)
}

func (h *CatalogHandler) ProviderServices(w http.ResponseWriter, r *http.Request) {
	c, ok := h.store(w, r)
	if !ok {
		return
	}
	page := parseIntDefault(r.URL.Query().Get("page"), 1)
	list, err := c.FetchServicesByProvider(r.Context(), r.PathValue("id"), page)
	reply(w, r, map[string]any{"services": list}, err)
}

func (h *CatalogHandler) FindService(w http.ResponseWriter, r *http.Request) {
	c, ok := h.store(w, r)
	if !ok {
		return
	}
	svc, err := c.FindService(r.Context(), r.PathValue("id"))
	reply(w, r, svc, err)
}

func (h *CatalogHandler) ServiceSpecs(w http.ResponseWriter, r *http.Request) {
	c, ok := h.store(w, r)
	if !ok {
		return
	}
	specs, err := c.FindServiceSpecsByService(r.Context(), r.PathValue("id"))
	reply(w, r, map[string]any{"specifications": specs}, err)
}

func (h *CatalogHandler) FindServiceSpec(w http.ResponseWriter, r *http.Request) {
	c, ok := h.store(w, r)
	if !ok {
		return
	}
	spec, err := c.FindServiceSpec(r.Context(), r.PathValue("id"))
	reply(w, r, spec, err)
}

func (h *CatalogHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, (*catalog.Store).CreateService)
}

func (h *CatalogHandler) CreateServiceSpec(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, (*catalog.Store).CreateServiceSpec)
}

func (h *CatalogHandler) UpdateServiceSpec(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, (*catalog.Store).UpdateServiceSpec)
}

func (h *CatalogHandler) UpdateServiceSpecStatus(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, (*catalog.Store).UpdateServiceSpecStatus)
}

func (h *CatalogHandler) EditService(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.write(w, r, func(c *catalog.Store, ctx context.Context, payload any) (catalog.ServiceResponse, error) {
		return c.EditService(ctx, id, payload)
	})
}

func (h *CatalogHandler) write(w http.ResponseWriter, r *http.Request, op func(*catalog.Store, context.Context, any) (catalog.ServiceResponse, error)) {
	c, ok := h.store(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayload))
	if err != nil {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}
	if !json.Valid(body) {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	resp, err := op(c, r.Context(), json.RawMessage(body))
	if err == nil {
		logging.From(r.Context()).Info("catalog.write", "method", r.Method, "path", r.URL.Path, "user_id", middleware.UserID(r))
	}
	reply(w, r, resp, err)
}

func (h *CatalogHandler) store(w http.ResponseWriter, r *http.Request) (*catalog.Store, bool) {
	v := viewOf(h.Views, r)
	if v == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	if v.Catalog == nil {
		http.Error(w, "service registry not configured", http.StatusServiceUnavailable)
		return nil, false
	}
	return v.Catalog, true
}

// reply writes v, or maps a registry failure to a gateway error.
func reply(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, v)
		return
	}
	logging.From(r.Context()).Warn("catalog.call", "method", r.Method, "path", r.URL.Path, "err", err)
	if errors.Is(err, context.DeadlineExceeded) {
		http.Error(w, "service registry timed out", http.StatusGatewayTimeout)
		return
	}
	http.Error(w, "service registry error", http.StatusBadGateway)
}
