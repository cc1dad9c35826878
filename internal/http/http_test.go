package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"registrydash/internal/auth"
	"registrydash/internal/billing"
	"registrydash/internal/catalog"
	"registrydash/internal/guard"
	"registrydash/internal/http/middleware"
	"registrydash/internal/ledger"
	"registrydash/internal/routes"
	"registrydash/internal/session"
	"registrydash/internal/users"
	"registrydash/internal/view"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID = "5b0c3f7e-8f5d-4d8e-9a57-2f8c0e2f4b11"

type fakeUsers map[string]users.User

func (f fakeUsers) ByUsername(_ context.Context, username string) (users.User, error) {
	for _, u := range f {
		if u.Username == username {
			return u, nil
		}
	}
	return users.User{}, users.ErrNotFound
}

func (f fakeUsers) ByID(_ context.Context, id string) (users.User, error) {
	u, ok := f[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

// fakeRegistry answers the catalog calls in memory; anything else panics.
type fakeRegistry struct {
	catalog.API
	services []catalog.Service

	mu       sync.Mutex
	fail     bool
	payloads []string
}

func (f *fakeRegistry) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *fakeRegistry) down() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail
}

func (f *fakeRegistry) FetchServices(context.Context, int, int) ([]catalog.Service, error) {
	if f.down() {
		return nil, errors.New("registry down")
	}
	return f.services, nil
}

func (f *fakeRegistry) write(payload any) (catalog.ServiceResponse, error) {
	if f.down() {
		return catalog.ServiceResponse{}, catalog.ErrUnexpectedStatus
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return catalog.ServiceResponse{}, err
	}
	f.mu.Lock()
	f.payloads = append(f.payloads, string(raw))
	f.mu.Unlock()
	return catalog.ServiceResponse{Code: 200, Message: "saved"}, nil
}

func (f *fakeRegistry) CreateService(_ context.Context, payload any) (catalog.ServiceResponse, error) {
	return f.write(payload)
}

func (f *fakeRegistry) CreateServiceSpec(_ context.Context, payload any) (catalog.ServiceResponse, error) {
	return f.write(payload)
}

func (f *fakeRegistry) UpdateServiceSpec(_ context.Context, payload any) (catalog.ServiceResponse, error) {
	return f.write(payload)
}

func (f *fakeRegistry) UpdateServiceSpecStatus(_ context.Context, payload any) (catalog.ServiceResponse, error) {
	return f.write(payload)
}

func (f *fakeRegistry) EditService(_ context.Context, id string, payload any) (catalog.ServiceResponse, error) {
	return f.write(map[string]any{"id": id, "payload": payload})
}

func (f *fakeRegistry) FindServiceSpec(_ context.Context, id string) (catalog.ServiceSpecification, error) {
	if id != "spec-1" {
		return catalog.ServiceSpecification{}, catalog.ErrUnexpectedStatus
	}
	return catalog.ServiceSpecification{ID: id, ServiceID: "svc-1", Version: "v2", Status: "active"}, nil
}

func (f *fakeRegistry) FetchServicesByProvider(_ context.Context, providerID string, _ int) ([]catalog.Service, error) {
	var out []catalog.Service
	for _, s := range f.services {
		if s.ProviderID == providerID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRegistry) FindService(_ context.Context, id string) (catalog.Service, error) {
	for _, s := range f.services {
		if s.ID == id {
			return s, nil
		}
	}
	return catalog.Service{}, catalog.ErrUnexpectedStatus
}

func (f *fakeRegistry) FindServiceSpecsByService(_ context.Context, id string) ([]catalog.ServiceSpecification, error) {
	return []catalog.ServiceSpecification{{ID: "spec-1", ServiceID: id, Version: "v2", Status: "active"}}, nil
}

type testServer struct {
	handler  http.Handler
	clock    clockwork.FakeClock
	views    *session.Registry[*view.View]
	registry *fakeRegistry
}

func newTestServer(t *testing.T, loginLimit int) *testServer {
	t.Helper()
	return newTestServerWith(t, loginLimit, true)
}

// newTestServerWith leaves the catalog unconfigured unless withCatalog.
func newTestServerWith(t *testing.T, loginLimit int, withCatalog bool) *testServer {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	hash, err := auth.HashPassword("hunter22")
	require.NoError(t, err)

	tbl, err := routes.NewTable(routes.App())
	require.NoError(t, err)

	sessions := session.NewProvider(auth.NewTokens("test-secret", 15*time.Minute, time.Hour, clock))
	reg := &fakeRegistry{services: []catalog.Service{
		{ID: "svc-1", Name: "Birth certificate", ProviderID: "prov-1", ProviderName: "Civil registry"},
		{ID: "svc-2", Name: "Land search", ProviderID: "prov-2"},
	}}
	factory := view.Factory{InitialBalance: 15000000, Billing: billing.Fixtures()}
	if withCatalog {
		factory.Catalog = reg
	}
	ts := &testServer{
		clock:    clock,
		views:    view.NewRegistry(factory, session.WithRegistryClock(clock)),
		registry: reg,
	}

	mux, err := NewMux(Deps{
		Table:    tbl,
		Guard:    guard.New(guard.WithClock(clock)),
		Clock:    clock,
		Sessions: sessions,
		Users: fakeUsers{testUserID: {
			ID: testUserID, Username: "amina", DisplayName: "Amina", PasswordHash: hash,
		}},
		Views:        ts.views,
		LoginLimiter: middleware.NewRateLimiter(loginLimit, time.Minute, clock),
	})
	require.NoError(t, err)
	ts.handler = WithStandardMiddleware(sessions, mux)
	return ts
}

func (ts *testServer) do(method, target string, body string, cookies []*http.Cookie, contentType string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, r)
	return w
}

func (ts *testServer) signIn(t *testing.T) []*http.Cookie {
	t.Helper()
	w := ts.do(http.MethodPost, "/api/v1/auth/login", `{"username":"amina","password":"hunter22"}`, nil, "application/json")
	require.Equal(t, http.StatusNoContent, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 2)
	return cookies
}

func TestPages_Guard(t *testing.T) {
	t.Parallel()

	type testCase struct {
		name     string
		path     string
		signedIn bool

		expectedStatus   int
		expectedLocation string
		expectedBody     string
	}

	testCases := []testCase{
		{name: "root redirects home", path: "/", expectedStatus: http.StatusFound, expectedLocation: "/home"},
		{name: "home signed out", path: "/home", expectedStatus: http.StatusSeeOther, expectedLocation: "/account/sign-in"},
		{name: "child inherits protection", path: "/home/ledger", expectedStatus: http.StatusSeeOther, expectedLocation: "/account/sign-in"},
		{name: "details page signed out", path: "/service/svc-1", expectedStatus: http.StatusSeeOther, expectedLocation: "/account/sign-in"},
		{name: "sign-in signed out", path: "/account/sign-in", expectedStatus: http.StatusOK, expectedBody: "<form"},
		{name: "sign-in signed in", path: "/account/sign-in", signedIn: true, expectedStatus: http.StatusSeeOther, expectedLocation: "/home"},
		{name: "dashboard", path: "/home/dashboard", signedIn: true, expectedStatus: http.StatusOK, expectedBody: "15,000,000"},
		{name: "ledger", path: "/home/ledger", signedIn: true, expectedStatus: http.StatusOK, expectedBody: "Service Fee"},
		{name: "finances", path: "/home/finances", signedIn: true, expectedStatus: http.StatusOK, expectedBody: "Approved"},
		{name: "services", path: "/home/services", signedIn: true, expectedStatus: http.StatusOK, expectedBody: "Birth certificate"},
		{name: "service details", path: "/service/svc-1", signedIn: true, expectedStatus: http.StatusOK, expectedBody: "spec-1 v2 active"},
		{name: "unknown service", path: "/service/nope", signedIn: true, expectedStatus: http.StatusOK, expectedBody: "could not be loaded"},
		{name: "provider details", path: "/provider/prov-2", signedIn: true, expectedStatus: http.StatusOK, expectedBody: "Land search"},
		{name: "sign-out asks first", path: "/account/sign-out", signedIn: true, expectedStatus: http.StatusOK, expectedBody: "Sign out of Amina?"},
		{name: "sign-out signed out", path: "/account/sign-out", expectedStatus: http.StatusOK, expectedBody: "You are signed out."},
		{name: "placeholder page", path: "/home/gateway", signedIn: true, expectedStatus: http.StatusOK, expectedBody: "Gateway will appear here"},
		{name: "unknown path", path: "/nowhere", expectedStatus: http.StatusNotFound},
	}

	for _, tc := range testCases {
		tt := tc
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ts := newTestServer(t, 10)
			var cookies []*http.Cookie
			if tt.signedIn {
				cookies = ts.signIn(t)
			}
			w := ts.do(http.MethodGet, tt.path, "", cookies, "")
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedLocation != "" {
				assert.Equal(t, tt.expectedLocation, w.Header().Get("Location"))
			}
			if tt.expectedBody != "" {
				assert.Contains(t, w.Body.String(), tt.expectedBody)
			}
		})
	}
}

func TestPages_ExpiredSessionIsCleared(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, 10)
	cookies := ts.signIn(t)
	ts.clock.Advance(time.Hour)

	w := ts.do(http.MethodGet, "/home", "", cookies, "")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/account/sign-in", w.Header().Get("Location"))

	cleared := map[string]bool{}
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			cleared[c.Name] = true
		}
	}
	assert.True(t, cleared[session.CredentialsCookie])
	assert.True(t, cleared[session.RefreshCookie])

	// Without the cookies the sign-in page renders instead of bouncing home.
	w = ts.do(http.MethodGet, "/account/sign-in", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPages_RegistryDown(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, 10)
	ts.registry.setFail(true)
	w := ts.do(http.MethodGet, "/home/services", "", ts.signIn(t), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "registry is unavailable")
}

func TestAuth_Login(t *testing.T) {
	t.Parallel()

	type testCase struct {
		name        string
		body        string
		contentType string

		expectedStatus   int
		expectedLocation string
	}

	form := func(user, pw string) string {
		return url.Values{"username": {user}, "password": {pw}}.Encode()
	}
	const formType = "application/x-www-form-urlencoded"

	testCases := []testCase{
		{name: "json ok", body: `{"username":"amina","password":"hunter22"}`, contentType: "application/json", expectedStatus: http.StatusNoContent},
		{name: "json wrong password", body: `{"username":"amina","password":"nope"}`, contentType: "application/json", expectedStatus: http.StatusUnauthorized},
		{name: "json unknown user", body: `{"username":"zed","password":"hunter22"}`, contentType: "application/json", expectedStatus: http.StatusUnauthorized},
		{name: "json missing password", body: `{"username":"amina"}`, contentType: "application/json", expectedStatus: http.StatusBadRequest},
		{name: "bad json", body: `{`, contentType: "application/json", expectedStatus: http.StatusBadRequest},
		{name: "form ok", body: form("amina", "hunter22"), contentType: formType, expectedStatus: http.StatusSeeOther, expectedLocation: "/home"},
		{name: "form wrong password", body: form("amina", "x"), contentType: formType, expectedStatus: http.StatusSeeOther, expectedLocation: "/account/sign-in?status=invalid"},
	}

	for _, tc := range testCases {
		tt := tc
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ts := newTestServer(t, 10)
			w := ts.do(http.MethodPost, "/api/v1/auth/login", tt.body, nil, tt.contentType)
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedLocation != "" {
				assert.Equal(t, tt.expectedLocation, w.Header().Get("Location"))
			}
		})
	}
}

func TestAuth_LoginRateLimited(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, 1)
	body := `{"username":"amina","password":"nope"}`
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodPost, "/api/v1/auth/login", body, nil, "application/json").Code)
	assert.Equal(t, http.StatusTooManyRequests, ts.do(http.MethodPost, "/api/v1/auth/login", body, nil, "application/json").Code)

	ts.clock.Advance(time.Minute)
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodPost, "/api/v1/auth/login", body, nil, "application/json").Code)
}

func TestAuth_MeAndLogout(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, 10)
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/v1/auth/me", "", nil, "").Code)

	cookies := ts.signIn(t)
	w := ts.do(http.MethodGet, "/api/v1/auth/me", "", cookies, "")
	require.Equal(t, http.StatusOK, w.Code)
	var me meResp
	require.NoError(t, json.NewDecoder(w.Body).Decode(&me))
	assert.Equal(t, "amina", me.Username)
	assert.Equal(t, ts.clock.Now().Add(time.Hour).Unix(), me.RefreshExp)

	ts.do(http.MethodPost, "/api/v1/balance/increase", `{"amount":1}`, cookies, "application/json")
	require.Equal(t, 1, ts.views.Len())

	// The sign-out page only renders the form.
	w = ts.do(http.MethodGet, "/account/sign-out", "", cookies, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<form method="post" action="/api/v1/auth/logout">`)
	assert.Empty(t, w.Result().Cookies())
	assert.Equal(t, 1, ts.views.Len())

	w = ts.do(http.MethodPost, "/api/v1/auth/logout", "", cookies, "")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/account/sign-in", w.Header().Get("Location"))
	assert.Equal(t, 0, ts.views.Len())
	for _, c := range w.Result().Cookies() {
		assert.Negative(t, c.MaxAge, c.Name)
	}
}

func TestAuth_SignInAgainDropsPreviousView(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, 10)
	first := ts.signIn(t)
	ts.do(http.MethodGet, "/api/v1/balance", "", first, "")
	require.Equal(t, 1, ts.views.Len())

	w := ts.do(http.MethodPost, "/api/v1/auth/login", `{"username":"amina","password":"hunter22"}`, first, "application/json")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, ts.views.Len())
}

func TestBalanceAPI(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, 10)
	cookies := ts.signIn(t)

	read := func(w *httptest.ResponseRecorder) ledger.Snapshot {
		t.Helper()
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var s ledger.Snapshot
		require.NoError(t, json.NewDecoder(w.Body).Decode(&s))
		return s
	}

	assert.Equal(t, ledger.Snapshot{Prev: 0, Current: 15000000},
		read(ts.do(http.MethodGet, "/api/v1/balance", "", cookies, "")))
	assert.Equal(t, ledger.Snapshot{Prev: 15000000, Current: 15000500},
		read(ts.do(http.MethodPost, "/api/v1/balance/increase", `{"amount":500}`, cookies, "application/json")))
	assert.Equal(t, ledger.Snapshot{Prev: 15000500, Current: 15000400},
		read(ts.do(http.MethodPost, "/api/v1/balance/decrease", `{"amount":100}`, cookies, "application/json")))
	assert.Equal(t, ledger.Snapshot{Prev: 15000400, Current: 15000400},
		read(ts.do(http.MethodPost, "/api/v1/balance/increase", `{"amount":0}`, cookies, "application/json")))

	assert.Equal(t, http.StatusBadRequest,
		ts.do(http.MethodPost, "/api/v1/balance/increase", `{}`, cookies, "application/json").Code)
	assert.Equal(t, http.StatusUnauthorized,
		ts.do(http.MethodGet, "/api/v1/balance", "", nil, "").Code)
}

func TestBillingAPI(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, 10)
	cookies := ts.signIn(t)

	w := ts.do(http.MethodGet, "/api/v1/billing/transactions", "", cookies, "")
	require.Equal(t, http.StatusOK, w.Code)
	var tx billing.TransactionSet
	require.NoError(t, json.NewDecoder(w.Body).Decode(&tx))
	assert.Len(t, tx.Transactions, 3)
	assert.Equal(t, int64(600), tx.TotalAmount)

	w = ts.do(http.MethodGet, "/api/v1/billing/float-requests?limit=2&page=2", "", cookies, "")
	require.Equal(t, http.StatusOK, w.Code)
	var fr struct {
		FloatRequests []billing.FloatRequest `json:"float_requests"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&fr))
	require.Len(t, fr.FloatRequests, 2)
	assert.Equal(t, int64(3), fr.FloatRequests[0].ID)

	assert.Equal(t, http.StatusUnauthorized,
		ts.do(http.MethodGet, "/api/v1/billing/float-ledgers", "", nil, "").Code)
}

func TestViews_SessionsDoNotShareState(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, 10)
	first := ts.signIn(t)
	second := ts.signIn(t)

	w := ts.do(http.MethodGet, "/home/services", "", first, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Birth certificate")

	// The second session's registry call fails; it must not fall back to
	// what the first session loaded.
	ts.registry.setFail(true)
	w = ts.do(http.MethodGet, "/home/services", "", second, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "registry is unavailable")
	assert.NotContains(t, w.Body.String(), "Birth certificate")

	// The first session still shows its own last answer.
	w = ts.do(http.MethodGet, "/home/services", "", first, "")
	assert.Contains(t, w.Body.String(), "Birth certificate")

	w = ts.do(http.MethodPost, "/api/v1/balance/increase", `{"amount":500}`, first, "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(http.MethodGet, "/api/v1/balance", "", second, "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap ledger.Snapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snap))
	assert.Equal(t, int64(15000000), snap.Current)
	assert.Equal(t, 2, ts.views.Len())
}

func TestCatalogAPI(t *testing.T) {
	t.Parallel()

	type testCase struct {
		name        string
		method      string
		path        string
		body        string
		signedOut   bool
		noCatalog   bool
		registryOff bool

		expectedStatus int
		expectedBody   string
		expectedSaved  string
	}

	testCases := []testCase{
		{name: "list", method: http.MethodGet, path: "/api/v1/services", expectedStatus: http.StatusOK, expectedBody: `"Birth certificate"`},
		{name: "find", method: http.MethodGet, path: "/api/v1/services/svc-2", expectedStatus: http.StatusOK, expectedBody: `"Land search"`},
		{name: "find unknown", method: http.MethodGet, path: "/api/v1/services/nope", expectedStatus: http.StatusBadGateway},
		{name: "specs of service", method: http.MethodGet, path: "/api/v1/services/svc-1/specs", expectedStatus: http.StatusOK, expectedBody: `"spec-1"`},
		{name: "spec", method: http.MethodGet, path: "/api/v1/service-specs/spec-1", expectedStatus: http.StatusOK, expectedBody: `"serviceId":"svc-1"`},
		{name: "provider services", method: http.MethodGet, path: "/api/v1/providers/prov-1/services", expectedStatus: http.StatusOK, expectedBody: `"Birth certificate"`},
		{name: "create service", method: http.MethodPost, path: "/api/v1/services", body: `{"name":"Passport"}`, expectedStatus: http.StatusOK, expectedBody: `"saved"`, expectedSaved: `{"name":"Passport"}`},
		{name: "edit service", method: http.MethodPut, path: "/api/v1/services/svc-1", body: `{"name":"Birth cert"}`, expectedStatus: http.StatusOK, expectedSaved: `{"id":"svc-1","payload":{"name":"Birth cert"}}`},
		{name: "create spec", method: http.MethodPost, path: "/api/v1/service-specs", body: `{"serviceId":"svc-1"}`, expectedStatus: http.StatusOK, expectedSaved: `{"serviceId":"svc-1"}`},
		{name: "update spec", method: http.MethodPut, path: "/api/v1/service-specs", body: `{"id":"spec-1"}`, expectedStatus: http.StatusOK, expectedSaved: `{"id":"spec-1"}`},
		{name: "update spec status", method: http.MethodPut, path: "/api/v1/service-specs/status", body: `{"id":"spec-1","status":"active"}`, expectedStatus: http.StatusOK, expectedSaved: `{"id":"spec-1","status":"active"}`},
		{name: "bad json", method: http.MethodPost, path: "/api/v1/services", body: `{"name":`, expectedStatus: http.StatusBadRequest},
		{name: "registry down", method: http.MethodPost, path: "/api/v1/services", body: `{}`, registryOff: true, expectedStatus: http.StatusBadGateway},
		{name: "no registry configured", method: http.MethodGet, path: "/api/v1/services", noCatalog: true, expectedStatus: http.StatusServiceUnavailable},
		{name: "signed out", method: http.MethodPost, path: "/api/v1/services", body: `{}`, signedOut: true, expectedStatus: http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		tt := tc
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ts := newTestServerWith(t, 10, !tt.noCatalog)
			var cookies []*http.Cookie
			if !tt.signedOut {
				cookies = ts.signIn(t)
			}
			ts.registry.setFail(tt.registryOff)

			w := ts.do(tt.method, tt.path, tt.body, cookies, "application/json")
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedBody != "" {
				assert.Contains(t, w.Body.String(), tt.expectedBody)
			}
			if tt.expectedSaved != "" {
				require.Len(t, ts.registry.payloads, 1)
				assert.JSONEq(t, tt.expectedSaved, ts.registry.payloads[0])
			}
		})
	}
}
