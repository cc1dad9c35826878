package guard

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"registrydash/internal/routes"
	"registrydash/internal/session"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clearRecorder struct{ cleared int }

func (c *clearRecorder) Clear(http.ResponseWriter) { c.cleared++ }

func TestPages_Wrap(t *testing.T) {
	t.Parallel()

	tbl, err := routes.NewTable(routes.App())
	require.NoError(t, err)

	type testCase struct {
		name  string
		route string
		s     session.Session

		expectedStatus   int
		expectedLocation string
		expectedCleared  int
	}

	testCases := []testCase{
		{
			name:             "protected signed out",
			route:            routes.Ledger,
			s:                sess(false, false, time.Time{}),
			expectedStatus:   http.StatusSeeOther,
			expectedLocation: "/account/sign-in",
		},
		{
			name:           "protected signed in",
			route:          routes.Ledger,
			s:              sess(true, true, now.Add(time.Hour)),
			expectedStatus: http.StatusOK,
		},
		{
			name:             "protected expired clears tokens",
			route:            routes.Finances,
			s:                sess(true, true, now.Add(-time.Hour)),
			expectedStatus:   http.StatusSeeOther,
			expectedLocation: "/account/sign-in",
			expectedCleared:  1,
		},
		{
			name:             "sign in signed in",
			route:            routes.SignIn,
			s:                sess(true, true, now.Add(time.Hour)),
			expectedStatus:   http.StatusSeeOther,
			expectedLocation: "/home",
		},
		{
			name:           "sign in signed out",
			route:          routes.SignIn,
			s:              sess(false, false, time.Time{}),
			expectedStatus: http.StatusOK,
		},
	}

	for _, tc := range testCases {
		tt := tc
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			clearer := &clearRecorder{}
			pages := &Pages{
				Guard:    New(WithClock(clockwork.NewFakeClockAt(now))),
				Table:    tbl,
				Sessions: clearer,
			}
			route := mustByName(t, tbl, tt.route)
			h := pages.Wrap(route, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, route.Path, nil)
			req.Header.Set("Referer", "http://example.com/home/dashboard")
			req = req.WithContext(session.WithSession(req.Context(), tt.s))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, tt.expectedLocation, rec.Header().Get("Location"))
			assert.Equal(t, tt.expectedCleared, clearer.cleared)
		})
	}
}

func TestFromReferer(t *testing.T) {
	t.Parallel()

	tbl, err := routes.NewTable(routes.App())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "http://example.com/home", nil)
	assert.Equal(t, "", fromReferer(tbl, req).Name)

	req.Header.Set("Referer", "http://example.com/home/ledger")
	assert.Equal(t, routes.Ledger, fromReferer(tbl, req).Name)

	req.Header.Set("Referer", "http://elsewhere.org/home/ledger")
	assert.Equal(t, "", fromReferer(tbl, req).Name)

	req.Header.Set("Referer", "/service/3")
	assert.Equal(t, routes.ServiceDetails, fromReferer(tbl, req).Name)
}
