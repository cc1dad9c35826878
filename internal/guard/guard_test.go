package guard

import (
	"testing"
	"time"

	"registrydash/internal/routes"
	"registrydash/internal/session"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func sess(creds, refresh bool, exp time.Time) session.Session {
	var s session.Session
	if creds {
		s.Credentials = &session.Token{Raw: "access", UserID: "u1"}
	}
	if refresh {
		s.Refresh = &session.RefreshToken{Raw: "refresh", UserID: "u1", Exp: exp.Unix()}
	}
	return s
}

func TestGuard_Authorize(t *testing.T) {
	t.Parallel()

	protected := routes.Route{Name: routes.Ledger, Path: "/home/ledger", Meta: routes.Meta{RequiresAuth: true}}
	public := routes.Route{Name: "public", Path: "/public"}
	signIn := routes.Route{Name: routes.SignIn, Path: "/account/sign-in"}

	type testCase struct {
		name string
		to   routes.Route
		s    session.Session

		expected Decision
	}

	testCases := []testCase{
		{
			name:     "protected without credentials",
			to:       protected,
			s:        sess(false, false, time.Time{}),
			expected: RedirectTo(routes.SignIn),
		},
		{
			name:     "protected with credentials but no refresh token",
			to:       protected,
			s:        sess(true, false, time.Time{}),
			expected: RedirectTo(routes.SignIn),
		},
		{
			name:     "protected with refresh token but no credentials",
			to:       protected,
			s:        sess(false, true, now.Add(time.Hour)),
			expected: RedirectTo(routes.SignIn),
		},
		{
			name:     "protected with expired refresh token",
			to:       protected,
			s:        sess(true, true, now.Add(-time.Second)),
			expected: RedirectTo(routes.SignIn),
		},
		{
			name:     "protected with refresh token expiring right now",
			to:       protected,
			s:        sess(true, true, now),
			expected: RedirectTo(routes.SignIn),
		},
		{
			name:     "protected with valid session",
			to:       protected,
			s:        sess(true, true, now.Add(time.Second)),
			expected: Allow,
		},
		{
			name:     "sign in while signed in",
			to:       signIn,
			s:        sess(true, true, now.Add(time.Hour)),
			expected: RedirectTo(routes.Home),
		},
		{
			name:     "sign in with expired tokens still goes home",
			to:       signIn,
			s:        sess(true, true, now.Add(-time.Hour)),
			expected: RedirectTo(routes.Home),
		},
		{
			name:     "sign in with credentials only",
			to:       signIn,
			s:        sess(true, false, time.Time{}),
			expected: Allow,
		},
		{
			name:     "sign in signed out",
			to:       signIn,
			s:        sess(false, false, time.Time{}),
			expected: Allow,
		},
		{
			name:     "public without credentials",
			to:       public,
			s:        sess(false, false, time.Time{}),
			expected: Allow,
		},
	}

	g := New(WithClock(clockwork.NewFakeClockAt(now)))
	for _, tc := range testCases {
		tt := tc
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := g.Authorize(tt.to, routes.Route{}, tt.s)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestGuard_ExpiryFollowsClock(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(now)
	g := New(WithClock(clock))
	to := routes.Route{Name: routes.Dashboard, Meta: routes.Meta{RequiresAuth: true}}
	s := sess(true, true, now.Add(time.Minute))

	assert.True(t, g.Authorize(to, routes.Route{}, s).Allowed())
	clock.Advance(time.Minute)
	assert.Equal(t, RedirectTo(routes.SignIn), g.Authorize(to, routes.Route{}, s))
}

func TestGuard_Navigate(t *testing.T) {
	t.Parallel()

	tbl, err := routes.NewTable(routes.App())
	require.NoError(t, err)
	g := New(WithClock(clockwork.NewFakeClockAt(now)))

	byPath := func(p string) routes.Route {
		r, _, ok := tbl.Match(p)
		require.True(t, ok, p)
		return r
	}

	type testCase struct {
		name string
		path string
		s    session.Session

		expectedName string
		expectedErr  error
	}

	testCases := []testCase{
		{name: "root signed out lands on sign in", path: "/", s: sess(false, false, time.Time{}), expectedName: routes.SignIn},
		{name: "root signed in lands home", path: "/", s: sess(true, true, now.Add(time.Hour)), expectedName: routes.Home},
		{name: "sign in signed in lands home", path: "/account/sign-in", s: sess(true, true, now.Add(time.Hour)), expectedName: routes.Home},
		{name: "child signed out lands on sign in", path: "/home/ledger", s: sess(false, false, time.Time{}), expectedName: routes.SignIn},
		{name: "child signed in stays", path: "/home/ledger", s: sess(true, true, now.Add(time.Hour)), expectedName: routes.Ledger},
		{name: "expired tokens bounce forever", path: "/home/ledger", s: sess(true, true, now.Add(-time.Hour)), expectedErr: ErrRedirectLoop},
	}

	for _, tc := range testCases {
		tt := tc
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := g.Navigate(tbl, byPath(tt.path), routes.Route{}, tt.s)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedName, got.Name)
		})
	}
}

func TestGuard_NavigateUnknownTarget(t *testing.T) {
	t.Parallel()

	tbl, err := routes.NewTable([]routes.Route{{Name: "a", Path: "/a", Redirect: "missing"}})
	require.NoError(t, err)

	_, err = New().Navigate(tbl, mustByName(t, tbl, "a"), routes.Route{}, session.Session{})
	assert.ErrorIs(t, err, routes.ErrUnknownRoute)
}

func TestGuard_WithRouteNames(t *testing.T) {
	t.Parallel()

	g := New(WithRouteNames("login", "start"), WithClock(clockwork.NewFakeClockAt(now)))
	got := g.Authorize(routes.Route{Name: "x", Meta: routes.Meta{RequiresAuth: true}}, routes.Route{}, session.Session{})
	assert.Equal(t, RedirectTo("login"), got)

	got = g.Authorize(routes.Route{Name: "login"}, routes.Route{}, sess(true, true, now.Add(time.Hour)))
	assert.Equal(t, RedirectTo("start"), got)
}

func TestDecision_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "redirect:app-home", RedirectTo(routes.Home).String())
}

func mustByName(t *testing.T, tbl *routes.Table, name string) routes.Route {
	t.Helper()
	r, err := tbl.ByName(name)
	require.NoError(t, err)
	return r
}
