// Package guard decides, for every navigation, whether the target page may be
// shown or the browser must go somewhere else first.
package guard

import (
	"errors"
	"fmt"

	"registrydash/internal/routes"
	"registrydash/internal/session"

	"github.com/jonboulle/clockwork"
)

// MaxHops bounds how many redirects one navigation may follow.
const MaxHops = 8

var ErrRedirectLoop = errors.New("redirect loop")

// Decision is either Allow (zero Redirect) or a redirect to a named route.
type Decision struct {
	Redirect string
}

var Allow = Decision{}

func RedirectTo(name string) Decision { return Decision{Redirect: name} }

func (d Decision) Allowed() bool { return d.Redirect == "" }

func (d Decision) String() string {
	if d.Allowed() {
		return "allow"
	}
	return "redirect:" + d.Redirect
}

type Guard struct {
	clock  clockwork.Clock
	signIn string
	home   string
}

type Option func(*Guard)

func WithClock(c clockwork.Clock) Option { return func(g *Guard) { g.clock = c } }

// WithRouteNames overrides the sign-in and home route names.
func WithRouteNames(signIn, home string) Option {
	return func(g *Guard) {
		g.signIn = signIn
		g.home = home
	}
}

func New(opts ...Option) *Guard {
	g := &Guard{
		clock:  clockwork.NewRealClock(),
		signIn: routes.SignIn,
		home:   routes.Home,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Authorize evaluates one navigation to `to`; where it came from does not
// change the decision.
//
// Protected routes need credentials and a refresh token that expires strictly
// after now. Signed-in users are sent home from the sign-in page; that check
// looks at presence only, not at expiry.
func (g *Guard) Authorize(to, _ routes.Route, s session.Session) Decision {
	if to.Meta.RequiresAuth {
		if !s.HasCredentials() || !s.HasRefresh() || s.Refresh.Exp <= g.clock.Now().Unix() {
			return RedirectTo(g.signIn)
		}
	} else if to.Name == g.signIn && s.Present() {
		return RedirectTo(g.home)
	}
	return Allow
}

// Navigate resolves a navigation to its final route, following route-level
// redirects and guard redirects as fresh navigations.
func (g *Guard) Navigate(tbl *routes.Table, to, from routes.Route, s session.Session) (routes.Route, error) {
	seen := []string{label(to)}
	for hop := 0; ; hop++ {
		next := to.Redirect
		if next == "" {
			next = g.Authorize(to, from, s).Redirect
		}
		if next == "" {
			return to, nil
		}
		if hop >= MaxHops {
			return routes.Route{}, fmt.Errorf("%w: %v", ErrRedirectLoop, seen)
		}
		r, err := tbl.ByName(next)
		if err != nil {
			return routes.Route{}, fmt.Errorf("redirect from %s: %w", label(to), err)
		}
		from, to = to, r
		seen = append(seen, label(to))
	}
}

func label(r routes.Route) string {
	if r.Name != "" {
		return r.Name
	}
	return r.Path
}
