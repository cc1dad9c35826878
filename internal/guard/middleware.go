package guard

import (
	"net/http"
	"net/url"

	"registrydash/internal/logging"
	"registrydash/internal/routes"
	"registrydash/internal/session"
)

// SessionClearer drops the session cookies from a response.
type SessionClearer interface {
	Clear(w http.ResponseWriter)
}

// Pages applies a Guard to page requests. The session must already be in the
// request context.
type Pages struct {
	Guard    *Guard
	Table    *routes.Table
	Sessions SessionClearer
}

// Wrap guards next, which serves route. A redirect answers 303 with the
// target's path; the browser's follow-up request is evaluated again.
//
// When the guard sends a browser that still holds tokens to sign-in, those
// tokens were found expired and are cleared. Otherwise the sign-in page would
// bounce the browser home and home would bounce it back.
func (p *Pages) Wrap(route routes.Route, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := session.From(r.Context())
		from := fromReferer(p.Table, r)
		d := p.Guard.Authorize(route, from, s)
		if d.Allowed() {
			next.ServeHTTP(w, r)
			return
		}

		target, err := p.Table.PathFor(d.Redirect, nil)
		if err != nil {
			logging.From(r.Context()).Error("guard.redirect_target", "to", d.Redirect, "err", err)
			http.Error(w, "routing error", http.StatusInternalServerError)
			return
		}
		expired := d.Redirect == p.Guard.signIn && s.Present()
		if expired && p.Sessions != nil {
			p.Sessions.Clear(w)
		}
		logging.From(r.Context()).Info("guard.redirect",
			"route", route.Name,
			"from", from.Name,
			"to", d.Redirect,
			"expired", expired,
		)
		http.Redirect(w, r, target, http.StatusSeeOther)
	})
}

// fromReferer resolves the page the browser came from. Unknown or foreign
// referers give the zero Route.
func fromReferer(tbl *routes.Table, r *http.Request) routes.Route {
	ref := r.Referer()
	if ref == "" {
		return routes.Route{}
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != r.Host) {
		return routes.Route{}
	}
	rt, _, ok := tbl.Match(u.Path)
	if !ok {
		return routes.Route{}
	}
	return rt
}
