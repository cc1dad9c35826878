package http

import (
	"context"
	"net/http"
	"time"

	"registrydash/internal/http/middleware"
	"registrydash/internal/routes"
	"registrydash/internal/web"
)

// loadHeader fills the shared header for the request's session. A session
// whose refresh token has expired renders as signed out.
func loadHeader(r *http.Request, d Deps) web.HeaderData {
	header := web.HeaderData{}
	uid := middleware.UserID(r)
	if uid == "" || !sessionOf(r).Authenticated(d.Clock.Now()) {
		return header
	}
	header.LoggedIn = true
	if v := viewOf(d.Views, r); v != nil {
		header.Balance = v.Balance.Snapshot()
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if u, err := d.Users.ByID(ctx, uid); err == nil {
		header.Username = u.Username
		header.DisplayName = u.DisplayName
	}
	return header
}

// navItems lists the home children, marking active.
func navItems(tbl *routes.Table, active routes.Route) []web.NavItem {
	var items []web.NavItem
	for _, rt := range tbl.All() {
		if rt.Meta.ParentName != routes.Home {
			continue
		}
		items = append(items, web.NavItem{
			Name:   rt.Name,
			Title:  rt.Meta.Title,
			Path:   rt.Path,
			Active: rt.Name == active.Name,
		})
	}
	return items
}
