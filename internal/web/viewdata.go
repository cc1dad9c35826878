package web

import "registrydash/internal/ledger"

// HeaderData is rendered by the shared header partial on every page.
type HeaderData struct {
	LoggedIn    bool
	DisplayName string
	Username    string
	Balance     ledger.Snapshot
}

// NavItem is one entry of the side navigation.
type NavItem struct {
	Name   string
	Title  string
	Path   string
	Active bool
}

// Page wraps shared Header + page-specific Content.
type Page[T any] struct {
	Title   string
	Header  HeaderData
	Nav     []NavItem
	Content T
}
