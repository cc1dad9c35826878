// Package routes is the dashboard's static route table.
package routes

import (
	"errors"
	"fmt"
	"strings"
)

const (
	Home            = "app-home"
	Dashboard       = "app-dashboard"
	Entities        = "app-entities"
	Agents          = "app-agents"
	Services        = "app-services"
	Branches        = "app-branches"
	Accounts        = "app-accounts"
	Configurations  = "app-configurations"
	Ledger          = "app-ledger"
	ServicesDetails = "app-services-details"
	Finances        = "app-finances"
	Gateway         = "app-gateway"
	ServiceDetails  = "service-details"
	ProviderDetails = "provider-details"
	SignIn          = "app-account-sign-in"
	SignOut         = "app-account-sign-out"
)

var ErrUnknownRoute = errors.New("unknown route")

type Meta struct {
	RequiresAuth bool
	ParentName   string
	Title        string
}

// Route is a static route descriptor. Redirect names another route that
// navigation to this one is sent to before any guard runs.
type Route struct {
	Name     string
	Path     string
	Meta     Meta
	Redirect string
	Children []Route
}

// Params holds the values of ":name" segments.
type Params map[string]string

type Table struct {
	flat   []Route
	byName map[string]Route
}

// NewTable flattens routes depth first. A protected parent protects every
// child whatever the child's own meta says; children also get ParentName set.
func NewTable(routes []Route) (*Table, error) {
	t := &Table{byName: make(map[string]Route)}
	if err := t.add(routes, nil); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) add(routes []Route, parent *Route) error {
	for _, r := range routes {
		if !strings.HasPrefix(r.Path, "/") {
			return fmt.Errorf("route %q: path %q must be absolute", r.Name, r.Path)
		}
		if parent != nil {
			r.Meta.RequiresAuth = r.Meta.RequiresAuth || parent.Meta.RequiresAuth
			if r.Meta.ParentName == "" {
				r.Meta.ParentName = parent.Name
			}
		}
		children := r.Children
		r.Children = nil
		if r.Name != "" {
			if _, dup := t.byName[r.Name]; dup {
				return fmt.Errorf("route %q defined twice", r.Name)
			}
			t.byName[r.Name] = r
		}
		t.flat = append(t.flat, r)
		if err := t.add(children, &r); err != nil {
			return err
		}
	}
	return nil
}

// All returns the flattened table in declaration order.
func (t *Table) All() []Route {
	out := make([]Route, len(t.flat))
	copy(out, t.flat)
	return out
}

func (t *Table) ByName(name string) (Route, error) {
	r, ok := t.byName[name]
	if !ok {
		return Route{}, fmt.Errorf("%w: %q", ErrUnknownRoute, name)
	}
	return r, nil
}

// Match returns the first route whose path matches p.
func (t *Table) Match(p string) (Route, Params, bool) {
	segs := split(p)
	for _, r := range t.flat {
		if params, ok := matchSegments(split(r.Path), segs); ok {
			return r, params, true
		}
	}
	return Route{}, nil, false
}

// PathFor builds the concrete path of the named route.
func (t *Table) PathFor(name string, params Params) (string, error) {
	r, err := t.ByName(name)
	if err != nil {
		return "", err
	}
	segs := split(r.Path)
	for i, s := range segs {
		if !strings.HasPrefix(s, ":") {
			continue
		}
		v := params[s[1:]]
		if v == "" {
			return "", fmt.Errorf("route %q: missing param %q", name, s[1:])
		}
		segs[i] = v
	}
	return "/" + strings.Join(segs, "/"), nil
}

// Pattern converts a route path into a net/http ServeMux pattern.
func Pattern(path string) string {
	if path == "/" {
		return "/{$}"
	}
	segs := split(path)
	for i, s := range segs {
		if strings.HasPrefix(s, ":") {
			segs[i] = "{" + s[1:] + "}"
		}
	}
	return "/" + strings.Join(segs, "/")
}

func matchSegments(pattern, segs []string) (Params, bool) {
	if len(pattern) != len(segs) {
		return nil, false
	}
	var params Params
	for i, p := range pattern {
		if strings.HasPrefix(p, ":") {
			if segs[i] == "" {
				return nil, false
			}
			if params == nil {
				params = Params{}
			}
			params[p[1:]] = segs[i]
			continue
		}
		if p != segs[i] {
			return nil, false
		}
	}
	return params, true
}

func split(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
