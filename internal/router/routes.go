// Package router holds the static route table and the navigation guard that
// admits or redirects every navigation.
package router

import (
	"errors"
	"fmt"
	"strings"
)

const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"

	maxRedirects = 8
)

// Component names, shared by the CLI and the web console view loaders
const (
	ComponentLogin             = "login"
	ComponentDashboard         = "dashboard"
	ComponentInstrumentDetail  = "instrument-detail"
	ComponentMyReservations    = "my-reservations"
	ComponentAdminUsers        = "admin-users"
	ComponentAdminInstruments  = "admin-instruments"
	ComponentAdminPermissions  = "admin-permissions"
	ComponentAdminReservations = "admin-reservations"
)

// ErrRouteNotFound is returned when no route matches a path
var ErrRouteNotFound = errors.New("route not found")

// Meta are the access requirements of a route. Children inherit them.
type Meta struct {
	RequiresAuth  bool
	RequiresAdmin bool
}

func (m Meta) merge(child Meta) Meta {
	return Meta{
		RequiresAuth:  m.RequiresAuth || child.RequiresAuth,
		RequiresAdmin: m.RequiresAdmin || child.RequiresAdmin,
	}
}

// Route is a static route descriptor
type Route struct {
	Path      string
	Name      string
	Component string
	Redirect  string
	Meta      Meta
	Children  []Route
}

// DefaultRoutes is the application's route surface
func DefaultRoutes() []Route {
	return []Route{
		{Path: "/", Redirect: DashboardPath},
		{Path: LoginPath, Name: "login", Component: ComponentLogin},
		{
			Path:      DashboardPath,
			Name:      "dashboard",
			Component: ComponentDashboard,
			Meta:      Meta{RequiresAuth: true},
		},
		{
			Path:      "/instrument/:id",
			Name:      "instrument-detail",
			Component: ComponentInstrumentDetail,
			Meta:      Meta{RequiresAuth: true},
		},
		{
			Path:      "/my-reservations",
			Name:      "my-reservations",
			Component: ComponentMyReservations,
			Meta:      Meta{RequiresAuth: true},
		},
		{
			Path:     "/admin",
			Name:     "admin",
			Redirect: "/admin/users",
			Meta:     Meta{RequiresAuth: true, RequiresAdmin: true},
			Children: []Route{
				{Path: "users", Name: "admin-users", Component: ComponentAdminUsers},
				{Path: "instruments", Name: "admin-instruments", Component: ComponentAdminInstruments},
				{Path: "permissions", Name: "admin-permissions", Component: ComponentAdminPermissions},
				{Path: "reservations", Name: "admin-reservations", Component: ComponentAdminReservations},
			},
		},
	}
}

// Match is a route resolved against a concrete path
type Match struct {
	Path      string
	Name      string
	Component string
	Params    map[string]string
	// Meta is merged along the parent chain
	Meta Meta
}

// Param returns a path parameter, or "" when absent
func (m *Match) Param(name string) string {
	return m.Params[name]
}

type compiledRoute struct {
	pattern   string
	segments  []string
	name      string
	component string
	redirect  string
	meta      Meta
}

// Table matches paths against the flattened route tree
type Table struct {
	routes []compiledRoute
}

// NewTable flattens nested routes, joining child paths onto their parent and
// merging meta down the tree
func NewTable(routes []Route) *Table {
	t := &Table{}
	t.add(routes, "", Meta{})
	return t
}

func (t *Table) add(routes []Route, parentPath string, parentMeta Meta) {
	for _, r := range routes {
		full := joinPath(parentPath, r.Path)
		meta := parentMeta.merge(r.Meta)

		t.routes = append(t.routes, compiledRoute{
			pattern:   full,
			segments:  splitPath(full),
			name:      r.Name,
			component: r.Component,
			redirect:  r.Redirect,
			meta:      meta,
		})

		if len(r.Children) > 0 {
			t.add(r.Children, full, meta)
		}
	}
}

func joinPath(parent, child string) string {
	if strings.HasPrefix(child, "/") || parent == "" {
		return "/" + strings.Trim(child, "/")
	}
	return strings.TrimRight(parent, "/") + "/" + strings.Trim(child, "/")
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// Patterns returns every routable path pattern (redirect-only routes included)
func (t *Table) Patterns() []string {
	out := make([]string, 0, len(t.routes))
	for _, r := range t.routes {
		out = append(out, r.pattern)
	}
	return out
}

// Resolve matches path and follows route-level redirects
func (t *Table) Resolve(path string) (*Match, error) {
	current := path
	for i := 0; i <= maxRedirects; i++ {
		r, params, ok := t.match(current)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, current)
		}

		if r.redirect == "" {
			return &Match{
				Path:      cleanPath(current),
				Name:      r.name,
				Component: r.component,
				Params:    params,
				Meta:      r.meta,
			}, nil
		}
		current = r.redirect
	}
	return nil, fmt.Errorf("too many redirects resolving %s", path)
}

func cleanPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return "/" + strings.Trim(p, "/")
}

func (t *Table) match(path string) (*compiledRoute, map[string]string, bool) {
	segs := splitPath(cleanPath(path))

	for i := range t.routes {
		r := &t.routes[i]
		if len(r.segments) != len(segs) {
			continue
		}

		params := map[string]string{}
		ok := true
		for j, want := range r.segments {
			if strings.HasPrefix(want, ":") {
				if segs[j] == "" {
					ok = false
					break
				}
				params[want[1:]] = segs[j]
				continue
			}
			if want != segs[j] {
				ok = false
				break
			}
		}
		if ok {
			return r, params, true
		}
	}
	return nil, nil, false
}
