// Package routes resolves in-app navigation targets and scanned QR payloads.
//
// A single ordered list of matchers handles both exact routes and
// parameterized deep links, evaluated in a defined priority order (exact
// matches first, then patterns), so there is exactly one resolution path.
//
// The resolver also owns the auth-gating decision: a route that requires a
// session resolves, for an unauthenticated caller, into a redirect to the
// login route carrying the originally requested path so navigation can be
// resumed after login.
package routes

import (
	"errors"
	"net/url"
	"strings"
)

// LoginPath is the redirect target for gated routes without a session.
const LoginPath = "/login"

// legacyScheme is the pre-deep-link QR scheme, kept for backward
// compatibility with already-printed codes.
const legacyScheme = "dale://"

// ErrNoRoute is returned when no matcher recognizes a path.
var ErrNoRoute = errors.New("route not found")

// ErrBadPayload is returned when a scanned QR payload is not a connect link.
var ErrBadPayload = errors.New("invalid QR payload")

// Route is a resolved navigation target.
type Route struct {
	// Name identifies the screen, e.g. "dashboard" or "connect".
	Name string `json:"name"`
	// Path is the normalized in-app path including any query suffix.
	Path string `json:"path"`
	// Params carries pattern captures such as the ficada or user id.
	Params map[string]string `json:"params,omitempty"`
	// RequiresAuth marks routes gated behind an active session.
	RequiresAuth bool `json:"requiresAuth"`
}

// Decision is the outcome of gating a route against the caller's session
// state. When Allow is false the caller should navigate to RedirectTo and
// persist PendingPath for post-login resumption.
type Decision struct {
	Allow       bool   `json:"allow"`
	RedirectTo  string `json:"redirectTo,omitempty"`
	PendingPath string `json:"pendingPath,omitempty"`
}

// matcher recognizes a path (without query) and produces a Route.
type matcher func(path string) (name string, params map[string]string, requiresAuth bool, ok bool)

// Resolver resolves paths through its ordered matcher list.
type Resolver struct {
	matchers []matcher
}

// NewResolver builds the resolver with the application's route table.
// Exact matchers are registered before pattern matchers, which fixes the
// priority order once instead of special-casing at call sites.
func NewResolver() *Resolver {
	r := &Resolver{}

	exact := []struct {
		path, name   string
		requiresAuth bool
	}{
		{"/login", "login", false},
		{"/register", "register", false},
		{"/dashboard", "dashboard", true},
		{"/profile", "profile", true},
		{"/ficada/new", "ficada-new", true},
		{"/qr-generate", "qr-generate", true},
		{"/qr-scan", "qr-scan", true},
	}
	for _, e := range exact {
		e := e
		r.matchers = append(r.matchers, func(path string) (string, map[string]string, bool, bool) {
			if path != e.path {
				return "", nil, false, false
			}
			return e.name, nil, e.requiresAuth, true
		})
	}

	r.matchers = append(r.matchers,
		prefixParam("/ficada/edit/", "ficada-edit", "id", true),
		prefixParam("/connect/", "connect", "userId", true),
	)
	return r
}

// prefixParam matches prefix followed by a single non-empty segment captured
// under paramName.
func prefixParam(prefix, name, paramName string, requiresAuth bool) matcher {
	return func(path string) (string, map[string]string, bool, bool) {
		rest, found := strings.CutPrefix(path, prefix)
		if !found || rest == "" || strings.Contains(rest, "/") {
			return "", nil, false, false
		}
		return name, map[string]string{paramName: rest}, requiresAuth, true
	}
}

// Resolve walks the matcher list in priority order. The query suffix, if any,
// is preserved on the resolved path but does not participate in matching.
func (r *Resolver) Resolve(path string) (*Route, error) {
	base, query, _ := strings.Cut(path, "?")
	if base == "" {
		return nil, ErrNoRoute
	}
	for _, m := range r.matchers {
		name, params, requiresAuth, ok := m(base)
		if !ok {
			continue
		}
		full := base
		if query != "" {
			full += "?" + query
		}
		return &Route{
			Name:         name,
			Path:         full,
			Params:       params,
			RequiresAuth: requiresAuth,
		}, nil
	}
	return nil, ErrNoRoute
}

// Gate decides whether a caller with the given session state may navigate to
// route. Gated routes without a session redirect to login and carry the
// originally requested path for resumption.
func (r *Resolver) Gate(route *Route, authenticated bool) Decision {
	if route.RequiresAuth && !authenticated {
		return Decision{
			Allow:       false,
			RedirectTo:  LoginPath,
			PendingPath: route.Path,
		}
	}
	return Decision{Allow: true}
}

// Fallback is the decision for paths no matcher recognizes. Unknown targets
// funnel to login instead of dead-ending navigation, so stale or mistyped
// links always land the user somewhere recoverable.
func (r *Resolver) Fallback() Decision {
	return Decision{Allow: false, RedirectTo: LoginPath}
}

// ParseQRPayload resolves a scanned QR payload into an in-app path.
//
// Recognized forms:
//   - https://<origin>/connect/<userId>[?query]  (current deep link)
//   - /connect/<userId>[?query]                  (already a path)
//   - dale://<type>/<userId>                     (legacy scheme)
//
// Anything else yields ErrBadPayload.
func ParseQRPayload(payload string) (string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", ErrBadPayload
	}

	if strings.HasPrefix(payload, legacyScheme) {
		parts := strings.Split(strings.TrimPrefix(payload, legacyScheme), "/")
		// parts[0] is the legacy record type ("user" or "temp").
		if len(parts) < 2 || parts[1] == "" {
			return "", ErrBadPayload
		}
		return "/connect/" + parts[1], nil
	}

	if strings.HasPrefix(payload, "/connect/") {
		return validateConnectPath(payload)
	}

	if strings.Contains(payload, "/connect/") {
		u, err := url.Parse(payload)
		if err != nil {
			return "", ErrBadPayload
		}
		if !strings.HasPrefix(u.Path, "/connect/") {
			return "", ErrBadPayload
		}
		full := u.Path
		if u.RawQuery != "" {
			full += "?" + u.RawQuery
		}
		return validateConnectPath(full)
	}

	return "", ErrBadPayload
}

// validateConnectPath checks that a /connect/ path carries a single non-empty
// user id segment.
func validateConnectPath(path string) (string, error) {
	base, _, _ := strings.Cut(path, "?")
	rest := strings.TrimPrefix(base, "/connect/")
	if rest == "" || strings.Contains(rest, "/") {
		return "", ErrBadPayload
	}
	return path, nil
}
