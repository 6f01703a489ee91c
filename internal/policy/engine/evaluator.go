// Package engine decides, per request path, whether the route guard lets the request through
// or redirects it. Only the presence of the token cookie is considered; the token itself is
// validated by the upstream API.
package engine

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Action is the guard's verdict.
type Action string

const (
	ActionAllow     Action = "allow"
	ActionLogin     Action = "login"     // redirect to the login page, remembering the path
	ActionDashboard Action = "dashboard" // already signed in; skip the login page
)

// ReasonUnauthorized marks a login page visit caused by the upstream rejecting the token.
const ReasonUnauthorized = "unauthorized"

// RouteInput is what the guard knows about a request.
type RouteInput struct {
	Method   string
	Path     string
	HasToken bool
	// Reason is the reason query parameter of the request.
	Reason string
}

// Decision is an Action plus the redirect target for non-allow actions.
type Decision struct {
	Action   Action
	Location string
}

// Redirect reports whether the decision redirects.
func (d Decision) Redirect() bool { return d.Action != ActionAllow }

// Rules are the guard's paths.
type Rules struct {
	ProtectedPrefix string
	LoginPath       string
	LandingPath     string
	// ExcludedPrefixes are never guarded (proxy, metrics, health, static assets).
	ExcludedPrefixes []string
}

// DefaultRules guards /dashboard and skips /api, /metrics, /healthz and static assets.
var DefaultRules = Rules{
	ProtectedPrefix:  "/dashboard",
	LoginPath:        "/login",
	LandingPath:      "/dashboard",
	ExcludedPrefixes: []string{"/api", "/metrics", "/healthz", "/static", "/favicon.ico"},
}

// Excluded reports whether path bypasses the guard.
func (r Rules) Excluded(path string) bool {
	for _, p := range r.ExcludedPrefixes {
		if underPrefix(path, p) {
			return true
		}
	}
	return false
}

// Protected reports whether path is the protected prefix or below it.
func (r Rules) Protected(path string) bool {
	return underPrefix(path, r.ProtectedPrefix)
}

// Decide maps action to a Decision for path.
func (r Rules) Decide(action Action, path string) Decision {
	switch action {
	case ActionLogin:
		return Decision{Action: ActionLogin, Location: r.LoginPath + "?redirect=" + escapeRedirect(path)}
	case ActionDashboard:
		return Decision{Action: ActionDashboard, Location: r.LandingPath}
	default:
		return Decision{Action: ActionAllow}
	}
}

// Evaluator evaluates the route guard.
type Evaluator interface {
	// EvaluateRoute returns the decision for in. On error the returned decision is the
	// built-in rules' decision so callers can still act on it.
	EvaluateRoute(ctx context.Context, in RouteInput) (Decision, error)
}

// BuiltinEvaluator implements the guard in Go.
type BuiltinEvaluator struct {
	rules Rules
}

// NewBuiltinEvaluator returns the Go implementation of the guard.
func NewBuiltinEvaluator(rules Rules) *BuiltinEvaluator {
	return &BuiltinEvaluator{rules: rules}
}

// EvaluateRoute never fails.
func (e *BuiltinEvaluator) EvaluateRoute(_ context.Context, in RouteInput) (Decision, error) {
	return e.rules.Decide(builtinAction(e.rules, in), in.Path), nil
}

func builtinAction(r Rules, in RouteInput) Action {
	switch {
	case r.Excluded(in.Path):
		return ActionAllow
	case r.Protected(in.Path) && !in.HasToken:
		return ActionLogin
	case in.Path == r.LoginPath && in.HasToken && in.Method != http.MethodPost && in.Reason != ReasonUnauthorized:
		// A rejected cookie has to stay replaceable through the login page.
		return ActionDashboard
	default:
		return ActionAllow
	}
}

// underPrefix matches prefix as a whole path segment, so /dashboardx is not under /dashboard.
func underPrefix(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	return path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/")
}

// escapeRedirect query-escapes path but keeps slashes readable: /login?redirect=/dashboard/x.
func escapeRedirect(path string) string {
	return strings.ReplaceAll(url.QueryEscape(path), "%2F", "/")
}
