// Package server assembles the HTTP and gRPC servers of the BFF.
package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"mis-dashboard/backend/internal/dashboard"
	dashboardhandler "mis-dashboard/backend/internal/dashboard/handler"
	"mis-dashboard/backend/internal/health"
	householdhandler "mis-dashboard/backend/internal/household/handler"
	locationhandler "mis-dashboard/backend/internal/location/handler"
	"mis-dashboard/backend/internal/metrics"
	"mis-dashboard/backend/internal/policy/engine"
	programhandler "mis-dashboard/backend/internal/program/handler"
	"mis-dashboard/backend/internal/proxy"
	"mis-dashboard/backend/internal/server/middleware"
	"mis-dashboard/backend/internal/session"
	sessionhandler "mis-dashboard/backend/internal/session/handler"
	"mis-dashboard/backend/internal/upstream"
)

// Deps holds what the HTTP handler is built from. Upstream, Binder and Evaluator are required.
type Deps struct {
	Upstream        *upstream.Client
	UpstreamBaseURL string
	UpstreamTimeout time.Duration
	Binder          *session.Binder
	Evaluator       engine.Evaluator
	// Loader caches dashboard sections per client. If nil, a loader with the default TTL is used.
	Loader *dashboard.Loader
	// Health serves /healthz. If nil, /healthz is not registered.
	Health *health.Checker
	Logger *zap.Logger
}

// NewHTTPHandler returns the BFF's root handler.
//
// Routes:
//   - /api, /api/...       → internal/proxy (no session)
//   - GET /metrics         → Prometheus
//   - GET /healthz         → internal/health
//   - /login, /logout, /session → internal/session/handler
//   - /dashboard, /dashboard/summary → internal/dashboard/handler
//   - /dashboard/programs/...   → internal/program/handler
//   - /dashboard/households/... → internal/household/handler
//   - /dashboard/locations/...  → internal/location/handler
//
// Every request runs through request id, access log, panic recovery and the route guard,
// in that order. Only the view routes get a session.
func NewHTTPHandler(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loader := deps.Loader
	if loader == nil {
		loader = dashboard.NewLoader(0)
	}
	deps.Binder.OnClear(loader.Forget)

	views := http.NewServeMux()
	sessionhandler.NewServer(deps.Upstream, logger).Register(views)
	dashboardhandler.NewServer(deps.Upstream, loader, logger).Register(views)
	programhandler.NewServer(deps.Upstream, logger).Register(views)
	householdhandler.NewServer(deps.Upstream, logger).Register(views)
	locationhandler.NewServer(deps.Upstream, logger).Register(views)
	views.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, session.DashboardPath, http.StatusFound)
	})

	root := http.NewServeMux()
	p := proxy.NewHandler(deps.UpstreamBaseURL, deps.UpstreamTimeout, logger)
	root.Handle(proxy.Prefix, p)
	root.Handle(proxy.Prefix+"/", p)
	root.Handle("GET /metrics", metrics.Handler())
	if deps.Health != nil {
		root.Handle("GET /healthz", deps.Health.Handler())
	}
	root.Handle("/", deps.Binder.Middleware(views))

	return middleware.Chain(root,
		middleware.RequestID,
		middleware.AccessLog(logger),
		middleware.Recover(logger),
		middleware.Guard(deps.Evaluator, logger),
	)
}
