// Package handler serves the dashboard summary.
package handler

import (
	"net/http"

	"go.uber.org/zap"

	"mis-dashboard/backend/internal/dashboard"
	"mis-dashboard/backend/internal/platform/httpx"
	"mis-dashboard/backend/internal/session"
	"mis-dashboard/backend/internal/upstream"
)

// Server implements the dashboard summary endpoints.
type Server struct {
	client *upstream.Client
	loader *dashboard.Loader
	logger *zap.Logger
}

// NewServer returns the summary endpoints.
func NewServer(client *upstream.Client, loader *dashboard.Loader, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{client: client, loader: loader, logger: logger}
}

// Register adds the summary routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /dashboard", s.Summary)
	mux.HandleFunc("GET /dashboard/summary", s.Summary)
}

type failure struct {
	Error   string            `json:"error"`
	Section dashboard.Section `json:"failed_section,omitempty"`
	Retry   string            `json:"retry,omitempty"`
}

// Summary returns the totals and the member listing. With ?retry=<section> only that section is
// fetched again and the client's other loaded sections are reused.
func (s *Server) Summary(w http.ResponseWriter, r *http.Request) {
	var owner dashboard.Owner
	if m, ok := session.FromContext(r.Context()); ok {
		owner.ClientID = m.ClientID()
		owner.Token, _ = m.Token()
	}
	u := httpx.Client(r, s.client)

	var (
		sum *dashboard.Summary
		err error
	)
	if retry := r.URL.Query().Get("retry"); retry != "" {
		sec, ok := dashboard.ParseSection(retry)
		if !ok {
			httpx.WriteError(w, http.StatusBadRequest, "Unknown section")
			return
		}
		sum, err = s.loader.Retry(r.Context(), owner, sec, u)
	} else {
		sum, err = s.loader.Load(r.Context(), owner, u)
	}
	if err == nil {
		httpx.WriteJSON(w, http.StatusOK, sum)
		return
	}
	if upstream.IsUnauthorized(err) {
		httpx.Unauthorized(w, r, err)
		return
	}
	s.logger.Warn("dashboard: summary failed", zap.String("client_id", owner.ClientID), zap.Error(err))
	resp := failure{Error: dashboard.FailedMessage}
	if sec, ok := dashboard.FailedSection(err); ok {
		resp.Section = sec
		resp.Retry = "/dashboard/summary?retry=" + string(sec)
	}
	httpx.WriteJSON(w, http.StatusBadGateway, resp)
}
