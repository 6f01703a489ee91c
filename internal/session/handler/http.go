// Package handler serves the session endpoints of the BFF: login, logout and the session probe.
package handler

import (
	"errors"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"mis-dashboard/backend/internal/platform/httpx"
	"mis-dashboard/backend/internal/security"
	"mis-dashboard/backend/internal/session"
	"mis-dashboard/backend/internal/telemetry"
	"mis-dashboard/backend/internal/upstream"
	"mis-dashboard/backend/internal/validation"
)

// LoginFailedMessage is shown for every failed login, whatever the upstream said.
const LoginFailedMessage = "Invalid email or password"

// Server implements the session endpoints.
type Server struct {
	client *upstream.Client
	logger *zap.Logger
}

// NewServer returns the session endpoints calling the upstream through client.
func NewServer(client *upstream.Client, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{client: client, logger: logger}
}

// Register adds the session routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("POST /login", s.Login)
	mux.HandleFunc("POST /logout", s.Logout)
	mux.HandleFunc("GET /session", s.Session)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Redirect string `json:"redirect"`
}

// LoginPage reports the logged-out state. A client holding a token cookie never gets here;
// the route guard sends it to the dashboard.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": false,
		"redirect":      SafeRedirect(r.URL.Query().Get("redirect")),
	})
}

// Login exchanges credentials for a token, stores it in the session and sends the client on to the
// page it originally asked for.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	m, ok := session.FromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusInternalServerError, "Session unavailable")
		return
	}
	in, err := decodeLogin(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	errs := validation.Errors{}
	errs.Required("email", in.Email, "Email is required")
	errs.Required("password", in.Password, "Password is required")
	if len(errs) > 0 {
		httpx.WriteValidation(w, errs)
		return
	}

	token, err := s.client.Login(r.Context(), strings.TrimSpace(in.Email), in.Password)
	if err != nil {
		s.logger.Info("login failed", zap.String("client_id", m.ClientID()), zap.Error(err))
		m.Emit(telemetry.EventLoginFailed, err)
		httpx.WriteError(w, http.StatusUnauthorized, LoginFailedMessage)
		return
	}
	if err := m.SetToken(r.Context(), token); err != nil {
		// Cookie and memory hold the token; the next request re-persists it from the cookie.
		s.logger.Warn("login: token not persisted", zap.String("client_id", m.ClientID()), zap.Error(err))
	}
	m.Emit(telemetry.EventLogin, nil)

	target := SafeRedirect(firstNonEmpty(in.Redirect, r.URL.Query().Get("redirect")))
	if httpx.WantsJSON(r) {
		httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"authenticated": true, "redirect": target})
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Logout clears the session and navigates to the login page, also when clearing failed.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	m, ok := session.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, session.LoginPath, http.StatusFound)
		return
	}
	target := m.Logout(r.Context())
	if httpx.WantsJSON(r) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"redirect": target})
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

type sessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	IsLoading     bool       `json:"is_loading"`
	Subject       string     `json:"subject,omitempty"`
	Email         string     `json:"email,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// Session reports whether the client holds a token and, for JWTs, who it was issued to.
// The claims are read without verification; only the upstream decides whether the token is valid.
func (s *Server) Session(w http.ResponseWriter, r *http.Request) {
	m, ok := session.FromContext(r.Context())
	if !ok {
		httpx.WriteJSON(w, http.StatusOK, sessionResponse{})
		return
	}
	snap := m.Snapshot()
	resp := sessionResponse{Authenticated: snap.Authenticated(), IsLoading: snap.IsLoading}
	if token, ok := m.Token(); ok {
		if peek, err := security.PeekClaims(token); err == nil {
			resp.Subject = peek.Subject
			resp.Email = peek.Email
			resp.ExpiresAt = peek.ExpiresAt
		}
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// decodeLogin accepts a JSON body or a form post.
func decodeLogin(r *http.Request) (loginRequest, error) {
	var in loginRequest
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "application/json" {
		err := httpx.DecodeJSON(r, &in)
		return in, err
	}
	if err := r.ParseForm(); err != nil {
		return in, errors.Join(httpx.ErrBadBody, err)
	}
	in.Email = r.PostForm.Get("email")
	in.Password = r.PostForm.Get("password")
	in.Redirect = r.PostForm.Get("redirect")
	return in, nil
}

// SafeRedirect returns target when it is a local path, otherwise the dashboard. Absolute URLs,
// scheme-relative URLs and the login page itself are rejected.
func SafeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return session.DashboardPath
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == session.LoginPath {
		return session.DashboardPath
	}
	return target
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
