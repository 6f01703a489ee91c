// Package httpx holds the response and request helpers shared by the view handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"mis-dashboard/backend/internal/session"
	"mis-dashboard/backend/internal/telemetry"
	"mis-dashboard/backend/internal/upstream"
	"mis-dashboard/backend/internal/validation"
)

// maxBodyBytes bounds decoded request bodies.
const maxBodyBytes = 1 << 20

// ErrBadBody is returned by DecodeJSON for a body that is not a JSON object.
var ErrBadBody = errors.New("httpx: malformed request body")

// WriteJSON writes v as JSON with status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": msg}.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}

// WriteValidation writes the per-field messages with 422.
func WriteValidation(w http.ResponseWriter, errs validation.Errors) {
	WriteJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"errors": errs})
}

// WantsJSON reports whether the caller asked for JSON instead of a redirect.
func WantsJSON(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mt == "application/json" {
			return true
		}
	}
	return false
}

// Unauthorized sends the caller to the login page: 302 for browsers, 401 {"redirect":"/login"} for
// JSON callers. A caller whose token cookie was rejected goes to session.RejectedLoginPath instead.
// The session is left as it is; only the event is recorded.
func Unauthorized(w http.ResponseWriter, r *http.Request, cause error) {
	if m, ok := session.FromContext(r.Context()); ok {
		m.Emit(telemetry.EventUnauthorizedRedirect, cause)
	}
	target := session.LoginPath
	if session.HasTokenCookie(r) {
		target = session.RejectedLoginPath
	}
	if WantsJSON(r) {
		WriteJSON(w, http.StatusUnauthorized, map[string]string{"redirect": target})
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// UpstreamFailed answers a failed data load. Unauthorized errors redirect to login; anything else
// is reported with msg and 502, or the upstream status for 4xx answers.
func UpstreamFailed(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if upstream.IsUnauthorized(err) {
		Unauthorized(w, r, err)
		return
	}
	status := http.StatusBadGateway
	var re *upstream.RequestError
	if errors.As(err, &re) && re.Status >= 400 && re.Status < 500 {
		status = re.Status
	}
	WriteError(w, status, msg)
}

// Client returns base carrying the bearer token of the request's session.
func Client(r *http.Request, base *upstream.Client) *upstream.Client {
	if m, ok := session.FromContext(r.Context()); ok {
		if tok, ok := m.Token(); ok {
			return base.WithToken(tok)
		}
	}
	return base
}

// DecodeJSON decodes the request body into dst.
func DecodeJSON(r *http.Request, dst interface{}) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadBody, err)
	}
	return nil
}

// PathID parses the named path wildcard as a positive id.
func PathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// QueryID parses the named query parameter as an id. Absent or blank is zero; malformed is false.
func QueryID(r *http.Request, name string) (int64, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}
