// Package proxy forwards /api/* to the upstream API unchanged: same status, same body.
package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"mis-dashboard/backend/internal/metrics"
	"mis-dashboard/backend/internal/upstream"
)

// Prefix is the path prefix stripped before forwarding.
const Prefix = "/api"

const (
	allowOrigin  = "*"
	allowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	allowHeaders = "Content-Type, Authorization"
)

// Handler is the pass-through proxy. It adds no authentication of its own; the caller's
// Authorization header is forwarded as it is.
type Handler struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHandler returns a proxy to baseURL. A non-positive timeout uses 15s.
func NewHandler(baseURL string, timeout time.Duration, logger *zap.Logger) *Handler {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", allowMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
		w.WriteHeader(http.StatusNoContent)
		metrics.ProxyRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(http.StatusNoContent)).Inc()
	case http.MethodGet, http.MethodPost:
		h.forward(w, r)
	default:
		w.Header().Set("Allow", "GET, POST, OPTIONS")
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
		metrics.ProxyRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(http.StatusMethodNotAllowed)).Inc()
	}
}

func (h *Handler) forward(w http.ResponseWriter, r *http.Request) {
	var body io.Reader
	if r.Method == http.MethodPost {
		body = r.Body
	}
	req, err := http.NewRequestWithContext(r.Context(), r.Method, h.Target(r), body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if auth := r.Header.Get("Authorization"); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer resp.Body.Close()

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Warn("proxy: copy upstream body", zap.String("path", r.URL.Path), zap.Error(err))
	}
	metrics.ProxyRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(resp.StatusCode)).Inc()
}

// Target returns the upstream URL for r: the path below /api appended to the base URL,
// query string preserved.
func (h *Handler) Target(r *http.Request) string {
	rest := strings.TrimPrefix(r.URL.EscapedPath(), Prefix)
	if rest != "" && !strings.HasPrefix(rest, "/") {
		rest = "/" + rest
	}
	target := h.baseURL + rest
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	return target
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Warn("proxy: upstream request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	writeMessage(w, http.StatusBadGateway, upstream.FallbackMessage)
	metrics.ProxyRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(http.StatusBadGateway)).Inc()
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
