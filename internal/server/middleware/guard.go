package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"mis-dashboard/backend/internal/metrics"
	"mis-dashboard/backend/internal/policy/engine"
	"mis-dashboard/backend/internal/session"
)

// Guard runs the route guard before any page handler. It only looks at the presence of the token
// cookie. An evaluator error is logged and the fallback decision it returned is applied.
func Guard(ev engine.Evaluator, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			in := engine.RouteInput{
				Method:   r.Method,
				Path:     r.URL.Path,
				HasToken: session.HasTokenCookie(r),
				Reason:   r.URL.Query().Get("reason"),
			}
			dec, err := ev.EvaluateRoute(r.Context(), in)
			if err != nil {
				logger.Warn("route guard: evaluation failed, using built-in decision", zap.String("path", in.Path), zap.Error(err))
			}
			if !dec.Redirect() {
				next.ServeHTTP(w, r)
				return
			}
			metrics.GuardRedirectsTotal.WithLabelValues(string(dec.Action)).Inc()
			http.Redirect(w, r, dec.Location, http.StatusFound)
		})
	}
}

// Chain applies mws so that the first one is the outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
