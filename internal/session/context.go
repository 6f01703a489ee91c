package session

import "context"

type contextKey struct{ name string }

var managerKey = contextKey{"session_manager"}

// WithManager returns a context carrying m. The session middleware sets it for every request.
func WithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, managerKey, m)
}

// FromContext returns the request's Manager and true if set; otherwise nil, false.
func FromContext(ctx context.Context) (*Manager, bool) {
	m, ok := ctx.Value(managerKey).(*Manager)
	return m, ok && m != nil
}
