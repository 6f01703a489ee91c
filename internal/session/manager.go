// Package session owns the bearer token of one browser client across three surfaces:
// the durable token store, the token cookie and the in-memory state of the request.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"mis-dashboard/backend/internal/metrics"
	"mis-dashboard/backend/internal/session/domain"
	"mis-dashboard/backend/internal/session/repository"
	"mis-dashboard/backend/internal/telemetry"
)

const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
	// RejectedLoginPath is where a client is sent when the upstream rejected its token cookie.
	// The route guard does not bounce it back to the dashboard.
	RejectedLoginPath = LoginPath + "?reason=unauthorized"
)

// ErrEmptyToken is returned by SetToken for an empty token; use ClearToken to log out.
var ErrEmptyToken = errors.New("session: empty token")

// Options configures every Manager created by a Binder.
type Options struct {
	// Secure marks the token cookie Secure (production).
	Secure bool
	// Locks serializes SetToken/ClearToken per client. Nil leaves overlapping writes unordered.
	Locks   *Locks
	Emitter telemetry.EventEmitter
	Logger  *zap.Logger
	// OnClear runs after a client's token was cleared, with that client's id.
	OnClear []func(clientID string)
}

// Manager is the session of one client for the duration of one request.
// The state is only changed through SetToken, ClearToken and Logout.
//
// Writes go durable store first, then cookie, then memory. Memory is always updated last,
// even when the store write failed, so readers never see a token before its durable write was attempted.
type Manager struct {
	clientID    string
	path        string
	cookieToken string
	store       repository.Repository
	w           http.ResponseWriter
	opts        Options

	mu    sync.RWMutex
	state domain.Session
}

// NewManager returns a Manager for clientID whose cookies are written to w.
// It starts loading; call Initialize before serving protected content.
func NewManager(w http.ResponseWriter, r *http.Request, clientID string, store repository.Repository, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Manager{
		clientID:    clientID,
		path:        r.URL.Path,
		cookieToken: TokenFromCookie(r),
		store:       store,
		w:           w,
		opts:        opts,
		state:       domain.Session{IsLoading: true},
	}
}

// ClientID returns the id keying this client's durable token.
func (m *Manager) ClientID() string { return m.clientID }

// Initialize reads the persisted token. A missing token is the logged-out state, not an error.
// When the store has no token but the request carries a token cookie, the cookie token is adopted
// and written back to the store, so a store that lost its data (memory store after a restart)
// does not leave the guard and the data layer disagreeing.
// Loading always finishes, also when the store fails.
func (m *Manager) Initialize(ctx context.Context) error {
	defer func() {
		m.mu.Lock()
		m.state.IsLoading = false
		m.mu.Unlock()
	}()

	stored, err := m.store.Load(ctx, m.clientID)
	if err != nil {
		m.opts.Logger.Warn("session: load token failed", zap.String("client_id", m.clientID), zap.Error(err))
		m.adoptCookie()
		return fmt.Errorf("session: load token: %w", err)
	}
	if stored != nil {
		m.mu.Lock()
		m.state.Token = stored.Token
		m.mu.Unlock()
		return nil
	}
	if m.adoptCookie() {
		if err := m.store.Save(ctx, m.clientID, m.cookieToken); err != nil {
			m.opts.Logger.Warn("session: re-persist cookie token failed", zap.String("client_id", m.clientID), zap.Error(err))
		}
	}
	return nil
}

func (m *Manager) adoptCookie() bool {
	if m.cookieToken == "" {
		return false
	}
	m.mu.Lock()
	m.state.Token = m.cookieToken
	m.mu.Unlock()
	return true
}

// SetToken stores token durably, mirrors it into the token cookie and then publishes it in memory.
// All three writes are attempted; a store failure is returned after memory was updated.
func (m *Manager) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	defer m.lock()()

	var err error
	if saveErr := m.store.Save(ctx, m.clientID, token); saveErr != nil {
		err = fmt.Errorf("session: save token: %w", saveErr)
	}
	http.SetCookie(m.w, TokenCookie(token, m.opts.Secure))
	m.mu.Lock()
	m.state.Token = token
	m.mu.Unlock()

	m.record(telemetry.EventTokenSet, "set", err)
	return err
}

// ClearToken removes the token from the store and the cookie, then clears memory.
func (m *Manager) ClearToken(ctx context.Context) error {
	defer m.lock()()

	var err error
	if rmErr := m.store.Remove(ctx, m.clientID); rmErr != nil {
		err = fmt.Errorf("session: remove token: %w", rmErr)
	}
	http.SetCookie(m.w, ExpiredTokenCookie(m.opts.Secure))
	m.mu.Lock()
	m.state.Token = ""
	m.mu.Unlock()

	m.record(telemetry.EventTokenCleared, "clear", err)
	for _, fn := range m.opts.OnClear {
		fn(m.clientID)
	}
	return err
}

// Logout clears the token and returns the login path to navigate to.
// The navigation happens regardless of whether clearing succeeded.
func (m *Manager) Logout(ctx context.Context) string {
	err := m.ClearToken(ctx)
	if err != nil {
		m.opts.Logger.Warn("session: logout clear failed", zap.String("client_id", m.clientID), zap.Error(err))
	}
	telemetry.EmitAsync(m.opts.Emitter, m.opts.Logger, m.event(telemetry.EventLogout).WithError(err))
	return LoginPath
}

// Token returns the current token and whether one is set.
func (m *Manager) Token() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Token, m.state.Token != ""
}

// IsLoading reports whether Initialize has not finished yet.
func (m *Manager) IsLoading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.IsLoading
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Emit sends a lifecycle event for this client, e.g. an unauthorized redirect seen by a handler.
func (m *Manager) Emit(eventType string, err error) {
	telemetry.EmitAsync(m.opts.Emitter, m.opts.Logger, m.event(eventType).WithError(err))
}

func (m *Manager) lock() func() {
	if m.opts.Locks == nil {
		return func() {}
	}
	return m.opts.Locks.Lock(m.clientID)
}

func (m *Manager) event(eventType string) *telemetry.Event {
	ev := telemetry.NewEvent(eventType, m.clientID)
	ev.Path = m.path
	return ev
}

func (m *Manager) record(eventType, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		m.opts.Logger.Warn("session: durable write failed", zap.String("op", op), zap.String("client_id", m.clientID), zap.Error(err))
	}
	metrics.SessionWritesTotal.WithLabelValues(op, result).Inc()
	telemetry.EmitAsync(m.opts.Emitter, m.opts.Logger, m.event(eventType).WithError(err))
}
