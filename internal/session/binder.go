package session

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mis-dashboard/backend/internal/session/repository"
)

// Binder creates the per-request Manager and puts it in the request context.
type Binder struct {
	store repository.Repository
	opts  Options
}

// NewBinder returns a Binder whose managers share store and opts.
func NewBinder(store repository.Repository, opts Options) *Binder {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Binder{store: store, opts: opts}
}

// OnClear registers fn to run whenever a bound Manager clears its token. Call it during setup,
// before the Binder serves requests.
func (b *Binder) OnClear(fn func(clientID string)) {
	b.opts.OnClear = append(b.opts.OnClear, fn)
}

// Bind identifies the client (issuing a mis_client cookie on first contact), creates its Manager
// and initializes it. A store failure is logged; the request continues with whatever
// Initialize could recover.
func (b *Binder) Bind(w http.ResponseWriter, r *http.Request) (*Manager, *http.Request) {
	clientID := clientIDFrom(r)
	if clientID == "" {
		clientID = uuid.NewString()
		http.SetCookie(w, ClientCookie(clientID, b.opts.Secure))
	}
	m := NewManager(w, r, clientID, b.store, b.opts)
	if err := m.Initialize(r.Context()); err != nil {
		b.opts.Logger.Warn("session: initialize", zap.String("client_id", clientID), zap.Error(err))
	}
	return m, r.WithContext(WithManager(r.Context(), m))
}

// Middleware binds a Manager to every request before next runs, so no handler sees a loading session.
func (b *Binder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, r = b.Bind(w, r)
		next.ServeHTTP(w, r)
	})
}

// clientIDFrom returns the client cookie value if it is a well-formed UUID.
func clientIDFrom(r *http.Request) string {
	c, err := r.Cookie(ClientCookieName)
	if err != nil {
		return ""
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return ""
	}
	return id.String()
}
