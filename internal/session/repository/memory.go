package repository

import (
	"context"
	"sync"
	"time"

	"mis-dashboard/backend/internal/session/domain"
)

// MemoryRepository keeps tokens in process memory. Tokens are lost on restart.
type MemoryRepository struct {
	mu   sync.RWMutex
	m    map[string]domain.StoredToken
	ttl  time.Duration
	nowF func() time.Time
}

// NewMemoryRepository returns an in-memory store whose tokens expire after ttl (0 means never).
func NewMemoryRepository(ttl time.Duration) *MemoryRepository {
	return &MemoryRepository{
		m:    make(map[string]domain.StoredToken),
		ttl:  ttl,
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// Load returns the token for clientID if present and not expired.
func (r *MemoryRepository) Load(ctx context.Context, clientID string) (*domain.StoredToken, error) {
	r.mu.RLock()
	t, ok := r.m[clientID]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if t.Expired(r.nowF()) {
		r.mu.Lock()
		delete(r.m, clientID)
		r.mu.Unlock()
		return nil, nil
	}
	return &t, nil
}

// Save stores token for clientID.
func (r *MemoryRepository) Save(ctx context.Context, clientID, token string) error {
	now := r.nowF()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[clientID] = domain.StoredToken{ClientID: clientID, Token: token, UpdatedAt: now, ExpiresAt: expiry(now, r.ttl)}
	return nil
}

// Remove deletes the token for clientID.
func (r *MemoryRepository) Remove(ctx context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, clientID)
	return nil
}
