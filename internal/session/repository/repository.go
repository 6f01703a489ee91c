// Package repository persists each browser client's bearer token so it survives restarts
// and is found again on the client's next request.
package repository

import (
	"context"
	"time"

	"mis-dashboard/backend/internal/session/domain"
)

// Repository is the durable token store, keyed by client id.
type Repository interface {
	// Load returns the stored token for clientID, or nil if there is none or it expired.
	// It returns an error only for storage failures, not for missing tokens.
	Load(ctx context.Context, clientID string) (*domain.StoredToken, error)
	// Save stores token for clientID, replacing any previous token.
	Save(ctx context.Context, clientID, token string) error
	// Remove deletes the token for clientID. Removing a missing token is not an error.
	Remove(ctx context.Context, clientID string) error
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}
