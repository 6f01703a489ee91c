package domain

import "time"

// Session is the authentication state of one browser client.
// Token is empty when logged out. IsLoading is true until the persisted token has been read.
type Session struct {
	Token     string `json:"-"`
	IsLoading bool   `json:"is_loading"`
}

// Authenticated reports whether the session holds a token.
func (s Session) Authenticated() bool { return s.Token != "" }

// StoredToken is the durable copy of a client's bearer token.
type StoredToken struct {
	ClientID  string
	Token     string
	UpdatedAt time.Time
	ExpiresAt time.Time // zero means no expiry
}

// Expired reports whether the token has expired at now.
func (t *StoredToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !t.ExpiresAt.After(now)
}
