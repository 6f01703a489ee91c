package session

import (
	"net/http"
	"time"
)

const (
	// TokenCookieName is the cookie the route guard checks for presence.
	TokenCookieName = "token"
	// ClientCookieName carries the random id that keys the durable token store.
	ClientCookieName = "mis_client"

	TokenCookieMaxAge  = 7 * 24 * time.Hour
	ClientCookieMaxAge = 365 * 24 * time.Hour
)

// TokenCookie returns the cookie mirroring token: http-only, Lax, 7 days, Secure when secure.
func TokenCookie(token string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(TokenCookieMaxAge / time.Second),
		Expires:  time.Now().Add(TokenCookieMaxAge),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredTokenCookie returns a cookie that deletes the token cookie.
func ExpiredTokenCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClientCookie returns the client id cookie.
func ClientCookie(clientID string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     ClientCookieName,
		Value:    clientID,
		Path:     "/",
		MaxAge:   int(ClientCookieMaxAge / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// HasTokenCookie reports whether r carries a non-empty token cookie.
// Presence is all that is checked; the token itself is validated by the upstream.
func HasTokenCookie(r *http.Request) bool {
	c, err := r.Cookie(TokenCookieName)
	return err == nil && c.Value != ""
}

// TokenFromCookie returns the token cookie value, or "".
func TokenFromCookie(r *http.Request) string {
	if c, err := r.Cookie(TokenCookieName); err == nil {
		return c.Value
	}
	return ""
}
