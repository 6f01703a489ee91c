package devupstream

import (
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"mis-dashboard/backend/internal/security"
)

// Credentials accepted by servers started with NewTestServer.
const (
	TestEmail    = "admin@example.com"
	TestPassword = "password123"
)

// TestServer is a running dev upstream for tests of the packages that call it.
type TestServer struct {
	*httptest.Server
	// BaseURL is the API root, e.g. http://127.0.0.1:1234/api/v1.
	BaseURL string
	// Token is a valid bearer token.
	Token string
}

// NewTestServer starts a dev upstream seeded from the embedded fixture. It is closed with tb.Cleanup.
// For tests only.
func NewTestServer(tb testing.TB) *TestServer {
	tb.Helper()
	creds, err := security.NewCredentials(TestEmail, TestPassword, bcrypt.MinCost)
	if err != nil {
		tb.Fatalf("devupstream: credentials: %v", err)
	}
	issuer, err := security.NewTestTokenIssuer()
	if err != nil {
		tb.Fatalf("devupstream: issuer: %v", err)
	}
	s, err := New(Options{Credentials: creds, Issuer: issuer})
	if err != nil {
		tb.Fatalf("devupstream: %v", err)
	}
	token, _, err := issuer.Issue("admin", TestEmail)
	if err != nil {
		tb.Fatalf("devupstream: issue token: %v", err)
	}
	srv := httptest.NewServer(s.Handler())
	tb.Cleanup(srv.Close)
	return &TestServer{Server: srv, BaseURL: srv.URL + BasePath, Token: token}
}
