package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"mis-dashboard/backend/internal/devupstream"
	"mis-dashboard/backend/internal/session"
	"mis-dashboard/backend/internal/session/repository"
	"mis-dashboard/backend/internal/upstream"
)

type fixture struct {
	store *repository.MemoryRepository
	h     http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ts := devupstream.NewTestServer(t)
	store := repository.NewMemoryRepository(time.Hour)
	mux := http.NewServeMux()
	NewServer(upstream.NewClient(ts.BaseURL, 5*time.Second), nil).Register(mux)
	return &fixture{store: store, h: session.NewBinder(store, session.Options{}).Middleware(mux)}
}

func cookieOf(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLogin_FormSuccess(t *testing.T) {
	f := newFixture(t)
	form := url.Values{"email": {devupstream.TestEmail}, "password": {devupstream.TestPassword}, "redirect": {"/dashboard/households"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("code = %d, body %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/dashboard/households" {
		t.Errorf("Location = %q", loc)
	}
	tok := cookieOf(rec, session.TokenCookieName)
	if tok == nil || tok.Value == "" || !tok.HttpOnly {
		t.Fatalf("token cookie = %+v", tok)
	}
	client := cookieOf(rec, session.ClientCookieName)
	if client == nil {
		t.Fatal("client cookie not issued")
	}
	stored, err := f.store.Load(t.Context(), client.Value)
	if err != nil || stored == nil || stored.Token != tok.Value {
		t.Errorf("stored = %+v, %v", stored, err)
	}
}

func TestLogin_JSONRejectsForeignRedirect(t *testing.T) {
	f := newFixture(t)
	body := `{"email":"admin@example.com","password":"password123","redirect":"https://evil.example/x"}`
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out["redirect"] != "/dashboard" || out["authenticated"] != true {
		t.Errorf("body = %v", out)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"admin@example.com","password":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d", rec.Code)
	}
	var out map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if out["error"] != LoginFailedMessage {
		t.Errorf("error = %q", out["error"])
	}
	if cookieOf(rec, session.TokenCookieName) != nil {
		t.Error("token cookie set on failed login")
	}
}

func TestLogin_MissingFields(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("code = %d", rec.Code)
	}
	var out struct {
		Errors map[string]string `json:"errors"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if out.Errors["email"] != "Email is required" || out.Errors["password"] != "Password is required" {
		t.Errorf("errors = %v", out.Errors)
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: session.TokenCookieName, Value: "abc"})
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("code = %d, Location = %q", rec.Code, rec.Header().Get("Location"))
	}
	c := cookieOf(rec, session.TokenCookieName)
	if c == nil || c.MaxAge >= 0 {
		t.Errorf("token cookie not expired: %+v", c)
	}
}

func TestSession(t *testing.T) {
	f := newFixture(t)
	ts := devupstream.NewTestServer(t)

	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/session", nil))
	var anon sessionResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &anon)
	if anon.Authenticated || anon.IsLoading {
		t.Errorf("anonymous session = %+v", anon)
	}

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.AddCookie(&http.Cookie{Name: session.TokenCookieName, Value: ts.Token})
	rec = httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	var got sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if !got.Authenticated || got.Subject != "admin" || got.Email != devupstream.TestEmail || got.ExpiresAt == nil {
		t.Errorf("session = %+v", got)
	}
}

func TestSafeRedirect(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/dashboard"},
		{"/dashboard/programs", "/dashboard/programs"},
		{"/dashboard/households?page=2", "/dashboard/households?page=2"},
		{"https://evil.example", "/dashboard"},
		{"//evil.example", "/dashboard"},
		{"/\\evil.example", "/dashboard"},
		{"dashboard", "/dashboard"},
		{"/login", "/dashboard"},
	}
	for _, tt := range tests {
		if got := SafeRedirect(tt.in); got != tt.want {
			t.Errorf("SafeRedirect(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
