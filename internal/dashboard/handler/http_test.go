package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"mis-dashboard/backend/internal/dashboard"
	"mis-dashboard/backend/internal/devupstream"
	"mis-dashboard/backend/internal/session"
	"mis-dashboard/backend/internal/session/repository"
	"mis-dashboard/backend/internal/upstream"
)

func serve(t *testing.T, baseURL, token, target, accept string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	NewServer(upstream.NewClient(baseURL, 5*time.Second), dashboard.NewLoader(time.Minute), nil).Register(mux)
	h := session.NewBinder(repository.NewMemoryRepository(time.Hour), session.Options{}).Middleware(mux)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.TokenCookieName, Value: token})
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSummary(t *testing.T) {
	ts := devupstream.NewTestServer(t)
	rec := serve(t, ts.BaseURL, ts.Token, "/dashboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body %s", rec.Code, rec.Body.String())
	}
	var sum dashboard.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatal(err)
	}
	if sum.TotalPrograms != 3 || sum.TotalHouseholds != 3 || sum.TotalMembers != 3 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestSummary_NoTokenRedirects(t *testing.T) {
	ts := devupstream.NewTestServer(t)
	rec := serve(t, ts.BaseURL, "", "/dashboard", "")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Errorf("code = %d, Location = %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestSummary_RejectedTokenJSON(t *testing.T) {
	ts := devupstream.NewTestServer(t)
	rec := serve(t, ts.BaseURL, "bogus", "/dashboard/summary", "application/json")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d", rec.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["redirect"] != session.RejectedLoginPath {
		t.Errorf("body = %v", body)
	}
}

func TestSummary_SectionFailure(t *testing.T) {
	ts := devupstream.NewTestServer(t)
	var members atomic.Int32
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/members/all" {
			members.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"db down"}`))
			return
		}
		ts.Config.Handler.ServeHTTP(w, r)
	}))
	defer up.Close()

	rec := serve(t, up.URL+devupstream.BasePath, ts.Token, "/dashboard", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("code = %d", rec.Code)
	}
	var body failure
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error != dashboard.FailedMessage || body.Section != dashboard.SectionMembers || body.Retry != "/dashboard/summary?retry=members" {
		t.Errorf("body = %+v", body)
	}
	if members.Load() != 1 {
		t.Errorf("members fetched %d times", members.Load())
	}
}

func TestSummary_UnknownRetrySection(t *testing.T) {
	ts := devupstream.NewTestServer(t)
	rec := serve(t, ts.BaseURL, ts.Token, "/dashboard/summary?retry=bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", rec.Code)
	}
}
