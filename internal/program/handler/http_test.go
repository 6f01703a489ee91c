package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"mis-dashboard/backend/internal/devupstream"
	householddomain "mis-dashboard/backend/internal/household/domain"
	"mis-dashboard/backend/internal/program/domain"
	"mis-dashboard/backend/internal/session"
	"mis-dashboard/backend/internal/session/repository"
	"mis-dashboard/backend/internal/upstream"
)

func newHandler(baseURL string) http.Handler {
	mux := http.NewServeMux()
	NewServer(upstream.NewClient(baseURL, 5*time.Second), nil).Register(mux)
	return session.NewBinder(repository.NewMemoryRepository(time.Hour), session.Options{}).Middleware(mux)
}

func do(h http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.TokenCookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestList(t *testing.T) {
	ts := devupstream.NewTestServer(t)
	rec := do(newHandler(ts.BaseURL), http.MethodGet, "/dashboard/programs", ts.Token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var out struct {
		Programs []domain.Program `json:"programs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Programs) != 3 || out.Programs[0].Name != "Inua Jamii 70+" {
		t.Errorf("programs = %+v", out.Programs)
	}
}

func TestList_NoTokenRedirects(t *testing.T) {
	ts := devupstream.NewTestServer(t)
	rec := do(newHandler(ts.BaseURL), http.MethodGet, "/dashboard/programs", "", "")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Errorf("code = %d, Location = %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestCreate(t *testing.T) {
	ts := devupstream.NewTestServer(t)
	h := newHandler(ts.BaseURL)
	rec := do(h, http.MethodPost, "/dashboard/programs", ts.Token, `{"name":"  HSNP ","description":"Hunger Safety Net"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %d, body %s", rec.Code, rec.Body.String())
	}
	var p domain.Program
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.ID == 0 || p.Name != "HSNP" {
		t.Errorf("program = %+v", p)
	}
}

func TestCreate_ValidationNeverCallsUpstream(t *testing.T) {
	var calls atomic.Int32
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer up.Close()

	rec := do(newHandler(up.URL), http.MethodPost, "/dashboard/programs", "tok", `{"name":" ","description":""}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("code = %d", rec.Code)
	}
	var out struct {
		Errors map[string]string `json:"errors"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if out.Errors["name"] != "Name is required" || out.Errors["description"] != "Description is required" {
		t.Errorf("errors = %v", out.Errors)
	}
	if calls.Load() != 0 {
		t.Errorf("upstream called %d times", calls.Load())
	}
}

func TestCreate_UpstreamFailure(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer up.Close()

	rec := do(newHandler(up.URL), http.MethodPost, "/dashboard/programs", "tok", `{"name":"a","description":"b"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("code = %d", rec.Code)
	}
	var out map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if out["error"] != CreateFailedMessage {
		t.Errorf("error = %q", out["error"])
	}
}

func TestHouseholds(t *testing.T) {
	ts := devupstream.NewTestServer(t)
	h := newHandler(ts.BaseURL)

	rec := do(h, http.MethodGet, "/dashboard/programs/2/households", ts.Token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var out struct {
		ProgramID  int64                       `json:"program_id"`
		Households []householddomain.Household `json:"households"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.ProgramID != 2 || len(out.Households) != 1 || out.Households[0].HeadFirstName != "Hassan" {
		t.Errorf("out = %+v", out)
	}

	if rec := do(h, http.MethodGet, "/dashboard/programs/abc/households", ts.Token, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: code = %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/dashboard/programs/99/households", ts.Token, ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown program: code = %d", rec.Code)
	}
}
