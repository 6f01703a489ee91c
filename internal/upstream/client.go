// Package upstream is the typed client of the beneficiary management API.
//
// Every endpoint carries its own auth requirement: bearer endpoints fail with ErrNoToken
// before any network call when the client has no token, public endpoints (geography,
// program households, login) are sent without one being required. When a token is set
// it is attached to every request.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	householddomain "mis-dashboard/backend/internal/household/domain"
	locationdomain "mis-dashboard/backend/internal/location/domain"
	"mis-dashboard/backend/internal/metrics"
	programdomain "mis-dashboard/backend/internal/program/domain"
)

const (
	defaultTimeout = 15 * time.Second
	tracerName     = "mis-dashboard/upstream"
)

type authMode int

const (
	authNone authMode = iota
	authBearer
)

// endpoint describes one upstream operation.
type endpoint struct {
	op     string
	method string
	path   string
	auth   authMode
}

// envelope is the upstream response wrapper.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

// Client calls the upstream API. The zero token means logged out.
// A Client is safe for concurrent use; WithToken returns a copy.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	token      string
	tracer     trace.Tracer
}

// NewClient returns a client for baseURL (e.g. https://mis.fly.dev/api/v1) with the given timeout.
// A non-positive timeout uses 15s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
		tracer:     otel.Tracer(tracerName),
	}
}

// WithToken returns a copy of c that sends token as a bearer credential.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// HasToken reports whether the client carries a bearer token.
func (c *Client) HasToken() bool { return c.token != "" }

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, endpoint{"login", http.MethodPost, "/auth/login", authNone}, body, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", &RequestError{Status: http.StatusOK, Message: "login response carried no token"}
	}
	return out.Token, nil
}

// ListPrograms returns all programs.
func (c *Client) ListPrograms(ctx context.Context) ([]programdomain.Program, error) {
	var out []programdomain.Program
	err := c.do(ctx, endpoint{"list_programs", http.MethodGet, "/programs", authBearer}, nil, &out)
	return out, err
}

// CreateProgram creates a program.
func (c *Client) CreateProgram(ctx context.Context, in programdomain.CreateProgram) (*programdomain.Program, error) {
	var out programdomain.Program
	if err := c.do(ctx, endpoint{"create_program", http.MethodPost, "/programs", authBearer}, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProgramHouseholds returns the households enrolled in a program.
func (c *Client) ListProgramHouseholds(ctx context.Context, programID int64) ([]householddomain.Household, error) {
	var out []householddomain.Household
	path := "/programs/" + strconv.FormatInt(programID, 10) + "/households"
	err := c.do(ctx, endpoint{"list_program_households", http.MethodGet, path, authNone}, nil, &out)
	return out, err
}

// ListHouseholds returns all households.
func (c *Client) ListHouseholds(ctx context.Context) ([]householddomain.Household, error) {
	var out []householddomain.Household
	err := c.do(ctx, endpoint{"list_households", http.MethodGet, "/households", authBearer}, nil, &out)
	return out, err
}

// CreateHousehold registers a household against a sublocation.
func (c *Client) CreateHousehold(ctx context.Context, in householddomain.CreateHousehold) (*householddomain.Household, error) {
	var out householddomain.Household
	if err := c.do(ctx, endpoint{"create_household", http.MethodPost, "/households", authBearer}, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListHouseholdMembers returns the members of one household.
func (c *Client) ListHouseholdMembers(ctx context.Context, householdID int64) ([]householddomain.Member, error) {
	var out []householddomain.Member
	path := "/households/" + strconv.FormatInt(householdID, 10) + "/members"
	err := c.do(ctx, endpoint{"list_household_members", http.MethodGet, path, authBearer}, nil, &out)
	return out, err
}

// CreateHouseholdMember adds a member to a household.
func (c *Client) CreateHouseholdMember(ctx context.Context, householdID int64, in householddomain.CreateMember) (*householddomain.Member, error) {
	var out householddomain.Member
	path := "/households/" + strconv.FormatInt(householdID, 10) + "/members"
	if err := c.do(ctx, endpoint{"create_household_member", http.MethodPost, path, authBearer}, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMembers returns every member across households.
func (c *Client) ListMembers(ctx context.Context) ([]householddomain.Member, error) {
	var out []householddomain.Member
	err := c.do(ctx, endpoint{"list_members", http.MethodGet, "/members/all", authBearer}, nil, &out)
	return out, err
}

// ListCounties returns the nested county tree in upstream order.
func (c *Client) ListCounties(ctx context.Context) ([]locationdomain.County, error) {
	var out []locationdomain.County
	err := c.do(ctx, endpoint{"list_counties", http.MethodGet, "/locations/counties", authNone}, nil, &out)
	return out, err
}

// ListSubcounties returns the subcounties of one county.
func (c *Client) ListSubcounties(ctx context.Context, countyID int64) ([]locationdomain.Option, error) {
	var out []locationdomain.Option
	path := "/locations/counties/" + strconv.FormatInt(countyID, 10) + "/subcounties"
	err := c.do(ctx, endpoint{"list_subcounties", http.MethodGet, path, authNone}, nil, &out)
	return out, err
}

// ListLocations returns the locations of one subcounty.
func (c *Client) ListLocations(ctx context.Context, subcountyID int64) ([]locationdomain.Option, error) {
	var out []locationdomain.Option
	path := "/locations/subcounties/" + strconv.FormatInt(subcountyID, 10) + "/locations"
	err := c.do(ctx, endpoint{"list_locations", http.MethodGet, path, authNone}, nil, &out)
	return out, err
}

// ListSublocations returns the sublocations of one location.
func (c *Client) ListSublocations(ctx context.Context, locationID int64) ([]locationdomain.Option, error) {
	var out []locationdomain.Option
	path := "/locations/locations/" + strconv.FormatInt(locationID, 10) + "/sublocations"
	err := c.do(ctx, endpoint{"list_sublocations", http.MethodGet, path, authNone}, nil, &out)
	return out, err
}

// ListAdminLocations returns the flat authenticated location listing with household counts.
func (c *Client) ListAdminLocations(ctx context.Context) ([]locationdomain.AdminLocation, error) {
	var out []locationdomain.AdminLocation
	err := c.do(ctx, endpoint{"list_admin_locations", http.MethodGet, "/locations", authBearer}, nil, &out)
	return out, err
}

// do sends one request and decodes the envelope's data into out (when out is non-nil).
func (c *Client) do(ctx context.Context, ep endpoint, in, out interface{}) (err error) {
	start := time.Now()
	ctx, span := c.tracerOrDefault().Start(ctx, "upstream."+ep.op, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("http.request.method", ep.method),
		attribute.String("mis.upstream.path", ep.path),
	)
	defer func() {
		outcome := outcomeOf(err)
		metrics.UpstreamRequestsTotal.WithLabelValues(ep.op, outcome).Inc()
		metrics.UpstreamDurationMs.WithLabelValues(ep.op).Observe(float64(time.Since(start).Milliseconds()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
	}()

	if ep.auth == authBearer && c.token == "" {
		return ErrNoToken
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("upstream: encode %s: %w", ep.op, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, ep.method, c.BaseURL+ep.path, body)
	if err != nil {
		return fmt.Errorf("upstream: build %s: %w", ep.op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return &RequestError{Message: FallbackMessage, Err: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{Status: resp.StatusCode, Message: FallbackMessage, Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := FallbackMessage
		if decodeErr == nil && env.Message != "" {
			msg = env.Message
		}
		return &RequestError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return &RequestError{Status: resp.StatusCode, Message: FallbackMessage, Err: decodeErr}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &RequestError{Status: resp.StatusCode, Message: FallbackMessage, Err: err}
	}
	return nil
}

func (c *Client) tracerOrDefault() trace.Tracer {
	if c.tracer != nil {
		return c.tracer
	}
	return otel.Tracer(tracerName)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoToken):
		return "no_token"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	default:
		return "error"
	}
}
