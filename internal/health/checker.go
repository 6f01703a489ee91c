// Package health probes the dependencies of the BFF and publishes the result through the
// standard gRPC health service and an HTTP endpoint.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"mis-dashboard/backend/internal/platform/httpx"
)

// ServiceName is the gRPC health service name reported next to the overall ("") status.
const ServiceName = "mis.dashboard.BFF"

const (
	DefaultInterval = 30 * time.Second
	checkTimeout    = 5 * time.Second
)

// Check returns nil when the dependency is usable.
type Check func(ctx context.Context) error

// Pinger is implemented by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker is implemented by the OPA route evaluator.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// PingCheck adapts a Pinger.
func PingCheck(p Pinger) Check { return p.PingContext }

// PolicyCheck adapts a PolicyChecker.
func PolicyCheck(p PolicyChecker) Check { return p.HealthCheck }

type namedCheck struct {
	name  string
	check Check
}

// Report is the result of one probe. Checks maps each dependency to "ok" or its error.
type Report struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	CheckedAt time.Time         `json:"checked_at"`
}

// Serving reports whether every check passed.
func (r Report) Serving() bool { return r.Status == healthpb.HealthCheckResponse_SERVING.String() }

// Checker runs the registered checks and keeps the gRPC health server in sync with the outcome.
// Until the first probe the service reports NOT_SERVING.
type Checker struct {
	logger *zap.Logger
	grpc   *grpchealth.Server
	nowF   func() time.Time

	mu     sync.RWMutex
	checks []namedCheck
	last   Report
}

// NewChecker returns a Checker with no checks.
func NewChecker(logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Checker{logger: logger, grpc: grpchealth.NewServer(), nowF: time.Now}
	c.publish(healthpb.HealthCheckResponse_NOT_SERVING)
	c.last = Report{Status: healthpb.HealthCheckResponse_NOT_SERVING.String(), Checks: map[string]string{}}
	return c
}

// Add registers check under name. Checks run in the order they were added.
func (c *Checker) Add(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, namedCheck{name: name, check: check})
}

// GRPCServer is the grpc.health.v1.Health implementation to register on a gRPC server.
func (c *Checker) GRPCServer() healthpb.HealthServer { return c.grpc }

// Probe runs every check once, publishes the overall status and returns the report.
func (c *Checker) Probe(ctx context.Context) Report {
	c.mu.RLock()
	checks := append([]namedCheck(nil), c.checks...)
	c.mu.RUnlock()

	status := healthpb.HealthCheckResponse_SERVING
	results := make(map[string]string, len(checks))
	for _, nc := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := nc.check(checkCtx)
		cancel()
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			results[nc.name] = err.Error()
			c.logger.Warn("health: check failed", zap.String("check", nc.name), zap.Error(err))
			continue
		}
		results[nc.name] = "ok"
	}

	report := Report{Status: status.String(), Checks: results, CheckedAt: c.nowF().UTC()}
	c.mu.Lock()
	c.last = report
	c.mu.Unlock()
	c.publish(status)
	return report
}

// Last returns the most recent report.
func (c *Checker) Last() Report {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Run probes immediately and then every interval until ctx is done. On return the gRPC
// health server is shut down so clients see NOT_SERVING while the process drains.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	c.Probe(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.grpc.Shutdown()
			return
		case <-ticker.C:
			c.Probe(ctx)
		}
	}
}

// Handler serves the last report: 200 when serving, 503 otherwise.
func (c *Checker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := c.Last()
		code := http.StatusOK
		if !report.Serving() {
			code = http.StatusServiceUnavailable
		}
		httpx.WriteJSON(w, code, report)
	})
}

func (c *Checker) publish(status healthpb.HealthCheckResponse_ServingStatus) {
	c.grpc.SetServingStatus("", status)
	c.grpc.SetServingStatus(ServiceName, status)
}
