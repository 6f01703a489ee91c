package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"mis-dashboard/backend/internal/health"
	"mis-dashboard/backend/internal/server/interceptors"
)

// quietMethods succeed on every load balancer probe and are not logged.
var quietMethods = map[string]bool{
	healthpb.Health_Check_FullMethodName: true,
}

// NewGRPCServer returns a gRPC server exposing grpc.health.v1.Health backed by checker,
// instrumented with OpenTelemetry and request logging.
func NewGRPCServer(checker *health.Checker, logger *zap.Logger) *grpc.Server {
	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors.LoggingUnary(logger, quietMethods)),
	)
	RegisterServices(s, checker)
	return s
}

// RegisterServices registers the gRPC services with s.
func RegisterServices(s grpc.ServiceRegistrar, checker *health.Checker) {
	healthpb.RegisterHealthServer(s, checker.GRPCServer())
}
