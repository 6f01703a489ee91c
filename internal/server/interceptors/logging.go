package interceptors

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// LoggingUnary returns a unary server interceptor that logs every RPC with its status code and duration.
// Methods in skipMethods (full method names) are not logged when they succeed.
func LoggingUnary(logger *zap.Logger, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		if code == codes.OK && skipMethods[info.FullMethod] {
			return resp, err
		}
		level := zapcore.InfoLevel
		if code != codes.OK {
			level = zapcore.WarnLevel
		}
		logger.Log(level, "grpc request",
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("client_ip", ClientIP(ctx)),
		)
		return resp, err
	}
}

// ClientIP returns the peer address of the RPC, or "" when unknown.
func ClientIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	return p.Addr.String()
}
