package interceptors

import (
	"context"
	"net"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const checkMethod = "/grpc.health.v1.Health/Check"

func run(t *testing.T, skip map[string]bool, ctx context.Context, err error) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	interceptor := LoggingUnary(zap.New(core), skip)
	_, got := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: checkMethod}, func(context.Context, interface{}) (interface{}, error) {
		return "resp", err
	})
	if got != err {
		t.Fatalf("err = %v, want %v", got, err)
	}
	return logs
}

func TestLoggingUnary_OK(t *testing.T) {
	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 5000}})
	logs := run(t, nil, ctx, nil)
	if logs.Len() != 1 {
		t.Fatalf("entries = %d, want 1", logs.Len())
	}
	e := logs.All()[0]
	if e.Level != zapcore.InfoLevel {
		t.Errorf("level = %v", e.Level)
	}
	fields := e.ContextMap()
	if fields["method"] != checkMethod || fields["code"] != "OK" || fields["client_ip"] != "10.0.0.1:5000" {
		t.Errorf("fields = %v", fields)
	}
}

func TestLoggingUnary_ErrorIsWarn(t *testing.T) {
	logs := run(t, nil, context.Background(), status.Error(codes.NotFound, "unknown service"))
	if logs.Len() != 1 || logs.All()[0].Level != zapcore.WarnLevel {
		t.Fatalf("entries = %v", logs.All())
	}
	if logs.All()[0].ContextMap()["code"] != "NotFound" {
		t.Errorf("code = %v", logs.All()[0].ContextMap()["code"])
	}
}

func TestLoggingUnary_SkipsSuccessfulMethods(t *testing.T) {
	skip := map[string]bool{checkMethod: true}
	if logs := run(t, skip, context.Background(), nil); logs.Len() != 0 {
		t.Errorf("skipped method logged %d entries", logs.Len())
	}
	if logs := run(t, skip, context.Background(), status.Error(codes.Unavailable, "x")); logs.Len() != 1 {
		t.Errorf("failed skipped method logged %d entries, want 1", logs.Len())
	}
}

func TestClientIP_NoPeer(t *testing.T) {
	if got := ClientIP(context.Background()); got != "" {
		t.Errorf("ClientIP = %q", got)
	}
}
