package otel

import (
	"context"
	"errors"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"mis-dashboard/backend/internal/telemetry"
)

func TestNewEventEmitter_NilProvider_ReturnsNoop(t *testing.T) {
	em := NewEventEmitter(nil)
	if em == nil {
		t.Fatal("NewEventEmitter(nil) returned nil")
	}
	if err := em.Emit(context.Background(), telemetry.NewEvent(telemetry.EventLogin, "c")); err != nil {
		t.Errorf("noop Emit: %v", err)
	}
}

func TestEmit_NilEvent_ReturnsNil(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	if err := NewEventEmitter(provider).Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(ctx, nil): %v", err)
	}
}

// recordCapture stores the last Record passed to Emit for assertion.
type recordCapture struct {
	rec otellog.Record
}

func (r *recordCapture) Emit(ctx context.Context, rec otellog.Record) {
	r.rec = rec
}

func TestEmit_AttributeMapping(t *testing.T) {
	cap := &recordCapture{}
	em := NewEventEmitterWithLogger(cap)
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	event := &telemetry.Event{
		ID: "ev1", Type: telemetry.EventLogout, ClientID: "client-1", Path: "/logout", Outcome: "ok", CreatedAt: ts,
	}
	if err := em.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	rec := cap.rec
	if !rec.Timestamp().Equal(ts) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp(), ts)
	}
	if rec.Severity() != otellog.SeverityInfo {
		t.Errorf("severity = %v, want INFO", rec.Severity())
	}
	attrs := make(map[string]string)
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	want := map[string]string{
		"event_id": "ev1", "event_type": telemetry.EventLogout, "client_id": "client-1", "path": "/logout", "outcome": "ok",
	}
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attr %s = %q, want %q", k, attrs[k], v)
		}
	}
	if _, ok := attrs["detail"]; ok {
		t.Error("empty detail should be omitted")
	}
}

func TestEmit_ErrorEventIsWarn(t *testing.T) {
	cap := &recordCapture{}
	em := NewEventEmitterWithLogger(cap)
	ev := telemetry.NewEvent(telemetry.EventTokenSet, "c").WithError(errors.New("store down"))
	if err := em.Emit(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if cap.rec.Severity() != otellog.SeverityWarn {
		t.Errorf("severity = %v, want WARN", cap.rec.Severity())
	}
}
