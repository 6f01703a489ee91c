package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// mockEventEmitter implements EventEmitter for tests.
type mockEventEmitter struct {
	mu      sync.Mutex
	events  []*Event
	emitErr error
	done    chan struct{}
}

func newMockEmitter(n int) *mockEventEmitter {
	return &mockEventEmitter{done: make(chan struct{}, n)}
}

func (m *mockEventEmitter) Emit(ctx context.Context, event *Event) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	m.done <- struct{}{}
	return m.emitErr
}

func (m *mockEventEmitter) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-m.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for emit %d", i+1)
		}
	}
}

func TestEmitAsync_NilEmitterOrEvent(t *testing.T) {
	EmitAsync(nil, nil, NewEvent(EventLogin, "c1"))

	em := newMockEmitter(1)
	EmitAsync(em, nil, nil)
	time.Sleep(10 * time.Millisecond)
	em.mu.Lock()
	defer em.mu.Unlock()
	if len(em.events) != 0 {
		t.Errorf("expected 0 events, got %d", len(em.events))
	}
}

func TestEmitAsync_SuccessfulEmit(t *testing.T) {
	em := newMockEmitter(1)
	EmitAsync(em, nil, NewEvent(EventTokenSet, "client-1"))
	em.wait(t, 1)

	em.mu.Lock()
	defer em.mu.Unlock()
	if len(em.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(em.events))
	}
	ev := em.events[0]
	if ev.Type != EventTokenSet || ev.ClientID != "client-1" || ev.Outcome != "ok" {
		t.Errorf("event = %+v", ev)
	}
	if ev.ID == "" || ev.CreatedAt.IsZero() {
		t.Error("NewEvent should set id and time")
	}
}

func TestEmitAsync_MultipleEvents(t *testing.T) {
	em := newMockEmitter(5)
	for i := 0; i < 5; i++ {
		EmitAsync(em, nil, NewEvent(EventLogout, "c"))
	}
	em.wait(t, 5)
}

func TestEmitAsync_LogsFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	em := newMockEmitter(1)
	em.emitErr = errors.New("exporter down")
	EmitAsync(em, zap.New(core), NewEvent(EventLogin, "c"))
	em.wait(t, 1)

	deadline := time.Now().Add(2 * time.Second)
	for logs.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected 1 warning, got %d", logs.Len())
	}
}

func TestEvent_WithError(t *testing.T) {
	ev := NewEvent(EventTokenSet, "c").WithError(errors.New("store down"))
	if ev.Outcome != "error" || ev.Detail != "store down" {
		t.Errorf("event = %+v", ev)
	}
	if ev := NewEvent(EventTokenSet, "c").WithError(nil); ev.Outcome != "ok" {
		t.Errorf("nil error changed outcome: %+v", ev)
	}
}
