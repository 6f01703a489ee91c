// Package telemetry carries session lifecycle events to the OpenTelemetry log pipeline.
package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session lifecycle event types.
const (
	EventLogin                = "session.login"
	EventLoginFailed          = "session.login_failed"
	EventTokenSet             = "session.token_set"
	EventTokenCleared         = "session.token_cleared"
	EventLogout               = "session.logout"
	EventUnauthorizedRedirect = "session.unauthorized_redirect"
)

// Event is one lifecycle event of a browser client.
type Event struct {
	ID        string
	Type      string
	ClientID  string
	Path      string
	Outcome   string // "ok" or "error"
	Detail    string
	CreatedAt time.Time
}

// NewEvent returns an event of eventType for clientID with a fresh id and the current time.
func NewEvent(eventType, clientID string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ClientID:  clientID,
		Outcome:   "ok",
		CreatedAt: time.Now().UTC(),
	}
}

// WithError marks the event as failed with err's message.
func (e *Event) WithError(err error) *Event {
	if err != nil {
		e.Outcome = "error"
		e.Detail = err.Error()
	}
	return e
}

// EventEmitter emits events (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}
