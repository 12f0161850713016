package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a lifecycle event. The set is closed; every event
// the orchestrator emits carries exactly one of these tags.
type EventType string

const (
	EventConnectionAttempt  EventType = "connection_attempt"
	EventConnectionSuccess  EventType = "connection_success"
	EventConnectionFailed   EventType = "connection_failed"
	EventDisconnected       EventType = "disconnected"
	EventHealthCheckSuccess EventType = "health_check_success"
	EventHealthCheckFailed  EventType = "health_check_failed"
	EventStateChanged       EventType = "state_changed"
	EventMaxRetriesExceeded EventType = "max_retries_exceeded"
	EventDisabled           EventType = "disabled"
	EventEnabled            EventType = "enabled"
	EventPaused             EventType = "paused"
	EventResumed            EventType = "resumed"
)

// Event is a single lifecycle occurrence, published at most once to each
// subscriber. Optional fields are populated per type: From/To on state
// changes, Attempt and NextRetryIn on attempt outcomes, Error on failures.
type Event struct {
	ID          string          `json:"id"`
	Type        EventType       `json:"type"`
	Address     string          `json:"address"`
	Timestamp   time.Time       `json:"timestamp"`
	From        ConnectionState `json:"from,omitempty"`
	To          ConnectionState `json:"to,omitempty"`
	Attempt     int             `json:"attempt,omitempty"`
	NextRetryIn time.Duration   `json:"next_retry_in,omitempty"`
	ConnectTime time.Duration   `json:"connect_time,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// NewEvent creates an event with a fresh ID and the given occurrence time.
func NewEvent(t EventType, address string, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Address:   address,
		Timestamp: at,
	}
}
