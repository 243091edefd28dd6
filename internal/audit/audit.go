// Package audit records selected mutating operations to an OpenSearch
// index. Decorators wrap the capability clients, record the action and its
// outcome, and return the operation's result unchanged; auditing never
// alters an operation's behavior, and a failing sink only logs a warning.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"opskit/pkg/logging"
)

// Index is the OpenSearch index audit events are written to.
const Index = "opskit-audit"

// Event statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Event is one recorded operation.
type Event struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Service   string         `json:"service"`
	Action    string         `json:"action"`
	Status    string         `json:"status"`
	Details   map[string]any `json:"details,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Sink receives audit events. Satisfied by the OpenSearch capability
// client.
type Sink interface {
	WriteDocument(ctx context.Context, index, id string, doc any) error
}

// Recorder writes events to a sink. A Recorder with a nil sink (or a nil
// *Recorder) drops every event, which is how auditing is disabled when
// OpenSearch is not configured.
type Recorder struct {
	sink Sink
}

// NewRecorder returns a recorder writing to sink. Pass nil to disable
// auditing.
func NewRecorder(sink Sink) *Recorder {
	return &Recorder{sink: sink}
}

// Enabled reports whether events are actually written anywhere.
func (r *Recorder) Enabled() bool {
	return r != nil && r.sink != nil
}

// Record writes one event. The operation's error, if any, marks the event
// as a failure and is embedded as text. Sink failures are logged and
// swallowed; auditing must never fail the audited operation.
func (r *Recorder) Record(ctx context.Context, service, action string, details map[string]any, opErr error) {
	if !r.Enabled() {
		return
	}

	event := Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Service:   service,
		Action:    action,
		Status:    StatusSuccess,
		Details:   details,
	}
	if opErr != nil {
		event.Status = StatusFailure
		event.Error = opErr.Error()
	}

	if err := r.sink.WriteDocument(ctx, Index, event.ID, event); err != nil {
		logging.Warn("audit", "failed to record %s %s: %v", service, action, err)
	}
}
