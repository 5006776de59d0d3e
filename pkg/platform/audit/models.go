// Package audit defines the security audit event model and publishers.
// Events are emitted from domain logic for security-relevant outcomes and
// fanned out to whichever sink is configured.
package audit

import (
	"context"
	"time"
)

// Severity classifies how urgently an event should be triaged.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event captures one security-relevant outcome. Keep it transport-agnostic
// so sinks (log, Kafka) can fan out without translation layers.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Subject   string    `json:"subject"` // identity key the event is about
	Role      string    `json:"role,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Message   string    `json:"message,omitempty"`
	Path      string    `json:"path,omitempty"`
	Origin    string    `json:"origin,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Severity  Severity  `json:"severity"`
}

// Publisher emits audit events to a sink. Implementations must not block
// request handling; slow sinks buffer or drop.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
