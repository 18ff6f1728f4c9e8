// Package audit ships security incidents to configured sinks. Delivery
// is asynchronous and fire-and-forget: the request path never blocks on
// a sink.
package audit

import (
	"time"

	"github.com/ragfence/ragfence/internal/abuse"
)

// Event is the canonical audit payload for one recorded incident.
type Event struct {
	Version   string         `json:"version"`
	Timestamp time.Time      `json:"timestamp"`
	Incident  abuse.Incident `json:"incident"`

	// Gate context, when the incident came from query validation.
	Reason string `json:"reason,omitempty"`
	RuleID string `json:"rule_id,omitempty"`

	// SessionBlocked is true when this incident tripped the block
	// threshold for its session.
	SessionBlocked bool `json:"session_blocked"`
}

// NewEvent wraps an incident into an audit event.
func NewEvent(inc abuse.Incident, reason, ruleID string, sessionBlocked bool) *Event {
	return &Event{
		Version:        "1",
		Timestamp:      time.Now().UTC(),
		Incident:       inc,
		Reason:         reason,
		RuleID:         ruleID,
		SessionBlocked: sessionBlocked,
	}
}
