// Package audit contains the domain types for the append-only audit
// subsystem (C1): AuditEvent, its type/severity taxonomy, and the sink port
// consumed by the async audit service.
package audit

import "time"

// Severity ranks an AuditEvent. The audit service flushes error-or-worse
// events immediately and counts their drops separately.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// rank orders severities for comparisons ("at least warning").
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityError:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is as severe as, or more severe than, other.
func (s Severity) AtLeast(other Severity) bool {
	return s.rank() >= other.rank()
}

// EventType enumerates the taxonomy an AuditEvent carries, supplementing
// a plain event-type field with the original's fuller OAuth, security, and
// workflow event categories.
type EventType string

const (
	// OAuth / credential lifecycle events (C6, C2).
	EventTypeTokenValidated EventType = "oauth.token_validated"
	EventTypeTokenRevoked   EventType = "oauth.token_revoked"
	EventTypeAuthFailure    EventType = "oauth.auth_failure"

	// Security gateway events (C3, C4, C5).
	EventTypeRateLimitExceeded EventType = "security.rate_limit_exceeded"
	EventTypeThreatDetected    EventType = "security.threat_detected"
	EventTypeSecurityBlocked   EventType = "security.blocked"
	EventTypeClientBlacklisted EventType = "security.client_blacklisted"

	// Orchestration / pipeline events (C8, C9).
	EventTypeStateTransition EventType = "workflow.state_transition"
	EventTypeQueryExecuted   EventType = "workflow.query_executed"

	// MDH adapter events (C7).
	EventTypeUnknownFilterField EventType = "mdh.unknown_filter_field"

	// Sink self-monitoring.
	EventTypeMetaEvent EventType = "audit.meta"
)

// AuditEvent is the append-only unit the sink persists, extended with the
// Details/SecurityFlags extension points the original's audit_logger.py
// carries for per-event-type context.
type AuditEvent struct {
	EventID        string
	Timestamp      time.Time
	EventType      EventType
	Severity       Severity
	PrincipalID    string
	ClientID       string
	RequestIP      string
	Endpoint       string
	Method         string
	Success        bool
	ResponseCode   int
	ProcessingTime time.Duration
	Details        map[string]any
	SecurityFlags  []string
}
