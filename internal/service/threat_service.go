package service

import (
	"context"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/audit"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/threat"
)

// ThreatService binds threat.Detector to audit emission: any detection
// (IsThreat) is recorded at a severity derived from the matched level, and
// a block-and-throttle or block-and-alert action additionally blacklists the client through
// the rate-limit service, since the escalation path feeds directly back
// into the blacklist.
type ThreatService struct {
	detector  *threat.Detector
	rateLimit *RateLimitService
	audit     *AuditService
}

// NewThreatService constructs a ThreatService. rateLimit may be nil if
// threat-driven blacklisting is not wired in (e.g. in tests).
func NewThreatService(detector *threat.Detector, rateLimit *RateLimitService, audit *AuditService) *ThreatService {
	return &ThreatService{detector: detector, rateLimit: rateLimit, audit: audit}
}

// Analyze runs the jailbreak/prompt-injection detector against content and
// audits any detected threat, escalating to a blacklist when the resulting
// action calls for it.
func (s *ThreatService) Analyze(ctx context.Context, content, clientID string) threat.Result {
	result := s.detector.Analyze(content, clientID)

	if result.IsThreat && s.audit != nil {
		matchedRules := make([]string, 0, len(result.Matches))
		for _, m := range result.Matches {
			matchedRules = append(matchedRules, m.RuleName)
		}
		s.audit.Record(audit.AuditEvent{
			EventType:     audit.EventTypeThreatDetected,
			Severity:      severityForLevel(result.Level),
			ClientID:      clientID,
			Success:       false,
			SecurityFlags: matchedRules,
			Details: map[string]any{
				"level":      string(result.Level),
				"confidence": result.Confidence,
				"action":     string(result.Action),
				"snippet":    result.ContentSnippet,
			},
		})
	}

	if s.rateLimit != nil && (result.Action == threat.ActionBlockAndThrottle || result.Action == threat.ActionBlockAndAlert) {
		_ = s.rateLimit.Blacklist(ctx, clientID, "threat_detection:"+string(result.Action), int64(ratelimitEscalationSeconds(result.Action)))
	}

	return result
}

// severityForLevel maps a threat.Level to the audit severity taxonomy.
func severityForLevel(level threat.Level) audit.Severity {
	switch level {
	case threat.LevelCritical:
		return audit.SeverityCritical
	case threat.LevelHigh:
		return audit.SeverityError
	case threat.LevelMedium:
		return audit.SeverityWarning
	default:
		return audit.SeverityInfo
	}
}

// ratelimitEscalationSeconds maps a threat action to a blacklist duration.
func ratelimitEscalationSeconds(action threat.Action) int {
	switch action {
	case threat.ActionBlockAndAlert:
		return 24 * 60 * 60
	case threat.ActionBlockAndThrottle:
		return 60 * 60
	default:
		return 0
	}
}
