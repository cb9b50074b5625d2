package service

import (
	"context"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/audit"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/ratelimit"
)

// RateLimitService binds the storage-agnostic ratelimit.Limiter port to
// audit emission: a denied check is recorded as security.rate_limit_exceeded,
// and an explicit Blacklist call is recorded separately, matching
// the two distinct event types the security gateway emits.
type RateLimitService struct {
	limiter ratelimit.Limiter
	audit   *AuditService
}

// NewRateLimitService constructs a RateLimitService.
func NewRateLimitService(limiter ratelimit.Limiter, audit *AuditService) *RateLimitService {
	return &RateLimitService{limiter: limiter, audit: audit}
}

// Check runs the rate-limit algorithm for one request and audits a
// denial.
func (s *RateLimitService) Check(ctx context.Context, clientID, endpoint string, rule ratelimit.EndpointRule) (ratelimit.Status, error) {
	status, err := s.limiter.Check(ctx, clientID, endpoint, rule)
	if err != nil {
		return status, err
	}
	if !status.Allowed && s.audit != nil {
		s.audit.Record(audit.AuditEvent{
			EventType: audit.EventTypeRateLimitExceeded,
			Severity:  audit.SeverityWarning,
			ClientID:  clientID,
			Endpoint:  endpoint,
			Success:   false,
			Details: map[string]any{
				"limit_kind": string(status.LimitKind),
				"retry_after_seconds": status.RetryAfter.Seconds(),
			},
		})
	}
	return status, nil
}

// Blacklist explicitly blacklists a client and audits the escalation. The
// threat-detection path calls it on repeated malicious input; the
// limiter's own threshold-crossing escalation blacklists inside the
// limiter and is not audited here.
func (s *RateLimitService) Blacklist(ctx context.Context, clientID, reason string, durationSeconds int64) error {
	if err := s.limiter.Blacklist(ctx, clientID, reason, durationSeconds); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.Record(audit.AuditEvent{
			EventType: audit.EventTypeClientBlacklisted,
			Severity:  audit.SeverityWarning,
			ClientID:  clientID,
			Success:   false,
			Details: map[string]any{
				"reason":           reason,
				"duration_seconds": durationSeconds,
			},
		})
	}
	return nil
}
