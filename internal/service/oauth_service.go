package service

import (
	"context"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/audit"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/credential"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/oauth"
)

// OAuthService binds oauth.ResourceServer to audit emission: every
// ValidateBearer call produces exactly one of oauth.token_validated or
// oauth.auth_failure, and every RevokeToken call produces oauth.token_revoked,
///the event taxonomy.
type OAuthService struct {
	resourceServer *oauth.ResourceServer
	audit          *AuditService
}

// NewOAuthService constructs an OAuthService.
func NewOAuthService(resourceServer *oauth.ResourceServer, audit *AuditService) *OAuthService {
	return &OAuthService{resourceServer: resourceServer, audit: audit}
}

// ValidateBearer validates a bearer token and audits the outcome.
func (s *OAuthService) ValidateBearer(ctx context.Context, rawToken, clientID, requestIP string) (*credential.Principal, error) {
	principal, err := s.resourceServer.ValidateBearer(ctx, rawToken)

	if s.audit == nil {
		return principal, err
	}

	if err != nil {
		s.audit.Record(audit.AuditEvent{
			EventType: audit.EventTypeAuthFailure,
			Severity:  audit.SeverityWarning,
			ClientID:  clientID,
			RequestIP: requestIP,
			Success:   false,
			Details:   map[string]any{"error": err.Error()},
		})
		return nil, err
	}

	s.audit.Record(audit.AuditEvent{
		EventType:   audit.EventTypeTokenValidated,
		Severity:    audit.SeverityInfo,
		PrincipalID: principal.Subject,
		ClientID:    clientID,
		RequestIP:   requestIP,
		Success:     true,
	})
	return principal, nil
}

// RevokeToken revokes a token and audits the revocation. It always
// reports success to the caller (RFC 7009 idempotence), matching
// ResourceServer.RevokeToken's own contract.
func (s *OAuthService) RevokeToken(ctx context.Context, rawToken, hint, clientID string) bool {
	ok := s.resourceServer.RevokeToken(ctx, rawToken, hint, clientID)
	if s.audit != nil {
		s.audit.Record(audit.AuditEvent{
			EventType: audit.EventTypeTokenRevoked,
			Severity:  audit.SeverityInfo,
			ClientID:  clientID,
			Success:   ok,
		})
	}
	return ok
}
