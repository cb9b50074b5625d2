package oauth

import (
	"context"
	"time"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/credential"
	"github.com/boomi-gateway/datahub-gateway/internal/gatewayerr"
)

// TokenStore is the C2 port: independent lookup by token-id and by content
// hash, used both to check revocation and to record it.
type TokenStore interface {
	// IsRevoked reports whether either key carries an unexpired
	// RevocationRecord.
	IsRevoked(ctx context.Context, tokenID, contentHash string) (bool, error)

	// Revoke inserts a RevocationRecord keyed by tokenID if non-empty, else
	// by contentHash. Never returns an error the caller should surface to
	// the client -- failures are logged and audited internally.
	Revoke(ctx context.Context, rec credential.RevocationRecord) error

	// CleanupExpired removes revocation records older than the retention
	// window. It places no cap on the number of records a store holds.
	CleanupExpired(ctx context.Context, now time.Time) (removed int, err error)
}

// Introspector performs the wire-form token-introspection call. It is the
// "(a) call the configured introspection endpoint" path of the
type Introspector interface {
	Introspect(ctx context.Context, rawToken string) (*IntrospectionResult, error)
}

// IntrospectionResult is the subset of RFC 7662 fields the resource server
// needs to build a Principal, plus the extension fields the requires on
// the wire response.
type IntrospectionResult struct {
	Active    bool
	ClientID  string
	Username  string
	Scope     string
	Subject   string
	Audience  string
	Issuer    string
	ExpiresAt time.Time
	IssuedAt  time.Time
	TokenType string
}

// LocalVerifier verifies a token's signature and claims without a network
// round-trip -- the "(b) verify signature locally" path of the
type LocalVerifier interface {
	Verify(rawToken string) (*IntrospectionResult, error)
}

// ResourceServer implements ValidateBearer / RevokeToken (C6).
type ResourceServer struct {
	store        TokenStore
	introspector Introspector // nil => use verifier
	verifier     LocalVerifier
	roles        RoleTable
	audience     string
	issuer       string
}

// Option configures a ResourceServer.
type Option func(*ResourceServer)

// WithIntrospector selects introspection-based validation.
func WithIntrospector(i Introspector) Option {
	return func(rs *ResourceServer) { rs.introspector = i }
}

// WithLocalVerifier selects local signature+claims verification.
func WithLocalVerifier(v LocalVerifier) Option {
	return func(rs *ResourceServer) { rs.verifier = v }
}

// NewResourceServer builds a ResourceServer. Exactly one of WithIntrospector
// or WithLocalVerifier should be supplied; if both are, introspection wins.
func NewResourceServer(store TokenStore, roles RoleTable, audience, issuer string, opts ...Option) *ResourceServer {
	rs := &ResourceServer{store: store, roles: roles, audience: audience, issuer: issuer}
	for _, opt := range opts {
		opt(rs)
	}
	return rs
}

// ValidateBearer implements the ValidateBearer(token) -> Principal | AuthError.
func (rs *ResourceServer) ValidateBearer(ctx context.Context, rawToken string) (*credential.Principal, error) {
	if rawToken == "" {
		return nil, gatewayerr.New(gatewayerr.AuthMissing, "bearer token required")
	}

	cred := credential.Credential{
		RawToken:    rawToken,
		ContentHash: credential.ContentHash(rawToken),
	}

	result, err := rs.authenticate(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if result.Subject != "" {
		cred.TokenID = result.Subject
	}

	revoked, err := rs.store.IsRevoked(ctx, cred.TokenID, cred.ContentHash)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.Internal, "revocation check failed", err)
	}
	if revoked {
		return nil, gatewayerr.New(gatewayerr.AuthRevoked, "token has been revoked")
	}

	if !result.Active {
		return nil, gatewayerr.New(gatewayerr.AuthInvalid, "token is not active")
	}
	if rs.audience != "" && result.Audience != "" && result.Audience != rs.audience {
		return nil, gatewayerr.New(gatewayerr.AuthInvalid, "token audience mismatch")
	}
	if rs.issuer != "" && result.Issuer != "" && result.Issuer != rs.issuer {
		return nil, gatewayerr.New(gatewayerr.AuthInvalid, "token issuer mismatch")
	}
	if !result.ExpiresAt.IsZero() && time.Now().After(result.ExpiresAt) {
		return nil, gatewayerr.New(gatewayerr.AuthInvalid, "token expired")
	}

	subject := result.Subject
	if subject == "" {
		subject = result.Username
	}
	return ProjectPrincipal(subject, result.Scope, rs.roles), nil
}

// authenticate dispatches to the introspection or local-verification path.
func (rs *ResourceServer) authenticate(ctx context.Context, rawToken string) (*IntrospectionResult, error) {
	if rs.introspector != nil {
		result, err := rs.introspector.Introspect(ctx, rawToken)
		if err != nil {
			return nil, gatewayerr.Wrap(gatewayerr.AuthInvalid, "introspection failed", err)
		}
		return result, nil
	}
	if rs.verifier != nil {
		result, err := rs.verifier.Verify(rawToken)
		if err != nil {
			return nil, gatewayerr.Wrap(gatewayerr.AuthInvalid, "signature verification failed", err)
		}
		return result, nil
	}
	return nil, gatewayerr.New(gatewayerr.Internal, "no token validation method configured")
}

// RevokeToken implements the RevokeToken. It always reports success to
// the caller per RFC 7009, even when the token cannot be parsed or the
// store fails to record it: the returned bool is always true.
func (rs *ResourceServer) RevokeToken(ctx context.Context, rawToken, hint, clientID string) bool {
	contentHash := credential.ContentHash(rawToken)
	tokenID := ""
	if result, err := rs.authenticate(ctx, rawToken); err == nil && result.Subject != "" {
		tokenID = result.Subject
	}

	kind := credential.TokenAccess
	if hint == "refresh_token" {
		kind = credential.TokenRefresh
	}

	rec := credential.RevocationRecord{
		TokenID:     tokenID,
		ContentHash: contentHash,
		RevokedAt:   time.Now(),
		RevokedBy:   clientID,
		Reason:      "client requested revocation",
		Kind:        kind,
		Source:      credential.RevocationExplicit,
		ExpiresAt:   time.Now().Add(30 * 24 * time.Hour),
	}

	_ = rs.store.Revoke(ctx, rec) // errors are internal-only; RFC 7009 is idempotent from the caller's view
	return true
}
