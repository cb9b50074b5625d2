package service

import (
	"context"
	"testing"
	"time"

	"github.com/boomi-gateway/datahub-gateway/internal/adapter/outbound/memory"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/oauth"
)

type fakeLocalVerifier struct {
	result *oauth.IntrospectionResult
	err    error
}

func (f *fakeLocalVerifier) Verify(string) (*oauth.IntrospectionResult, error) {
	return f.result, f.err
}

func TestOAuthService_ValidBearerIsAudited(t *testing.T) {
	verifier := &fakeLocalVerifier{result: &oauth.IntrospectionResult{
		Active: true, Subject: "user-1", Scope: "read:all", ExpiresAt: time.Now().Add(time.Hour),
	}}
	rs := oauth.NewResourceServer(memory.NewTokenStore(), oauth.RoleTable{}, "", "", oauth.WithLocalVerifier(verifier))
	sink := memory.NewAuditSink()
	audit := newTestAuditService(t, sink)
	s := NewOAuthService(rs, audit)

	principal, err := s.ValidateBearer(context.Background(), "token-abc", "client-1", "127.0.0.1")
	if err != nil {
		t.Fatalf("ValidateBearer() error = %v", err)
	}
	if principal.Subject != "user-1" {
		t.Errorf("Subject = %q, want user-1", principal.Subject)
	}

	time.Sleep(30 * time.Millisecond)
	found := false
	for _, e := range sink.Events() {
		if e.Success && e.PrincipalID == "user-1" {
			found = true
		}
	}
	if !found {
		t.Error("expected a token_validated audit event")
	}
}

func TestOAuthService_InvalidBearerIsAuditedAsFailure(t *testing.T) {
	verifier := &fakeLocalVerifier{result: &oauth.IntrospectionResult{Active: false}}
	rs := oauth.NewResourceServer(memory.NewTokenStore(), oauth.RoleTable{}, "", "", oauth.WithLocalVerifier(verifier))
	sink := memory.NewAuditSink()
	audit := newTestAuditService(t, sink)
	s := NewOAuthService(rs, audit)

	_, err := s.ValidateBearer(context.Background(), "bad-token", "client-2", "127.0.0.1")
	if err == nil {
		t.Fatal("expected an error for an inactive token")
	}

	time.Sleep(30 * time.Millisecond)
	found := false
	for _, e := range sink.Events() {
		if !e.Success && e.ClientID == "client-2" {
			found = true
		}
	}
	if !found {
		t.Error("expected an auth-failure audit event")
	}
}

func TestOAuthService_RevokeTokenAlwaysReportsSuccess(t *testing.T) {
	rs := oauth.NewResourceServer(memory.NewTokenStore(), oauth.RoleTable{}, "", "")
	sink := memory.NewAuditSink()
	audit := newTestAuditService(t, sink)
	s := NewOAuthService(rs, audit)

	ok := s.RevokeToken(context.Background(), "some-token", "access_token", "client-3")
	if !ok {
		t.Error("RevokeToken() should always report success per RFC 7009 idempotence")
	}
}
