package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/boomi-gateway/datahub-gateway/internal/adapter/outbound/memory"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/ratelimit"
)

// newTestAuditService starts an AuditService with batch size 1 so every
// Record call flushes to the sink almost immediately; callers still need a
// short sleep after Record before asserting on sink.Events().
func newTestAuditService(t *testing.T, sink *memory.AuditSink) *AuditService {
	t.Helper()
	svc := NewAuditService(sink, slog.Default(), WithBatchSize(1), WithFlushInterval(10*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)
	t.Cleanup(cancel)
	return svc
}

func TestRateLimitService_DeniedCheckIsAudited(t *testing.T) {
	limiter := memory.NewRateLimiter()
	sink := memory.NewAuditSink()
	audit := newTestAuditService(t, sink)
	s := NewRateLimitService(limiter, audit)

	rule := ratelimit.EndpointRule{Pattern: "/mcp", Burst: 1, PerMinute: 1, PerHour: 1, PerDay: 1}

	// first request consumes the only burst slot
	if _, err := s.Check(context.Background(), "client-1", "/mcp", rule); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	// second should be denied
	status, err := s.Check(context.Background(), "client-1", "/mcp", rule)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if status.Allowed {
		t.Fatal("expected second request to be denied")
	}

	time.Sleep(30 * time.Millisecond)
	found := false
	for _, e := range sink.Events() {
		if e.ClientID == "client-1" {
			found = true
		}
	}
	if !found {
		t.Error("expected a rate-limit-exceeded audit event for client-1")
	}
}

func TestRateLimitService_Blacklist(t *testing.T) {
	limiter := memory.NewRateLimiter()
	sink := memory.NewAuditSink()
	audit := newTestAuditService(t, sink)
	s := NewRateLimitService(limiter, audit)

	if err := s.Blacklist(context.Background(), "bad-actor", "manual block", 60); err != nil {
		t.Fatalf("Blacklist() error = %v", err)
	}

	status, err := s.Check(context.Background(), "bad-actor", "/mcp", ratelimit.EndpointRule{Pattern: "/mcp", Burst: 100})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if status.Allowed {
		t.Error("expected blacklisted client to be denied")
	}
}
