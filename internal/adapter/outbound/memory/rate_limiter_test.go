package memory

import (
	"context"
	"testing"
	"time"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/ratelimit"
)

func burstOnlyRule() ratelimit.EndpointRule {
	return ratelimit.EndpointRule{Pattern: "/test", Burst: 3, PerMinute: 1000, PerHour: 10000, PerDay: 100000}
}

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	limiter := NewRateLimiter()
	rule := burstOnlyRule()

	for i := 0; i < 3; i++ {
		status, err := limiter.Check(ctx, "client-a", "/test", rule)
		if err != nil {
			t.Fatalf("Check() unexpected error: %v", err)
		}
		if !status.Allowed {
			t.Fatalf("request %d: expected allowed, got denied", i+1)
		}
	}
}

func TestRateLimiter_DeniesOverBurst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	limiter := NewRateLimiter()
	rule := burstOnlyRule()

	for i := 0; i < 3; i++ {
		if _, err := limiter.Check(ctx, "client-b", "/test", rule); err != nil {
			t.Fatalf("Check() unexpected error: %v", err)
		}
	}

	status, err := limiter.Check(ctx, "client-b", "/test", rule)
	if err != nil {
		t.Fatalf("Check() unexpected error: %v", err)
	}
	if status.Allowed {
		t.Error("expected 4th request to be denied")
	}
	if status.LimitKind != ratelimit.LimitKindBurst {
		t.Errorf("LimitKind = %q, want %q", status.LimitKind, ratelimit.LimitKindBurst)
	}
}

func TestRateLimiter_EscalatesToBlacklistOnMultipleBreach(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	limiter := NewRateLimiter()
	rule := burstOnlyRule() // burst=3, escalation multiplier 2.0 => blacklist past 6

	for i := 0; i < 7; i++ {
		_, _ = limiter.Check(ctx, "client-c", "/test", rule)
	}

	status, err := limiter.Check(ctx, "client-c", "/test", rule)
	if err != nil {
		t.Fatalf("Check() unexpected error: %v", err)
	}
	if status.Allowed {
		t.Fatal("expected client to be blacklisted")
	}
	if status.LimitKind != ratelimit.LimitKindBlacklist {
		t.Errorf("LimitKind = %q, want %q", status.LimitKind, ratelimit.LimitKindBlacklist)
	}
}

func TestRateLimiter_ExplicitBlacklist(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	limiter := NewRateLimiter()
	rule := burstOnlyRule()

	if err := limiter.Blacklist(ctx, "client-d", "manual block", 60); err != nil {
		t.Fatalf("Blacklist() unexpected error: %v", err)
	}

	status, err := limiter.Check(ctx, "client-d", "/test", rule)
	if err != nil {
		t.Fatalf("Check() unexpected error: %v", err)
	}
	if status.Allowed {
		t.Error("expected blacklisted client to be denied")
	}
	if status.RetryAfter <= 0 || status.RetryAfter > 60*time.Second {
		t.Errorf("RetryAfter = %v, want within (0, 60s]", status.RetryAfter)
	}
}

func TestRateLimiter_BlacklistDoesNotShortenLongerEntry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	limiter := NewRateLimiter()

	if err := limiter.Blacklist(ctx, "client-e", "first", 3600); err != nil {
		t.Fatalf("Blacklist() unexpected error: %v", err)
	}
	if err := limiter.Blacklist(ctx, "client-e", "second", 10); err != nil {
		t.Fatalf("Blacklist() unexpected error: %v", err)
	}

	status, _ := limiter.Check(ctx, "client-e", "/test", burstOnlyRule())
	if status.RetryAfter < 3000*time.Second {
		t.Errorf("RetryAfter = %v, expected the longer-lived entry to survive", status.RetryAfter)
	}
}

func TestRateLimiter_IndependentClients(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	limiter := NewRateLimiter()
	rule := burstOnlyRule()

	for i := 0; i < 3; i++ {
		if _, err := limiter.Check(ctx, "client-f", "/test", rule); err != nil {
			t.Fatalf("Check() unexpected error: %v", err)
		}
	}

	status, err := limiter.Check(ctx, "client-g", "/test", rule)
	if err != nil {
		t.Fatalf("Check() unexpected error: %v", err)
	}
	if !status.Allowed {
		t.Error("expected a different client to be unaffected by another client's usage")
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter()
	limiter.StartCleanup(context.Background())
	limiter.Stop()
	limiter.Stop()
}
