// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/ratelimit"
)

// DefaultRateLimiterCleanupInterval is how often stale window counters and
// expired blacklist entries are swept.
const DefaultRateLimiterCleanupInterval = 5 * time.Minute

// RateLimiter implements ratelimit.Limiter with in-memory sharded counters,
// replacing the teacher's GCRA algorithm with the four-window
// (burst/minute/hour/day) sliding-counter-plus-escalation algorithm this
// spec requires (see DESIGN.md). Thread-safe for concurrent access.
// Background cleanup prevents unbounded memory growth as window indices
// advance.
type RateLimiter struct {
	counters        map[string]*ratelimit.RateCounter
	blacklist       map[string]ratelimit.BlacklistEntry
	mu              sync.Mutex
	stopChan        chan struct{}
	wg              sync.WaitGroup
	once            sync.Once
	cleanupInterval time.Duration
}

// NewRateLimiter creates a new in-memory rate limiter with the default
// cleanup interval.
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithConfig(DefaultRateLimiterCleanupInterval)
}

// NewRateLimiterWithConfig creates a new in-memory rate limiter with a
// custom cleanup interval.
func NewRateLimiterWithConfig(cleanupInterval time.Duration) *RateLimiter {
	return &RateLimiter{
		counters:        make(map[string]*ratelimit.RateCounter),
		blacklist:       make(map[string]ratelimit.BlacklistEntry),
		stopChan:        make(chan struct{}),
		cleanupInterval: cleanupInterval,
	}
}

// Check implements the algorithm: blacklist short-circuit, then the four
// ordered windows in turn, escalating into the blacklist when a window is
// breached by the configured multiple.
func (r *RateLimiter) Check(ctx context.Context, clientID, endpoint string, rule ratelimit.EndpointRule) (ratelimit.Status, error) {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.blacklist[clientID]; ok {
		if remaining := entry.RemainingAt(now); remaining > 0 {
			return ratelimit.Status{
				Allowed:    false,
				LimitKind:  ratelimit.LimitKindBlacklist,
				RetryAfter: remaining,
				ResetAt:    entry.ExpiresAt,
			}, nil
		}
		delete(r.blacklist, clientID)
	}

	for _, kind := range ratelimit.OrderedWindows() {
		limit := rule.LimitFor(kind)
		if limit <= 0 {
			continue
		}

		idx := ratelimit.WindowIndex(kind, now)
		key := ratelimit.CounterKey(clientID, endpoint, kind, idx)
		expiresAt := ratelimit.WindowExpiresAt(kind, now)

		counter, ok := r.counters[key]
		if !ok {
			counter = &ratelimit.RateCounter{
				ClientID: clientID, Endpoint: endpoint, Window: kind, WindowIndex: idx,
				FirstSeen: now, WindowExpiresAt: expiresAt,
			}
			r.counters[key] = counter
		}
		counter.Count++
		counter.LastSeen = now

		if counter.Count > int64(limit) {
			r.escalate(clientID, kind, counter.Count, limit, now)
			return ratelimit.Status{
				Allowed:    false,
				Remaining:  0,
				LimitKind:  ratelimit.LimitKind(kind),
				ResetAt:    expiresAt,
				RetryAfter: expiresAt.Sub(now),
			}, nil
		}
	}

	burstIdx := ratelimit.WindowIndex(ratelimit.WindowBurst, now)
	burstKey := ratelimit.CounterKey(clientID, endpoint, ratelimit.WindowBurst, burstIdx)
	remaining := 0
	if c, ok := r.counters[burstKey]; ok {
		remaining = rule.Burst - int(c.Count)
		if remaining < 0 {
			remaining = 0
		}
	}

	return ratelimit.Status{
		Allowed:   true,
		Remaining: remaining,
		ResetAt:   ratelimit.WindowExpiresAt(ratelimit.WindowBurst, now),
	}, nil
}

// escalate applies the threshold-breach escalation: callers must already
// hold r.mu.
func (r *RateLimiter) escalate(clientID string, kind ratelimit.WindowKind, count int64, limit int, now time.Time) {
	var duration time.Duration
	var reason string

	switch kind {
	case ratelimit.WindowBurst:
		if float64(count) <= float64(limit)*ratelimit.BurstEscalationMultiplier {
			return
		}
		duration, reason = ratelimit.BurstEscalationDuration, "burst limit exceeded by escalation multiple"
	case ratelimit.WindowHour:
		if float64(count) <= float64(limit)*ratelimit.HourlyEscalationMultiplier {
			return
		}
		duration, reason = ratelimit.HourlyEscalationDuration, "hourly limit exceeded by escalation multiple"
	case ratelimit.WindowDay:
		duration, reason = ratelimit.DailyEscalationDuration, "daily limit exceeded"
	default:
		return
	}

	r.blacklistLocked(clientID, reason, duration, now)
}

// Blacklist explicitly blacklists clientID for the given duration (seconds),
// used directly by the security gateway on repeated threat detections.
func (r *RateLimiter) Blacklist(ctx context.Context, clientID, reason string, duration int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blacklistLocked(clientID, reason, time.Duration(duration)*time.Second, time.Now())
	return nil
}

// blacklistLocked inserts or extends a blacklist entry; callers must already
// hold r.mu. An existing, longer-lived entry is never shortened.
func (r *RateLimiter) blacklistLocked(clientID, reason string, duration time.Duration, now time.Time) {
	expiresAt := now.Add(duration)
	if existing, ok := r.blacklist[clientID]; ok && existing.ExpiresAt.After(expiresAt) {
		return
	}
	r.blacklist[clientID] = ratelimit.BlacklistEntry{
		ClientID: clientID, AddedAt: now, ExpiresAt: expiresAt, Reason: reason, Duration: duration,
	}
}

// StartCleanup starts the background goroutine that sweeps expired window
// counters and blacklist entries. Call Stop() to stop it gracefully.
func (r *RateLimiter) StartCleanup(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stopChan:
				return
			case <-ticker.C:
				r.cleanup()
			}
		}
	}()
}

func (r *RateLimiter) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cleaned := 0
	for key, counter := range r.counters {
		if now.After(counter.WindowExpiresAt) {
			delete(r.counters, key)
			cleaned++
		}
	}
	for clientID, entry := range r.blacklist {
		if now.After(entry.ExpiresAt) {
			delete(r.blacklist, clientID)
			cleaned++
		}
	}

	if cleaned > 0 {
		slog.Debug("rate limiter cleanup completed", "cleaned_entries", cleaned, "remaining_counters", len(r.counters))
	}
}

// Stop gracefully stops the cleanup goroutine and waits for it to exit.
// Safe to call multiple times.
func (r *RateLimiter) Stop() {
	r.once.Do(func() {
		close(r.stopChan)
	})
	r.wg.Wait()
}

// Size returns the number of tracked window counters, for tests.
func (r *RateLimiter) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.counters)
}

// Compile-time interface verification.
var _ ratelimit.Limiter = (*RateLimiter)(nil)
