// Package ratelimit provides the rate-limiting domain types: the four
// independent windows (burst/minute/hour/day), the escalating blacklist,
// and the endpoint-rule table. Grounded on the teacher's
// internal/domain/ratelimit package shape, replacing its GCRA algorithm
// with the sliding-window + burst + auto-blacklist algorithm this spec
// requires (see SPEC_FULL.md / DESIGN.md for why GCRA was not reused).
package ratelimit

import (
	"fmt"
	"time"
)

// WindowKind identifies one of the four independent rate-limit windows
// checked, in order, on every request.
type WindowKind string

const (
	WindowBurst  WindowKind = "burst"
	WindowMinute WindowKind = "minute"
	WindowHour   WindowKind = "hour"
	WindowDay    WindowKind = "day"
)

// orderedWindows is the fixed check order from the step 3.
var orderedWindows = []WindowKind{WindowBurst, WindowMinute, WindowHour, WindowDay}

// OrderedWindows returns the fixed window check order (burst, minute, hour, day).
func OrderedWindows() []WindowKind { return orderedWindows }

// windowPeriod returns the real-time duration of one window of this kind.
// Burst uses a 10-second window
func windowPeriod(kind WindowKind) time.Duration {
	switch kind {
	case WindowBurst:
		return 10 * time.Second
	case WindowMinute:
		return time.Minute
	case WindowHour:
		return time.Hour
	case WindowDay:
		return 24 * time.Hour
	default:
		return time.Minute
	}
}

// WindowIndex returns the index of the window containing instant t, i.e.
// a fixed, aligned window counter: floor(unix-time / period).
func WindowIndex(kind WindowKind, t time.Time) int64 {
	period := windowPeriod(kind)
	return t.Unix() / int64(period.Seconds())
}

// WindowExpiresAt returns when the window containing t expires.
func WindowExpiresAt(kind WindowKind, t time.Time) time.Time {
	period := windowPeriod(kind)
	idx := WindowIndex(kind, t)
	start := time.Unix(idx*int64(period.Seconds()), 0).UTC()
	return start.Add(period)
}

// EndpointRule carries the four independent limits for one endpoint pattern.
type EndpointRule struct {
	Pattern     string
	Burst       int
	PerMinute   int
	PerHour     int
	PerDay      int
	BypassAware bool // whitelist does NOT bypass limits on this endpoint
}

// LimitFor returns the configured limit for the given window kind.
func (r EndpointRule) LimitFor(kind WindowKind) int {
	switch kind {
	case WindowBurst:
		return r.Burst
	case WindowMinute:
		return r.PerMinute
	case WindowHour:
		return r.PerHour
	case WindowDay:
		return r.PerDay
	default:
		return 0
	}
}

// RateCounter is keyed by (client-identifier, endpoint, window-kind,
// window-index). Counters auto-expire with their window; an expired
// counter is equivalent to absent.
type RateCounter struct {
	ClientID       string
	Endpoint       string
	Window         WindowKind
	WindowIndex    int64
	Count          int64
	FirstSeen      time.Time
	LastSeen       time.Time
	WindowExpiresAt time.Time
}

// CounterKey formats the structured key used by concurrent map stores.
func CounterKey(clientID, endpoint string, kind WindowKind, idx int64) string {
	return fmt.Sprintf("ratelimit:%s:%s:%s:%d", clientID, endpoint, kind, idx)
}

// BlacklistEntry is keyed by client-identifier. While unexpired, all
// requests from that identifier are denied with retry-after equal to the
// remaining time.
type BlacklistEntry struct {
	ClientID  string
	AddedAt   time.Time
	ExpiresAt time.Time
	Reason    string
	Duration  time.Duration
}

// RemainingAt returns the retry-after duration at instant now, clamped to
// zero once expired.
func (b BlacklistEntry) RemainingAt(now time.Time) time.Duration {
	remaining := b.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Escalation durations applied when a window is crossed by the configured
// multiple step 3.
const (
	BurstEscalationMultiplier = 2.0
	BurstEscalationDuration   = 15 * time.Minute
	HourlyEscalationMultiplier = 1.5
	HourlyEscalationDuration   = 60 * time.Minute
	DailyEscalationDuration    = 24 * time.Hour
)

// LimitKind identifies which limit denied a request, for the Status result.
type LimitKind string

const (
	LimitKindNone      LimitKind = ""
	LimitKindBlacklist LimitKind = "blacklist"
	LimitKindBurst     LimitKind = LimitKind(WindowBurst)
	LimitKindMinute    LimitKind = LimitKind(WindowMinute)
	LimitKindHour      LimitKind = LimitKind(WindowHour)
	LimitKindDay       LimitKind = LimitKind(WindowDay)
)

// Status is the result of a Check call.
type Status struct {
	Allowed    bool
	Remaining  int
	ResetAt    time.Time
	LimitKind  LimitKind
	RetryAfter time.Duration
}
