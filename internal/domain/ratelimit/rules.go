package ratelimit

import "strings"

// DefaultRules mirrors the original's per-endpoint RATE_LIMIT_RULES table
// (security/rate_limiter.py), carried forward because
// `security.rate_limits.<endpoint>.*` is configurable but the original's
// concrete numbers aren't repeated elsewhere; these are the defaults a deployment can
// override per endpoint.
var DefaultRules = map[string]EndpointRule{
	"/oauth/register": {Pattern: "/oauth/register", Burst: 3, PerMinute: 5, PerHour: 20, PerDay: 50},
	"/oauth/authorize": {Pattern: "/oauth/authorize", Burst: 5, PerMinute: 10, PerHour: 60, PerDay: 200},
	"/oauth/token":    {Pattern: "/oauth/token", Burst: 10, PerMinute: 20, PerHour: 200, PerDay: 1000},
	"/oauth/revoke":   {Pattern: "/oauth/revoke", Burst: 5, PerMinute: 10, PerHour: 100, PerDay: 500},
	"/mcp":            {Pattern: "/mcp", Burst: 10, PerMinute: 60, PerHour: 1000, PerDay: 10000},
	"/health":         {Pattern: "/health", Burst: 20, PerMinute: 120, PerHour: 3000, PerDay: 50000},
	"/test/rate-limit": {Pattern: "/test/rate-limit", Burst: 10, PerMinute: 60, PerHour: 1000, PerDay: 10000, BypassAware: true},
	"default": {Pattern: "default", Burst: 10, PerMinute: 60, PerHour: 1000, PerDay: 10000},
}

// MatchEndpoint resolves a request path to its configured EndpointRule using
// the match order: exact, prefix with trailing wildcard, substring,
// then default.
func MatchEndpoint(rules map[string]EndpointRule, path string) EndpointRule {
	if rule, ok := rules[path]; ok {
		return rule
	}
	for pattern, rule := range rules {
		if strings.HasSuffix(pattern, "*") && strings.HasPrefix(path, strings.TrimSuffix(pattern, "*")) {
			return rule
		}
	}
	for pattern, rule := range rules {
		if pattern != "default" && strings.Contains(path, pattern) {
			return rule
		}
	}
	return rules["default"]
}
