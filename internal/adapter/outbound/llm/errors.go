package llm

import "errors"

// ErrUnavailable is returned by NoopAdvisor.Assess. AnthropicAdvisor
// returns its own descriptive errors, which do not wrap it; the analyzer
// treats any advisor error the same way: fall back to the rule-based
// assessment rather than fail the request.
var ErrUnavailable = errors.New("llm: advisor unavailable")
