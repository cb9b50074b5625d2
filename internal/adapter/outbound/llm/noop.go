package llm

import (
	"context"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/semantic"
)

// NoopAdvisor is the deterministic stand-in used when no LLM is
// configured: it defers entirely to the rule-based pass rather than
// guessing, so CombinedAssessment.LLMUnavailable is the caller's signal
// to weight the rule assessment at full confidence.
type NoopAdvisor struct{}

// NewNoopAdvisor returns an advisor that always reports itself unavailable.
func NewNoopAdvisor() *NoopAdvisor {
	return &NoopAdvisor{}
}

// Assess always returns ErrUnavailable; callers treat this the same as a
// network failure and fall back to the rule-based assessment alone.
func (NoopAdvisor) Assess(_ context.Context, _ string, _ semantic.RuleAssessment) (*semantic.LLMVerdict, error) {
	return nil, ErrUnavailable
}

var _ semantic.Advisor = (*NoopAdvisor)(nil)
