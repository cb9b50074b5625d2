// Package semantic implements the hybrid semantic analyzer (C5): a
// rule-based pattern scorer combined, for uncertain inputs, with an
// advisory LLM call, behind a TTL+LRU bounded cache. Grounded on the
// original's security/semantic_analyzer.py (rule patterns) and
// security/hybrid_semantic_analyzer.py (combination weights, caching).
package semantic

import "time"

// ThreatType classifies the kind of semantic manipulation a pattern or LLM
// verdict identifies. Distinct from threat.Category: these describe
// meaning-level manipulation, not literal keyword/regex hits.
type ThreatType string

const (
	ThreatPromptInjection        ThreatType = "prompt_injection"
	ThreatRoleConfusion          ThreatType = "role_confusion"
	ThreatSystemPromptExtraction ThreatType = "system_prompt_extraction"
	ThreatSocialEngineering      ThreatType = "social_engineering"
	ThreatContextManipulation    ThreatType = "context_manipulation"
	ThreatInstructionOverride    ThreatType = "instruction_override"
	ThreatAuthorityClaim         ThreatType = "authority_claim"
	ThreatUrgencyManipulation    ThreatType = "urgency_manipulation"
)

// SecurityAction is the recommended disposition of a combined assessment.
type SecurityAction string

const (
	ActionBlockImmediately SecurityAction = "block_immediately"
	ActionBlockWithWarning SecurityAction = "block_with_warning"
	ActionMonitorClosely   SecurityAction = "monitor_closely"
	ActionAllowProcessing  SecurityAction = "allow_processing"
)

// Pattern is one rule-based semantic detection rule: a regex plus keyword
// and context-keyword lists, scored by evaluatePatternMatch.
type Pattern struct {
	Name                string
	ThreatType          ThreatType
	Regex               string
	Keywords            []string
	ContextKeywords     []string
	ConfidenceThreshold float64
	Description         string
}

// RuleAssessment is the result of the fast, pure rule-based pass.
type RuleAssessment struct {
	InputText        string
	IsThreat         bool
	ThreatTypes       []ThreatType
	Confidence        float64
	MatchedPatterns   []string
	RecommendedAction SecurityAction
}

// LLMVerdict is the advisory LLM's structured response to a semantic
// analysis prompt.
type LLMVerdict struct {
	IsThreat           bool
	Confidence         float64
	ThreatTypes        []ThreatType
	Reasoning          string
	SubtletyScore      float64
	BusinessLegitimacy float64
	SecurityAction     SecurityAction
}

// CombinedAssessment merges a RuleAssessment with an optional LLMVerdict.
type CombinedAssessment struct {
	Rule               RuleAssessment
	LLM                *LLMVerdict
	LLMUnavailable     bool
	Combined           float64
	ThreatTypes        []ThreatType
	RecommendedAction  SecurityAction
	CacheHit           bool
	ProcessingTime     time.Duration
}

// ConversationContext carries conversation-scoped state the analyzer uses
// to weigh repeated escalation attempts within one session.
type ConversationContext struct {
	ConversationID     string
	PreviousMessages   []string
	EscalationAttempts int
	TrustLevel         float64

	// BehavioralFlags records the threat/manipulation indicators (e.g.
	// "urgency_manipulation", "authority_claim") matched on prior turns of
	// this conversation, oldest first, bounded to the last 50.
	BehavioralFlags []string
}
