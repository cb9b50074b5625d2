package semantic

import "context"

// ConversationStore is the outbound port for tracking per-conversation
// escalation state: turns recorded as escalated raise EscalationAttempts
// and lower TrustLevel. HybridAnalyzer and NeedsAdvisory do not read this
// state; each turn is assessed from its own text alone.
type ConversationStore interface {
	Get(ctx context.Context, conversationID string) (ConversationContext, bool)

	// Record appends message to the conversation's history and flags to its
	// BehavioralFlags, both bounded to their tail. flags are the matched
	// escalation/manipulation/authority/jargon indicators from this turn's
	// rule or LLM assessment; escalated marks whether this turn counted
	// against EscalationAttempts and TrustLevel.
	Record(ctx context.Context, conversationID string, message string, escalated bool, flags []string) ConversationContext
}
