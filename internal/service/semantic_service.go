package service

import (
	"context"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/audit"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/semantic"
)

// SemanticService binds semantic.HybridAnalyzer to audit emission and
// per-conversation behavioral tracking: a combined assessment recommending
// anything other than allow-processing is audited as a security block,
// distinct from threat.Detector's literal pattern hits (this service
// analyzes meaning, the detector analyzes literal text), and its matched
// threat types are folded into the conversation's BehavioralFlags so
// repeated manipulation attempts across turns accumulate rather than being
// judged one message at a time.
type SemanticService struct {
	analyzer      *semantic.HybridAnalyzer
	audit         *AuditService
	conversations semantic.ConversationStore
}

// NewSemanticService constructs a SemanticService. conversations may be
// nil, disabling conversation-scoped behavioral tracking.
func NewSemanticService(analyzer *semantic.HybridAnalyzer, audit *AuditService, conversations semantic.ConversationStore) *SemanticService {
	return &SemanticService{analyzer: analyzer, audit: audit, conversations: conversations}
}

// Analyze runs the hybrid rule+LLM semantic assessment, audits anything
// the combined result recommends blocking or monitoring, and records the
// turn against clientID's conversation context.
func (s *SemanticService) Analyze(ctx context.Context, input, cacheKey, clientID string) semantic.CombinedAssessment {
	result := s.analyzer.Analyze(ctx, input, cacheKey)

	threatTypes := make([]string, 0, len(result.ThreatTypes))
	for _, t := range result.ThreatTypes {
		threatTypes = append(threatTypes, string(t))
	}

	blocked := result.RecommendedAction != semantic.ActionAllowProcessing

	if s.audit != nil && blocked {
		s.audit.Record(audit.AuditEvent{
			EventType:     audit.EventTypeSecurityBlocked,
			Severity:      severityForSemanticAction(result.RecommendedAction),
			ClientID:      clientID,
			Success:       false,
			SecurityFlags: threatTypes,
			Details: map[string]any{
				"combined_confidence": result.Combined,
				"recommended_action":  string(result.RecommendedAction),
				"llm_unavailable":     result.LLMUnavailable,
				"cache_hit":           result.CacheHit,
			},
		})
	}

	if s.conversations != nil && clientID != "" {
		s.conversations.Record(ctx, clientID, input, blocked, threatTypes)
	}

	return result
}

// severityForSemanticAction maps a semantic.SecurityAction to the audit
// severity taxonomy.
func severityForSemanticAction(action semantic.SecurityAction) audit.Severity {
	switch action {
	case semantic.ActionBlockImmediately:
		return audit.SeverityCritical
	case semantic.ActionBlockWithWarning:
		return audit.SeverityError
	case semantic.ActionMonitorClosely:
		return audit.SeverityWarning
	default:
		return audit.SeverityInfo
	}
}
