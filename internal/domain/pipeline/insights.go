package pipeline

import (
	"context"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/mdh"
)

// InsightGenerator backs the graph's optional generate_insights node:
// given a successful query's results, surface observations worth
// highlighting beyond the literal answer.
type InsightGenerator interface {
	GenerateInsights(ctx context.Context, analyzed AnalyzedQuery, results mdh.QueryResult) ([]ProactiveInsight, error)
}

// FollowUpSuggester backs the graph's optional suggest_follow_ups node.
type FollowUpSuggester interface {
	SuggestFollowUps(ctx context.Context, analyzed AnalyzedQuery, results mdh.QueryResult) ([]FollowUpSuggestion, error)
}
