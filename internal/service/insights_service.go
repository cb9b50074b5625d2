package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/mdh"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/pipeline"
)

// minInsightRecords is the smallest result set InsightService bothers
// analyzing; below this, any "pattern" observed would be noise.
const minInsightRecords = 5

// InsightService implements pipeline.InsightGenerator for the graph's
// optional generate_insights node: rule-based observations over a
// successful query's results (dominant categorical value, notably high
// numeric spread), gated behind features.proactive_insights.
type InsightService struct{}

// NewInsightService constructs an InsightService.
func NewInsightService() *InsightService {
	return &InsightService{}
}

// GenerateInsights surfaces at most one insight per field: a dominant
// categorical value (present in over half the records) or a wide numeric
// spread (max more than 3x min).
func (s *InsightService) GenerateInsights(_ context.Context, _ pipeline.AnalyzedQuery, results mdh.QueryResult) ([]pipeline.ProactiveInsight, error) {
	if len(results.Records) < minInsightRecords {
		return nil, nil
	}

	numeric := make(map[string][]float64)
	categorical := make(map[string]map[string]int)

	for _, r := range results.Records {
		for field, value := range r {
			if field == mdh.RecordIDKey {
				continue
			}
			if n, err := strconv.ParseFloat(value, 64); err == nil {
				numeric[field] = append(numeric[field], n)
				continue
			}
			if categorical[field] == nil {
				categorical[field] = make(map[string]int)
			}
			categorical[field][value]++
		}
	}

	var insights []pipeline.ProactiveInsight
	total := len(results.Records)

	for field, counts := range categorical {
		var topValue string
		topCount := 0
		for v, c := range counts {
			if c > topCount {
				topValue, topCount = v, c
			}
		}
		if topCount*2 > total {
			insights = append(insights, pipeline.ProactiveInsight{
				Kind:        "dominant_value",
				Description: fmt.Sprintf("%q accounts for %d of %d records in %s", topValue, topCount, total, field),
				Confidence:  float64(topCount) / float64(total),
			})
		}
	}

	for field, values := range numeric {
		min, max := values[0], values[0]
		for _, v := range values {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		if min > 0 && max > min*3 {
			insights = append(insights, pipeline.ProactiveInsight{
				Kind:        "wide_spread",
				Description: fmt.Sprintf("%s ranges widely from %.2f to %.2f", field, min, max),
				Confidence:  0.6,
			})
		}
	}

	return insights, nil
}

// FollowUpService implements pipeline.FollowUpSuggester for the graph's
// optional suggest_follow_ups node: a handful of generic next-query
// nudges keyed off the just-answered intent, gated behind
// features.follow_up_suggestions.
type FollowUpService struct{}

// NewFollowUpService constructs a FollowUpService.
func NewFollowUpService() *FollowUpService {
	return &FollowUpService{}
}

// SuggestFollowUps proposes natural next questions given the intent that
// was just answered.
func (s *FollowUpService) SuggestFollowUps(_ context.Context, analyzed pipeline.AnalyzedQuery, results mdh.QueryResult) ([]pipeline.FollowUpSuggestion, error) {
	if len(results.Records) == 0 {
		return nil, nil
	}

	switch analyzed.Intent {
	case pipeline.IntentCount:
		return []pipeline.FollowUpSuggestion{
			{Query: "list them", Rationale: "natural next step after a count"},
		}, nil
	case pipeline.IntentList:
		suggestions := []pipeline.FollowUpSuggestion{
			{Query: "how many are there in total", Rationale: "a list often prompts a total count"},
		}
		if results.HasMore {
			suggestions = append(suggestions, pipeline.FollowUpSuggestion{
				Query:     "show the next page",
				Rationale: "more results exist beyond what was shown",
			})
		}
		return suggestions, nil
	case pipeline.IntentCompare:
		return []pipeline.FollowUpSuggestion{
			{Query: "which one is the largest group", Rationale: "a comparison often prompts ranking"},
		}, nil
	default:
		return nil, nil
	}
}

var (
	_ pipeline.InsightGenerator  = (*InsightService)(nil)
	_ pipeline.FollowUpSuggester = (*FollowUpService)(nil)
)
