// Package pipeline defines the Agent Pipeline's (C8) shared value types:
// query intent, entities, field mappings, and the formatted-response /
// insight / follow-up shapes the final stages produce. The stage
// contracts themselves live in stage.go.
package pipeline

// Intent is the classified purpose of a user query.
type Intent string

const (
	IntentCount   Intent = "COUNT"
	IntentList    Intent = "LIST"
	IntentCompare Intent = "COMPARE"
	IntentAnalyze Intent = "ANALYZE"
	IntentMeta    Intent = "META"
	IntentUnknown Intent = "UNKNOWN"
)

// QueryComplexity classifies a query as requiring a single model/filter
// pass (SIMPLE) or multi-model/multi-filter reasoning (COMPLEX).
type QueryComplexity string

const (
	ComplexitySimple  QueryComplexity = "SIMPLE"
	ComplexityComplex QueryComplexity = "COMPLEX"
)

// Entity is one natural-language span QueryAnalyzer extracted, along with
// its coarse type (e.g. "brand", "count_noun", "time_range").
type Entity struct {
	Text string
	Type string
}

// genericCountNouns names the words that describe *what to count* rather
// than filter criteria, and so must never be emitted as field mappings
// or query filters.
var genericCountNouns = map[string]bool{
	"products": true, "users": true, "items": true, "records": true,
	"entries": true, "customers": true, "campaigns": true,
	"advertisements": true, "ads": true, "names": true,
	"opportunities": true, "engagements": true,
}

// IsGenericCountNoun reports whether text (case-sensitive, as produced by
// QueryAnalyzer's lower-cased entity text) is a generic count-noun.
func IsGenericCountNoun(text string) bool {
	return genericCountNouns[text]
}

// AnalyzedQuery is QueryAnalyzer's (C8.1) output.
type AnalyzedQuery struct {
	Intent          Intent
	Entities        []Entity
	QueryType       QueryComplexity
	SuggestedModels []string
	IsMetaQuery     bool
	OriginalQuery   string
}

// FieldMapping is FieldMapper's (C8.3) per-entity result.
type FieldMapping struct {
	FieldName string // upper-cased canonical name
	Confidence float64
	Reasoning  string
}

// LowConfidenceThreshold is the cutoff below which a mapping
// is flagged low-confidence and excluded from filter construction.
const LowConfidenceThreshold = 0.7

// IsLowConfidence reports whether a mapping falls below the threshold.
func (m FieldMapping) IsLowConfidence() bool {
	return m.Confidence < LowConfidenceThreshold
}

// FormattedResponse is ResponseGenerator's (C8.6) human-readable output.
type FormattedResponse struct {
	ResponseType string // e.g. "SUCCESS", "SECURITY_BLOCKED", "NO_RESULTS"
	Message      string
	Table        [][]string
	Summary      map[string]string
}

// ProactiveInsight is an optional observation surfaced after a successful
// query (graph node generate_insights).
type ProactiveInsight struct {
	Kind        string
	Description string
	Confidence  float64
}

// FollowUpSuggestion is an optional next-query suggestion (graph node
// suggest_follow_ups).
type FollowUpSuggestion struct {
	Query       string
	Rationale   string
}
