package service

import (
	"context"
	"strings"
	"unicode"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/mdh"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/pipeline"
)

// metaPhrases identify questions about the catalog itself rather than
// its data
var metaPhrases = []string{
	"list models", "list the models", "what models", "which models",
	"available models", "what fields", "which fields", "what data is available",
	"show me the catalog", "catalog",
}

// verbIntents maps the verbs the pattern-based fallback recognizes to
// their classified intent, checked in the order below so multi-word verbs
// are matched before their single-word prefixes.
var verbIntents = []struct {
	verb   string
	intent pipeline.Intent
}{
	{"how many", pipeline.IntentCount},
	{"count", pipeline.IntentCount},
	{"number of", pipeline.IntentCount},
	{"compare", pipeline.IntentCompare},
	{"versus", pipeline.IntentCompare},
	{" vs ", pipeline.IntentCompare},
	{"analyze", pipeline.IntentAnalyze},
	{"analyse", pipeline.IntentAnalyze},
	{"trend", pipeline.IntentAnalyze},
	{"list", pipeline.IntentList},
	{"show", pipeline.IntentList},
	{"find", pipeline.IntentList},
	{"get", pipeline.IntentList},
	{"which", pipeline.IntentList},
}

// QueryAnalyzerService implements pipeline.QueryAnalyzer (C8.1) with a
// pattern-based fallback: it never calls out to an LLM itself, playing
// the role of the "LLM unavailable" path, since this deployment treats
// query classification as always-available, pure in-memory work.
type QueryAnalyzerService struct{}

// NewQueryAnalyzerService constructs a QueryAnalyzerService.
func NewQueryAnalyzerService() *QueryAnalyzerService {
	return &QueryAnalyzerService{}
}

// Analyze classifies intent and extracts entities from a raw user query.
func (s *QueryAnalyzerService) Analyze(_ context.Context, userQuery string, availableModels []mdh.ModelDescriptor) (pipeline.AnalyzedQuery, error) {
	normalized := strings.ToLower(strings.TrimSpace(userQuery))

	analyzed := pipeline.AnalyzedQuery{OriginalQuery: userQuery}

	if isMetaQuery(normalized) {
		analyzed.Intent = pipeline.IntentMeta
		analyzed.IsMetaQuery = true
		analyzed.QueryType = pipeline.ComplexitySimple
		return analyzed, nil
	}

	analyzed.Intent = classifyIntent(normalized)
	analyzed.Entities = extractEntities(userQuery, normalized, availableModels)
	analyzed.SuggestedModels = suggestedModels(normalized, availableModels)

	analyzed.QueryType = pipeline.ComplexitySimple
	if len(analyzed.SuggestedModels) > 1 || analyzed.Intent == pipeline.IntentCompare {
		analyzed.QueryType = pipeline.ComplexityComplex
	}

	return analyzed, nil
}

func isMetaQuery(normalized string) bool {
	for _, phrase := range metaPhrases {
		if strings.Contains(normalized, phrase) {
			return true
		}
	}
	return false
}

func classifyIntent(normalized string) pipeline.Intent {
	for _, vi := range verbIntents {
		if strings.Contains(normalized, vi.verb) {
			return vi.intent
		}
	}
	return pipeline.IntentUnknown
}

// extractEntities pulls two kinds of spans out of the query: generic
// count-nouns (flagged "count_noun" so downstream stages never treat
// them as filter criteria) and capitalized tokens from the
// original (pre-lowercasing) text, treated as brand/proper-noun entities.
func extractEntities(original, normalized string, models []mdh.ModelDescriptor) []pipeline.Entity {
	var entities []pipeline.Entity
	seen := make(map[string]bool)

	for _, word := range strings.Fields(normalized) {
		word = strings.Trim(word, ".,!?;:\"'")
		if word == "" || seen[word] {
			continue
		}
		if pipeline.IsGenericCountNoun(word) {
			entities = append(entities, pipeline.Entity{Text: word, Type: "count_noun"})
			seen[word] = true
		}
	}

	for _, word := range strings.Fields(original) {
		word = strings.Trim(word, ".,!?;:\"'")
		if word == "" || len(word) < 2 {
			continue
		}
		lower := strings.ToLower(word)
		if seen[lower] {
			continue
		}
		if isCapitalized(word) {
			entities = append(entities, pipeline.Entity{Text: word, Type: "brand"})
			seen[lower] = true
		}
	}

	for _, m := range models {
		for _, f := range m.Fields {
			fieldWord := strings.ToLower(f.Name)
			if fieldWord != "" && strings.Contains(normalized, fieldWord) && !seen[fieldWord] {
				entities = append(entities, pipeline.Entity{Text: fieldWord, Type: "field"})
				seen[fieldWord] = true
			}
		}
	}

	return entities
}

func isCapitalized(word string) bool {
	r := []rune(word)
	return len(r) > 0 && unicode.IsUpper(r[0])
}

// suggestedModels names catalog models whose name appears in the query.
func suggestedModels(normalized string, models []mdh.ModelDescriptor) []string {
	var names []string
	for _, m := range models {
		if strings.Contains(normalized, strings.ToLower(m.Name)) {
			names = append(names, m.Name)
		}
	}
	return names
}

var _ pipeline.QueryAnalyzer = (*QueryAnalyzerService)(nil)
