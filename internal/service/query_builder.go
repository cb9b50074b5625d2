package service

import (
	"context"
	"sort"
	"strings"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/mdh"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/pipeline"
)

// defaultQueryLimit is used when a stage asks for records without an
// explicit page size; DataRetrieval/mdh still clamps to [1, 1000].
const defaultQueryLimit = 100

// QueryBuilderService implements pipeline.QueryBuilder (C8.4).
type QueryBuilderService struct{}

// NewQueryBuilderService constructs a QueryBuilderService.
func NewQueryBuilderService() *QueryBuilderService {
	return &QueryBuilderService{}
}

// Build constructs the canonical query to execute. COUNT intents are
// select-and-client-count since the hub only supports record selection;
// filters are built only from high-confidence (>=0.7), non-count-noun
// mappings.
func (s *QueryBuilderService) Build(_ context.Context, analyzed pipeline.AnalyzedQuery, mappings map[string]pipeline.FieldMapping, modelID string) (mdh.CanonicalQuery, error) {
	query := mdh.CanonicalQuery{
		QueryType:  mdh.QueryTypeSelect,
		ModelID:    modelID,
		Operations: []string{string(mdh.QueryTypeSelect)},
		Limit:      defaultQueryLimit,
		Metadata:   map[string]string{"intent": string(analyzed.Intent)},
	}

	entityTexts := make([]string, 0, len(mappings))
	for text := range mappings {
		entityTexts = append(entityTexts, text)
	}
	sort.Strings(entityTexts) // deterministic filter ordering

	for _, text := range entityTexts {
		if pipeline.IsGenericCountNoun(strings.ToLower(text)) {
			continue
		}
		mapping := mappings[text]
		if mapping.IsLowConfidence() {
			continue
		}
		query.Filters = append(query.Filters, mdh.Filter{
			FieldID:  mapping.FieldName,
			Operator: operatorFor(mapping.FieldName),
			Value:    text,
		})
	}

	query.Fields = fieldsForIntent(analyzed, mappings)

	if analyzed.Intent == pipeline.IntentCompare {
		query.GroupBy = groupByField(mappings)
	}

	return query, nil
}

// operatorFor defaults to EQUALS for names/brands, CONTAINS for
// product-like fields
func operatorFor(fieldName string) mdh.Operator {
	if strings.Contains(fieldName, "PRODUCT") {
		return mdh.OperatorContains
	}
	return mdh.OperatorEquals
}

// fieldsForIntent selects the fields to request. COUNT always collapses to
// exactly one field and never a wildcard, regardless of how many distinct
// fields were mapped: the hub has no native count operation, so a COUNT
// query is a select that the caller counts rows from, and selecting more
// than one field would only inflate the response it discards.
func fieldsForIntent(analyzed pipeline.AnalyzedQuery, mappings map[string]pipeline.FieldMapping) []string {
	seen := make(map[string]bool)
	var fields []string
	for _, m := range mappings {
		if !seen[m.FieldName] {
			fields = append(fields, m.FieldName)
			seen[m.FieldName] = true
		}
	}
	sort.Strings(fields)

	if analyzed.Intent == pipeline.IntentCount {
		// _record_id is always present on a record, so it's a safe single
		// field to request when nothing more specific was mapped.
		if len(fields) == 0 {
			return []string{mdh.RecordIDKey}
		}
		return fields[:1]
	}
	return fields
}

// groupByField selects a grouping field for COMPARE intents: the first
// high-confidence brand-like or primary-category field mapping.
func groupByField(mappings map[string]pipeline.FieldMapping) string {
	texts := make([]string, 0, len(mappings))
	for text := range mappings {
		texts = append(texts, text)
	}
	sort.Strings(texts)

	for _, text := range texts {
		m := mappings[text]
		if m.IsLowConfidence() {
			continue
		}
		name := m.FieldName
		if strings.Contains(name, "BRAND") || strings.Contains(name, "ADVERTISER") || strings.Contains(name, "CATEGORY") {
			return name
		}
	}
	return ""
}

var _ pipeline.QueryBuilder = (*QueryBuilderService)(nil)
