package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/mdh"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/pipeline"
)

// FieldMapperService implements pipeline.FieldMapper (C8.3).
type FieldMapperService struct{}

// NewFieldMapperService constructs a FieldMapperService.
func NewFieldMapperService() *FieldMapperService {
	return &FieldMapperService{}
}

// MapFields maps entity text onto a model's field list. Generic
// count-nouns are never emitted, since they describe what to count, not
// filter criteria.
func (s *FieldMapperService) MapFields(_ context.Context, entities []pipeline.Entity, model mdh.ModelDescriptor) (map[string]pipeline.FieldMapping, error) {
	mappings := make(map[string]pipeline.FieldMapping)

	for _, e := range entities {
		if e.Type == "count_noun" || pipeline.IsGenericCountNoun(strings.ToLower(e.Text)) {
			continue
		}

		fieldName, confidence, reasoning := bestField(e, model)
		if fieldName == "" {
			continue
		}

		mappings[e.Text] = pipeline.FieldMapping{
			FieldName:  fieldName,
			Confidence: confidence,
			Reasoning:  reasoning,
		}
	}

	return mappings, nil
}

// bestField scores entity text against every field, preferring an exact
// name match, then a field whose name contains the entity, then a
// field/entity type hint (e.g. "brand" entities favor name-like fields).
func bestField(e pipeline.Entity, model mdh.ModelDescriptor) (string, float64, string) {
	text := strings.ToUpper(strings.TrimSpace(e.Text))
	if text == "" {
		return "", 0, ""
	}

	if f, ok := model.FieldByName(text); ok {
		return f.Name, 1.0, "exact field name match"
	}

	for _, f := range model.Fields {
		if strings.Contains(f.Name, text) || strings.Contains(text, f.Name) {
			return f.Name, 0.8, fmt.Sprintf("field name %q overlaps entity text", f.Name)
		}
	}

	if e.Type == "brand" {
		for _, f := range model.Fields {
			if strings.Contains(f.Name, "NAME") || strings.Contains(f.Name, "ADVERTISER") || strings.Contains(f.Name, "BRAND") {
				return f.Name, 0.5, "brand-like entity mapped to name-like field by heuristic"
			}
		}
	}

	return "", 0, ""
}

var _ pipeline.FieldMapper = (*FieldMapperService)(nil)
