package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/mdh"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/pipeline"
)

// ErrNoRelevantModels is the hard error surfaced when discovery
// produces an empty result.
var ErrNoRelevantModels = errors.New("no relevant data models found")

// ModelDiscoveryService implements pipeline.ModelDiscovery (C8.2).
type ModelDiscoveryService struct{}

// NewModelDiscoveryService constructs a ModelDiscoveryService.
func NewModelDiscoveryService() *ModelDiscoveryService {
	return &ModelDiscoveryService{}
}

// Discover ranks candidate models by relevance to an analyzed query. When
// the analyzer supplied suggested models, those are filtered against the
// catalog first; otherwise relevance comes from name/description overlap
// with the extracted entities.
func (s *ModelDiscoveryService) Discover(_ context.Context, analyzed pipeline.AnalyzedQuery, catalog []mdh.ModelDescriptor) ([]mdh.ModelDescriptor, error) {
	var ranked []mdh.ModelDescriptor

	if len(analyzed.SuggestedModels) > 0 {
		wanted := make(map[string]bool, len(analyzed.SuggestedModels))
		for _, name := range analyzed.SuggestedModels {
			wanted[strings.ToLower(name)] = true
		}
		for _, m := range catalog {
			if wanted[strings.ToLower(m.Name)] {
				ranked = append(ranked, m)
			}
		}
	} else {
		type scored struct {
			model mdh.ModelDescriptor
			score int
		}
		var candidates []scored
		for _, m := range catalog {
			score := relevanceScore(m, analyzed.Entities)
			if score > 0 {
				candidates = append(candidates, scored{model: m, score: score})
			}
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].score > candidates[j].score
		})
		for _, c := range candidates {
			ranked = append(ranked, c.model)
		}
	}

	if len(ranked) == 0 {
		return nil, ErrNoRelevantModels
	}
	return ranked, nil
}

// relevanceScore counts how many non-count-noun entities overlap with a
// model's name or field set.
func relevanceScore(m mdh.ModelDescriptor, entities []pipeline.Entity) int {
	score := 0
	name := strings.ToLower(m.Name)
	for _, e := range entities {
		if e.Type == "count_noun" {
			continue
		}
		text := strings.ToLower(e.Text)
		if strings.Contains(name, text) || strings.Contains(text, name) {
			score++
			continue
		}
		if _, ok := m.FieldByName(strings.ToUpper(e.Text)); ok {
			score++
		}
	}
	return score
}

var _ pipeline.ModelDiscovery = (*ModelDiscoveryService)(nil)
