package pipeline

import (
	"context"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/mdh"
)

// QueryAnalyzer is C8 stage 1: classify intent and extract entities from
// the raw user query against the set of models currently known to the
// catalog.
type QueryAnalyzer interface {
	Analyze(ctx context.Context, userQuery string, availableModels []mdh.ModelDescriptor) (AnalyzedQuery, error)
}

// ModelDiscovery is C8 stage 2: rank candidate models by relevance to an
// analyzed query.
type ModelDiscovery interface {
	Discover(ctx context.Context, analyzed AnalyzedQuery, catalog []mdh.ModelDescriptor) ([]mdh.ModelDescriptor, error)
}

// FieldMapper is C8 stage 3: map extracted entities onto a model's field
// list.
type FieldMapper interface {
	MapFields(ctx context.Context, entities []Entity, model mdh.ModelDescriptor) (map[string]FieldMapping, error)
}

// QueryBuilder is C8 stage 4: construct the canonical query to execute.
type QueryBuilder interface {
	Build(ctx context.Context, analyzed AnalyzedQuery, mappings map[string]FieldMapping, modelID string) (mdh.CanonicalQuery, error)
}

// DataRetrieval is C8 stage 5: execute the canonical query through the MDH
// adapter.
type DataRetrieval interface {
	Retrieve(ctx context.Context, query mdh.CanonicalQuery) (mdh.QueryResult, error)
}

// ResponseGenerator is C8 stage 6: render query results into a
// human-readable formatted response.
type ResponseGenerator interface {
	Generate(ctx context.Context, analyzed AnalyzedQuery, results mdh.QueryResult) (FormattedResponse, error)
}
