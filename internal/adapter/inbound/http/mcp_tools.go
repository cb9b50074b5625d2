package http

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/mdh"
	"github.com/boomi-gateway/datahub-gateway/internal/gatewayerr"
)

// Stable resource URIs and tool names exposed to MCP clients alongside the
// natural-language entrypoint.
const (
	resourceModelsAll       = "datahub://models/all"
	resourceModelsPublished = "datahub://models/published"
	resourceModelsDraft     = "datahub://models/draft"
	resourceModelPrefix     = "datahub://model/"
	resourceConnectionTest  = "datahub://connection/test"

	toolSearchModelsByName = "search_models_by_name"
	toolGetModelStatistics = "get_model_statistics"
	toolGetModelFields     = "get_model_fields"
	toolQueryRecords       = "query_records"
)

// listResources returns the resources/list catalog.
func listResources() map[string]any {
	return map[string]any{
		"resources": []map[string]any{
			{"uri": resourceModelsAll, "name": "All models", "mimeType": "application/json"},
			{"uri": resourceModelsPublished, "name": "Published models", "mimeType": "application/json"},
			{"uri": resourceModelsDraft, "name": "Draft models", "mimeType": "application/json"},
			{"uri": resourceConnectionTest, "name": "Hub connection test", "mimeType": "application/json"},
		},
	}
}

// listTools returns the tools/list catalog: the structured catalog tools
// plus the natural-language entrypoint the orchestration graph drives.
func listTools() map[string]any {
	return map[string]any{
		"tools": []map[string]any{
			{
				"name":        queryToolName,
				"description": "Answer a natural-language question about master data models",
				"inputSchema": objectSchema(map[string]any{"query": stringSchema()}, "query"),
			},
			{
				"name":        toolSearchModelsByName,
				"description": "Search the model catalog by name pattern",
				"inputSchema": objectSchema(map[string]any{"name_pattern": stringSchema()}, "name_pattern"),
			},
			{
				"name":        toolGetModelStatistics,
				"description": "Summary statistics across the model catalog",
				"inputSchema": objectSchema(map[string]any{}),
			},
			{
				"name":        toolGetModelFields,
				"description": "List the fields of one model",
				"inputSchema": objectSchema(map[string]any{"model_id": stringSchema()}, "model_id"),
			},
			{
				"name":        toolQueryRecords,
				"description": "Run a structured query against one model",
				"inputSchema": objectSchema(map[string]any{
					"model_id":     stringSchema(),
					"universe_id":  stringSchema(),
					"repository_id": stringSchema(),
					"fields":       map[string]any{"type": "array", "items": stringSchema()},
					"filters": map[string]any{"type": "array", "items": objectSchema(map[string]any{
						"field_id": stringSchema(), "operator": stringSchema(), "value": stringSchema(),
					}, "field_id", "operator", "value")},
					"limit":        map[string]any{"type": "integer"},
					"offset_token": stringSchema(),
				}),
			},
		},
	}
}

func stringSchema() map[string]any { return map[string]any{"type": "string"} }

func objectSchema(properties map[string]any, required ...string) map[string]any {
	s := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// readResource serves resources/read for the stable datahub:// URIs.
func readResource(ctx context.Context, client mdh.Client, uri string) (any, error) {
	switch {
	case uri == resourceModelsAll:
		models, err := client.GetAllModels(ctx)
		if err != nil {
			return nil, gatewayerr.Wrap(gatewayerr.MDHUpstreamError, "failed to list models", err)
		}
		return map[string]any{"models": models}, nil

	case uri == resourceModelsPublished:
		return filteredModels(ctx, client, mdh.PublicationPublish)

	case uri == resourceModelsDraft:
		return filteredModels(ctx, client, mdh.PublicationDraft)

	case strings.HasPrefix(uri, resourceModelPrefix):
		id := strings.TrimPrefix(uri, resourceModelPrefix)
		model, err := client.GetModelByID(ctx, id)
		if err != nil {
			return nil, gatewayerr.Wrap(gatewayerr.ModelNotFound, fmt.Sprintf("model %q not found", id), err)
		}
		return model, nil

	case uri == resourceConnectionTest:
		_, err := client.GetAllModels(ctx)
		if err != nil {
			return map[string]any{"connected": false, "error": err.Error()}, nil
		}
		return map[string]any{"connected": true}, nil

	default:
		return nil, gatewayerr.New(gatewayerr.Internal, fmt.Sprintf("unknown resource %q", uri))
	}
}

func filteredModels(ctx context.Context, client mdh.Client, status mdh.PublicationStatus) (any, error) {
	models, err := client.GetAllModels(ctx)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.MDHUpstreamError, "failed to list models", err)
	}
	filtered := make([]mdh.ModelDescriptor, 0, len(models))
	for _, m := range models {
		if m.PublicationStatus == status {
			filtered = append(filtered, m)
		}
	}
	return map[string]any{"models": filtered}, nil
}

// searchModelsByName implements the search_models_by_name tool: a
// case-insensitive substring match over the catalog's model names.
func searchModelsByName(ctx context.Context, client mdh.Client, namePattern string) (any, error) {
	models, err := client.GetAllModels(ctx)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.MDHUpstreamError, "failed to list models", err)
	}
	pattern := strings.ToLower(namePattern)
	matches := make([]mdh.ModelDescriptor, 0)
	for _, m := range models {
		if strings.Contains(strings.ToLower(m.Name), pattern) {
			matches = append(matches, m)
		}
	}
	return map[string]any{"models": matches}, nil
}

// getModelStatistics implements the get_model_statistics tool.
func getModelStatistics(ctx context.Context, client mdh.Client) (any, error) {
	models, err := client.GetAllModels(ctx)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.MDHUpstreamError, "failed to list models", err)
	}
	published, draft, totalFields := 0, 0, 0
	for _, m := range models {
		switch m.PublicationStatus {
		case mdh.PublicationPublish:
			published++
		case mdh.PublicationDraft:
			draft++
		}
		totalFields += len(m.Fields)
	}
	return map[string]any{
		"total_models":     len(models),
		"published_models": published,
		"draft_models":     draft,
		"total_fields":     totalFields,
	}, nil
}

// getModelFields implements the get_model_fields tool.
func getModelFields(ctx context.Context, client mdh.Client, modelID string) (any, error) {
	fields, err := client.GetModelFields(ctx, modelID)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.ModelNotFound, fmt.Sprintf("model %q not found", modelID), err)
	}
	return map[string]any{"fields": fields}, nil
}

// queryRecordsArgs is the query_records tool's argument shape: a caller-
// supplied model and filter set, run directly against the hub.
type queryRecordsArgs struct {
	ModelID      string            `json:"model_id"`
	UniverseID   string            `json:"universe_id"`
	RepositoryID string            `json:"repository_id"`
	Fields       []string          `json:"fields"`
	Filters      []filterArg       `json:"filters"`
	Limit        int               `json:"limit"`
	OffsetToken  string            `json:"offset_token"`
}

type filterArg struct {
	FieldID  string `json:"field_id"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// queryRecords implements the query_records tool: a direct, already-
// structured query against one model, bypassing query analysis/model
// discovery/field mapping since the caller supplies the model and filters
// itself.
func queryRecords(ctx context.Context, client mdh.Client, raw json.RawMessage) (any, error) {
	var args queryRecordsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.QueryBuildInvalid, "invalid query_records arguments", err)
	}

	modelID := args.ModelID
	if modelID == "" {
		modelID = args.UniverseID
	}
	if modelID == "" {
		return nil, gatewayerr.New(gatewayerr.QueryBuildInvalid, "model_id or universe_id is required")
	}

	filters := make([]mdh.Filter, 0, len(args.Filters))
	for _, f := range args.Filters {
		op := mdh.Operator(strings.ToUpper(f.Operator))
		if op != mdh.OperatorEquals && op != mdh.OperatorContains {
			return nil, gatewayerr.New(gatewayerr.QueryBuildInvalid, fmt.Sprintf("unsupported filter operator %q", f.Operator))
		}
		filters = append(filters, mdh.Filter{FieldID: f.FieldID, Operator: op, Value: f.Value})
	}

	limit := args.Limit
	if limit <= 0 {
		limit = 100
	}

	query := mdh.CanonicalQuery{
		QueryType:   mdh.QueryTypeSelect,
		ModelID:     modelID,
		Operations:  []string{"select"},
		Filters:     filters,
		Fields:      args.Fields,
		Limit:       mdh.ClampLimit(limit),
		OffsetToken: args.OffsetToken,
	}
	if args.RepositoryID != "" {
		query.Hints = map[string]string{"repository_id": args.RepositoryID}
	}

	results, err := client.QueryRecords(ctx, query)
	if err != nil {
		return nil, translateMDHError(err)
	}
	return results, nil
}
