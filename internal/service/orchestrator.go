package service

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/agentstate"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/audit"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/graph"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/mdh"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/pipeline"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/ratelimit"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/semantic"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/threat"
	"github.com/boomi-gateway/datahub-gateway/internal/gatewayerr"
)

// Features gates the two optional graph nodes behind configuration:
// features.proactive_insights and features.follow_up_suggestions.
type Features struct {
	ProactiveInsights   bool
	FollowUpSuggestions bool
}

// Orchestrator wires the fixed node set of the orchestration graph
// to the service-layer implementations of every pipeline stage and
// security layer built earlier. Build returns a graph.Executor ready to
// Run against a fresh agentstate.State.
type Orchestrator struct {
	oauth    *OAuthService
	rate     *RateLimitService
	threat   *ThreatService
	semantic *SemanticService

	analyzer      pipeline.QueryAnalyzer
	discovery     pipeline.ModelDiscovery
	fieldMapper   pipeline.FieldMapper
	queryBuilder  pipeline.QueryBuilder
	dataRetrieval pipeline.DataRetrieval
	responseGen   pipeline.ResponseGenerator
	insights      pipeline.InsightGenerator
	followUps     pipeline.FollowUpSuggester

	mdhClient mdh.Client
	rateRule  ratelimit.EndpointRule
	features  Features
}

// NewOrchestrator assembles an Orchestrator from its service dependencies.
func NewOrchestrator(
	oauthSvc *OAuthService,
	rateSvc *RateLimitService,
	threatSvc *ThreatService,
	semanticSvc *SemanticService,
	analyzer pipeline.QueryAnalyzer,
	discovery pipeline.ModelDiscovery,
	fieldMapper pipeline.FieldMapper,
	queryBuilder pipeline.QueryBuilder,
	dataRetrieval pipeline.DataRetrieval,
	responseGen pipeline.ResponseGenerator,
	insights pipeline.InsightGenerator,
	followUps pipeline.FollowUpSuggester,
	mdhClient mdh.Client,
	rateRule ratelimit.EndpointRule,
	features Features,
) *Orchestrator {
	return &Orchestrator{
		oauth:         oauthSvc,
		rate:          rateSvc,
		threat:        threatSvc,
		semantic:      semanticSvc,
		analyzer:      analyzer,
		discovery:     discovery,
		fieldMapper:   fieldMapper,
		queryBuilder:  queryBuilder,
		dataRetrieval: dataRetrieval,
		responseGen:   responseGen,
		insights:      insights,
		followUps:     followUps,
		mdhClient:     mdhClient,
		rateRule:      rateRule,
		features:      features,
	}
}

// OAuth exposes the bound OAuthService so the transport adapter can
// validate bearer tokens for requests that bypass the full graph: the
// structured catalog tools and resources, which need auth but not the
// natural-language pipeline.
func (o *Orchestrator) OAuth() *OAuthService { return o.oauth }

// MDHClient exposes the bound mdh.Client for the same direct-access paths.
func (o *Orchestrator) MDHClient() mdh.Client { return o.mdhClient }

// RateLimit exposes the bound RateLimitService for direct-access paths.
func (o *Orchestrator) RateLimit() *RateLimitService { return o.rate }

// RateRule exposes the endpoint rule direct-access paths should check
// against, matching the rule execute_query uses for /mcp.
func (o *Orchestrator) RateRule() ratelimit.EndpointRule { return o.rateRule }

// Build registers every fixed node and returns a ready-to-run executor.
// audit may be nil, in which case transitions simply go unrecorded beyond
// state.AuditTrail (the executor treats a nil AuditEmitter as optional).
func (o *Orchestrator) Build(emitter graph.AuditEmitter) *graph.Executor {
	nodes := map[string]graph.NodeFunc{
		graph.NodeValidateBearerToken:       o.validateBearerToken,
		graph.NodeCheckUserAuthorization:    o.checkUserAuthorization,
		graph.NodeComprehensiveSecurityCheck: o.comprehensiveSecurityAnalysis,
		graph.NodeExecuteQuery:              o.executeQuery,
		graph.NodeGenerateResponse:          o.generateResponse,
		graph.NodeGenerateInsights:          o.generateInsights,
		graph.NodeSuggestFollowUps:          o.suggestFollowUps,
	}
	return graph.NewExecutor(nodes, emitter)
}

// clientID is the identifier the security gateway and rate limiter key
// their per-client state on. Bearer-token requests are keyed by the
// request ID until authentication assigns a principal subject.
func clientID(state *agentstate.State) string {
	if state.UserContext != nil {
		return state.UserContext.Subject
	}
	return state.RequestID
}

// validateBearerToken is the graph's entry node: it authenticates the
// bearer token and terminates the request on failure (the: auth errors are
// terminal at validate/authorize nodes).
func (o *Orchestrator) validateBearerToken(ctx context.Context, state *agentstate.State) (string, error) {
	principal, err := o.oauth.ValidateBearer(ctx, state.BearerToken, state.RequestID, "")
	if err != nil {
		state.AuthStatus = agentstate.AuthTokenInvalid
		return graph.NodeEnd, err
	}

	state.UserContext = principal
	state.AuthStatus = agentstate.AuthAuthenticated
	return graph.NodeCheckUserAuthorization, nil
}

// checkUserAuthorization runs query analysis far enough to tell whether
// the request is a meta query (catalog questions, allowed regardless of
// data access) or a data query, which requires the principal to carry
// data access (checked against the permission projection, denied with
// AuthInsufficientScope otherwise).
func (o *Orchestrator) checkUserAuthorization(ctx context.Context, state *agentstate.State) (string, error) {
	models, err := o.mdhClient.GetAllModels(ctx)
	if err != nil {
		return graph.NodeEnd, gatewayerr.Wrap(gatewayerr.Internal, "failed to load model catalog", err)
	}

	analyzed, err := o.analyzer.Analyze(ctx, state.UserQuery, models)
	if err != nil {
		return graph.NodeEnd, gatewayerr.Wrap(gatewayerr.QueryAnalysisFailed, "could not classify the query", err)
	}

	state.QueryIntent = analyzed.Intent
	state.QueryComplexity = analyzed.QueryType
	state.IsMetaQuery = analyzed.IsMetaQuery
	state.Entities = analyzed.Entities
	state.SuggestedModels = analyzed.SuggestedModels

	if !analyzed.IsMetaQuery && (state.UserContext == nil || !state.UserContext.HasDataAccess) {
		return graph.NodeEnd, gatewayerr.New(gatewayerr.AuthInsufficientScope, "principal is not authorized to access data models").
			WithGuidance("request a token with a read:<domain> or read:all scope")
	}

	if !state.AdvanceClearance(agentstate.ClearanceLayer1Passed) {
		return graph.NodeEnd, gatewayerr.New(gatewayerr.Internal, "unexpected clearance transition at authorization")
	}
	return graph.NodeComprehensiveSecurityCheck, nil
}

// comprehensiveSecurityAnalysis runs the literal-pattern threat detector
// and the meaning-level semantic analyzer over the raw
// query. A block verdict from either surfaces as a *successful* request
// with a SECURITY_BLOCKED-family response: no error, no further
// nodes run.
func (o *Orchestrator) comprehensiveSecurityAnalysis(ctx context.Context, state *agentstate.State) (string, error) {
	cid := clientID(state)

	threatResult := o.threat.Analyze(ctx, state.UserQuery, cid)
	if threatResult.IsThreat && threatResult.Action != threat.ActionLogOnly {
		state.AdvanceClearance(agentstate.ClearanceBlocked)
		state.FormattedResponse = &pipeline.FormattedResponse{
			ResponseType: "SECURITY_BLOCKED",
			Message:      "This request was blocked by security policy.",
		}
		return graph.NodeEnd, nil
	}
	state.AdvanceClearance(agentstate.ClearanceLayer2Passed)

	assessment := o.semantic.Analyze(ctx, state.UserQuery, state.RequestID, cid)
	state.ThreatAssessment = &assessment
	if assessment.RecommendedAction != semantic.ActionAllowProcessing {
		state.AdvanceClearance(agentstate.ClearanceBlocked)
		state.FormattedResponse = &pipeline.FormattedResponse{
			ResponseType: semanticBlockResponseType(assessment.RecommendedAction),
			Message:      "This request was blocked by security policy.",
		}
		return graph.NodeEnd, nil
	}

	state.AdvanceClearance(agentstate.ClearanceLayer3Passed)
	state.AdvanceClearance(agentstate.ClearanceApproved)
	return graph.NodeExecuteQuery, nil
}

// semanticBlockResponseType maps a blocked SecurityAction onto the
// response_type values the names for the security-blocked family.
func semanticBlockResponseType(action semantic.SecurityAction) string {
	switch action {
	case semantic.ActionBlockImmediately:
		return "SECURITY_POLICY_VIOLATION"
	case semantic.ActionBlockWithWarning:
		return "BUSINESS_CONTEXT_BLOCKED"
	case semantic.ActionMonitorClosely:
		return "SECURITY_QUARANTINE"
	default:
		return "SECURITY_BLOCKED"
	}
}

// executeQuery runs the remaining pipeline stages (C8.2-C8.5): model
// discovery, field mapping, query construction, and retrieval against the
// hub. Errors returned here that wrap a retryable gatewayerr.GatewayError
// satisfy graph.TransientMDHError, letting the executor retry within its
// budget before this node's error becomes final.
func (o *Orchestrator) executeQuery(ctx context.Context, state *agentstate.State) (string, error) {
	rateStatus, err := o.rate.Check(ctx, clientID(state), "/mcp", o.rateRule)
	if err != nil {
		return graph.NodeEnd, gatewayerr.Wrap(gatewayerr.Internal, "rate limiter failure", err)
	}
	if !rateStatus.Allowed {
		return graph.NodeEnd, gatewayerr.New(gatewayerr.RateLimitExceeded, "rate limit exceeded").
			WithGuidance(fmt.Sprintf("retry after %s", rateStatus.RetryAfter))
	}

	if state.IsMetaQuery {
		models, err := o.mdhClient.GetAllModels(ctx)
		if err != nil {
			return graph.NodeEnd, gatewayerr.Wrap(gatewayerr.MDHUpstreamError, "failed to list models", err).WithRetryable(true)
		}
		state.DiscoveredModels = models
		state.SetQueryResults(&mdh.QueryResult{})
		return graph.NodeGenerateResponse, nil
	}

	models, err := o.mdhClient.GetAllModels(ctx)
	if err != nil {
		return graph.NodeEnd, gatewayerr.Wrap(gatewayerr.MDHUpstreamError, "failed to load model catalog", err).WithRetryable(true)
	}

	analyzed, err := o.analyzer.Analyze(ctx, state.UserQuery, models)
	if err != nil {
		return graph.NodeEnd, gatewayerr.Wrap(gatewayerr.QueryAnalysisFailed, "could not classify the query", err)
	}

	discovered, err := o.discovery.Discover(ctx, analyzed, models)
	if err != nil {
		return graph.NodeEnd, gatewayerr.Wrap(gatewayerr.ModelNotFound, "no relevant data models found", err)
	}
	state.DiscoveredModels = discovered
	target := discovered[0]
	state.TargetModelID = target.ID

	mappings, err := o.fieldMapper.MapFields(ctx, analyzed.Entities, target)
	if err != nil {
		return graph.NodeEnd, gatewayerr.Wrap(gatewayerr.FieldMappingLowConf, "field mapping failed", err)
	}
	state.FieldMappings = mappings

	query, err := o.queryBuilder.Build(ctx, analyzed, mappings, target.ID)
	if err != nil {
		return graph.NodeEnd, gatewayerr.Wrap(gatewayerr.QueryBuildInvalid, "could not build a query", err)
	}
	state.ConstructedQuery = &query

	results, err := o.dataRetrieval.Retrieve(ctx, query)
	if err != nil {
		return graph.NodeEnd, translateMDHError(err)
	}

	if !state.SetQueryResults(&results) {
		return graph.NodeEnd, gatewayerr.New(gatewayerr.Internal, "query results rejected: clearance not approved")
	}
	return graph.NodeGenerateResponse, nil
}

// translateMDHError normalizes a retrieval failure into the gatewayerr
// taxonomy, marking upstream/timeout failures retryable and
// leaving MDH_PARSE_ERROR non-retryable (a malformed response will not
// parse correctly on a second attempt either).
func translateMDHError(err error) error {
	if ge, ok := err.(*gatewayerr.GatewayError); ok {
		return ge
	}
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		return gatewayerr.Wrap(gatewayerr.MDHParseError, "hub returned data that could not be parsed", err)
	}
	var qe *mdh.QueryError
	if errors.As(err, &qe) {
		switch {
		case qe.StatusCode == 401:
			return gatewayerr.Wrap(gatewayerr.MDHUnauthorized, "hub rejected credentials", err)
		case qe.StatusCode == 504 || qe.StatusCode == 0:
			return gatewayerr.Wrap(gatewayerr.MDHTimeout, "hub request timed out", err).WithRetryable(true)
		case qe.StatusCode >= 500:
			return gatewayerr.Wrap(gatewayerr.MDHUpstreamError, "hub returned an upstream error", err).WithRetryable(true)
		default:
			return gatewayerr.Wrap(gatewayerr.MDHUpstreamError, "hub rejected the query", err)
		}
	}
	return gatewayerr.Wrap(gatewayerr.MDHUpstreamError, "query retrieval failed", err).WithRetryable(true)
}

// generateResponse runs C8.6, then routes to whichever optional nodes
// configuration enables features.* gate.
func (o *Orchestrator) generateResponse(ctx context.Context, state *agentstate.State) (string, error) {
	analyzed := pipeline.AnalyzedQuery{
		Intent:        state.QueryIntent,
		Entities:      state.Entities,
		OriginalQuery: state.UserQuery,
		IsMetaQuery:   state.IsMetaQuery,
	}

	var results mdh.QueryResult
	if state.QueryResults != nil {
		results = *state.QueryResults
	}

	response, err := o.responseGen.Generate(ctx, analyzed, results)
	if err != nil {
		state.FormattedResponse = &pipeline.FormattedResponse{
			ResponseType: "SUCCESS",
			Message:      "I processed your request but could not format a detailed response.",
		}
	} else {
		state.FormattedResponse = &response
	}

	return o.nextAfterResponse(), nil
}

func (o *Orchestrator) nextAfterResponse() string {
	if o.features.ProactiveInsights {
		return graph.NodeGenerateInsights
	}
	if o.features.FollowUpSuggestions {
		return graph.NodeSuggestFollowUps
	}
	return graph.NodeEnd
}

// generateInsights is the first optional node, gated by
// features.proactive_insights.
func (o *Orchestrator) generateInsights(ctx context.Context, state *agentstate.State) (string, error) {
	analyzed := pipeline.AnalyzedQuery{Intent: state.QueryIntent, Entities: state.Entities}
	var results mdh.QueryResult
	if state.QueryResults != nil {
		results = *state.QueryResults
	}

	insights, err := o.insights.GenerateInsights(ctx, analyzed, results)
	if err == nil {
		state.ProactiveInsights = insights
	}

	if o.features.FollowUpSuggestions {
		return graph.NodeSuggestFollowUps, nil
	}
	return graph.NodeEnd, nil
}

// suggestFollowUps is the second optional node, gated by
// features.follow_up_suggestions.
func (o *Orchestrator) suggestFollowUps(ctx context.Context, state *agentstate.State) (string, error) {
	analyzed := pipeline.AnalyzedQuery{Intent: state.QueryIntent, Entities: state.Entities}
	var results mdh.QueryResult
	if state.QueryResults != nil {
		results = *state.QueryResults
	}

	suggestions, err := o.followUps.SuggestFollowUps(ctx, analyzed, results)
	if err == nil {
		state.FollowUpSuggestions = suggestions
	}
	return graph.NodeEnd, nil
}

// auditEmitter adapts AuditService to graph.AuditEmitter, translating
// every node transition into a workflow.state_transition event.
type auditEmitter struct {
	audit *AuditService
}

// NewGraphAuditEmitter constructs the graph.AuditEmitter the orchestrator
// registers with its executor.
func NewGraphAuditEmitter(svc *AuditService) graph.AuditEmitter {
	return &auditEmitter{audit: svc}
}

func (a *auditEmitter) EmitTransition(_ context.Context, state *agentstate.State, fromNode, toNode string, err error) {
	severity := audit.SeverityInfo
	success := err == nil
	details := map[string]any{"from_node": fromNode, "to_node": toNode}
	if err != nil {
		severity = audit.SeverityError
		details["error"] = err.Error()
	}

	principalID := ""
	if state.UserContext != nil {
		principalID = state.UserContext.Subject
	}

	a.audit.Record(audit.AuditEvent{
		EventType:   audit.EventTypeStateTransition,
		Severity:    severity,
		PrincipalID: principalID,
		RequestIP:   state.RequestID,
		Success:     success,
		Details:     details,
	})
}
