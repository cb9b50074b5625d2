// Package http provides the HTTP transport adapter (C10) for the gateway:
// the /mcp JSON-RPC entrypoint, OAuth introspection/revocation, health, and
// resource-server metadata.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/agentstate"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/credential"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/graph"
	"github.com/boomi-gateway/datahub-gateway/internal/gatewayerr"
	"github.com/boomi-gateway/datahub-gateway/internal/service"
)

// MCPProtocolVersion is the MCP protocol version this handler supports.
const MCPProtocolVersion = "2025-06-18"

// maxRequestBodySize is the maximum allowed request body size (1 MB).
const maxRequestBodySize = 1 << 20

// MCPSessionIDHeader is the header for session identification.
const MCPSessionIDHeader = "Mcp-Session-Id"

// MCPProtocolVersionHeader is the header for protocol version.
const MCPProtocolVersionHeader = "MCP-Protocol-Version"

// queryToolName is the natural-language MCP tool this gateway exposes,
// run through the orchestration graph end to end.
const queryToolName = "query_data"

// MCPDispatcher runs one JSON-RPC request and renders the result back into
// a JSON-RPC envelope. It replaces a plain reverse proxy's
// request-forwarding loop: a "tools/call" of the query_data tool builds a
// fresh agentstate.State and walks it through graph.Executor, while the
// structured catalog tools and resources are authorized and rate-limited
// directly and served from the MDH client without entering the graph.
type MCPDispatcher struct {
	orchestrator *service.Orchestrator
	auditEmitter graph.AuditEmitter
}

// NewMCPDispatcher constructs a dispatcher bound to a built orchestrator.
func NewMCPDispatcher(orchestrator *service.Orchestrator, auditEmitter graph.AuditEmitter) *MCPDispatcher {
	return &MCPDispatcher{orchestrator: orchestrator, auditEmitter: auditEmitter}
}

// toolCallParams is the "params" object of a tools/call JSON-RPC request.
type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// resourceReadParams is the "params" object of a resources/read request.
type resourceReadParams struct {
	URI string `json:"uri"`
}

// queryArguments is the argument shape the query_data tool accepts.
type queryArguments struct {
	Query string `json:"query"`
}

// Dispatch runs one JSON-RPC method and returns the JSON-RPC "result"
// value, or a GatewayError the caller renders as a JSON-RPC error. The
// natural-language tool runs through the orchestration graph end to end;
// the structured catalog tools and resources go straight to the hub
// adapter, authenticated and rate-limited the same way the graph's own
// first two nodes would but without the query-analysis machinery a
// caller-supplied model ID and filter set make unnecessary.
func (d *MCPDispatcher) Dispatch(ctx context.Context, requestID, method string, rawParams json.RawMessage, bearerToken string) (any, error) {
	switch method {
	case "initialize":
		return map[string]any{
			"protocolVersion": MCPProtocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}, "resources": map[string]any{}},
			"serverInfo":      map[string]any{"name": "datahub-gateway", "version": "1.0"},
		}, nil

	case "tools/list":
		return listTools(), nil

	case "resources/list":
		return listResources(), nil

	case "resources/read":
		var params resourceReadParams
		if err := json.Unmarshal(rawParams, &params); err != nil {
			return nil, gatewayerr.Wrap(gatewayerr.Internal, "invalid resources/read params", err)
		}
		if _, err := d.authorizeDirectAccess(ctx, bearerToken); err != nil {
			return nil, err
		}
		return readResource(ctx, d.orchestrator.MDHClient(), params.URI)

	case "tools/call":
		var params toolCallParams
		if err := json.Unmarshal(rawParams, &params); err != nil {
			return nil, gatewayerr.Wrap(gatewayerr.Internal, "invalid tools/call params", err)
		}
		return d.callTool(ctx, requestID, params, bearerToken)

	default:
		return nil, gatewayerr.New(gatewayerr.Internal, fmt.Sprintf("unsupported method %q", method))
	}
}

// callTool routes one tools/call invocation to the natural-language graph
// or to one of the structured, direct-access catalog tools.
func (d *MCPDispatcher) callTool(ctx context.Context, requestID string, params toolCallParams, bearerToken string) (any, error) {
	if params.Name == queryToolName {
		var args queryArguments
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			return nil, gatewayerr.Wrap(gatewayerr.Internal, "invalid tool arguments", err)
		}
		return d.runQuery(ctx, requestID, args.Query, bearerToken)
	}

	if _, err := d.authorizeDirectAccess(ctx, bearerToken); err != nil {
		return nil, err
	}
	client := d.orchestrator.MDHClient()

	switch params.Name {
	case toolSearchModelsByName:
		var args struct {
			NamePattern string `json:"name_pattern"`
		}
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			return nil, gatewayerr.Wrap(gatewayerr.Internal, "invalid tool arguments", err)
		}
		return searchModelsByName(ctx, client, args.NamePattern)

	case toolGetModelStatistics:
		return getModelStatistics(ctx, client)

	case toolGetModelFields:
		var args struct {
			ModelID string `json:"model_id"`
		}
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			return nil, gatewayerr.Wrap(gatewayerr.Internal, "invalid tool arguments", err)
		}
		return getModelFields(ctx, client, args.ModelID)

	case toolQueryRecords:
		return queryRecords(ctx, client, params.Arguments)

	default:
		return nil, gatewayerr.New(gatewayerr.Internal, fmt.Sprintf("unknown tool %q", params.Name))
	}
}

// authorizeDirectAccess validates the bearer token and checks the rate
// limit for a structured tool or resource call -- the same two checks the
// orchestration graph's first nodes run, applied directly since these
// paths never build an agentstate.State.
func (d *MCPDispatcher) authorizeDirectAccess(ctx context.Context, bearerToken string) (*credential.Principal, error) {
	clientID := ClientIDFromContext(ctx)

	principal, err := d.orchestrator.OAuth().ValidateBearer(ctx, bearerToken, clientID, clientID)
	if err != nil {
		return nil, err
	}

	status, err := d.orchestrator.RateLimit().Check(ctx, clientID, "/mcp", d.orchestrator.RateRule())
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.Internal, "rate limit check failed", err)
	}
	if !status.Allowed {
		return nil, gatewayerr.New(gatewayerr.RateLimitExceeded, "rate limit exceeded").WithRetryable(true)
	}

	return principal, nil
}

// runQuery builds a fresh agentstate.State for one query and walks it
// through the orchestration graph.
func (d *MCPDispatcher) runQuery(ctx context.Context, requestID, query, bearerToken string) (any, error) {
	state := agentstate.New(requestID, query, bearerToken)
	executor := d.orchestrator.Build(d.auditEmitter)

	if err := executor.Run(ctx, state); err != nil {
		return nil, err
	}

	result := map[string]any{
		"response_type": "",
		"message":       "",
	}
	if state.FormattedResponse != nil {
		result["response_type"] = state.FormattedResponse.ResponseType
		result["message"] = state.FormattedResponse.Message
		if len(state.FormattedResponse.Table) > 0 {
			result["table"] = state.FormattedResponse.Table
		}
		if len(state.FormattedResponse.Summary) > 0 {
			result["summary"] = state.FormattedResponse.Summary
		}
	}
	if len(state.ProactiveInsights) > 0 {
		result["insights"] = state.ProactiveInsights
	}
	if len(state.FollowUpSuggestions) > 0 {
		result["follow_ups"] = state.FollowUpSuggestions
	}
	return result, nil
}

// sessionRegistry manages active SSE sessions for server-initiated messages.
type sessionRegistry struct {
	// sessions maps session ID to a slice of channels for SSE connections.
	// Multiple SSE connections can share the same session.
	mu       sync.RWMutex
	sessions map[string][]chan []byte
}

// newSessionRegistry creates a new session registry.
func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{
		sessions: make(map[string][]chan []byte),
	}
}

// register adds an SSE channel to a session.
func (r *sessionRegistry) register(sessionID string, ch chan []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = append(r.sessions[sessionID], ch)
}

// unregister removes an SSE channel from a session.
func (r *sessionRegistry) unregister(sessionID string, ch chan []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	channels := r.sessions[sessionID]
	for i, c := range channels {
		if c == ch {
			r.sessions[sessionID] = append(channels[:i], channels[i+1:]...)
			break
		}
	}
	if len(r.sessions[sessionID]) == 0 {
		delete(r.sessions, sessionID)
	}
}

// terminate closes all SSE channels for a session.
func (r *sessionRegistry) terminate(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	channels, exists := r.sessions[sessionID]
	if !exists {
		return false
	}
	for _, ch := range channels {
		close(ch)
	}
	delete(r.sessions, sessionID)
	return true
}

// closeAll closes all SSE channels for all sessions.
func (r *sessionRegistry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, channels := range r.sessions {
		for _, ch := range channels {
			close(ch)
		}
	}
	r.sessions = make(map[string][]chan []byte)
}

// mcpHandler creates the main HTTP handler for MCP Streamable HTTP transport.
// It routes requests by HTTP method to the appropriate handler.
func mcpHandler(dispatcher *MCPDispatcher, registry *sessionRegistry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			handlePost(w, r, dispatcher)
		case http.MethodGet:
			handleGet(w, r, registry)
		case http.MethodDelete:
			handleDelete(w, r, registry)
		case http.MethodOptions:
			handleOptions(w, r)
		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	})
}

// handlePost processes JSON-RPC messages from the client: it validates the
// envelope, dispatches the method through the orchestration graph, and
// writes back a JSON-RPC response.
func handlePost(w http.ResponseWriter, r *http.Request, dispatcher *MCPDispatcher) {
	// Validate content type (before reading body to fail fast)
	contentType := r.Header.Get("Content-Type")
	if contentType != "" && contentType != "application/json" {
		writeJSONRPCError(w, nil, -32700, "Parse error: content type must be application/json")
		return
	}

	// Apply payload size limit before reading body
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer func() { _ = r.Body.Close() }()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSONRPCError(w, nil, -32700, "Parse error: request body too large (max 1MB)")
			return
		}
		writeJSONRPCError(w, nil, -32700, "Parse error: failed to read request body")
		return
	}

	if len(body) == 0 {
		writeJSONRPCError(w, nil, -32700, "Parse error: empty request body")
		return
	}

	if !json.Valid(body) {
		writeJSONRPCError(w, nil, -32700, "Parse error: invalid JSON")
		return
	}

	var rpcRequest struct {
		JSONRPC string          `json:"jsonrpc"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(body, &rpcRequest); err != nil {
		// JSON is valid (passed json.Valid above) but not an object -
		// e.g., array, string, number, boolean
		writeJSONRPCError(w, nil, -32600, "Invalid Request: request must be a JSON object")
		return
	}
	if rpcRequest.JSONRPC != "2.0" {
		writeJSONRPCError(w, nil, -32600, "Invalid Request: missing or invalid jsonrpc version (must be \"2.0\")")
		return
	}
	if rpcRequest.Method == "" {
		writeJSONRPCError(w, nil, -32600, "Invalid Request: missing method field")
		return
	}

	// Determine if this is a notification (no "id" field) per JSON-RPC 2.0.
	var idCheck struct {
		ID json.RawMessage `json:"id"`
	}
	_ = json.Unmarshal(body, &idCheck)
	isNotification := idCheck.ID == nil

	requestID := requestIDFromContext(r.Context())
	bearerToken := BearerTokenFromContext(r.Context())

	result, dispatchErr := dispatcher.Dispatch(r.Context(), requestID, rpcRequest.Method, rpcRequest.Params, bearerToken)
	if dispatchErr != nil {
		if r.Context().Err() != nil {
			return // Client disconnected, don't write response
		}
		writeGatewayError(w, rawID(idCheck.ID), dispatchErr)
		return
	}

	w.Header().Set(MCPProtocolVersionHeader, MCPProtocolVersion)
	if sessionID := r.Header.Get(MCPSessionIDHeader); sessionID != "" {
		w.Header().Set(MCPSessionIDHeader, sessionID)
	}

	if isNotification {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  any             `json:"result"`
	}{JSONRPC: "2.0", ID: idCheck.ID, Result: result})
}

// requestIDFromContext returns the request ID RequestIDMiddleware stashed,
// falling back to an empty string (the orchestrator still works; audit
// events and client keying simply lose their correlation ID).
func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// rawID returns id as an any suitable for jsonRPCError's ID field, or nil
// if id was never set (a parse failure before the id could be read).
func rawID(id json.RawMessage) any {
	if len(id) == 0 {
		return nil
	}
	var v any
	_ = json.Unmarshal(id, &v)
	return v
}

// writeGatewayError renders a dispatch failure as a JSON-RPC error,
// mapping gatewayerr.Kind onto the closest JSON-RPC error code. Internal
// details never leak into Message; GatewayError.Message is already the
// caller-safe text.
func writeGatewayError(w http.ResponseWriter, id any, err error) {
	var ge *gatewayerr.GatewayError
	if !errors.As(err, &ge) {
		writeJSONRPCError(w, id, -32603, "Internal error")
		return
	}

	code := -32603
	switch ge.Kind {
	case gatewayerr.AuthMissing, gatewayerr.AuthInvalid, gatewayerr.AuthRevoked, gatewayerr.AuthInsufficientScope:
		code = -32600
	case gatewayerr.RateLimitExceeded:
		code = -32000
	case gatewayerr.QueryAnalysisFailed, gatewayerr.FieldMappingLowConf, gatewayerr.QueryBuildInvalid:
		code = -32602
	}

	message := ge.Message
	if ge.Guidance != "" {
		message = fmt.Sprintf("%s (%s)", ge.Message, ge.Guidance)
	}
	writeJSONRPCError(w, id, code, message)
}

// handleGet opens an SSE stream for server-initiated messages.
func handleGet(w http.ResponseWriter, r *http.Request, registry *sessionRegistry) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	sessionID := r.Header.Get(MCPSessionIDHeader)
	if sessionID == "" {
		http.Error(w, "Mcp-Session-Id header required for SSE", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set(MCPProtocolVersionHeader, MCPProtocolVersion)
	w.Header().Set(MCPSessionIDHeader, sessionID)

	msgChan := make(chan []byte, 100)
	registry.register(sessionID, msgChan)
	defer registry.unregister(sessionID, msgChan)

	ctx := r.Context()

	_, _ = fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			_, _ = fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// handleDelete terminates a session and closes all associated SSE connections.
func handleDelete(w http.ResponseWriter, r *http.Request, registry *sessionRegistry) {
	sessionID := r.Header.Get(MCPSessionIDHeader)
	if sessionID == "" {
		http.Error(w, "Mcp-Session-Id header required", http.StatusBadRequest)
		return
	}

	if !registry.terminate(sessionID) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleOptions handles CORS preflight requests.
func handleOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id, MCP-Protocol-Version")
	w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours
	w.WriteHeader(http.StatusNoContent)
}

// jsonRPCError represents a JSON-RPC 2.0 error response.
type jsonRPCError struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      interface{}       `json:"id"`
	Error   jsonRPCErrorField `json:"error"`
}

type jsonRPCErrorField struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// writeJSONRPCError writes a JSON-RPC error response.
func writeJSONRPCError(w http.ResponseWriter, id interface{}, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK) // JSON-RPC errors still return 200 OK

	errResp := jsonRPCError{
		JSONRPC: "2.0",
		ID:      id,
		Error: jsonRPCErrorField{
			Code:    code,
			Message: message,
		},
	}

	_ = json.NewEncoder(w).Encode(errResp)
}

// healthHandler returns an HTTP handler that responds with 200 OK for health checks.
func healthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
}
