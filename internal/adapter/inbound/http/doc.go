// Package http provides HTTP/Streamable HTTP transport for the gateway.
//
// This package implements inbound HTTP transport following the MCP
// Streamable HTTP specification (2025-06-18). It exposes the gateway's
// natural-language query tool alongside a set of structured, direct-access
// catalog tools and resources over HTTP/HTTPS, plus the OAuth 2.1
// resource-server endpoints a protected MCP server must carry (RFC 9728
// metadata, RFC 7662 introspection, RFC 7009 revocation).
//
// # Usage
//
// Create and start the transport by wiring a built Orchestrator into an
// MCPDispatcher and registering it with mcpHandler:
//
//	dispatcher := http.NewMCPDispatcher(orchestrator, auditEmitter)
//	mux.Handle("/mcp", mcpHandler(dispatcher, registry))
//
// # Endpoints
//
//	POST /mcp   - Send JSON-RPC request, receive JSON-RPC response
//	GET /mcp    - Open SSE stream for server-initiated messages
//	DELETE /mcp - Terminate session and close SSE connections
//	OPTIONS /mcp - CORS preflight handling
//	GET /health - Liveness/readiness check
//	GET /metrics - Prometheus exposition
//	POST /oauth/introspect - RFC 7662 token introspection
//	POST /oauth/revoke     - RFC 7009 token revocation
//	GET /.well-known/oauth-protected-resource - RFC 9728 metadata
//
// # Request Headers
//
//	Authorization: Bearer <token>        - Bearer token for ValidateBearer
//	Mcp-Session-Id: <session-id>        - Session identifier for stateful requests
//	Content-Type: application/json      - Required for POST requests
//
// # Response Headers
//
//	MCP-Protocol-Version: 2025-06-18    - MCP protocol version
//	Mcp-Session-Id: <session-id>        - Session identifier echoed back
//	Content-Type: application/json      - JSON-RPC response format
//
// # Security Features
//
//   - TLS 1.2 minimum when HTTPS is enabled
//   - DNS rebinding protection via Origin header validation
//   - Bearer token extraction and OAuth 2.1 resource-server validation
//   - Real IP extraction from X-Forwarded-For/X-Real-IP for rate limiting
//
// # Middleware Chain
//
// Requests pass through middleware in this order:
//
//  1. RealIPMiddleware - Extracts client IP from proxy headers
//  2. DNSRebindingProtection - Validates Origin header
//  3. RequestIDMiddleware - Generates/propagates the request ID, enriches the logger
//  4. BearerTokenMiddleware - Extracts the bearer token for downstream validation
//  5. MetricsMiddleware - Records request duration/count
//  6. Handler - Routes to POST/GET/DELETE/OPTIONS handlers
//
// The POST handler runs every JSON-RPC method through MCPDispatcher.
// "tools/call" with the natural-language tool builds an agentstate.State
// and walks it through the orchestration graph end to end (security
// gateway, agent pipeline, MDH adapter, audit); every other tool call and
// every "resources/read" go straight to the hub adapter after an
// authentication and rate-limit check, since their parameters already
// identify the model and fields to fetch.
//
// # Server-Sent Events (SSE)
//
// GET requests open an SSE stream for server-initiated messages. The stream:
//   - Requires Mcp-Session-Id header
//   - Sends "data: <json>\n\n" formatted events
//   - Supports multiple connections per session
//   - Cleanly disconnects on context cancellation or session termination
package http
