// Package mcp wraps the modelcontextprotocol/go-sdk jsonrpc codec used by
// the /mcp entrypoint (C10) to encode and decode the JSON-RPC envelope.
package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

// EncodeMessage serializes a JSON-RPC message to its wire format.
// This delegates to the MCP SDK's jsonrpc package.
func EncodeMessage(msg jsonrpc.Message) ([]byte, error) {
	return jsonrpc.EncodeMessage(msg)
}

// DecodeMessage deserializes JSON-RPC wire format data into a Message.
// It returns either a *jsonrpc.Request or *jsonrpc.Response based on the message content.
// This delegates to the MCP SDK's jsonrpc package.
func DecodeMessage(data []byte) (jsonrpc.Message, error) {
	return jsonrpc.DecodeMessage(data)
}
