package mcp

import (
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

func TestEncodeDecodeRequest(t *testing.T) {
	id, err := jsonrpc.MakeID(float64(1))
	if err != nil {
		t.Fatalf("MakeID failed: %v", err)
	}

	params := json.RawMessage(`{"name":"file_read","arguments":{"path":"/tmp/test.txt"}}`)
	req := &jsonrpc.Request{
		ID:     id,
		Method: "tools/call",
		Params: params,
	}

	encoded, err := EncodeMessage(req)
	if err != nil {
		t.Fatalf("EncodeMessage failed: %v", err)
	}

	decoded, err := DecodeMessage(encoded)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}

	decodedReq, ok := decoded.(*jsonrpc.Request)
	if !ok {
		t.Fatalf("expected *jsonrpc.Request, got %T", decoded)
	}

	if decodedReq.Method != "tools/call" {
		t.Errorf("expected method 'tools/call', got %q", decodedReq.Method)
	}
}

func TestEncodeDecodeResponse(t *testing.T) {
	id, err := jsonrpc.MakeID(float64(1))
	if err != nil {
		t.Fatalf("MakeID failed: %v", err)
	}

	result := json.RawMessage(`{"content":"hello world"}`)
	resp := &jsonrpc.Response{
		ID:     id,
		Result: result,
	}

	encoded, err := EncodeMessage(resp)
	if err != nil {
		t.Fatalf("EncodeMessage failed: %v", err)
	}

	decoded, err := DecodeMessage(encoded)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}

	decodedResp, ok := decoded.(*jsonrpc.Response)
	if !ok {
		t.Fatalf("expected *jsonrpc.Response, got %T", decoded)
	}

	if decodedResp.Result == nil {
		t.Error("expected result to be set")
	}
}

func TestDecodeToolsCallRequest(t *testing.T) {
	raw := []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"file_read"}}`)

	decoded, err := DecodeMessage(raw)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}

	req, ok := decoded.(*jsonrpc.Request)
	if !ok {
		t.Fatalf("expected *jsonrpc.Request, got %T", decoded)
	}

	if req.Method != "tools/call" {
		t.Errorf("expected method 'tools/call', got %q", req.Method)
	}
}

func TestDecodeMalformedJSON(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "not valid json",
			data: []byte(`{not valid`),
		},
		{
			name: "empty object",
			data: []byte(`{}`),
		},
		{
			name: "missing jsonrpc version",
			data: []byte(`{"id":1,"method":"test"}`),
		},
		{
			name: "wrong jsonrpc version",
			data: []byte(`{"jsonrpc":"1.0","id":1,"method":"test"}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeMessage(tt.data)
			if err == nil {
				t.Errorf("expected error for malformed JSON %q, got nil", tt.name)
			}
		})
	}
}

func TestDecodeNotification(t *testing.T) {
	raw := []byte(`{"jsonrpc":"2.0","method":"notifications/cancelled","params":{"requestId":1}}`)

	decoded, err := DecodeMessage(raw)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}

	if _, ok := decoded.(*jsonrpc.Request); !ok {
		t.Fatalf("expected *jsonrpc.Request for notification, got %T", decoded)
	}
}
