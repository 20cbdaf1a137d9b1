package mcp

import (
	"context"
	"testing"

	"glmcp/server/internal/jsonrpc"
	"glmcp/server/internal/middleware"
	"glmcp/server/internal/modules"
)

type fakeNotifier struct {
	methods []string
	params  []any
}

func (n *fakeNotifier) Notify(method string, params any) error {
	n.methods = append(n.methods, method)
	n.params = append(n.params, params)
	return nil
}

type echoModule struct{}

func (m *echoModule) Name() string        { return "echo" }
func (m *echoModule) Description() string { return "echo module" }
func (m *echoModule) APIVersion() string  { return "v1" }
func (m *echoModule) Tools() []modules.Tool {
	return []modules.Tool{{
		Name:        "echo_text",
		Description: "echoes its input",
		InputSchema: modules.InputSchema{
			Type:       "object",
			Properties: map[string]modules.Property{"text": {Type: "string"}},
			Required:   []string{"text"},
		},
	}}
}
func (m *echoModule) ExecuteTool(ctx context.Context, name string, params map[string]any) (string, error) {
	middleware.ReportProgress(ctx, 0, "echoing")
	text, _ := params["text"].(string)
	return text, nil
}

func newTestHandler() (*Handler, *fakeNotifier) {
	modules.RegisterModule(&echoModule{})
	n := &fakeNotifier{}
	return NewHandler(n, "glmcp-test", "0.0.1"), n
}

func TestProcessRequest_Initialize(t *testing.T) {
	h, _ := newTestHandler()
	result, rpcErr := h.ProcessRequest(context.Background(), &jsonrpc.Request{
		JSONRPC: "2.0", ID: 1, Method: "initialize",
	})
	if rpcErr != nil {
		t.Fatalf("unexpected error: %+v", rpcErr)
	}
	init, ok := result.(*InitializeResult)
	if !ok {
		t.Fatalf("unexpected result type %T", result)
	}
	if init.ProtocolVersion != ProtocolVersion {
		t.Errorf("protocol version = %q", init.ProtocolVersion)
	}
	if init.ServerInfo.Name != "glmcp-test" {
		t.Errorf("server name = %q", init.ServerInfo.Name)
	}
	if init.Capabilities.Tools == nil {
		t.Error("tools capability must be advertised")
	}
}

func TestProcessRequest_UnknownMethod(t *testing.T) {
	h, _ := newTestHandler()
	_, rpcErr := h.ProcessRequest(context.Background(), &jsonrpc.Request{
		JSONRPC: "2.0", ID: 2, Method: "resources/list",
	})
	if rpcErr == nil || rpcErr.Code != jsonrpc.MethodNotFound {
		t.Fatalf("expected MethodNotFound, got %+v", rpcErr)
	}
}

func TestProcessRequest_ToolsList(t *testing.T) {
	h, _ := newTestHandler()
	result, rpcErr := h.ProcessRequest(context.Background(), &jsonrpc.Request{
		JSONRPC: "2.0", ID: 3, Method: "tools/list",
	})
	if rpcErr != nil {
		t.Fatalf("unexpected error: %+v", rpcErr)
	}
	list, ok := result.(*ToolsListResult)
	if !ok {
		t.Fatalf("unexpected result type %T", result)
	}
	found := false
	for _, tool := range list.Tools {
		if tool.Name == "echo_text" {
			found = true
		}
	}
	if !found {
		t.Error("registered tool missing from tools/list")
	}
}

func TestProcessRequest_ToolCall(t *testing.T) {
	h, _ := newTestHandler()
	result, rpcErr := h.ProcessRequest(context.Background(), &jsonrpc.Request{
		JSONRPC: "2.0", ID: 4, Method: "tools/call",
		Params: map[string]any{
			"name":      "echo_text",
			"arguments": map[string]any{"text": "hello"},
		},
	})
	if rpcErr != nil {
		t.Fatalf("unexpected error: %+v", rpcErr)
	}
	call, ok := result.(*modules.ToolCallResult)
	if !ok {
		t.Fatalf("unexpected result type %T", result)
	}
	if call.IsError || call.Content[0].Text != "hello" {
		t.Errorf("unexpected result: %+v", call)
	}
}

func TestProcessRequest_ToolCall_UnknownTool(t *testing.T) {
	h, _ := newTestHandler()
	_, rpcErr := h.ProcessRequest(context.Background(), &jsonrpc.Request{
		JSONRPC: "2.0", ID: 5, Method: "tools/call",
		Params: map[string]any{"name": "no_such_tool"},
	})
	if rpcErr == nil || rpcErr.Code != jsonrpc.InvalidParams {
		t.Fatalf("expected InvalidParams, got %+v", rpcErr)
	}
}

func TestProcessRequest_ToolCall_MissingParamIsToolError(t *testing.T) {
	h, _ := newTestHandler()
	result, rpcErr := h.ProcessRequest(context.Background(), &jsonrpc.Request{
		JSONRPC: "2.0", ID: 6, Method: "tools/call",
		Params: map[string]any{"name": "echo_text", "arguments": map[string]any{}},
	})
	if rpcErr != nil {
		t.Fatalf("validation failures surface as IsError results, got %+v", rpcErr)
	}
	call := result.(*modules.ToolCallResult)
	if !call.IsError {
		t.Error("expected IsError result")
	}
}

func TestProcessRequest_ProgressNotification(t *testing.T) {
	h, n := newTestHandler()
	_, rpcErr := h.ProcessRequest(context.Background(), &jsonrpc.Request{
		JSONRPC: "2.0", ID: 7, Method: "tools/call",
		Params: map[string]any{
			"name":      "echo_text",
			"arguments": map[string]any{"text": "hi"},
			"_meta":     map[string]any{"progressToken": "tok-1"},
		},
	})
	if rpcErr != nil {
		t.Fatalf("unexpected error: %+v", rpcErr)
	}
	if len(n.methods) != 1 || n.methods[0] != "notifications/progress" {
		t.Fatalf("expected one progress notification, got %v", n.methods)
	}
	pp, ok := n.params[0].(*ProgressParams)
	if !ok || pp.ProgressToken != "tok-1" || pp.Message != "echoing" {
		t.Errorf("unexpected progress params: %+v", n.params[0])
	}
}

func TestProcessRequest_NotificationMethodsReturnNil(t *testing.T) {
	h, _ := newTestHandler()
	for _, method := range []string{"initialized", "notifications/initialized"} {
		result, rpcErr := h.ProcessRequest(context.Background(), &jsonrpc.Request{
			JSONRPC: "2.0", Method: method,
		})
		if result != nil || rpcErr != nil {
			t.Errorf("%s: got result=%v err=%+v", method, result, rpcErr)
		}
	}
}
