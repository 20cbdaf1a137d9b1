package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"glmcp/server/internal/jsonrpc"
	"glmcp/server/internal/middleware"
	"glmcp/server/internal/modules"
)

// Notifier sends server-initiated notifications back to the client.
// The stdio transport implements it.
type Notifier interface {
	Notify(method string, params any) error
}

// Handler routes MCP requests to the module registry.
type Handler struct {
	notifier Notifier
	info     ServerInfo
}

func NewHandler(notifier Notifier, name, version string) *Handler {
	return &Handler{
		notifier: notifier,
		info:     ServerInfo{Name: name, Version: version},
	}
}

// ProcessRequest routes a JSON-RPC request to the appropriate handler.
// Called by the transport.
func (h *Handler) ProcessRequest(ctx context.Context, req *jsonrpc.Request) (interface{}, *jsonrpc.Error) {
	switch req.Method {
	case "initialize":
		return h.handleInitialize(req), nil
	case "initialized", "notifications/initialized":
		return nil, nil
	case "ping":
		return struct{}{}, nil
	case "tools/list":
		return h.handleToolsList(ctx)
	case "tools/call":
		return h.handleToolCall(ctx, req)
	default:
		return nil, &jsonrpc.Error{Code: jsonrpc.MethodNotFound, Message: "Method not found"}
	}
}

func (h *Handler) handleInitialize(req *jsonrpc.Request) *InitializeResult {
	return &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{},
		},
		ServerInfo: h.info,
	}
}

func (h *Handler) handleToolsList(ctx context.Context) (*ToolsListResult, *jsonrpc.Error) {
	tools := modules.AllTools()
	if tools == nil {
		tools = []modules.Tool{}
	}
	return &ToolsListResult{Tools: tools}, nil
}

func (h *Handler) handleToolCall(ctx context.Context, req *jsonrpc.Request) (*modules.ToolCallResult, *jsonrpc.Error) {
	paramsBytes, err := json.Marshal(req.Params)
	if err != nil {
		return nil, &jsonrpc.Error{Code: jsonrpc.InvalidParams, Message: "Invalid params"}
	}

	var params ToolCallParams
	if err := json.Unmarshal(paramsBytes, &params); err != nil {
		return nil, &jsonrpc.Error{Code: jsonrpc.InvalidParams, Message: "Invalid params structure"}
	}

	if params.Name == "" {
		return nil, &jsonrpc.Error{Code: jsonrpc.InvalidParams, Message: "name is required"}
	}

	moduleName, found := modules.FindToolOwner(params.Name)
	if !found {
		return nil, &jsonrpc.Error{Code: jsonrpc.InvalidParams, Message: fmt.Sprintf("Unknown tool: %s", params.Name)}
	}

	// Wire progress notifications when the client sent a progressToken.
	if params.Meta != nil && params.Meta.ProgressToken != nil {
		token := params.Meta.ProgressToken
		ctx = middleware.WithProgress(ctx, func(progress float64, message string) {
			if h.notifier == nil {
				return
			}
			_ = h.notifier.Notify("notifications/progress", &ProgressParams{
				ProgressToken: token,
				Progress:      progress,
				Message:       message,
			})
		})
	}

	args := params.Arguments
	if args == nil {
		args = make(map[string]any)
	}

	result, err := modules.Run(ctx, moduleName, params.Name, args)
	if err != nil {
		return nil, &jsonrpc.Error{Code: jsonrpc.InternalError, Message: err.Error()}
	}

	// Apply compact format unless format=json is explicitly requested
	if !result.IsError && len(result.Content) > 0 {
		if f, _ := args["format"].(string); f != "json" {
			result.Content[0].Text = modules.ApplyCompact(moduleName, params.Name, result.Content[0].Text)
		}
	}

	return result, nil
}
