package modules

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"

	"glmcp/server/internal/middleware"
	"glmcp/server/internal/observability"
)

// =============================================================================
// Registry
// =============================================================================

// registry holds all registered modules
var registry = make(map[string]Module)

// RegisterModule adds a module to the registry
func RegisterModule(m Module) {
	registry[m.Name()] = m
}

// GetModule returns a module by name
func GetModule(name string) (Module, bool) {
	m, ok := registry[name]
	return m, ok
}

// ListModules returns all registered module names
func ListModules() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// AllTools returns the tool definitions of every registered module.
func AllTools() []Tool {
	var tools []Tool
	for _, m := range registry {
		tools = append(tools, m.Tools()...)
	}
	return tools
}

// FindToolOwner returns the module owning a tool name.
func FindToolOwner(toolName string) (string, bool) {
	for name, m := range registry {
		if _, found := findTool(m.Tools(), toolName); found {
			return name, true
		}
	}
	return "", false
}

// =============================================================================
// Tool Execution
// =============================================================================

// toolTimeout is the maximum duration for a single tool execution.
const toolTimeout = 30 * time.Second

// Run executes a single tool in a module. Params are validated against the
// tool's InputSchema before execution. A handler error becomes an IsError
// result; only context cancellation of the incoming ctx is returned as error.
func Run(ctx context.Context, moduleName, toolName string, params map[string]any) (*ToolCallResult, error) {
	start := time.Now()

	m, ok := registry[moduleName]
	if !ok {
		return &ToolCallResult{
			Content: []ContentBlock{{Type: "text", Text: fmt.Sprintf("Unknown module: %s", moduleName)}},
			IsError: true,
		}, nil
	}

	if tool, found := findTool(m.Tools(), toolName); found {
		validated, err := ValidateParams(tool.InputSchema, params)
		if err != nil {
			return &ToolCallResult{
				Content: []ContentBlock{{Type: "text", Text: err.Error()}},
				IsError: true,
			}, nil
		}
		params = validated
	}

	// Cap execution so a stalled remote cannot hang the session.
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()

	result, err := m.ExecuteTool(ctx, toolName, params)
	durationMs := time.Since(start).Milliseconds()
	requestID := middleware.GetRequestID(ctx)

	if err != nil {
		// A caller-initiated cancellation is re-raised, never folded into a
		// failure result, so the transport can tell "the caller gave up"
		// apart from "the operation failed". The local timeout below is not
		// the caller giving up and stays a failure result.
		if parent.Err() != nil && errors.Is(err, parent.Err()) {
			observability.LogToolCall(requestID, moduleName, toolName, durationMs, "cancelled", err.Error())
			return nil, err
		}

		errMsg := err.Error()
		if ctx.Err() == context.DeadlineExceeded {
			errMsg = fmt.Sprintf("Request to %s timed out after %s. The remote instance did not respond in time.", moduleName, toolTimeout)
		}
		observability.LogToolCall(requestID, moduleName, toolName, durationMs, "error", errMsg)
		return &ToolCallResult{
			Content: []ContentBlock{{Type: "text", Text: errMsg}},
			IsError: true,
		}, nil
	}

	observability.LogToolCall(requestID, moduleName, toolName, durationMs, "success", "")
	return &ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: result}},
	}, nil
}

// ApplyCompact converts a JSON result to compact text for a given module and
// tool. Returns the original JSON if the module has no CompactConverter.
func ApplyCompact(moduleName, toolName, jsonResult string) string {
	m, ok := registry[moduleName]
	if !ok {
		return jsonResult
	}
	if converter, ok := m.(CompactConverter); ok {
		return converter.ToCompact(toolName, jsonResult)
	}
	return jsonResult
}
