package modules

import "context"

// =============================================================================
// Module Interface
// =============================================================================

// Module is one remote platform exposed as a set of MCP tools.
type Module interface {
	Name() string
	Description() string
	APIVersion() string

	Tools() []Tool
	ExecuteTool(ctx context.Context, name string, params map[string]any) (string, error)
}

// CompactConverter is implemented by modules whose JSON tool output can be
// reshaped into a token-efficient text form (plain text, CSV, Markdown).
type CompactConverter interface {
	ToCompact(toolName string, jsonResult string) string
}

// =============================================================================
// Tool Definition
// =============================================================================

// ToolAnnotations describes the tool's behavior hints per MCP spec.
type ToolAnnotations struct {
	ReadOnlyHint    *bool `json:"readOnlyHint,omitempty"`
	DestructiveHint *bool `json:"destructiveHint,omitempty"`
	IdempotentHint  *bool `json:"idempotentHint,omitempty"`
	OpenWorldHint   *bool `json:"openWorldHint,omitempty"`
}

func boolPtr(v bool) *bool { return &v }

// AnnotateReadOnly marks list, get, search and glob tools. Every tool this
// server ships is a read against the remote platform.
var AnnotateReadOnly = &ToolAnnotations{
	ReadOnlyHint:  boolPtr(true),
	OpenWorldHint: boolPtr(false),
}

// Tool represents an MCP tool definition
type Tool struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	InputSchema InputSchema      `json:"inputSchema"`
	Annotations *ToolAnnotations `json:"annotations,omitempty"`
}

// InputSchema defines the input parameters for a tool
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property defines a single property in the input schema
type Property struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Items       *Property `json:"items,omitempty"`
}

// =============================================================================
// Result Types
// =============================================================================

// ToolCallResult represents the result of a tool call
type ToolCallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// ContentBlock represents a content block in the result
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
