package mcp

import "glmcp/server/internal/modules"

// ProtocolVersion is the MCP protocol revision this server speaks.
const ProtocolVersion = "2025-03-26"

// =============================================================================
// Initialize
// =============================================================================

// InitializeResult is the response to the initialize request.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
}

// ServerCapabilities advertises what the server supports.
type ServerCapabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// ToolsCapability marks tool support.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ServerInfo identifies the server implementation.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// =============================================================================
// Tools
// =============================================================================

// ToolsListResult is the response to tools/list.
type ToolsListResult struct {
	Tools []modules.Tool `json:"tools"`
}

// ToolCallParams are the params of a tools/call request.
type ToolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Meta      *RequestMeta   `json:"_meta,omitempty"`
}

// RequestMeta carries MCP request metadata.
type RequestMeta struct {
	ProgressToken any `json:"progressToken,omitempty"`
}

// ProgressParams are the params of a notifications/progress notification.
type ProgressParams struct {
	ProgressToken any     `json:"progressToken"`
	Progress      float64 `json:"progress"`
	Message       string  `json:"message,omitempty"`
}
