// Package gitlab exposes a GitLab instance's repositories as MCP tools:
// read_file, list_directory, list_projects, glob_files, search_code.
package gitlab

import (
	"context"
	"fmt"

	"glmcp/server/internal/modules"
	"glmcp/server/pkg/gitlabapi"
)

const gitlabAPIVersion = "v4"

type handlerFunc func(ctx context.Context, params map[string]any) (string, error)

// GitLabModule implements the Module interface for the GitLab API
type GitLabModule struct {
	client   *gitlabapi.Client
	handlers map[string]handlerFunc
}

// New creates a new GitLabModule instance
func New(cfg gitlabapi.Config) *GitLabModule {
	m := &GitLabModule{client: gitlabapi.NewClient(cfg)}
	m.handlers = map[string]handlerFunc{
		"read_file":      m.readFile,
		"list_directory": m.listDirectory,
		"list_projects":  m.listProjects,
		"glob_files":     m.globFiles,
		"search_code":    m.searchCode,
	}
	return m
}

// Name returns the module name
func (m *GitLabModule) Name() string {
	return "gitlab"
}

// Description returns the module description
func (m *GitLabModule) Description() string {
	return "GitLab API - browse projects, read files, glob paths, and search code without a local checkout"
}

// APIVersion returns the GitLab REST API version
func (m *GitLabModule) APIVersion() string {
	return gitlabAPIVersion
}

// Tools returns all available tools
func (m *GitLabModule) Tools() []modules.Tool {
	return toolDefinitions
}

// ExecuteTool executes a tool by name and returns JSON response
func (m *GitLabModule) ExecuteTool(ctx context.Context, name string, params map[string]any) (string, error) {
	handler, ok := m.handlers[name]
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	return handler(ctx, params)
}

// ToCompact converts JSON result to compact format.
// Implements modules.CompactConverter interface
func (m *GitLabModule) ToCompact(toolName string, jsonResult string) string {
	return formatCompact(toolName, jsonResult)
}

// =============================================================================
// Tool Definitions
// =============================================================================

var toolDefinitions = []modules.Tool{
	{
		Name:        "read_file",
		Description: "Read a file from a GitLab repository, with line numbers. Supports an optional 1-based inclusive line range. Fails with the file's total line count if the selected slice exceeds 128 KiB, so you can retry with a narrower range.",
		Annotations: modules.AnnotateReadOnly,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"project_path": {Type: "string", Description: "Project path (namespace/name) or full project URL"},
				"file_path":    {Type: "string", Description: "Path of the file inside the repository"},
				"ref":          {Type: "string", Description: "Branch, tag, or commit. Default: the project's default branch"},
				"from_line":    {Type: "integer", Description: "First line to read (1-based, inclusive). Default: 1"},
				"to_line":      {Type: "integer", Description: "Last line to read (1-based, inclusive). Default: last line"},
			},
			Required: []string{"project_path", "file_path"},
		},
	},
	{
		Name:        "list_directory",
		Description: "List one directory level of a GitLab repository. Directories are suffixed with '/' and sorted before files.",
		Annotations: modules.AnnotateReadOnly,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"project_path": {Type: "string", Description: "Project path (namespace/name) or full project URL"},
				"path":         {Type: "string", Description: "Directory to list. Default: repository root"},
				"ref":          {Type: "string", Description: "Branch, tag, or commit. Default: the project's default branch"},
				"limit":        {Type: "integer", Description: "Maximum number of entries. Default: 100"},
			},
			Required: []string{"project_path"},
		},
	},
	{
		Name:        "list_projects",
		Description: "List GitLab projects you are a member of, most recently active first. Supports a name search filter.",
		Annotations: modules.AnnotateReadOnly,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"search": {Type: "string", Description: "Filter projects by name"},
				"limit":  {Type: "integer", Description: "Maximum number of projects. Default: 20"},
			},
		},
	},
	{
		Name:        "glob_files",
		Description: "Find files in a GitLab repository matching a glob pattern. '*' matches within a path segment, '**' matches across segments (e.g. '**/*.go').",
		Annotations: modules.AnnotateReadOnly,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"project_path": {Type: "string", Description: "Project path (namespace/name) or full project URL"},
				"pattern":      {Type: "string", Description: "Glob pattern matched against each file's full path"},
				"ref":          {Type: "string", Description: "Branch, tag, or commit. Default: the project's default branch"},
				"offset":       {Type: "integer", Description: "Number of matches to skip. Default: 0"},
				"limit":        {Type: "integer", Description: "Maximum number of matches to return. Default: 100"},
			},
			Required: []string{"project_path", "pattern"},
		},
	},
	{
		Name:        "search_code",
		Description: "Search code in a GitLab project. Matches are grouped by file; each fragment is trimmed and capped at 2048 characters.",
		Annotations: modules.AnnotateReadOnly,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"project_path": {Type: "string", Description: "Project path (namespace/name) or full project URL"},
				"query":        {Type: "string", Description: "Search query"},
				"path_filter":  {Type: "string", Description: "Only include matches whose file path contains this substring"},
				"limit":        {Type: "integer", Description: "Maximum number of matches. Default: 20, max: 100"},
				"offset":       {Type: "integer", Description: "Number of matches to skip (approximated to the nearest page). Default: 0"},
			},
			Required: []string{"project_path", "query"},
		},
	},
}
