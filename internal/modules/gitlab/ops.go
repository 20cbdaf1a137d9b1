package gitlab

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-faster/errors"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"glmcp/server/internal/middleware"
	"glmcp/server/internal/modules"
	"glmcp/server/pkg/gitlabapi"
)

const (
	// maxReadBytes caps the byte size of a read_file selection (128 KiB).
	maxReadBytes = 128 * 1024

	// maxFragmentChars caps one search match fragment.
	maxFragmentChars = 2048

	truncationMarker = "...(truncated)"

	// treePageSize is the fixed page size for recursive tree collection.
	treePageSize = 100
)

// SizeExceededError reports a read_file selection over the byte cap. It
// carries the file's total line count so the caller can retry with a
// narrower line range.
type SizeExceededError struct {
	SelectedBytes int
	TotalLines    int
}

func (e *SizeExceededError) Error() string {
	return fmt.Sprintf("selected range is %d bytes, exceeding the %d byte limit; the file has %d lines, request a narrower line range", e.SelectedBytes, maxReadBytes, e.TotalLines)
}

// =============================================================================
// Parameter helpers
// =============================================================================

func stringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

// intParam reads a JSON number parameter, falling back to def when absent.
func intParam(params map[string]any, key string, def int) int {
	if f, ok := params[key].(float64); ok {
		return int(f)
	}
	return def
}

// =============================================================================
// read_file
// =============================================================================

type readFileResult struct {
	Project    string `json:"project"`
	Path       string `json:"path"`
	FromLine   int    `json:"from_line"`
	ToLine     int    `json:"to_line"`
	TotalLines int    `json:"total_lines"`
	Content    string `json:"content"`
}

func (m *GitLabModule) readFile(ctx context.Context, params map[string]any) (string, error) {
	project := gitlabapi.NormalizeProject(stringParam(params, "project_path"))
	filePath := gitlabapi.NormalizeFilePath(stringParam(params, "file_path"), project)
	ref := stringParam(params, "ref")

	middleware.ReportProgress(ctx, 0, fmt.Sprintf("Reading %s from %s", filePath, project))

	resp, err := m.client.RawFile(ctx, project, filePath, ref)
	if err != nil {
		return "", err
	}
	if !resp.OK {
		return "", errors.Wrapf(resp.Err(), "read %s", filePath)
	}

	lines := strings.Split(resp.Body, "\n")
	total := len(lines)

	from := intParam(params, "from_line", 1)
	to := intParam(params, "to_line", total)
	if from < 1 {
		from = 1
	}
	if to > total {
		to = total
	}
	if from > to {
		return "", fmt.Errorf("line range [%d, %d] selects nothing in a %d-line file", from, to, total)
	}

	selected := lines[from-1 : to]
	size := 0
	for _, l := range selected {
		size += len(l) + 1
	}
	if size > 0 {
		size-- // no trailing newline on the last selected line
	}
	if size > maxReadBytes {
		return "", &SizeExceededError{SelectedBytes: size, TotalLines: total}
	}

	numbered := make([]string, len(selected))
	for i, l := range selected {
		numbered[i] = fmt.Sprintf("%d: %s", from+i, l)
	}

	return modules.ToJSON(readFileResult{
		Project:    project,
		Path:       filePath,
		FromLine:   from,
		ToLine:     to,
		TotalLines: total,
		Content:    strings.Join(numbered, "\n"),
	})
}

// =============================================================================
// list_directory
// =============================================================================

type listDirectoryResult struct {
	Project string   `json:"project"`
	Path    string   `json:"path"`
	Entries []string `json:"entries"`
}

func (m *GitLabModule) listDirectory(ctx context.Context, params map[string]any) (string, error) {
	project := gitlabapi.NormalizeProject(stringParam(params, "project_path"))
	dirPath := gitlabapi.NormalizeFilePath(stringParam(params, "path"), project)
	ref := stringParam(params, "ref")
	limit := intParam(params, "limit", 100)
	if limit < 1 {
		limit = 100
	}

	middleware.ReportProgress(ctx, 0, fmt.Sprintf("Listing %s in %s", displayDir(dirPath), project))

	resp, err := m.client.Tree(ctx, project, dirPath, ref, false, 1, limit)
	if err != nil {
		return "", err
	}
	if !resp.OK {
		return "", errors.Wrapf(resp.Err(), "list %s", displayDir(dirPath))
	}

	var entries []gitlabapi.TreeEntry
	if err := resp.DecodeBody(&entries); err != nil {
		return "", errors.Wrap(err, "decode tree listing")
	}

	names := make([]string, 0, len(entries))
	dirCount := 0
	for _, e := range entries {
		if e.Type == "tree" {
			names = append(names, e.Name+"/")
			dirCount++
		} else {
			names = append(names, e.Name)
		}
	}

	// Directories first, then files, locale-aware within each group.
	coll := collate.New(language.Und)
	sort.SliceStable(names, func(i, j int) bool {
		di, dj := strings.HasSuffix(names[i], "/"), strings.HasSuffix(names[j], "/")
		if di != dj {
			return di
		}
		return coll.CompareString(names[i], names[j]) < 0
	})

	return modules.ToJSON(listDirectoryResult{
		Project: project,
		Path:    dirPath,
		Entries: names,
	})
}

func displayDir(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

// =============================================================================
// list_projects
// =============================================================================

type listProjectsResult struct {
	Projects []gitlabapi.Project `json:"projects"`
}

func (m *GitLabModule) listProjects(ctx context.Context, params map[string]any) (string, error) {
	search := stringParam(params, "search")
	limit := intParam(params, "limit", 20)
	if limit < 1 {
		limit = 20
	}

	middleware.ReportProgress(ctx, 0, "Listing projects")

	perPage := limit
	if perPage > 100 {
		perPage = 100
	}
	projects, err := gitlabapi.CollectAll[gitlabapi.Project](ctx, perPage, limit,
		func(ctx context.Context, page int) (*gitlabapi.Response, error) {
			return m.client.Projects(ctx, search, page, perPage)
		})
	if err != nil {
		return "", errors.Wrap(err, "list projects")
	}
	if projects == nil {
		projects = []gitlabapi.Project{}
	}

	return modules.ToJSON(listProjectsResult{Projects: projects})
}

// =============================================================================
// glob_files
// =============================================================================

type globFilesResult struct {
	Project      string   `json:"project"`
	Pattern      string   `json:"pattern"`
	TotalMatched int      `json:"total_matched"`
	Files        []string `json:"files"`
}

func (m *GitLabModule) globFiles(ctx context.Context, params map[string]any) (string, error) {
	project := gitlabapi.NormalizeProject(stringParam(params, "project_path"))
	pattern := stringParam(params, "pattern")
	ref := stringParam(params, "ref")
	offset := intParam(params, "offset", 0)
	limit := intParam(params, "limit", 100)
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 100
	}

	middleware.ReportProgress(ctx, 0, fmt.Sprintf("Globbing %s in %s", pattern, project))

	if !doublestar.ValidatePattern(pattern) {
		return "", fmt.Errorf("invalid glob pattern: %s", pattern)
	}

	entries, err := gitlabapi.CollectAll[gitlabapi.TreeEntry](ctx, treePageSize, 0,
		func(ctx context.Context, page int) (*gitlabapi.Response, error) {
			return m.client.Tree(ctx, project, "", ref, true, page, treePageSize)
		})
	if err != nil {
		return "", errors.Wrap(err, "collect repository tree")
	}

	var matched []string
	for _, e := range entries {
		if e.Type != "blob" {
			continue
		}
		if ok, _ := doublestar.Match(pattern, e.Path); ok {
			matched = append(matched, "/"+project+"/"+e.Path)
		}
	}

	// offset/limit slice over the matched set, not the full tree.
	total := len(matched)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := matched[offset:end]
	if page == nil {
		page = []string{}
	}

	return modules.ToJSON(globFilesResult{
		Project:      project,
		Pattern:      pattern,
		TotalMatched: total,
		Files:        page,
	})
}

// =============================================================================
// search_code
// =============================================================================

type searchGroup struct {
	Path   string   `json:"path"`
	Chunks []string `json:"chunks"`
}

type searchCodeResult struct {
	Project string        `json:"project"`
	Query   string        `json:"query"`
	// TotalCount is the item count of the single page fetched, after the
	// optional path filter, not a cross-page total. The search API is
	// page-oriented, so offsets not on a page boundary are approximated to
	// the containing page.
	TotalCount int           `json:"total_count"`
	Results    []searchGroup `json:"results"`
}

func (m *GitLabModule) searchCode(ctx context.Context, params map[string]any) (string, error) {
	project := gitlabapi.NormalizeProject(stringParam(params, "project_path"))
	query := stringParam(params, "query")
	pathFilter := stringParam(params, "path_filter")
	limit := intParam(params, "limit", 20)
	offset := intParam(params, "offset", 0)
	if limit < 1 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	middleware.ReportProgress(ctx, 0, fmt.Sprintf("Searching %q in %s", query, project))

	pageSize := limit
	if pageSize > 100 {
		pageSize = 100
	}
	if pageSize < 1 {
		pageSize = 1
	}
	page := offset/pageSize + 1

	resp, err := m.client.SearchBlobs(ctx, project, query, page, pageSize)
	if err != nil {
		return "", err
	}
	if !resp.OK {
		return "", errors.Wrapf(resp.Err(), "search %q", query)
	}

	var blobs []gitlabapi.SearchBlob
	if err := resp.DecodeBody(&blobs); err != nil {
		return "", errors.Wrap(err, "decode search results")
	}

	// Group by file path in first-appearance order.
	groupIdx := make(map[string]int)
	groups := []searchGroup{}
	count := 0
	for _, b := range blobs {
		path := b.MatchPath()
		if pathFilter != "" && !strings.Contains(path, pathFilter) {
			continue
		}
		count++

		chunk := strings.TrimSpace(b.Data)
		if len(chunk) > maxFragmentChars {
			// Back up to a rune boundary so the cut never leaves invalid UTF-8.
			cut := maxFragmentChars
			for cut > 0 && !utf8.RuneStart(chunk[cut]) {
				cut--
			}
			chunk = chunk[:cut] + truncationMarker
		}

		i, seen := groupIdx[path]
		if !seen {
			groupIdx[path] = len(groups)
			groups = append(groups, searchGroup{Path: path})
			i = len(groups) - 1
		}
		groups[i].Chunks = append(groups[i].Chunks, chunk)
	}

	return modules.ToJSON(searchCodeResult{
		Project:    project,
		Query:      query,
		TotalCount: count,
		Results:    groups,
	})
}
