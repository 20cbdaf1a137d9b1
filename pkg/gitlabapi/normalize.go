package gitlabapi

import (
	"regexp"
	"strings"
)

// Input normalization shared by every tool operation. Both functions are
// pure and total: any string that carries none of the recognized prefixes or
// suffixes passes through unchanged.

var schemeHostPrefix = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://[^/]+/`)

// NormalizeProject turns raw user input — "group/repo" or a full project URL,
// either optionally with a ".git" suffix — into the canonical slash-delimited
// project reference the API expects. Idempotent.
func NormalizeProject(input string) string {
	s := strings.TrimSuffix(input, ".git")
	return schemeHostPrefix.ReplaceAllString(s, "")
}

// NormalizeFilePath turns a raw file path into a path relative to the
// project root. It strips, in order: a file:// scheme prefix, a leading
// "/{project}" segment, and a single remaining leading slash. The scheme is
// stripped first so the project-prefix check sees a bare path.
func NormalizeFilePath(rawPath, project string) string {
	p := strings.TrimPrefix(rawPath, "file://")
	if p == "/"+project || strings.HasPrefix(p, "/"+project+"/") {
		p = strings.TrimPrefix(p, "/"+project)
	}
	return strings.TrimPrefix(p, "/")
}
