package gitlab

import (
	"strings"
	"testing"
)

func TestFormatCompact_ReadFile(t *testing.T) {
	jsonStr := `{"project":"g/r","path":"main.go","from_line":3,"to_line":4,"total_lines":10,"content":"3: three\n4: four"}`
	got := formatCompact("read_file", jsonStr)
	want := "# /g/r/main.go (lines 3-4 of 10)\n3: three\n4: four"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatCompact_ListDirectory(t *testing.T) {
	jsonStr := `{"project":"g/r","path":"src","entries":["a/","m.txt","z.txt"]}`
	got := formatCompact("list_directory", jsonStr)
	want := "# g/r:src\na/\nm.txt\nz.txt"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatCompact_ListDirectory_Root(t *testing.T) {
	jsonStr := `{"project":"g/r","path":"","entries":[]}`
	got := formatCompact("list_directory", jsonStr)
	if got != "# g/r:/ (empty)" {
		t.Errorf("got %q", got)
	}
}

func TestFormatCompact_Projects(t *testing.T) {
	jsonStr := `{"projects":[` +
		`{"id":7,"name":"docs","path_with_namespace":"team/docs","description":null,"web_url":"u","default_branch":"main","visibility":"internal","last_activity_at":"2026-08-01T12:00:00Z"}` +
		`]}`
	got := formatCompact("list_projects", jsonStr)
	if !strings.Contains(got, "path,visibility,default_branch,last_activity") {
		t.Errorf("missing CSV header: %q", got)
	}
	if !strings.Contains(got, "team/docs,internal,main,2026-08-01") {
		t.Errorf("missing CSV row: %q", got)
	}
}

func TestFormatCompact_GlobFiles(t *testing.T) {
	jsonStr := `{"project":"g/r","pattern":"**/*.ts","total_matched":2,"files":["/g/r/a/b.ts","/g/r/b.ts"]}`
	got := formatCompact("glob_files", jsonStr)
	want := "# 2 matched, showing 2\n/g/r/a/b.ts\n/g/r/b.ts"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatCompact_SearchCode(t *testing.T) {
	jsonStr := `{"project":"g/r","query":"main","total_count":3,"results":[` +
		`{"path":"a/main.go","chunks":["func main() {","main()"]},` +
		`{"path":"b/util.go","chunks":["func helper() {}"]}` +
		`]}`
	got := formatCompact("search_code", jsonStr)
	if !strings.HasPrefix(got, "# 3 matches in 2 files\n") {
		t.Errorf("missing header: %q", got)
	}
	if !strings.Contains(got, "## a/main.go\nfunc main() {\nmain()") {
		t.Errorf("missing grouped section: %q", got)
	}
}

func TestFormatCompact_MalformedJSONFallsBack(t *testing.T) {
	bad := "{not json"
	for _, tool := range []string{"read_file", "list_directory", "list_projects", "glob_files", "search_code"} {
		if got := formatCompact(tool, bad); got != bad {
			t.Errorf("%s: fallback broken, got %q", tool, got)
		}
	}
}

func TestFormatCompact_UnknownToolPassesThrough(t *testing.T) {
	jsonStr := `{"anything":1}`
	if got := formatCompact("unknown_tool", jsonStr); got != jsonStr {
		t.Errorf("got %q", got)
	}
}
