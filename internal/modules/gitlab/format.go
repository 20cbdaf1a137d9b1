package gitlab

import (
	"fmt"
	"strings"

	"github.com/go-faster/jx"
)

// =============================================================================
// Compact formatters per tool — pure transformation: (toolName, JSON) → string
//
// Results are reparsed with jx's streaming decoder; any decode problem falls
// back to the original JSON.
// =============================================================================

func formatCompact(toolName, jsonStr string) string {
	switch toolName {
	case "read_file":
		return readFileToCompact(jsonStr)
	case "list_directory":
		return listDirectoryToCompact(jsonStr)
	case "list_projects":
		return projectsToCSV(jsonStr)
	case "glob_files":
		return globFilesToCompact(jsonStr)
	case "search_code":
		return searchCodeToCompact(jsonStr)
	default:
		return jsonStr
	}
}

// readFileToCompact: header line + numbered content
func readFileToCompact(jsonStr string) string {
	var project, path, content string
	var from, to, total int
	d := jx.DecodeStr(jsonStr)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "project":
			project, err = d.Str()
		case "path":
			path, err = d.Str()
		case "from_line":
			from, err = d.Int()
		case "to_line":
			to, err = d.Int()
		case "total_lines":
			total, err = d.Int()
		case "content":
			content, err = d.Str()
		default:
			return d.Skip()
		}
		return err
	})
	if err != nil {
		return jsonStr
	}
	return fmt.Sprintf("# /%s/%s (lines %d-%d of %d)\n%s", project, path, from, to, total, content)
}

// listDirectoryToCompact: one entry per line
func listDirectoryToCompact(jsonStr string) string {
	var project, path string
	var entries []string
	d := jx.DecodeStr(jsonStr)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "project":
			project, err = d.Str()
		case "path":
			path, err = d.Str()
		case "entries":
			return d.Arr(func(d *jx.Decoder) error {
				e, err := d.Str()
				if err != nil {
					return err
				}
				entries = append(entries, e)
				return nil
			})
		default:
			return d.Skip()
		}
		return err
	})
	if err != nil {
		return jsonStr
	}
	if path == "" {
		path = "/"
	}
	if len(entries) == 0 {
		return fmt.Sprintf("# %s:%s (empty)", project, path)
	}
	return fmt.Sprintf("# %s:%s\n%s", project, path, strings.Join(entries, "\n"))
}

// projectsToCSV: path,visibility,default_branch,last_activity
func projectsToCSV(jsonStr string) string {
	type row struct {
		path, visibility, branch, activity string
	}
	var rows []row
	d := jx.DecodeStr(jsonStr)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "projects" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			var r row
			if err := d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "path_with_namespace":
					r.path, err = d.Str()
				case "visibility":
					r.visibility, err = d.Str()
				case "default_branch":
					r.branch, err = d.Str()
				case "last_activity_at":
					r.activity, err = d.Str()
				default:
					return d.Skip()
				}
				return err
			}); err != nil {
				return err
			}
			rows = append(rows, r)
			return nil
		})
	})
	if err != nil {
		return jsonStr
	}
	if len(rows) == 0 {
		return "# 0 projects"
	}
	var sb strings.Builder
	sb.WriteString("```csv\npath,visibility,default_branch,last_activity\n")
	for _, r := range rows {
		activity := r.activity
		if len(activity) >= 10 {
			activity = activity[:10]
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s\n", csvEscape(r.path), r.visibility, r.branch, activity))
	}
	sb.WriteString("```")
	return sb.String()
}

// globFilesToCompact: match count + one path per line
func globFilesToCompact(jsonStr string) string {
	var total int
	var files []string
	d := jx.DecodeStr(jsonStr)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "total_matched":
			total, err = d.Int()
		case "files":
			return d.Arr(func(d *jx.Decoder) error {
				f, err := d.Str()
				if err != nil {
					return err
				}
				files = append(files, f)
				return nil
			})
		default:
			return d.Skip()
		}
		return err
	})
	if err != nil {
		return jsonStr
	}
	if len(files) == 0 {
		return "# 0 matches"
	}
	return fmt.Sprintf("# %d matched, showing %d\n%s", total, len(files), strings.Join(files, "\n"))
}

// searchCodeToCompact: "## path" sections with fragments
func searchCodeToCompact(jsonStr string) string {
	var total int
	var sb strings.Builder
	groupCount := 0
	d := jx.DecodeStr(jsonStr)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "total_count":
			total, err = d.Int()
		case "results":
			return d.Arr(func(d *jx.Decoder) error {
				groupCount++
				return d.Obj(func(d *jx.Decoder, key string) error {
					switch key {
					case "path":
						p, err := d.Str()
						if err != nil {
							return err
						}
						sb.WriteString(fmt.Sprintf("## %s\n", p))
						return nil
					case "chunks":
						return d.Arr(func(d *jx.Decoder) error {
							c, err := d.Str()
							if err != nil {
								return err
							}
							sb.WriteString(c)
							sb.WriteString("\n")
							return nil
						})
					default:
						return d.Skip()
					}
				})
			})
		default:
			return d.Skip()
		}
		return err
	})
	if err != nil {
		return jsonStr
	}
	if groupCount == 0 {
		return "# 0 matches"
	}
	return fmt.Sprintf("# %d matches in %d files\n%s", total, groupCount, strings.TrimSuffix(sb.String(), "\n"))
}

// csvEscape quotes a CSV field containing a comma or quote.
func csvEscape(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
