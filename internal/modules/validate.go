package modules

import (
	"fmt"
	"math"
	"strings"
)

// ValidateParams checks params against a tool's InputSchema before the
// handler runs:
// - Required fields must be present, non-nil, and (for strings) non-empty
// - Provided values must match their declared JSON Schema type
// - "integer" properties (line numbers, limits, offsets) reject fractional
//   numbers, which handlers would otherwise truncate silently
// Returns a shallow copy of params so handlers never mutate the caller's map.
func ValidateParams(schema InputSchema, params map[string]any) (map[string]any, error) {
	validated := make(map[string]any, len(params))
	for k, v := range params {
		validated[k] = v
	}

	var missing []string
	for _, key := range schema.Required {
		if isMissing(validated[key]) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required parameter(s): %s", strings.Join(missing, ", "))
	}

	for key, val := range validated {
		prop, declared := schema.Properties[key]
		if !declared || val == nil {
			// Undeclared params pass through; a nil optional counts as absent.
			continue
		}
		if err := checkType(key, val, prop.Type); err != nil {
			return nil, err
		}
	}

	return validated, nil
}

// isMissing reports whether a required value is effectively absent.
func isMissing(val any) bool {
	if val == nil {
		return true
	}
	s, ok := val.(string)
	return ok && s == ""
}

// checkType verifies that val matches the expected JSON Schema type.
// JSON numbers arrive as float64 regardless of the declared type.
func checkType(key string, val any, expectedType string) error {
	switch expectedType {
	case "string":
		if _, ok := val.(string); !ok {
			return fmt.Errorf("parameter %q: expected string, got %T", key, val)
		}
	case "integer":
		f, ok := val.(float64)
		if !ok {
			return fmt.Errorf("parameter %q: expected integer, got %T", key, val)
		}
		if math.Trunc(f) != f {
			return fmt.Errorf("parameter %q: expected integer, got %v", key, val)
		}
	case "number":
		if _, ok := val.(float64); !ok {
			return fmt.Errorf("parameter %q: expected number, got %T", key, val)
		}
	case "boolean":
		if _, ok := val.(bool); !ok {
			return fmt.Errorf("parameter %q: expected boolean, got %T", key, val)
		}
	case "array":
		if _, ok := val.([]any); !ok {
			return fmt.Errorf("parameter %q: expected array, got %T", key, val)
		}
	case "object":
		if _, ok := val.(map[string]any); !ok {
			return fmt.Errorf("parameter %q: expected object, got %T", key, val)
		}
		// "" or unknown types: skip check (lenient)
	}
	return nil
}

// findTool looks up a tool by name from a tool list.
func findTool(tools []Tool, name string) (Tool, bool) {
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}
