// internal/template/render.go
package template

import (
	"fmt"
	"strconv"
	"strings"

	"notify-engine/internal/common/errors"
)

// Variable tokens are delimited by double braces with optional inner
// whitespace: {{name}}, {{ user.email }}, {{items[0].id}}. Only variable
// substitution is supported; there is no control flow.

// ExtractVariables scans content for variable tokens and returns the unique
// path expressions in first-seen order, case-sensitive. Unbalanced delimiters
// are a malformed template.
func ExtractVariables(content string) ([]string, error) {
	vars := make([]string, 0)
	seen := make(map[string]struct{})

	rest := content
	for {
		start := strings.Index(rest, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(rest[start+2:], "}}")
		if end == -1 {
			return nil, errors.NewRenderFailedError("unbalanced variable delimiter: missing closing braces")
		}

		expr := strings.TrimSpace(rest[start+2 : start+2+end])
		if expr != "" {
			if _, ok := seen[expr]; !ok {
				seen[expr] = struct{}{}
				vars = append(vars, expr)
			}
		}
		rest = rest[start+2+end+2:]
	}

	return vars, nil
}

// Render substitutes every variable token in content with the corresponding
// value from data. Unresolved tokens render as the empty string. Unbalanced
// delimiters fail as a malformed template. A panic while resolving hostile
// data is normalized to a render error rather than taking down the dispatch
// cycle.
func Render(content string, data map[string]interface{}) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = ""
			err = errors.NewRenderFailedError(fmt.Sprintf("render panic: %v", r))
		}
	}()

	var b strings.Builder

	rest := content
	for {
		start := strings.Index(rest, "{{")
		if start == -1 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[start+2:], "}}")
		if end == -1 {
			return "", errors.NewRenderFailedError("unbalanced variable delimiter: missing closing braces")
		}

		b.WriteString(rest[:start])
		expr := strings.TrimSpace(rest[start+2 : start+2+end])
		if expr != "" {
			if v, ok := resolvePath(expr, data); ok && v != nil {
				b.WriteString(stringify(v))
			}
		}
		rest = rest[start+2+end+2:]
	}

	return b.String(), nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; render integers without a decimal.
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// resolvePath walks a dotted/bracketed path expression through nested maps
// and slices: "user.email", "items[0].id", `data["weird key"]`.
func resolvePath(expr string, data map[string]interface{}) (interface{}, bool) {
	segments, err := splitPath(expr)
	if err != nil || len(segments) == 0 {
		return nil, false
	}

	var current interface{} = data
	for _, seg := range segments {
		switch node := current.(type) {
		case map[string]interface{}:
			v, ok := node[seg.key]
			if !ok {
				return nil, false
			}
			current = v
		case []interface{}:
			if !seg.isIndex || seg.index < 0 || seg.index >= len(node) {
				return nil, false
			}
			current = node[seg.index]
		default:
			return nil, false
		}
	}
	return current, true
}

type pathSegment struct {
	key     string
	index   int
	isIndex bool
}

func splitPath(expr string) ([]pathSegment, error) {
	segments := make([]pathSegment, 0, 4)

	i := 0
	for i < len(expr) {
		switch expr[i] {
		case '.':
			i++
		case '[':
			close := strings.IndexByte(expr[i:], ']')
			if close == -1 {
				return nil, fmt.Errorf("unterminated bracket in path %q", expr)
			}
			inner := expr[i+1 : i+close]
			if len(inner) >= 2 && (inner[0] == '"' || inner[0] == '\'') && inner[len(inner)-1] == inner[0] {
				segments = append(segments, pathSegment{key: inner[1 : len(inner)-1]})
			} else {
				idx, err := strconv.Atoi(inner)
				if err != nil {
					return nil, fmt.Errorf("invalid index %q in path %q", inner, expr)
				}
				segments = append(segments, pathSegment{key: inner, index: idx, isIndex: true})
			}
			i += close + 1
		default:
			j := i
			for j < len(expr) && expr[j] != '.' && expr[j] != '[' {
				j++
			}
			segments = append(segments, pathSegment{key: expr[i:j]})
			i = j
		}
	}

	return segments, nil
}
