package tool

import (
	"fmt"
	"math"
	"strings"
)

// String returns the string argument name, or "" when absent.
func String(args map[string]any, name string) string {
	if v, ok := args[name].(string); ok {
		return v
	}
	return ""
}

// Int returns the integer argument name. JSON numbers decode as float64,
// so any integral numeric value within the range of int is accepted.
func Int(args map[string]any, name string) (int, error) {
	f, ok := asFloat(args[name])
	if !ok {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	if math.Trunc(f) != f {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	// float64(math.MaxInt) rounds up to 2^63, which is already out of range.
	if f < math.MinInt || f >= math.MaxInt {
		return 0, fmt.Errorf("%s is out of range", name)
	}
	return int(f), nil
}

// Strings returns a string list argument. A comma separated string is
// accepted as well, the way the MCP tools pass lists.
func Strings(args map[string]any, name string) []string {
	switch v := args[name].(type) {
	case string:
		return splitList(v)
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
