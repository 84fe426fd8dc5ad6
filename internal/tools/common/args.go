package common

import (
	"fmt"
	"strings"
)

// SessionIDFromArgs returns the session_id argument, or "" when absent.
func SessionIDFromArgs(args map[string]any) string {
	return StringArg(args, "session_id")
}

// StringArg returns the trimmed string argument name, or "" when it is
// missing or not a string.
func StringArg(args map[string]any, name string) string {
	v, ok := args[name].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// RequiredStringArg is StringArg but fails when the argument is empty.
func RequiredStringArg(args map[string]any, name string) (string, error) {
	v := StringArg(args, name)
	if v == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return v, nil
}
