package cmd

import (
	"context"
	"strings"
	"testing"
)

func TestBuildDocs(t *testing.T) {
	markdown, err := buildDocs(context.Background())
	if err != nil {
		t.Fatalf("buildDocs() error = %v", err)
	}

	for _, want := range []string{
		"## MCP Tools",
		"### assistant_list_sessions\n\n*read-only*",
		"### assistant_process_email\n\n*requires --yolo*",
		"### assistant_review\n\n*requires --yolo*",
		"## MCP Resources",
		"`assistant://config`",
		"`assistant://preferences`",
		"`assistant://sessions/{id}`",
		"## Agent Tools",
		"### write_email",
		"**Review policy:** review",
		"### check_calendar_availability",
		"(ends the session)",
		"- `to` (required, string)",
		"- `duration` (required, number): Duration in minutes [1..1440]",
		"| tool_call | `approve`, `edit`, `reject`, `respond_with_feedback` |",
	} {
		if !strings.Contains(markdown, want) {
			t.Errorf("documentation missing %q", want)
		}
	}
}

func TestPropertyRange(t *testing.T) {
	tests := []struct {
		name string
		prop map[string]any
		want string
	}{
		{"both", map[string]any{"minimum": 1.0, "maximum": 1440.0}, "1..1440"},
		{"lower", map[string]any{"minimum": 0.0}, ">= 0"},
		{"upper", map[string]any{"maximum": 10.0}, "<= 10"},
		{"none", map[string]any{"type": "string"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := propertyRange(tt.prop); got != tt.want {
				t.Errorf("propertyRange() = %q, want %q", got, tt.want)
			}
		})
	}
}
