package tool

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func meetingSchema() Schema {
	return Schema{
		Properties: map[string]Property{
			"attendees": {Type: TypeArray, Items: &Property{Type: TypeString}},
			"date":      {Type: TypeString, Format: FormatDate},
			"time":      {Type: TypeString, Format: FormatTime},
			"duration":  {Type: TypeInteger, Minimum: Min(1), Maximum: Max(24 * 60)},
			"priority":  {Type: TypeString, Enum: []string{"low", "high"}},
			"private":   {Type: TypeBoolean},
		},
		Required: []string{"attendees", "date", "time", "duration"},
	}
}

func validMeetingArgs() map[string]any {
	return map[string]any{
		"attendees": []any{"a@example.com", "b@example.com"},
		"date":      "2024-06-01",
		"time":      "14:00",
		"duration":  float64(30),
	}
}

func TestSchemaValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(map[string]any)
		wantField string
	}{
		{name: "valid", mutate: func(map[string]any) {}},
		{name: "int duration", mutate: func(a map[string]any) { a["duration"] = 45 }},
		{name: "json number", mutate: func(a map[string]any) { a["duration"] = json.Number("60") }},
		{name: "string slice", mutate: func(a map[string]any) { a["attendees"] = []string{"a@example.com"} }},
		{name: "optional enum ok", mutate: func(a map[string]any) { a["priority"] = "low" }},
		{name: "optional nil ok", mutate: func(a map[string]any) { a["priority"] = nil }},
		{name: "missing date", mutate: func(a map[string]any) { delete(a, "date") }, wantField: "date"},
		{name: "nil required", mutate: func(a map[string]any) { a["time"] = nil }, wantField: "time"},
		{name: "empty required string", mutate: func(a map[string]any) { a["date"] = "  " }, wantField: "date"},
		{name: "bad date", mutate: func(a map[string]any) { a["date"] = "June 1st" }, wantField: "date"},
		{name: "bad time", mutate: func(a map[string]any) { a["time"] = "2pm" }, wantField: "time"},
		{name: "fractional integer", mutate: func(a map[string]any) { a["duration"] = 30.5 }, wantField: "duration"},
		{name: "below minimum", mutate: func(a map[string]any) { a["duration"] = float64(0) }, wantField: "duration"},
		{name: "above maximum", mutate: func(a map[string]any) { a["duration"] = float64(24*60 + 1) }, wantField: "duration"},
		{name: "huge integer", mutate: func(a map[string]any) { a["duration"] = float64(9007199254741022) }, wantField: "duration"},
		{name: "string duration", mutate: func(a map[string]any) { a["duration"] = "30" }, wantField: "duration"},
		{name: "array item type", mutate: func(a map[string]any) { a["attendees"] = []any{"a@example.com", 3} }, wantField: "attendees"},
		{name: "not an array", mutate: func(a map[string]any) { a["attendees"] = "a@example.com" }, wantField: "attendees"},
		{name: "enum mismatch", mutate: func(a map[string]any) { a["priority"] = "urgent" }, wantField: "priority"},
		{name: "boolean mismatch", mutate: func(a map[string]any) { a["private"] = "yes" }, wantField: "private"},
		{name: "undeclared", mutate: func(a map[string]any) { a["location"] = "Room 1" }, wantField: "location"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := validMeetingArgs()
			tt.mutate(args)
			err := meetingSchema().Validate("schedule_meeting", args)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var violation *SchemaViolationError
			require.ErrorAs(t, err, &violation)
			assert.Equal(t, tt.wantField, violation.Field)
			assert.Equal(t, "schedule_meeting", violation.Tool)
		})
	}
}

func TestSchemaValidate_EmailFormat(t *testing.T) {
	s := Schema{Properties: map[string]Property{"to": {Type: TypeString, Format: FormatEmail}}}
	assert.NoError(t, s.Validate("t", map[string]any{"to": "x@x.com"}))
	assert.ErrorIs(t, s.Validate("t", map[string]any{"to": "not an address"}), ErrSchemaViolation)
}

func TestSchemaValidate_NilArgs(t *testing.T) {
	s := Schema{}
	assert.NoError(t, s.Validate("done", nil))

	s = Schema{Properties: map[string]Property{"x": {Type: TypeString}}, Required: []string{"x"}}
	assert.ErrorIs(t, s.Validate("t", nil), ErrSchemaViolation)
}

func TestSchemaJSONSchema(t *testing.T) {
	js := meetingSchema().JSONSchema()
	assert.Equal(t, "object", js["type"])
	assert.Equal(t, false, js["additionalProperties"])
	assert.ElementsMatch(t, []string{"attendees", "date", "time", "duration"}, js["required"])

	props, ok := js["properties"].(map[string]any)
	require.True(t, ok)
	attendees, ok := props["attendees"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "array", attendees["type"])
	assert.Equal(t, map[string]any{"type": "string"}, attendees["items"])
}

// Any argument map missing a required field must be rejected.
func TestSchemaValidate_MissingRequiredProperty(t *testing.T) {
	schema := meetingSchema()
	rapid.Check(t, func(t *rapid.T) {
		args := validMeetingArgs()
		drop := rapid.SampledFrom(schema.Required).Draw(t, "drop")
		delete(args, drop)

		err := schema.Validate("schedule_meeting", args)
		var violation *SchemaViolationError
		if !assertAs(err, &violation) {
			t.Fatalf("expected schema violation when %q is missing, got %v", drop, err)
		}
		if violation.Field != drop {
			t.Fatalf("reported field %q, want %q", violation.Field, drop)
		}
	})
}

func assertAs(err error, target **SchemaViolationError) bool {
	v, ok := err.(*SchemaViolationError)
	if ok {
		*target = v
	}
	return ok
}
