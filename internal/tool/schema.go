package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"sort"
	"strings"
	"time"
)

// Type is a JSON Schema primitive type.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

// Format values understood by the validator for string properties.
const (
	FormatDate  = "date"  // YYYY-MM-DD
	FormatTime  = "time"  // HH:MM, 24h clock
	FormatEmail = "email" // RFC 5322 address
)

// Property describes a single named parameter.
type Property struct {
	Type        Type      `json:"type" yaml:"type"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Format      string    `json:"format,omitempty" yaml:"format,omitempty"`
	Enum        []string  `json:"enum,omitempty" yaml:"enum,omitempty"`
	Minimum     *float64  `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum     *float64  `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	Items       *Property `json:"items,omitempty" yaml:"items,omitempty"`
}

// Schema is the parameter schema of a tool: an object whose properties are
// listed in Properties. Arguments not declared in Properties are rejected.
type Schema struct {
	Properties map[string]Property `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required   []string            `json:"required,omitempty" yaml:"required,omitempty"`
}

// Min returns a pointer to v, for use as Property.Minimum.
func Min(v float64) *float64 {
	return &v
}

// Max returns a pointer to v, for use as Property.Maximum.
func Max(v float64) *float64 {
	return &v
}

// PropertyNames returns the declared property names in sorted order.
func (s Schema) PropertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRequired reports whether name is listed as required.
func (s Schema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// JSONSchema renders the schema as a generic JSON Schema object, the form
// handed to the reasoner alongside each tool.
func (s Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name, p := range s.Properties {
		props[name] = p.jsonSchema()
	}
	out := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(s.Required) > 0 {
		out["required"] = append([]string(nil), s.Required...)
	}
	return out
}

func (p Property) jsonSchema() map[string]any {
	out := map[string]any{"type": string(p.Type)}
	if p.Description != "" {
		out["description"] = p.Description
	}
	if p.Format != "" {
		out["format"] = p.Format
	}
	if len(p.Enum) > 0 {
		out["enum"] = append([]string(nil), p.Enum...)
	}
	if p.Minimum != nil {
		out["minimum"] = *p.Minimum
	}
	if p.Maximum != nil {
		out["maximum"] = *p.Maximum
	}
	if p.Items != nil {
		out["items"] = p.Items.jsonSchema()
	}
	return out
}

// Validate checks args against the schema. toolName is only used to build
// the error. The first violation found is returned as a *SchemaViolationError;
// required fields are checked in declaration order, other fields in sorted
// order, so the reported field is deterministic.
func (s Schema) Validate(toolName string, args map[string]any) error {
	for _, name := range s.Required {
		v, ok := args[name]
		if !ok || v == nil {
			return &SchemaViolationError{Tool: toolName, Field: name, Reason: "required argument is missing"}
		}
		if str, isString := v.(string); isString && strings.TrimSpace(str) == "" {
			return &SchemaViolationError{Tool: toolName, Field: name, Reason: "required argument is empty"}
		}
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range keys {
		prop, ok := s.Properties[name]
		if !ok {
			return &SchemaViolationError{Tool: toolName, Field: name, Reason: "argument is not declared by the tool"}
		}
		value := args[name]
		if value == nil && !s.IsRequired(name) {
			continue
		}
		if err := prop.check(value); err != nil {
			return &SchemaViolationError{Tool: toolName, Field: name, Reason: err.Error()}
		}
	}
	return nil
}

func (p Property) check(value any) error {
	switch p.Type {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return typeMismatch(p.Type, value)
		}
		if len(p.Enum) > 0 && !contains(p.Enum, s) {
			return fmt.Errorf("must be one of %s", strings.Join(p.Enum, ", "))
		}
		return checkFormat(p.Format, s)
	case TypeNumber:
		f, ok := asFloat(value)
		if !ok {
			return typeMismatch(p.Type, value)
		}
		return p.checkRange(f)
	case TypeInteger:
		f, ok := asFloat(value)
		if !ok || math.Trunc(f) != f {
			return typeMismatch(p.Type, value)
		}
		return p.checkRange(f)
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return typeMismatch(p.Type, value)
		}
	case TypeObject:
		if _, ok := value.(map[string]any); !ok {
			return typeMismatch(p.Type, value)
		}
	case TypeArray:
		items, ok := asSlice(value)
		if !ok {
			return typeMismatch(p.Type, value)
		}
		if p.Items == nil {
			return nil
		}
		for i, item := range items {
			if err := p.Items.check(item); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("unsupported schema type %q", p.Type)
	}
	return nil
}

func (p Property) checkRange(f float64) error {
	if p.Minimum != nil && f < *p.Minimum {
		return fmt.Errorf("must be >= %v", *p.Minimum)
	}
	if p.Maximum != nil && f > *p.Maximum {
		return fmt.Errorf("must be <= %v", *p.Maximum)
	}
	return nil
}

func checkFormat(format, s string) error {
	switch format {
	case "":
		return nil
	case FormatDate:
		if _, err := time.Parse(time.DateOnly, s); err != nil {
			return fmt.Errorf("must be a date formatted YYYY-MM-DD")
		}
	case FormatTime:
		if _, err := time.Parse("15:04", s); err != nil {
			return fmt.Errorf("must be a time formatted HH:MM")
		}
	case FormatEmail:
		if _, err := mail.ParseAddress(s); err != nil {
			return fmt.Errorf("must be an email address")
		}
	}
	return nil
}

func typeMismatch(expected Type, value any) error {
	return fmt.Errorf("expected %s but got %T", expected, value)
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

func asSlice(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
