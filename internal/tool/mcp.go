package tool

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// MCPTool converts s into an MCP tool definition under the given
// name. An empty name keeps Spec.Name.
func (s Spec) MCPTool(name string) mcp.Tool {
	if name == "" {
		name = s.Name
	}
	opts := []mcp.ToolOption{mcp.WithDescription(s.Description)}
	for _, propName := range s.Schema.PropertyNames() {
		opts = append(opts, s.Schema.mcpProperty(propName))
	}
	return mcp.NewTool(name, opts...)
}

func (s Schema) mcpProperty(name string) mcp.ToolOption {
	p := s.Properties[name]

	var propOpts []mcp.PropertyOption
	if p.Description != "" {
		propOpts = append(propOpts, mcp.Description(p.Description))
	}
	if s.IsRequired(name) {
		propOpts = append(propOpts, mcp.Required())
	}

	switch p.Type {
	case TypeNumber, TypeInteger:
		if p.Minimum != nil {
			propOpts = append(propOpts, mcp.Min(*p.Minimum))
		}
		if p.Maximum != nil {
			propOpts = append(propOpts, mcp.Max(*p.Maximum))
		}
		return mcp.WithNumber(name, propOpts...)
	case TypeBoolean:
		return mcp.WithBoolean(name, propOpts...)
	case TypeArray:
		if p.Items != nil {
			propOpts = append(propOpts, mcp.Items(p.Items.jsonSchema()))
		}
		return mcp.WithArray(name, propOpts...)
	case TypeObject:
		return mcp.WithObject(name, propOpts...)
	default:
		if len(p.Enum) > 0 {
			propOpts = append(propOpts, mcp.Enum(p.Enum...))
		}
		return mcp.WithString(name, propOpts...)
	}
}
