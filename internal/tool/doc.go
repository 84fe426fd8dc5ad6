// Package tool defines the tools the assistant can call and the registry
// that resolves them.
//
// A tool is described by a Spec (name, description, parameter Schema and
// ReviewPolicy) and implemented by an Executor. The Registry maps names to
// registered tools, rejects duplicates and fails lookups of unknown names
// with an UnknownToolError. Arguments proposed by the reasoner are checked
// with Schema.Validate before anything executes; violations are reported as
// SchemaViolationError.
//
// Specs can be exported as MCP tool definitions (Spec.MCPTool) so that the
// same schema drives both the agent loop and the MCP server.
package tool
