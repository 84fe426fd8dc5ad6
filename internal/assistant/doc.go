// Package assistant wires the email assistant together: configuration, the
// default tool registry, the calendar backend, the classifier and the agent
// controller. Commands and the MCP server use an Assistant instead of
// assembling the pieces themselves.
package assistant
