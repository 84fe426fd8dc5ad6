// Package common provides shared helpers for the MCP tool packages:
// argument extraction and the instrumentation wrapper every handler is
// registered with.
package common
