// Package resources provides MCP resources for the assistant. Resources are
// read-only data sources that MCP clients can fetch: the effective
// configuration, the session list, single sessions by ID and the preferences
// learned from earlier reviews.
package resources
