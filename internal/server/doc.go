// Package server hosts the assistant behind an MCP server.
//
// ServerContext ties the assistant to a SessionStore, which keeps the
// sessions started over MCP (paused ones included) together with the
// reasoner that continues each of them. Sessions idle for longer than the
// store's TTL are abandoned and dropped.
//
// HTTPServer mounts the streamable HTTP transport on /mcp next to the
// /healthz, /readyz and /healthz/detailed probes. MetricsServer exposes the
// Prometheus endpoint on its own port.
package server
