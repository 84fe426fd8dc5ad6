// Package instrumentation provides OpenTelemetry instrumentation for the
// inboxagent assistant and its MCP server.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for the agent loop, review decisions, HTTP requests and Google API calls
//   - Distributed tracing for sessions and tool executions
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//   - Audit logging of tool executions and review decisions
//
// # Metrics
//
// Agent Metrics:
//   - agent_sessions_total: Counter of sessions by outcome
//   - agent_paused_sessions: Gauge of sessions waiting for review
//   - agent_iterations_total: Counter of loop iterations
//   - agent_tool_calls_total: Counter of proposed tool calls by tool and disposition
//   - agent_tool_duration_seconds: Histogram of tool executor durations
//   - agent_review_decisions_total: Counter of review decisions by kind
//   - agent_classifications_total: Counter of triage results by classification
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Google API Metrics:
//   - google_api_operations_total: Counter of Google API operations by service, operation, status
//   - google_api_operation_duration_seconds: Histogram of Google API operation durations
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// # Tracing
//
// Distributed tracing spans are created for:
//   - Loop runs (agent.session)
//   - Tool executions (agent.tool.<name>)
//   - MCP tool invocations (tool.<name>)
//   - Google API calls (google.<service>.<operation>)
//
// # Configuration
//
// LoadConfig reads the standard OTEL_* variables (service name, resource
// attributes, OTLP endpoint, sampler argument) and INBOXAGENT_* variables
// for the exporters and audit logging. The CLI adds the assistant settings
// (calendar backend, iteration cap, notify review, preference learning) as
// resource attributes through Config.WithAttributes. With the prometheus
// exporter every provider owns its registry, served by MetricsHandler.
//
// # Example Usage
//
//	config, err := instrumentation.LoadConfig(nil)
//	if err != nil {
//		return err
//	}
//	provider, err := instrumentation.NewProvider(ctx, config.WithAttributes(cfg.TelemetryAttributes()))
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordToolCall(ctx, "write_email", instrumentation.StatusSuccess, time.Since(start))
//	recorder.RecordReviewDecision(ctx, "approve")
package instrumentation
