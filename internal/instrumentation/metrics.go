package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod         = "method"
	attrPath           = "path"
	attrStatus         = "status"
	attrOperation      = "operation"
	attrService        = "service"
	attrOutcome        = "outcome"
	attrTool           = "tool"
	attrKind           = "kind"
	attrClassification = "classification"
	attrSenderDomain   = "sender_domain"
	attrNamespace      = "namespace"
)

// Bucket layouts in seconds. Executors are local and fast; HTTP, MCP tools
// and Google calls can wait on a network.
var (
	executorBuckets = []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	requestBuckets  = []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10}
	remoteBuckets   = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
)

// Metrics records the assistant's metrics. A nil *Metrics, or one built
// while instrumentation is disabled, records nothing.
type Metrics struct {
	sessions        metric.Int64Counter
	paused          metric.Int64UpDownCounter
	iterations      metric.Int64Counter
	toolCalls       metric.Int64Counter
	toolCallSeconds metric.Float64Histogram
	decisions       metric.Int64Counter
	classifications metric.Int64Counter
	preferences     metric.Int64Counter

	httpRequests       metric.Int64Counter
	httpRequestSeconds metric.Float64Histogram
	mcpCalls           metric.Int64Counter
	mcpCallSeconds     metric.Float64Histogram
	googleCalls        metric.Int64Counter
	googleCallSeconds  metric.Float64Histogram

	// detailedLabels adds the sender domain to classifications.
	detailedLabels bool
}

type counterDef struct {
	dst              *metric.Int64Counter
	name, desc, unit string
}

type histogramDef struct {
	dst        *metric.Float64Histogram
	name, desc string
	buckets    []float64
}

// NewMetrics creates every instrument on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	counters := []counterDef{
		{&m.sessions, "agent_sessions_total", "Sessions by outcome", "{session}"},
		{&m.iterations, "agent_iterations_total", "Loop iterations", "{iteration}"},
		{&m.toolCalls, "agent_tool_calls_total", "Proposed tool calls by disposition", "{call}"},
		{&m.decisions, "agent_review_decisions_total", "Human review decisions by kind", "{decision}"},
		{&m.classifications, "agent_classifications_total", "Triage results by classification", "{email}"},
		{&m.preferences, "agent_preferences_learned_total", "Preferences learned from reviews by namespace", "{preference}"},
		{&m.httpRequests, "http_requests_total", "HTTP requests", "{request}"},
		{&m.mcpCalls, "mcp_tool_invocations_total", "MCP tool invocations", "{invocation}"},
		{&m.googleCalls, "google_api_operations_total", "Google API operations", "{operation}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.dst = counter
	}

	histograms := []histogramDef{
		{&m.toolCallSeconds, "agent_tool_duration_seconds", "Tool executor duration", executorBuckets},
		{&m.httpRequestSeconds, "http_request_duration_seconds", "HTTP request duration", requestBuckets},
		{&m.mcpCallSeconds, "mcp_tool_duration_seconds", "MCP tool duration", remoteBuckets},
		{&m.googleCallSeconds, "google_api_operation_duration_seconds", "Google API operation duration", remoteBuckets},
	}
	for _, h := range histograms {
		hist, err := meter.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(h.buckets...),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s histogram: %w", h.name, err)
		}
		*h.dst = hist
	}

	paused, err := meter.Int64UpDownCounter("agent_paused_sessions",
		metric.WithDescription("Sessions waiting for a review decision"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent_paused_sessions gauge: %w", err)
	}
	m.paused = paused

	return m, nil
}

func (m *Metrics) off() bool {
	return m == nil || m.sessions == nil
}

// RecordSession counts a session reaching an outcome: completed, ignored,
// notified, paused, max_iterations, abandoned or failed.
func (m *Metrics) RecordSession(ctx context.Context, outcome string) {
	if m.off() {
		return
	}
	m.sessions.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOutcome, outcome)))
}

// RecordIteration counts one loop iteration.
func (m *Metrics) RecordIteration(ctx context.Context) {
	if m.off() {
		return
	}
	m.iterations.Add(ctx, 1)
}

// RecordToolCall counts the disposition of a proposed call (success, error,
// rejected, review). duration is the executor time; zero when nothing ran.
func (m *Metrics) RecordToolCall(ctx context.Context, toolName, status string, duration time.Duration) {
	if m.off() {
		return
	}
	m.toolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	))
	if duration > 0 {
		m.toolCallSeconds.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String(attrTool, toolName)))
	}
}

// RecordReviewDecision counts approve, edit, reject and respond_with_feedback.
func (m *Metrics) RecordReviewDecision(ctx context.Context, kind string) {
	if m.off() {
		return
	}
	m.decisions.Add(ctx, 1, metric.WithAttributes(attribute.String(attrKind, kind)))
}

// RecordClassification counts a triage result. The sender domain is only
// attached when detailed labels are enabled.
func (m *Metrics) RecordClassification(ctx context.Context, classification, sender string) {
	if m.off() {
		return
	}
	attrs := []attribute.KeyValue{attribute.String(attrClassification, classification)}
	if m.detailedLabels && sender != "" {
		attrs = append(attrs, attribute.String(attrSenderDomain, ExtractSenderDomain(sender)))
	}
	m.classifications.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPreference counts a preference learned in namespace.
func (m *Metrics) RecordPreference(ctx context.Context, namespace string) {
	if m.off() {
		return
	}
	m.preferences.Add(ctx, 1, metric.WithAttributes(attribute.String(attrNamespace, namespace)))
}

// IncrementPausedSessions marks a session as waiting for review.
func (m *Metrics) IncrementPausedSessions(ctx context.Context) {
	if m.off() {
		return
	}
	m.paused.Add(ctx, 1)
}

// DecrementPausedSessions marks a waiting session as resumed or dropped.
func (m *Metrics) DecrementPausedSessions(ctx context.Context) {
	if m.off() {
		return
	}
	m.paused.Add(ctx, -1)
}

// RecordHTTPRequest counts a request to the streamable HTTP server.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.off() {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequests.Add(ctx, 1, attrs)
	m.httpRequestSeconds.Record(ctx, duration.Seconds(), attrs)
}

// RecordToolInvocation counts an MCP tool call such as
// assistant_process_email.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m.off() {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	)
	m.mcpCalls.Add(ctx, 1, attrs)
	m.mcpCallSeconds.Record(ctx, duration.Seconds(), attrs)
}

// RecordGoogleAPIOperation counts a Google call, e.g. service calendar,
// operation freebusy or insert.
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m.off() {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.googleCalls.Add(ctx, 1, attrs)
	m.googleCallSeconds.Record(ctx, duration.Seconds(), attrs)
}
