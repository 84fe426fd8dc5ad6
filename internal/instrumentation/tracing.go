package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer every span of the assistant comes from.
const TracerName = "github.com/teemow/inboxagent"

// Span attribute keys.
const (
	SpanAttrSession        = "agent.session_id"
	SpanAttrTool           = "agent.tool"
	SpanAttrCallID         = "agent.call_id"
	SpanAttrClassification = "agent.classification"
	SpanAttrDecision       = "agent.decision"
	SpanAttrOutcome        = "agent.outcome"
	SpanAttrIteration      = "agent.iteration"
	SpanAttrNamespace      = "agent.preference_namespace"

	SpanAttrMCPTool   = "mcp.tool"
	SpanAttrService   = "google.service"
	SpanAttrOperation = "google.operation"
)

// SpanAttributeBuilder collects agent span attributes. Empty strings are
// skipped so callers can pass whatever they have.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder returns an empty builder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{attrs: make([]attribute.KeyValue, 0, 8)}
}

func (b *SpanAttributeBuilder) str(key, value string) *SpanAttributeBuilder {
	if value != "" {
		b.attrs = append(b.attrs, attribute.String(key, value))
	}
	return b
}

// WithSession adds the session ID.
func (b *SpanAttributeBuilder) WithSession(id string) *SpanAttributeBuilder {
	return b.str(SpanAttrSession, id)
}

// WithCall adds the tool call ID.
func (b *SpanAttributeBuilder) WithCall(id string) *SpanAttributeBuilder {
	return b.str(SpanAttrCallID, id)
}

// WithClassification adds the triage result.
func (b *SpanAttributeBuilder) WithClassification(c string) *SpanAttributeBuilder {
	return b.str(SpanAttrClassification, c)
}

// WithDecision adds the review decision kind.
func (b *SpanAttributeBuilder) WithDecision(kind string) *SpanAttributeBuilder {
	return b.str(SpanAttrDecision, kind)
}

// WithOutcome adds the session status after a run.
func (b *SpanAttributeBuilder) WithOutcome(status string) *SpanAttributeBuilder {
	return b.str(SpanAttrOutcome, status)
}

// WithNamespace adds the namespace of a learned preference.
func (b *SpanAttributeBuilder) WithNamespace(ns string) *SpanAttributeBuilder {
	return b.str(SpanAttrNamespace, ns)
}

// WithIteration adds the loop iteration. It is always set, zero included.
func (b *SpanAttributeBuilder) WithIteration(n int) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Int(SpanAttrIteration, n))
	return b
}

// Build returns the collected attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// start opens a span on the global tracer. The leading attributes identify
// the span, extra ones follow.
func start(ctx context.Context, name string, kind trace.SpanKind, lead []attribute.KeyValue, extra []attribute.KeyValue) (context.Context, trace.Span) {
	attrs := append(lead, extra...)
	return otel.Tracer(TracerName).Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(kind),
	)
}

// StartSpan starts an internal span. The caller ends it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return start(ctx, name, trace.SpanKindInternal, nil, attrs)
}

// StartSessionSpan starts "agent.session", one run of the loop from Start
// or Resume until the session pauses or ends.
func StartSessionSpan(ctx context.Context, sessionID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return start(ctx, "agent.session", trace.SpanKindInternal,
		[]attribute.KeyValue{attribute.String(SpanAttrSession, sessionID)}, attrs)
}

// StartAgentToolSpan starts "agent.tool.<name>" around a tool executor.
func StartAgentToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return start(ctx, "agent.tool."+toolName, trace.SpanKindInternal,
		[]attribute.KeyValue{attribute.String(SpanAttrTool, toolName)}, attrs)
}

// StartToolSpan starts "tool.<name>" for an MCP tool invocation.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return start(ctx, "tool."+toolName, trace.SpanKindServer,
		[]attribute.KeyValue{attribute.String(SpanAttrMCPTool, toolName)}, attrs)
}

// StartGoogleAPISpan starts "google.<service>.<operation>" around a Google
// API call.
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return start(ctx, "google."+service+"."+operation, trace.SpanKindClient,
		[]attribute.KeyValue{
			attribute.String(SpanAttrService, service),
			attribute.String(SpanAttrOperation, operation),
		}, attrs)
}

// SetSpanError marks the span failed. A nil err does nothing.
func SetSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanSuccess marks the span OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddSpanEvent adds a named event, e.g. "classified".
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace ID of the span in ctx, or "".
func GetTraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID of the span in ctx, or "".
func GetSpanID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.SpanID().String()
	}
	return ""
}

// SpanContextString formats the span in ctx as "trace_id=X span_id=Y" for
// log lines, or "" without a recording span.
func SpanContextString(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return fmt.Sprintf("trace_id=%s span_id=%s", sc.TraceID(), sc.SpanID())
}
