package instrumentation

import (
	"context"
	"errors"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func newTestProvider(t *testing.T, ctx context.Context) *Provider {
	t.Helper()
	config := DefaultConfig()
	config.ServiceVersion = "1.0.0"
	provider, err := NewProvider(ctx, config)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithSession("sess-1").
		WithCall("call-1").
		WithClassification("respond").
		WithDecision("approve").
		WithIteration(2).
		Build()

	if len(attrs) != 5 {
		t.Errorf("expected 5 attributes, got %d", len(attrs))
	}

	attrMap := make(map[string]interface{})
	for _, attr := range attrs {
		attrMap[string(attr.Key)] = attr.Value.AsInterface()
	}

	if attrMap[SpanAttrSession] != "sess-1" {
		t.Errorf("expected session 'sess-1', got %v", attrMap[SpanAttrSession])
	}
	if attrMap[SpanAttrCallID] != "call-1" {
		t.Errorf("expected call id 'call-1', got %v", attrMap[SpanAttrCallID])
	}
	if attrMap[SpanAttrClassification] != "respond" {
		t.Errorf("expected classification 'respond', got %v", attrMap[SpanAttrClassification])
	}
	if attrMap[SpanAttrDecision] != "approve" {
		t.Errorf("expected decision 'approve', got %v", attrMap[SpanAttrDecision])
	}
	if attrMap[SpanAttrIteration] != int64(2) {
		t.Errorf("expected iteration 2, got %v", attrMap[SpanAttrIteration])
	}
}

func TestSpanAttributeBuilder_EmptyValues(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithSession("").
		WithCall("").
		WithClassification("").
		WithIteration(1).
		Build()

	// Only iteration should be present
	if len(attrs) != 1 {
		t.Errorf("expected 1 attribute (only iteration), got %d", len(attrs))
	}
}

func TestStartSpans(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	newTestProvider(t, ctx)

	starters := map[string]func() (context.Context, trace.Span){
		"span": func() (context.Context, trace.Span) {
			c, s := StartSpan(ctx, "test-span")
			return c, s
		},
		"session": func() (context.Context, trace.Span) {
			c, s := StartSessionSpan(ctx, "sess-1")
			return c, s
		},
		"agent tool": func() (context.Context, trace.Span) {
			c, s := StartAgentToolSpan(ctx, "schedule_meeting")
			return c, s
		},
		"mcp tool": func() (context.Context, trace.Span) {
			c, s := StartToolSpan(ctx, "assistant_review")
			return c, s
		},
		"google": func() (context.Context, trace.Span) {
			c, s := StartGoogleAPISpan(ctx, ServiceCalendar, OperationFreeBusy)
			return c, s
		},
	}

	for name, start := range starters {
		t.Run(name, func(t *testing.T) {
			spanCtx, span := start()
			defer span.End()
			if spanCtx == nil {
				t.Error("expected context to be non-nil")
			}
			if span == nil {
				t.Error("expected span to be non-nil")
			}
		})
	}
}

func TestSpanStatusHelpers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	newTestProvider(t, ctx)

	_, span := StartSpan(ctx, "test-span")

	// Should not panic
	SetSpanError(span, errors.New("test error"))
	SetSpanError(span, nil)
	SetSpanSuccess(span)
	AddSpanEvent(span, "test-event")
	span.End()
}

func TestGetTraceID_NoSpan(t *testing.T) {
	if traceID := GetTraceID(context.Background()); traceID != "" {
		t.Errorf("expected empty trace ID for context without span, got %q", traceID)
	}
}

func TestGetSpanID_NoSpan(t *testing.T) {
	if spanID := GetSpanID(context.Background()); spanID != "" {
		t.Errorf("expected empty span ID for context without span, got %q", spanID)
	}
}

func TestSpanContextString_NoSpan(t *testing.T) {
	if ctxStr := SpanContextString(context.Background()); ctxStr != "" {
		t.Errorf("expected empty context string for context without span, got %q", ctxStr)
	}
}

func TestSpanAttributeBuilder_OutcomeAndNamespace(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithOutcome("paused").
		WithNamespace("calendar").
		WithDecision("").
		Build()

	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != SpanAttrOutcome || attrs[0].Value.AsString() != "paused" {
		t.Errorf("unexpected outcome attribute %v", attrs[0])
	}
	if attrs[1].Key != SpanAttrNamespace || attrs[1].Value.AsString() != "calendar" {
		t.Errorf("unexpected namespace attribute %v", attrs[1])
	}
}

func TestSpanContextString(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "agent.session")
	defer span.End()

	want := "trace_id=" + GetTraceID(ctx) + " span_id=" + GetSpanID(ctx)
	if got := SpanContextString(ctx); got != want || GetTraceID(ctx) == "" {
		t.Errorf("SpanContextString() = %q, want %q", got, want)
	}
	if got := SpanContextString(context.Background()); got != "" {
		t.Errorf("SpanContextString() without span = %q", got)
	}
}
