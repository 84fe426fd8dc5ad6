package instrumentation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

const (
	testSender    = "jane@example.com"
	testDomain    = "example.com"
	testSession   = "sess-1"
	testCallID    = "call-7"
	testTraceID   = "abc123def456"
	testToolWrite = "write_email"
	testToolCheck = "check_calendar_availability"
)

func attrMap(attrs []slog.Attr) map[string]slog.Attr {
	m := make(map[string]slog.Attr, len(attrs))
	for _, attr := range attrs {
		m[attr.Key] = attr
	}
	return m
}

func TestToolInvocation_NewAndComplete(t *testing.T) {
	ti := NewToolInvocation(testToolWrite)

	if ti.Tool != testToolWrite {
		t.Errorf("Tool = %q, want %q", ti.Tool, testToolWrite)
	}
	if ti.StartTime.IsZero() {
		t.Error("StartTime should not be zero")
	}

	ti.CompleteSuccess()

	if !ti.Success {
		t.Error("Success should be true")
	}
	if ti.Duration < 0 {
		t.Error("Duration should not be negative")
	}
	if ti.Error != "" {
		t.Errorf("Error should be empty, got %q", ti.Error)
	}
	if ti.Status() != StatusSuccess {
		t.Errorf("Status() = %q, want %q", ti.Status(), StatusSuccess)
	}
}

func TestToolInvocation_CompleteWithError(t *testing.T) {
	ti := NewToolInvocation(testToolCheck).CompleteWithError(errors.New("calendar unavailable"))

	if ti.Success {
		t.Error("Success should be false")
	}
	if ti.Error != "calendar unavailable" {
		t.Errorf("Error = %q, want %q", ti.Error, "calendar unavailable")
	}
	if ti.Status() != StatusError {
		t.Errorf("Status() = %q, want %q", ti.Status(), StatusError)
	}
}

func TestToolInvocation_MethodChaining(t *testing.T) {
	ti := NewToolInvocation(testToolWrite).
		WithSource(SourceAgent).
		WithSession(testSession, testCallID).
		WithSender(testSender).
		CompleteSuccess()

	if ti.Source != SourceAgent {
		t.Errorf("Source = %q, want %q", ti.Source, SourceAgent)
	}
	if ti.SessionID != testSession || ti.CallID != testCallID {
		t.Errorf("session/call = %q/%q, want %q/%q", ti.SessionID, ti.CallID, testSession, testCallID)
	}
	if ti.SenderDomain() != testDomain {
		t.Errorf("SenderDomain() = %q, want %q", ti.SenderDomain(), testDomain)
	}
}

func TestToolInvocation_LogAttrs_HidesSender(t *testing.T) {
	ti := NewToolInvocation(testToolWrite).
		WithSource(SourceAgent).
		WithSession(testSession, testCallID).
		WithSender(testSender).
		CompleteWithError(errors.New("smtp down"))
	ti.TraceID = testTraceID

	attrs := attrMap(ti.LogAttrs())

	if _, ok := attrs["sender"]; ok {
		t.Error("LogAttrs must not include the full sender")
	}
	if got := attrs["sender_domain"].Value.String(); got != testDomain {
		t.Errorf("sender_domain = %q, want %q", got, testDomain)
	}
	if got := attrs["sender_hash"].Value.String(); !strings.HasPrefix(got, "user:") {
		t.Errorf("sender_hash = %q, want user: prefix", got)
	}
	for _, key := range []string{"tool", "source", "session", "call_id", "trace_id", "error", "duration", "success"} {
		if _, ok := attrs[key]; !ok {
			t.Errorf("missing %s attribute", key)
		}
	}
}

func TestToolInvocation_LogAuditAttrs_IncludesSender(t *testing.T) {
	ti := NewToolInvocation(testToolWrite).WithSender(testSender).CompleteSuccess()
	ti.TraceID = testTraceID
	ti.SpanID = "span789"

	attrs := attrMap(ti.LogAuditAttrs())

	if got := attrs["sender"].Value.String(); got != testSender {
		t.Errorf("sender = %q, want %q", got, testSender)
	}
	if _, ok := attrs["span_id"]; !ok {
		t.Error("missing span_id attribute")
	}
}

func TestToolInvocation_LogAttrs_MinimalFields(t *testing.T) {
	attrs := attrMap(NewToolInvocation("Done").CompleteSuccess().LogAttrs())

	for _, key := range []string{"source", "session", "call_id", "sender_hash", "trace_id", "error"} {
		if _, ok := attrs[key]; ok {
			t.Errorf("%s should not be present when empty", key)
		}
	}
}

func TestToolInvocation_WithSpanContext_NoSpan(t *testing.T) {
	ti := NewToolInvocation("test").WithSpanContext(context.Background())

	if ti.TraceID != "" {
		t.Errorf("TraceID = %q, want empty string", ti.TraceID)
	}
	if ti.SpanID != "" {
		t.Errorf("SpanID = %q, want empty string", ti.SpanID)
	}
}

func TestAuditLogger_New(t *testing.T) {
	al := NewAuditLogger(nil)
	if al.logger == nil {
		t.Error("logger should not be nil when created with nil")
	}

	logger := slog.Default()
	al = NewAuditLogger(logger)
	if al.logger != logger {
		t.Error("logger should be the provided logger")
	}
}

func newJSONAuditLogger(config AuditLoggingConfig) (*AuditLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewAuditLoggerWithConfig(logger, config), &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestAuditLogger_LogToolInvocation(t *testing.T) {
	al, buf := newJSONAuditLogger(AuditLoggingConfig{Enabled: true})

	al.LogToolInvocation(NewToolInvocation(testToolCheck).WithSender(testSender).CompleteSuccess())
	al.LogToolInvocation(NewToolInvocation(testToolWrite).WithSender(testSender).CompleteWithError(errors.New("boom")))

	lines := decodeLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}
	if lines[0]["msg"] != "tool_executed" || lines[0]["level"] != "INFO" {
		t.Errorf("unexpected first line: %v", lines[0])
	}
	if lines[1]["msg"] != "tool_failed" || lines[1]["level"] != "WARN" {
		t.Errorf("unexpected second line: %v", lines[1])
	}
	if strings.Contains(buf.String(), testSender) {
		t.Error("sender address leaked without IncludePII")
	}
}

func TestAuditLogger_IncludePII(t *testing.T) {
	al, buf := newJSONAuditLogger(AuditLoggingConfig{Enabled: true, IncludePII: true})

	al.LogToolInvocation(NewToolInvocation(testToolWrite).WithSender(testSender).CompleteSuccess())
	al.LogReviewDecision(ReviewEvent{SessionID: testSession, CallID: testCallID, Tool: testToolWrite, Decision: "reject", Detail: "wrong tone"})

	out := buf.String()
	if !strings.Contains(out, testSender) {
		t.Error("expected sender address with IncludePII")
	}
	if !strings.Contains(out, "wrong tone") {
		t.Error("expected decision detail with IncludePII")
	}
}

func TestAuditLogger_LogReviewDecision(t *testing.T) {
	al, buf := newJSONAuditLogger(AuditLoggingConfig{Enabled: true})

	al.LogReviewDecision(ReviewEvent{SessionID: testSession, CallID: testCallID, Tool: testToolWrite, Decision: "respond_with_feedback", Detail: "be brief"})

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d", len(lines))
	}
	line := lines[0]
	if line["msg"] != "review_decision" || line["decision"] != "respond_with_feedback" || line["session"] != testSession {
		t.Errorf("unexpected line: %v", line)
	}
	if _, ok := line["detail"]; ok {
		t.Error("detail must not be logged without IncludePII")
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	al, buf := newJSONAuditLogger(AuditLoggingConfig{Enabled: false})

	al.LogToolInvocation(NewToolInvocation(testToolWrite).CompleteSuccess())
	al.LogReviewDecision(ReviewEvent{SessionID: testSession, Decision: "approve"})

	if buf.Len() != 0 {
		t.Errorf("expected no output when disabled, got %q", buf.String())
	}

	al.SetEnabled(true)
	al.LogReviewDecision(ReviewEvent{SessionID: testSession, Decision: "approve"})
	if buf.Len() == 0 {
		t.Error("expected output after enabling")
	}
}

func TestAuditLogger_Nil(t *testing.T) {
	var al *AuditLogger
	// Should not panic
	al.LogToolInvocation(NewToolInvocation("Done").CompleteSuccess())
	al.LogReviewDecision(ReviewEvent{Decision: "approve"})
}
