package assistant_tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/assistant"
	"github.com/teemow/inboxagent/internal/email"
	"github.com/teemow/inboxagent/internal/server"
	"github.com/teemow/inboxagent/internal/tools/common"
	"github.com/teemow/inboxagent/internal/tools/email_tools"
)

const replyTurns = `[
  {"tool": "write_email", "args": {"to": "alice@example.com", "subject": "Re: Report", "content": "Sending it Friday."}},
  {"tool": "Done"}
]`

type fixture struct {
	sc     *server.ServerContext
	outbox *email_tools.MemoryOutbox
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	outbox := email_tools.NewMemoryOutbox()
	a, err := assistant.New(context.Background(), assistant.DefaultConfig(), assistant.Options{Outbox: outbox})
	require.NoError(t, err)
	sc := server.NewServerContext(context.Background(), a, server.NewSessionStore(time.Hour, nil, nil))
	t.Cleanup(func() { _ = sc.Shutdown() })
	return &fixture{sc: sc, outbox: outbox}
}

func call(t *testing.T, h common.ToolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err, "handlers report failures as tool results")
	require.NotNil(t, res)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func decodeSession(t *testing.T, res *mcp.CallToolResult) sessionResult {
	t.Helper()
	require.False(t, res.IsError, text(t, res))
	var out sessionResult
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &out))
	return out
}

func reportEmail(turns any) map[string]any {
	return map[string]any{
		"from":    "alice@example.com",
		"to":      "me@example.com",
		"subject": "Report",
		"body":    "Could you please send me the report by Friday?",
		"turns":   turns,
	}
}

func (f *fixture) process(t *testing.T, args map[string]any) sessionResult {
	t.Helper()
	return decodeSession(t, call(t, handleProcessEmail(f.sc), args))
}

func TestProcessEmail_PausesThenApprove(t *testing.T) {
	f := newFixture(t)

	res := f.process(t, reportEmail(replyTurns))
	assert.Equal(t, agent.StatusPaused, res.Status)
	assert.Equal(t, email.ClassificationRespond, res.Classification)
	require.NotNil(t, res.Pending)
	assert.Equal(t, email_tools.WriteEmailName, res.Pending.Call.Name)
	assert.Empty(t, f.outbox.Sent())

	res = decodeSession(t, call(t, handleReview(f.sc), map[string]any{
		"session_id": res.SessionID,
		"decision":   "approve",
	}))
	assert.Equal(t, agent.StatusCompleted, res.Status)
	require.Len(t, f.outbox.Sent(), 1)
	assert.Equal(t, "Re: Report", f.outbox.Sent()[0].Subject)
}

func TestProcessEmail_TurnFormats(t *testing.T) {
	yamlTurns := `
- tool: Done
`
	arrayTurns := []any{map[string]any{"tool": "Done"}}

	for name, turns := range map[string]any{"yaml": yamlTurns, "array": arrayTurns} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			res := f.process(t, reportEmail(turns))
			assert.Equal(t, agent.StatusCompleted, res.Status)
			assert.Equal(t, 1, res.Iterations)
		})
	}
}

func TestProcessEmail_Triage(t *testing.T) {
	f := newFixture(t)
	args := reportEmail(replyTurns)
	args["triage"] = "ignore"

	res := f.process(t, args)
	assert.Equal(t, email.ClassificationIgnore, res.Classification)
	assert.Equal(t, agent.StatusIgnored, res.Status)
	assert.Empty(t, res.Calls)
}

func TestProcessEmail_InvalidInput(t *testing.T) {
	tests := map[string]map[string]any{
		"missing sender": {"subject": "Hi", "body": "x", "turns": replyTurns},
		"missing turns":  {"from": "a@example.com", "subject": "Hi"},
		"empty turns":    reportEmail("[]"),
		"bad turn":       reportEmail(`[{"tool": "Done", "text": "both"}]`),
		"unparsable":     reportEmail("{not yaml"),
		"bad triage":     func() map[string]any { a := reportEmail(replyTurns); a["triage"] = "archive"; return a }(),
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			res := call(t, handleProcessEmail(f.sc), args)
			assert.True(t, res.IsError)
			assert.Zero(t, f.sc.Sessions().Len())
		})
	}
}

func TestReview_Decisions(t *testing.T) {
	t.Run("reject continues the loop without sending", func(t *testing.T) {
		f := newFixture(t)
		paused := f.process(t, reportEmail(replyTurns))

		res := decodeSession(t, call(t, handleReview(f.sc), map[string]any{
			"session_id": paused.SessionID,
			"decision":   "reject",
			"reason":     "not yet",
		}))
		assert.Equal(t, agent.StatusCompleted, res.Status)
		assert.Empty(t, f.outbox.Sent())
		require.NotEmpty(t, res.Calls)
		assert.Equal(t, agent.DispositionReviewRejected, res.Calls[0].Disposition)
	})

	t.Run("edit runs the edited call", func(t *testing.T) {
		f := newFixture(t)
		paused := f.process(t, reportEmail(replyTurns))

		res := decodeSession(t, call(t, handleReview(f.sc), map[string]any{
			"session_id": paused.SessionID,
			"decision":   "edit",
			"arguments":  map[string]any{"to": "bob@example.com", "subject": "Report", "content": "Attached."},
		}))
		assert.Equal(t, agent.StatusCompleted, res.Status)
		require.Len(t, f.outbox.Sent(), 1)
		assert.Equal(t, "bob@example.com", f.outbox.Sent()[0].To)
	})

	t.Run("edit accepts a JSON string", func(t *testing.T) {
		f := newFixture(t)
		paused := f.process(t, reportEmail(replyTurns))

		res := decodeSession(t, call(t, handleReview(f.sc), map[string]any{
			"session_id": paused.SessionID,
			"decision":   "edit",
			"arguments":  `{"to": "carol@example.com", "subject": "Report", "content": "Attached."}`,
		}))
		assert.Equal(t, agent.StatusCompleted, res.Status)
		require.Len(t, f.outbox.Sent(), 1)
		assert.Equal(t, "carol@example.com", f.outbox.Sent()[0].To)
	})

	t.Run("feedback goes back to the reasoner", func(t *testing.T) {
		f := newFixture(t)
		paused := f.process(t, reportEmail(replyTurns))

		res := decodeSession(t, call(t, handleReview(f.sc), map[string]any{
			"session_id": paused.SessionID,
			"decision":   "feedback",
			"feedback":   "mention the deadline",
		}))
		assert.Equal(t, agent.StatusCompleted, res.Status)
		assert.Equal(t, agent.DispositionFeedback, res.Calls[0].Disposition)
		assert.Empty(t, f.outbox.Sent())
	})
}

func TestReview_Errors(t *testing.T) {
	f := newFixture(t)
	paused := f.process(t, reportEmail(replyTurns))

	invalid := []map[string]any{
		{"decision": "approve"},
		{"session_id": "nope", "decision": "approve"},
		{"session_id": paused.SessionID, "decision": "maybe"},
		{"session_id": paused.SessionID, "decision": "edit"},
		{"session_id": paused.SessionID, "decision": "edit", "arguments": 42},
		{"session_id": paused.SessionID, "decision": "respond_with_feedback", "feedback": "  "},
	}
	for _, args := range invalid {
		assert.True(t, call(t, handleReview(f.sc), args).IsError, "%v", args)
	}

	res := call(t, handleGetSession(f.sc), map[string]any{"session_id": paused.SessionID})
	var s agent.Session
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &s))
	assert.True(t, s.Paused(), "invalid decisions leave the session paused")
	assert.Empty(t, f.outbox.Sent())

	decodeSession(t, call(t, handleReview(f.sc), map[string]any{"session_id": paused.SessionID, "decision": "approve"}))
	closed := call(t, handleReview(f.sc), map[string]any{"session_id": paused.SessionID, "decision": "approve"})
	assert.True(t, closed.IsError)
	assert.Contains(t, text(t, closed), "completed")
}

func TestAbandonSession(t *testing.T) {
	f := newFixture(t)
	paused := f.process(t, reportEmail(replyTurns))

	res := decodeSession(t, call(t, handleAbandonSession(f.sc), map[string]any{
		"session_id": paused.SessionID,
		"reason":     "handled by phone",
	}))
	assert.Equal(t, agent.StatusAbandoned, res.Status)
	assert.Nil(t, res.Pending)
	assert.Empty(t, f.outbox.Sent())

	assert.True(t, call(t, handleAbandonSession(f.sc), map[string]any{"session_id": paused.SessionID}).IsError)
	assert.True(t, call(t, handleAbandonSession(f.sc), map[string]any{}).IsError)
}

func TestListSessions(t *testing.T) {
	f := newFixture(t)
	f.process(t, reportEmail(replyTurns))
	f.process(t, reportEmail(`[{"tool": "Done"}]`))

	var all struct {
		Sessions []server.SessionSummary `json:"sessions"`
		Count    int                     `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, call(t, handleListSessions(f.sc), nil))), &all))
	assert.Equal(t, 2, all.Count)

	var paused struct {
		Sessions []server.SessionSummary `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, call(t, handleListSessions(f.sc), map[string]any{"status": "PAUSED"}))), &paused))
	require.Len(t, paused.Sessions, 1)
	assert.Equal(t, email_tools.WriteEmailName, paused.Sessions[0].PendingTool)
}

func TestGetSession_NotFound(t *testing.T) {
	f := newFixture(t)
	assert.True(t, call(t, handleGetSession(f.sc), map[string]any{"session_id": "missing"}).IsError)
	assert.True(t, call(t, handleGetSession(f.sc), nil).IsError)
}

func TestListTools(t *testing.T) {
	f := newFixture(t)
	var tools []toolDescription
	require.NoError(t, json.Unmarshal([]byte(text(t, call(t, handleListTools(f.sc), nil))), &tools))

	policies := map[string]string{}
	for _, td := range tools {
		policies[td.Name] = td.Policy
		assert.NotNil(t, td.InputSchema, td.Name)
	}
	assert.Equal(t, "review", policies[email_tools.WriteEmailName])
	assert.Equal(t, "auto", policies[email_tools.DoneName])
	assert.Len(t, tools, 5)
}

func TestRegisterAssistantTools(t *testing.T) {
	f := newFixture(t)

	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterAssistantTools(s, f.sc, false))
	assert.Len(t, s.ListTools(), 6)

	ro := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterAssistantTools(ro, f.sc, true))
	tools := ro.ListTools()
	assert.Len(t, tools, 3)
	assert.NotContains(t, tools, ProcessEmailToolName)

	assert.Error(t, RegisterAssistantTools(nil, f.sc, false))
}
