package reasoner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxagent/internal/tool"
)

func TestScripted_FollowsAssistantTurns(t *testing.T) {
	s := NewScripted(
		Turn{Tool: "check_calendar_availability", Args: map[string]any{"date": "2024-06-01"}},
		Turn{Text: "thinking"},
		Turn{Tool: "Done"},
	)
	ctx := context.Background()

	p, err := s.Propose(ctx, Request{})
	require.NoError(t, err)
	require.True(t, p.IsToolCall())
	assert.Equal(t, "check_calendar_availability", p.Call.Name)
	assert.Equal(t, "2024-06-01", p.Call.Arguments["date"])

	msgs := []Message{
		{Role: RoleUser, Content: "email"},
		{Role: RoleAssistant, Call: p.Call},
		{Role: RoleTool, Content: "slots", CallID: p.Call.ID},
	}
	p, err = s.Propose(ctx, Request{Messages: msgs})
	require.NoError(t, err)
	assert.False(t, p.IsToolCall())
	assert.Equal(t, "thinking", p.Text)

	msgs = append(msgs, Message{Role: RoleAssistant, Content: "thinking"})
	p, err = s.Propose(ctx, Request{Messages: msgs})
	require.NoError(t, err)
	assert.Equal(t, "Done", p.Call.Name)

	msgs = append(msgs, Message{Role: RoleAssistant, Call: p.Call})
	_, err = s.Propose(ctx, Request{Messages: msgs})
	assert.ErrorIs(t, err, ErrScriptExhausted)
}

func TestScripted_ProposalDoesNotShareArguments(t *testing.T) {
	s := NewScripted(Turn{Tool: "x", Args: map[string]any{"a": "b"}})
	p, err := s.Propose(context.Background(), Request{})
	require.NoError(t, err)
	p.Call.Arguments["a"] = "mutated"
	assert.Equal(t, "b", s.Turns[0].Args["a"])
}

func TestScripted_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewScripted(Turn{Text: "x"}).Propose(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTurnValidate(t *testing.T) {
	assert.NoError(t, Turn{Tool: "Done"}.Validate())
	assert.NoError(t, Turn{Text: "hi"}.Validate())
	assert.Error(t, Turn{}.Validate())
	assert.Error(t, Turn{Tool: "Done", Text: "hi"}.Validate())
}

func TestStatic(t *testing.T) {
	call := tool.Call{Name: "triage_email", Arguments: map[string]any{"classification": "respond"}}
	s := Static{Answer: Proposal{Call: &call}}
	p, err := s.Propose(context.Background(), Request{})
	require.NoError(t, err)
	p.Call.Arguments["classification"] = "ignore"
	assert.Equal(t, "respond", call.Arguments["classification"])
}

func TestFunc(t *testing.T) {
	var seen Request
	f := Func(func(_ context.Context, req Request) (Proposal, error) {
		seen = req
		return Proposal{Text: "ok"}, nil
	})
	p, err := f.Propose(context.Background(), Request{ToolChoice: "triage_email"})
	require.NoError(t, err)
	assert.Equal(t, "ok", p.Text)
	assert.Equal(t, "triage_email", seen.ToolChoice)
}
