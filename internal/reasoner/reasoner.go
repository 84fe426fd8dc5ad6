package reasoner

import (
	"context"
	"errors"

	"github.com/teemow/inboxagent/internal/tool"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of the conversation state. Assistant messages carry
// the proposed Call when the turn was a tool call; tool messages carry the
// CallID they answer.
type Message struct {
	Role    Role       `json:"role" yaml:"role"`
	Content string     `json:"content" yaml:"content"`
	Call    *tool.Call `json:"call,omitempty" yaml:"call,omitempty"`
	CallID  string     `json:"call_id,omitempty" yaml:"call_id,omitempty"`
}

// Request is everything the reasoner sees when asked for the next action.
type Request struct {
	Instructions string
	Messages     []Message
	Tools        []tool.Spec

	// ToolChoice forces a specific tool when set.
	ToolChoice string
}

// Proposal is the reasoner's answer: a tool call, or text when Call is nil.
type Proposal struct {
	Call *tool.Call
	Text string
}

// IsToolCall reports whether the proposal carries a call.
func (p Proposal) IsToolCall() bool {
	return p.Call != nil
}

// Reasoner decides the next action.
type Reasoner interface {
	Propose(ctx context.Context, req Request) (Proposal, error)
}

// Func adapts a function to the Reasoner interface.
type Func func(ctx context.Context, req Request) (Proposal, error)

// Propose calls f.
func (f Func) Propose(ctx context.Context, req Request) (Proposal, error) {
	return f(ctx, req)
}

// ErrScriptExhausted is returned by Scripted when it has no turn left.
var ErrScriptExhausted = errors.New("scripted reasoner has no more turns")
