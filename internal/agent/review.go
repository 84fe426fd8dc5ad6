package agent

import (
	"github.com/teemow/inboxagent/internal/tool"
)

// ReviewKind tells what a pending review is about.
type ReviewKind string

const (
	// ReviewToolCall asks a human to approve a proposed tool call.
	ReviewToolCall ReviewKind = "tool_call"
	// ReviewNotification asks a human whether a notify email needs a reply.
	ReviewNotification ReviewKind = "notification"
)

// Review is the pending item of a paused session.
type Review struct {
	Kind ReviewKind `json:"kind" yaml:"kind"`
	// Call is the proposed call for ReviewToolCall.
	Call *tool.Call `json:"call,omitempty" yaml:"call,omitempty"`
	// Description is the tool description shown to reviewers.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Record is the index of the call in Session.Calls.
	Record int `json:"record" yaml:"record"`
}

// Allowed returns the decision kinds that apply to the review.
func (r *Review) Allowed() []DecisionKind {
	if r.Kind == ReviewNotification {
		return []DecisionKind{DecisionApprove, DecisionReject, DecisionFeedback}
	}
	return []DecisionKind{DecisionApprove, DecisionEdit, DecisionReject, DecisionFeedback}
}
