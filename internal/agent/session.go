package agent

import (
	"time"

	"github.com/teemow/inboxagent/internal/email"
	"github.com/teemow/inboxagent/internal/reasoner"
	"github.com/teemow/inboxagent/internal/tool"
)

// Disposition is what happened to a proposed call.
type Disposition string

const (
	DispositionExecuted       Disposition = "executed"
	DispositionFailed         Disposition = "failed"
	DispositionRejected       Disposition = "rejected"
	DispositionPending        Disposition = "pending"
	DispositionReviewRejected Disposition = "review_rejected"
	DispositionFeedback       Disposition = "feedback"
)

// CallRecord is one proposed call and its fate. Records are kept in
// proposal order.
type CallRecord struct {
	Call tool.Call `json:"call" yaml:"call"`
	// Executed is the call that actually ran. It differs from Call after an
	// edit and is nil when nothing ran.
	Executed    *tool.Call   `json:"executed,omitempty" yaml:"executed,omitempty"`
	Disposition Disposition  `json:"disposition" yaml:"disposition"`
	Result      *tool.Result `json:"result,omitempty" yaml:"result,omitempty"`
	// Reason is the rejection message for rejected calls.
	Reason    string       `json:"reason,omitempty" yaml:"reason,omitempty"`
	Decision  DecisionKind `json:"decision,omitempty" yaml:"decision,omitempty"`
	Iteration int          `json:"iteration" yaml:"iteration"`
}

// Session is the complete state of one email's processing. It is a plain
// value owned by a single caller and can be serialised while paused.
type Session struct {
	ID             string               `json:"id" yaml:"id"`
	Email          email.Email          `json:"email" yaml:"email"`
	Classification email.Classification `json:"classification,omitempty" yaml:"classification,omitempty"`
	Status         Status               `json:"status" yaml:"status"`
	Messages       []reasoner.Message   `json:"messages" yaml:"messages"`
	Calls          []CallRecord         `json:"calls" yaml:"calls"`
	Pending        *Review              `json:"pending,omitempty" yaml:"pending,omitempty"`
	Iterations     int                  `json:"iterations" yaml:"iterations"`
	Error          string               `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt      time.Time            `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at" yaml:"updated_at"`
}

// Paused reports whether the session waits for a review decision.
func (s *Session) Paused() bool {
	return s.Status == StatusPaused && s.Pending != nil
}

// CallsFor returns the records of calls to the named tool.
func (s *Session) CallsFor(name string) []CallRecord {
	var out []CallRecord
	for _, r := range s.Calls {
		if r.Call.Name == name {
			out = append(out, r)
		}
	}
	return out
}

// Executed returns the calls that actually ran, in order. Edited calls are
// returned with their edited arguments.
func (s *Session) Executed() []tool.Call {
	var out []tool.Call
	for _, r := range s.Calls {
		if r.Executed != nil {
			out = append(out, *r.Executed)
		}
	}
	return out
}

// LastMessage returns the most recent message, or false for an empty
// conversation.
func (s *Session) LastMessage() (reasoner.Message, bool) {
	if len(s.Messages) == 0 {
		return reasoner.Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}
