package reasoner

import (
	"context"
	"fmt"

	"github.com/teemow/inboxagent/internal/tool"
)

// Turn is one scripted reasoner answer. Exactly one of Tool or Text is set.
type Turn struct {
	ID   string         `json:"id,omitempty" yaml:"id,omitempty"`
	Tool string         `json:"tool,omitempty" yaml:"tool,omitempty"`
	Args map[string]any `json:"args,omitempty" yaml:"args,omitempty"`
	Text string         `json:"text,omitempty" yaml:"text,omitempty"`
}

// Validate checks that the turn is either a call or text.
func (t Turn) Validate() error {
	if t.Tool == "" && t.Text == "" {
		return fmt.Errorf("turn needs a tool or a text")
	}
	if t.Tool != "" && t.Text != "" {
		return fmt.Errorf("turn %q cannot have both tool and text", t.Tool)
	}
	return nil
}

// Proposal converts the turn into a Proposal.
func (t Turn) Proposal() Proposal {
	if t.Tool == "" {
		return Proposal{Text: t.Text}
	}
	call := tool.Call{ID: t.ID, Name: t.Tool, Arguments: t.Args}
	call = call.Clone()
	return Proposal{Call: &call}
}

// Scripted replays Turns in order.
type Scripted struct {
	Turns []Turn
}

// NewScripted returns a Scripted reasoner over turns.
func NewScripted(turns ...Turn) *Scripted {
	return &Scripted{Turns: turns}
}

// Propose returns the turn at the index given by the number of assistant
// messages already present in the request.
func (s *Scripted) Propose(ctx context.Context, req Request) (Proposal, error) {
	if err := ctx.Err(); err != nil {
		return Proposal{}, err
	}
	pos := 0
	for _, m := range req.Messages {
		if m.Role == RoleAssistant {
			pos++
		}
	}
	if pos >= len(s.Turns) {
		return Proposal{}, fmt.Errorf("%w (turn %d of %d)", ErrScriptExhausted, pos+1, len(s.Turns))
	}
	return s.Turns[pos].Proposal(), nil
}

// Static always returns the same proposal. Useful as a triage oracle.
type Static struct {
	Answer Proposal
}

// Propose returns s.Answer.
func (s Static) Propose(ctx context.Context, _ Request) (Proposal, error) {
	if err := ctx.Err(); err != nil {
		return Proposal{}, err
	}
	answer := s.Answer
	if answer.Call != nil {
		call := answer.Call.Clone()
		answer.Call = &call
	}
	return answer, nil
}
