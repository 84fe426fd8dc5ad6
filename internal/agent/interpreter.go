package agent

import (
	"github.com/teemow/inboxagent/internal/tool"
)

// Action is what the interpreter decided to do with a proposed call.
type Action int

const (
	// ActionExecute runs the call immediately.
	ActionExecute Action = iota
	// ActionReview pauses the loop until a human decides.
	ActionReview
	// ActionReject refuses the call without running it.
	ActionReject
)

func (a Action) String() string {
	switch a {
	case ActionExecute:
		return "execute"
	case ActionReview:
		return "review"
	case ActionReject:
		return "reject"
	}
	return "unknown"
}

// Interpretation is the interpreter's verdict on a call.
type Interpretation struct {
	Action Action
	Call   tool.Call
	// Tool is set for ActionExecute and ActionReview.
	Tool tool.Tool
	// Err is the *tool.UnknownToolError or *tool.SchemaViolationError behind
	// an ActionReject.
	Err error
}

// Reason returns the rejection message, or "" when the call was accepted.
func (i Interpretation) Reason() string {
	if i.Err == nil {
		return ""
	}
	return i.Err.Error()
}

// Interpreter validates proposed calls against a registry and routes them.
type Interpreter struct {
	registry *tool.Registry
}

// NewInterpreter creates an interpreter for reg.
func NewInterpreter(reg *tool.Registry) *Interpreter {
	return &Interpreter{registry: reg}
}

// Interpret resolves and validates call. Malformed calls are rejected before
// they can reach a reviewer; valid calls are executed or sent to review
// according to the tool's policy.
func (i *Interpreter) Interpret(call tool.Call) Interpretation {
	t, err := i.registry.Validate(call)
	if err != nil {
		return Interpretation{Action: ActionReject, Call: call, Err: err}
	}
	if t.Policy == tool.PolicyReview {
		return Interpretation{Action: ActionReview, Call: call, Tool: t}
	}
	return Interpretation{Action: ActionExecute, Call: call, Tool: t}
}
