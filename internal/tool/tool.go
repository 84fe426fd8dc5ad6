package tool

import (
	"context"
	"fmt"
	"strings"
)

// ReviewPolicy decides whether a call must pass human review before it runs.
type ReviewPolicy int

const (
	// PolicyAuto executes validated calls directly.
	PolicyAuto ReviewPolicy = iota
	// PolicyReview routes validated calls to the human review gate.
	PolicyReview
)

func (p ReviewPolicy) String() string {
	if p == PolicyReview {
		return "review"
	}
	return "auto"
}

// ParseReviewPolicy parses "auto" or "review".
func ParseReviewPolicy(s string) (ReviewPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto":
		return PolicyAuto, nil
	case "review":
		return PolicyReview, nil
	}
	return PolicyAuto, fmt.Errorf("invalid review policy %q, must be one of: auto, review", s)
}

// Spec is the static description of a tool.
type Spec struct {
	Name        string
	Description string
	Schema      Schema
	Policy      ReviewPolicy

	// Terminal marks the tool that ends the loop once it has executed.
	Terminal bool
}

// Executor performs the side effect of a tool. A returned error is reported
// back to the reasoner as a failed result, never propagated out of the loop.
type Executor interface {
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, args map[string]any) (string, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, args map[string]any) (string, error) {
	return f(ctx, args)
}

// Tool is a registered Spec with its Executor.
type Tool struct {
	Spec
	Executor Executor
}

// Call is a tool invocation proposed by the reasoner.
type Call struct {
	ID        string         `json:"id" yaml:"id"`
	Name      string         `json:"name" yaml:"name"`
	Arguments map[string]any `json:"arguments,omitempty" yaml:"arguments,omitempty"`
}

// Clone returns a copy of c with its own top-level argument map.
func (c Call) Clone() Call {
	out := c
	if c.Arguments != nil {
		out.Arguments = make(map[string]any, len(c.Arguments))
		for k, v := range c.Arguments {
			out.Arguments[k] = v
		}
	}
	return out
}

// Result is the outcome of executing a Call.
type Result struct {
	CallID  string `json:"call_id" yaml:"call_id"`
	Output  string `json:"output" yaml:"output"`
	Success bool   `json:"success" yaml:"success"`
}
