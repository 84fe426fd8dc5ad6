package agent

import (
	"fmt"
	"strings"
)

// DecisionKind is the kind of a human review decision.
type DecisionKind string

const (
	DecisionApprove  DecisionKind = "approve"
	DecisionEdit     DecisionKind = "edit"
	DecisionReject   DecisionKind = "reject"
	DecisionFeedback DecisionKind = "respond_with_feedback"
)

// ParseDecisionKind parses a decision kind. "feedback" is accepted as a
// short form of respond_with_feedback.
func ParseDecisionKind(s string) (DecisionKind, error) {
	switch k := DecisionKind(strings.ToLower(strings.TrimSpace(s))); k {
	case DecisionApprove, DecisionEdit, DecisionReject, DecisionFeedback:
		return k, nil
	case "feedback":
		return DecisionFeedback, nil
	}
	return "", fmt.Errorf("%w: unknown decision %q", ErrInvalidDecision, s)
}

// Decision is a reviewer's answer to a pending review.
type Decision struct {
	Kind DecisionKind `json:"kind" yaml:"kind"`
	// Arguments replace the call's arguments for DecisionEdit.
	Arguments map[string]any `json:"arguments,omitempty" yaml:"arguments,omitempty"`
	// Reason explains a DecisionReject.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
	// Feedback is the text of a DecisionFeedback.
	Feedback string `json:"feedback,omitempty" yaml:"feedback,omitempty"`
}

// Approve returns an approve decision.
func Approve() Decision {
	return Decision{Kind: DecisionApprove}
}

// Edit returns a decision that replaces the call's arguments with args.
func Edit(args map[string]any) Decision {
	return Decision{Kind: DecisionEdit, Arguments: args}
}

// Reject returns a reject decision.
func Reject(reason string) Decision {
	return Decision{Kind: DecisionReject, Reason: reason}
}

// RespondWithFeedback returns a decision that declines the call and hands
// text to the reasoner.
func RespondWithFeedback(text string) Decision {
	return Decision{Kind: DecisionFeedback, Feedback: text}
}

// Validate checks that d is well formed and allowed for review.
func (d Decision) Validate(review *Review) error {
	allowed := false
	for _, k := range review.Allowed() {
		if k == d.Kind {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %q is not allowed for a %s review", ErrInvalidDecision, d.Kind, review.Kind)
	}

	switch d.Kind {
	case DecisionEdit:
		if d.Arguments == nil {
			return fmt.Errorf("%w: edit requires arguments", ErrInvalidDecision)
		}
	case DecisionFeedback:
		if strings.TrimSpace(d.Feedback) == "" {
			return fmt.Errorf("%w: respond_with_feedback requires feedback text", ErrInvalidDecision)
		}
	}
	return nil
}

// Summary returns a short human readable description of d.
func (d Decision) Summary() string {
	switch d.Kind {
	case DecisionReject:
		if d.Reason != "" {
			return "reject: " + d.Reason
		}
	case DecisionFeedback:
		return "feedback: " + d.Feedback
	}
	return string(d.Kind)
}
