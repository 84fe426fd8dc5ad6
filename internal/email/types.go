package email

import (
	"errors"
	"fmt"
	"strings"
)

// Email is an incoming message. It is read by the assistant and never mutated.
type Email struct {
	From     string `json:"from" yaml:"from"`
	To       string `json:"to" yaml:"to"`
	Subject  string `json:"subject" yaml:"subject"`
	Body     string `json:"body" yaml:"body"`
	ThreadID string `json:"thread_id,omitempty" yaml:"thread_id,omitempty"`
}

// ErrEmptyEmail is returned by Validate when an email has neither subject nor body.
var ErrEmptyEmail = errors.New("email has no subject and no body")

// Validate performs the minimal structural checks needed before triage.
func (e Email) Validate() error {
	if strings.TrimSpace(e.From) == "" {
		return fmt.Errorf("email sender is required")
	}
	if strings.TrimSpace(e.Subject) == "" && strings.TrimSpace(e.Body) == "" {
		return ErrEmptyEmail
	}
	return nil
}

// Format renders the email the way it is shown to the reasoner and to reviewers.
func (e Email) Format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\n", e.From)
	fmt.Fprintf(&sb, "To: %s\n", e.To)
	fmt.Fprintf(&sb, "Subject: %s\n", e.Subject)
	if e.ThreadID != "" {
		fmt.Fprintf(&sb, "Thread: %s\n", e.ThreadID)
	}
	sb.WriteString("\n")
	sb.WriteString(e.Body)
	return sb.String()
}

// Classification is the triage outcome for an email.
type Classification string

const (
	// ClassificationIgnore marks emails that need no action.
	ClassificationIgnore Classification = "ignore"
	// ClassificationNotify marks emails the user should see but not answer.
	ClassificationNotify Classification = "notify"
	// ClassificationRespond marks emails that warrant a reply.
	ClassificationRespond Classification = "respond"
)

// Classifications lists every valid classification in a stable order.
func Classifications() []Classification {
	return []Classification{ClassificationIgnore, ClassificationNotify, ClassificationRespond}
}

// Valid reports whether c is one of the three known classifications.
func (c Classification) Valid() bool {
	switch c {
	case ClassificationIgnore, ClassificationNotify, ClassificationRespond:
		return true
	}
	return false
}

func (c Classification) String() string {
	return string(c)
}

// ParseClassification maps a free-form answer onto a Classification.
// Matching is case-insensitive and tolerates surrounding punctuation and
// whitespace, so "Respond." and " NOTIFY " are accepted.
func ParseClassification(s string) (Classification, error) {
	normalized := strings.ToLower(strings.Trim(strings.TrimSpace(s), ".!\"'`*"))
	c := Classification(normalized)
	if !c.Valid() {
		return "", fmt.Errorf("unknown classification %q", s)
	}
	return c, nil
}
