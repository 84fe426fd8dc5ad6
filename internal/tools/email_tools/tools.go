package email_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/teemow/inboxagent/internal/email"
	"github.com/teemow/inboxagent/internal/tool"
)

// Tool names.
const (
	WriteEmailName  = "write_email"
	TriageEmailName = "triage_email"
	DoneName        = "Done"
)

// WriteEmailSpec describes write_email(to, subject, content).
func WriteEmailSpec() tool.Spec {
	return tool.Spec{
		Name:        WriteEmailName,
		Description: "Write and send an email reply.",
		Schema: tool.Schema{
			Properties: map[string]tool.Property{
				"to":      {Type: tool.TypeString, Format: tool.FormatEmail, Description: "Recipient email address"},
				"subject": {Type: tool.TypeString, Description: "Email subject line"},
				"content": {Type: tool.TypeString, Description: "Email body"},
			},
			Required: []string{"to", "subject", "content"},
		},
		Policy: tool.PolicyReview,
	}
}

// TriageEmailSpec describes triage_email(classification, reasoning).
func TriageEmailSpec() tool.Spec {
	values := make([]string, 0, 3)
	for _, c := range email.Classifications() {
		values = append(values, c.String())
	}
	return tool.Spec{
		Name:        TriageEmailName,
		Description: "Record the triage decision for the current email: ignore, notify or respond.",
		Schema: tool.Schema{
			Properties: map[string]tool.Property{
				"classification": {Type: tool.TypeString, Enum: values, Description: "Triage decision"},
				"reasoning":      {Type: tool.TypeString, Description: "Short justification for the decision"},
			},
			Required: []string{"classification"},
		},
		Policy: tool.PolicyAuto,
	}
}

// DoneSpec describes Done(), the terminal tool.
func DoneSpec() tool.Spec {
	return tool.Spec{
		Name:        DoneName,
		Description: "Signal that the email has been fully handled.",
		Policy:      tool.PolicyAuto,
		Terminal:    true,
	}
}

// WriteEmail returns the write_email executor backed by outbox.
func WriteEmail(outbox Outbox) tool.Executor {
	return tool.ExecutorFunc(func(ctx context.Context, args map[string]any) (string, error) {
		msg := OutgoingEmail{
			To:      tool.String(args, "to"),
			Subject: tool.String(args, "subject"),
			Content: tool.String(args, "content"),
		}
		if _, err := outbox.Send(ctx, msg); err != nil {
			return "", fmt.Errorf("failed to send email: %w", err)
		}
		return fmt.Sprintf("Email sent to %s with subject '%s' and content: %s", msg.To, msg.Subject, msg.Content), nil
	})
}

// TriageEmail returns the triage_email executor.
func TriageEmail() tool.Executor {
	return tool.ExecutorFunc(func(_ context.Context, args map[string]any) (string, error) {
		c, err := email.ParseClassification(tool.String(args, "classification"))
		if err != nil {
			return "", err
		}
		out := "Classification decision: " + c.String()
		if reasoning := strings.TrimSpace(tool.String(args, "reasoning")); reasoning != "" {
			out += " (" + reasoning + ")"
		}
		return out, nil
	})
}

// Done returns the terminal executor.
func Done() tool.Executor {
	return tool.ExecutorFunc(func(context.Context, map[string]any) (string, error) {
		return "Email handling complete.", nil
	})
}

// Register adds write_email, triage_email and Done to reg.
func Register(reg *tool.Registry, outbox Outbox) error {
	if outbox == nil {
		return fmt.Errorf("outbox is required")
	}
	registrations := []struct {
		spec tool.Spec
		exec tool.Executor
	}{
		{TriageEmailSpec(), TriageEmail()},
		{WriteEmailSpec(), WriteEmail(outbox)},
		{DoneSpec(), Done()},
	}
	for _, r := range registrations {
		if err := reg.Register(r.spec, r.exec); err != nil {
			return fmt.Errorf("failed to register %s: %w", r.spec.Name, err)
		}
	}
	return nil
}
