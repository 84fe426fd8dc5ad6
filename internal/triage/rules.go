package triage

import (
	"context"
	"strings"

	"github.com/teemow/inboxagent/internal/email"
)

// RuleClassifier classifies emails with keyword rules. The sender and
// subject are looked at before the body, so a mailing-list footer in the
// body does not hide a question asked in the subject:
//
//	ignore keyword in sender or subject  -> ignore
//	respond keyword in subject           -> respond
//	ignore keyword in body               -> ignore
//	respond keyword in body              -> respond
//
// Anything else is notify.
type RuleClassifier struct {
	Ignore  []string
	Respond []string
}

// NewRuleClassifier returns a RuleClassifier with the default keywords.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{
		Ignore: []string{
			"unsubscribe", "newsletter", "no-reply", "noreply", "promotion",
			"% off", "webinar", "marketing", "do not reply",
		},
		Respond: []string{
			"?", "schedule", "meeting", "sync", "can you", "could you",
			"please review", "let me know", "are you available", "question",
		},
	}
}

// Classify always returns one of the three classifications. An email that
// fails validation is ignored.
func (r *RuleClassifier) Classify(ctx context.Context, e email.Email) (email.Classification, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if e.Validate() != nil {
		return email.ClassificationIgnore, nil
	}

	header := strings.ToLower(e.From + "\n" + e.Subject)
	subject := strings.ToLower(e.Subject)
	body := strings.ToLower(e.Body)
	switch {
	case containsAny(header, r.Ignore):
		return email.ClassificationIgnore, nil
	case containsAny(subject, r.Respond):
		return email.ClassificationRespond, nil
	case containsAny(body, r.Ignore):
		return email.ClassificationIgnore, nil
	case containsAny(body, r.Respond):
		return email.ClassificationRespond, nil
	}
	return email.ClassificationNotify, nil
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(text, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
