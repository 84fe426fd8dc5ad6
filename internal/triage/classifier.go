package triage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/teemow/inboxagent/internal/email"
	"github.com/teemow/inboxagent/internal/instrumentation"
	"github.com/teemow/inboxagent/internal/logging"
	"github.com/teemow/inboxagent/internal/preferences"
	"github.com/teemow/inboxagent/internal/reasoner"
	"github.com/teemow/inboxagent/internal/tool"
	"github.com/teemow/inboxagent/internal/tools/email_tools"
)

// Classifier classifies emails through a reasoner.
type Classifier struct {
	reasoner     reasoner.Reasoner
	instructions string
	fallback     *RuleClassifier
	prefs        preferences.Store
	logger       *slog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithInstructions overrides the triage prompt.
func WithInstructions(instructions string) Option {
	return func(c *Classifier) {
		if instructions != "" {
			c.instructions = instructions
		}
	}
}

// WithFallback sets the classifier used when the reasoner's answer cannot be
// parsed. Passing nil disables the fallback.
func WithFallback(fallback *RuleClassifier) Option {
	return func(c *Classifier) {
		c.fallback = fallback
	}
}

// WithPreferences adds the learned triage preferences to the triage prompt.
func WithPreferences(store preferences.Store) Option {
	return func(c *Classifier) {
		c.prefs = store
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClassifier creates a reasoner-backed classifier. By default it falls
// back to NewRuleClassifier().
func NewClassifier(r reasoner.Reasoner, opts ...Option) *Classifier {
	c := &Classifier{
		reasoner:     r,
		instructions: Instructions,
		fallback:     NewRuleClassifier(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify asks the reasoner for a triage decision. Reasoner errors are
// returned; an unparseable answer is resolved by the fallback classifier.
func (c *Classifier) Classify(ctx context.Context, e email.Email) (email.Classification, error) {
	ctx, span := instrumentation.StartSpan(ctx, "triage.classify")
	defer span.End()

	classification, err := c.classify(ctx, e)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return "", err
	}
	instrumentation.SetSpanSuccess(span)
	return classification, nil
}

func (c *Classifier) classify(ctx context.Context, e email.Email) (email.Classification, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}

	spec := email_tools.TriageEmailSpec()
	proposal, err := c.reasoner.Propose(ctx, reasoner.Request{
		Instructions: c.prompt(ctx),
		Messages:     []reasoner.Message{{Role: reasoner.RoleUser, Content: e.Format()}},
		Tools:        []tool.Spec{spec},
		ToolChoice:   spec.Name,
	})
	if err != nil {
		return "", fmt.Errorf("triage reasoner failed: %w", err)
	}

	result, parseErr := parseProposal(spec, proposal)
	if parseErr == nil {
		return result, nil
	}
	if c.fallback == nil {
		return "", parseErr
	}

	logging.WithOperation(c.logger, "triage.classify").Warn("Triage answer not understood, using rule classifier",
		logging.Domain(e.From),
		logging.Err(parseErr))
	return c.fallback.Classify(ctx, e)
}

func (c *Classifier) prompt(ctx context.Context) string {
	if c.prefs == nil {
		return c.instructions
	}
	entries, err := c.prefs.List(ctx, preferences.NamespaceTriage)
	if err != nil {
		logging.WithOperation(c.logger, "triage.classify").Warn("Failed to list triage preferences", logging.Err(err))
		return c.instructions
	}
	if block := preferences.Format(entries); block != "" {
		return c.instructions + "\n\n" + block
	}
	return c.instructions
}

func parseProposal(spec tool.Spec, p reasoner.Proposal) (email.Classification, error) {
	if p.Call != nil {
		if p.Call.Name != spec.Name {
			return "", fmt.Errorf("expected %s call, got %s", spec.Name, p.Call.Name)
		}
		if err := spec.Schema.Validate(spec.Name, p.Call.Arguments); err != nil {
			return "", err
		}
		return email.ParseClassification(tool.String(p.Call.Arguments, "classification"))
	}
	return classificationFromText(p.Text)
}

// classificationFromText accepts a bare classification or a sentence that
// mentions exactly one of them.
func classificationFromText(text string) (email.Classification, error) {
	if c, err := email.ParseClassification(text); err == nil {
		return c, nil
	}

	found := map[email.Classification]bool{}
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return (r < 'a' || r > 'z')
	}) {
		if c := email.Classification(word); c.Valid() {
			found[c] = true
		}
	}
	if len(found) != 1 {
		return "", fmt.Errorf("cannot derive a classification from %q", text)
	}
	for c := range found {
		return c, nil
	}
	return "", nil
}
