package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/calendar"
	"github.com/teemow/inboxagent/internal/email"
	"github.com/teemow/inboxagent/internal/google"
	"github.com/teemow/inboxagent/internal/instrumentation"
	"github.com/teemow/inboxagent/internal/preferences"
	"github.com/teemow/inboxagent/internal/reasoner"
	"github.com/teemow/inboxagent/internal/tool"
	"github.com/teemow/inboxagent/internal/tools/calendar_tools"
	"github.com/teemow/inboxagent/internal/tools/email_tools"
	"github.com/teemow/inboxagent/internal/triage"
)

// GoogleTokenEnv holds the OAuth access token for the google calendar backend.
const GoogleTokenEnv = google.AccessTokenEnv

// ErrNoReasoner is returned when a session needs a reasoner and none was
// configured or passed.
var ErrNoReasoner = errors.New("no reasoner configured")

// Options supplies the collaborators of an Assistant.
type Options struct {
	// Reasoner proposes the next action in the response loop. Without it
	// every session needs its own reasoner, see ProcessWith.
	Reasoner reasoner.Reasoner
	// Triage answers the triage prompt. When nil, emails are classified by
	// keyword rules.
	Triage reasoner.Reasoner

	// Outbox delivers write_email messages. Defaults to a MemoryOutbox.
	Outbox email_tools.Outbox
	// Store overrides the configured calendar backend.
	Store calendar.Store
	// Preferences keeps what reviews taught the assistant. Defaults to a
	// MemoryStore when Config.Preferences.Learn is set.
	Preferences preferences.Store

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
}

// Assistant handles emails end to end.
type Assistant struct {
	config     Config
	registry   *tool.Registry
	controller *agent.Controller
	outbox     email_tools.Outbox
	planner    *calendar.Planner
	prefs      preferences.Store
	logger     *slog.Logger
}

// New builds an assistant from cfg.
func New(ctx context.Context, cfg Config, opts Options) (*Assistant, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if opts.Reasoner == nil {
		opts.Reasoner = reasoner.Func(func(context.Context, reasoner.Request) (reasoner.Proposal, error) {
			return reasoner.Proposal{}, ErrNoReasoner
		})
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	outbox := opts.Outbox
	if outbox == nil {
		outbox = email_tools.NewMemoryOutbox()
	}

	store := opts.Store
	if store == nil {
		var err error
		store, err = NewCalendarStore(ctx, cfg.Calendar, opts.Metrics)
		if err != nil {
			return nil, err
		}
	}

	hours, err := calendar.ParseWorkingHours(cfg.Calendar.WorkingHours)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Calendar.Location()
	if err != nil {
		return nil, err
	}
	planner := calendar.NewPlanner(store, hours, time.Duration(cfg.Calendar.SlotMinutes)*time.Minute, loc)

	reg, err := NewRegistry(outbox, planner, cfg.ReviewPolicy)
	if err != nil {
		return nil, err
	}

	var prefs preferences.Store
	if cfg.Preferences.Learn {
		prefs = opts.Preferences
		if prefs == nil {
			prefs = preferences.NewMemoryStore(cfg.Preferences.Limit)
		}
	}

	controller, err := agent.NewController(reg, newClassifier(cfg, opts.Triage, prefs, logger), opts.Reasoner, agent.Config{
		MaxIterations: cfg.MaxIterations,
		NotifyReview:  cfg.NotifyReview,
		Instructions:  cfg.Instructions,
	},
		agent.WithLogger(logger),
		agent.WithMetrics(opts.Metrics),
		agent.WithAudit(opts.Audit),
		agent.WithPreferences(prefs, PreferenceTopics()),
	)
	if err != nil {
		return nil, err
	}

	return &Assistant{
		config:     cfg,
		registry:   reg,
		controller: controller,
		outbox:     outbox,
		planner:    planner,
		prefs:      prefs,
		logger:     logger,
	}, nil
}

// PreferenceTopics maps the default tools to the namespace their review
// preferences are kept in.
func PreferenceTopics() map[string]preferences.Namespace {
	return map[string]preferences.Namespace{
		email_tools.WriteEmailName:           preferences.NamespaceResponse,
		email_tools.TriageEmailName:          preferences.NamespaceTriage,
		calendar_tools.ScheduleMeetingName:   preferences.NamespaceCalendar,
		calendar_tools.CheckAvailabilityName: preferences.NamespaceCalendar,
	}
}

// newClassifier answers the triage prompt with r, or falls back to keyword
// rules when r is nil.
func newClassifier(cfg Config, r reasoner.Reasoner, prefs preferences.Store, logger *slog.Logger) agent.Classifier {
	if r == nil {
		return triage.NewRuleClassifier()
	}
	opts := []triage.Option{triage.WithLogger(logger)}
	if prefs != nil {
		opts = append(opts, triage.WithPreferences(prefs))
	}
	if cfg.TriageInstructions != "" {
		opts = append(opts, triage.WithInstructions(cfg.TriageInstructions))
	}
	return triage.NewClassifier(r, opts...)
}

// NewRegistry registers the default tool set and applies policy overrides.
func NewRegistry(outbox email_tools.Outbox, planner *calendar.Planner, policies map[string]string) (*tool.Registry, error) {
	reg := tool.NewRegistry()
	if err := email_tools.Register(reg, outbox); err != nil {
		return nil, err
	}
	if err := calendar_tools.Register(reg, planner); err != nil {
		return nil, err
	}
	for name, raw := range policies {
		policy, err := tool.ParseReviewPolicy(raw)
		if err != nil {
			return nil, fmt.Errorf("review policy for %s: %w", name, err)
		}
		if err := reg.SetPolicy(toolName(reg, name), policy); err != nil {
			return nil, fmt.Errorf("review policy for %s: %w", name, err)
		}
	}
	return reg, nil
}

// toolName maps a configured name onto a registered tool name. Viper lower
// cases map keys, so "done" has to find "Done".
func toolName(reg *tool.Registry, name string) string {
	if _, ok := reg.Lookup(name); ok {
		return name
	}
	for _, t := range reg.List() {
		if strings.EqualFold(t.Name, name) {
			return t.Name
		}
	}
	return name
}

// NewCalendarStore opens the configured calendar backend. The google backend
// authenticates with GOOGLE_ACCESS_TOKEN or the token cached by google-auth.
func NewCalendarStore(ctx context.Context, cfg CalendarConfig, metrics *instrumentation.Metrics) (calendar.Store, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return calendar.NewMemoryStore(), nil
	case BackendGoogle:
		ts, err := google.TokenSource(ctx)
		if err != nil {
			return nil, fmt.Errorf("google calendar backend: %w", err)
		}
		store, err := calendar.NewGoogleStoreWithTokenSource(ctx, cfg.ID, ts)
		if err != nil {
			return nil, err
		}
		store.SetMetrics(metrics)
		return store, nil
	}
	return nil, fmt.Errorf("invalid calendar backend %q", cfg.Backend)
}

// Process triages e and runs the response loop.
func (a *Assistant) Process(ctx context.Context, e email.Email) (*agent.Session, error) {
	return a.controller.Start(ctx, e)
}

// Resume applies a review decision to a paused session.
func (a *Assistant) Resume(ctx context.Context, s *agent.Session, d agent.Decision) (*agent.Session, error) {
	return a.controller.Resume(ctx, s, d)
}

// ProcessWith is Process with a reasoner for this session only.
func (a *Assistant) ProcessWith(ctx context.Context, e email.Email, r reasoner.Reasoner) (*agent.Session, error) {
	return a.controller.WithReasoner(r).Start(ctx, e)
}

// ProcessWithTriage is ProcessWith that also answers the triage prompt with
// triageReasoner. A nil triageReasoner keeps the assistant's classifier.
func (a *Assistant) ProcessWithTriage(ctx context.Context, e email.Email, r, triageReasoner reasoner.Reasoner) (*agent.Session, error) {
	ctrl := a.controller.WithReasoner(r)
	if triageReasoner != nil {
		ctrl = ctrl.WithClassifier(newClassifier(a.config, triageReasoner, a.prefs, a.logger))
	}
	return ctrl.Start(ctx, e)
}

// ResumeWith is Resume with a reasoner for this session only.
func (a *Assistant) ResumeWith(ctx context.Context, s *agent.Session, d agent.Decision, r reasoner.Reasoner) (*agent.Session, error) {
	return a.controller.WithReasoner(r).Resume(ctx, s, d)
}

// Abandon ends a session that is still open.
func (a *Assistant) Abandon(ctx context.Context, s *agent.Session, reason string) error {
	return a.controller.Abandon(ctx, s, reason)
}

// Config returns the configuration the assistant was built with.
func (a *Assistant) Config() Config {
	return a.config
}

// Registry returns the tool registry.
func (a *Assistant) Registry() *tool.Registry {
	return a.registry
}

// Outbox returns the outbox used by write_email.
func (a *Assistant) Outbox() email_tools.Outbox {
	return a.outbox
}

// Preferences returns the preference store, or nil when learning is off.
func (a *Assistant) Preferences() preferences.Store {
	return a.prefs
}

// Planner returns the calendar planner used by the calendar tools.
func (a *Assistant) Planner() *calendar.Planner {
	return a.planner
}
