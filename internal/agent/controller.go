package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/inboxagent/internal/email"
	"github.com/teemow/inboxagent/internal/instrumentation"
	"github.com/teemow/inboxagent/internal/logging"
	"github.com/teemow/inboxagent/internal/preferences"
	"github.com/teemow/inboxagent/internal/reasoner"
	"github.com/teemow/inboxagent/internal/tool"
)

// DefaultMaxIterations is the iteration cap used when Config leaves it unset.
const DefaultMaxIterations = 10

// Classifier decides how an email is triaged.
type Classifier interface {
	Classify(ctx context.Context, e email.Email) (email.Classification, error)
}

// Config controls the loop.
type Config struct {
	// MaxIterations caps the number of reasoner turns per session.
	MaxIterations int
	// NotifyReview pauses notify emails for a human instead of ending them.
	NotifyReview bool
	// Instructions replaces ResponseInstructions when set.
	Instructions string
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records loop metrics on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithAudit writes tool executions and review decisions to a.
func WithAudit(a *instrumentation.AuditLogger) Option {
	return func(c *Controller) {
		c.audit = a
	}
}

// WithPreferences learns from review edits and feedback and adds the learned
// preferences to every reasoner request. topics maps tool names to the
// namespace their preferences are kept in; unmapped tools use
// preferences.NamespaceResponse.
func WithPreferences(store preferences.Store, topics map[string]preferences.Namespace) Option {
	return func(c *Controller) {
		c.prefs = store
		c.topics = topics
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator replaces the generator for session and call IDs.
func WithIDGenerator(gen func() string) Option {
	return func(c *Controller) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// Controller drives sessions through triage, the tool loop and reviews.
// A Controller holds no per-session state and can be shared between
// goroutines; each Session must only be used by one caller at a time.
type Controller struct {
	registry    *tool.Registry
	interpreter *Interpreter
	classifier  Classifier
	reasoner    reasoner.Reasoner
	config      Config

	logger  *slog.Logger
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
	prefs   preferences.Store
	topics  map[string]preferences.Namespace
	now     func() time.Time
	newID   func() string
}

// NewController creates a controller.
func NewController(reg *tool.Registry, classifier Classifier, r reasoner.Reasoner, cfg Config, opts ...Option) (*Controller, error) {
	if reg == nil {
		return nil, errors.New("tool registry is required")
	}
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if r == nil {
		return nil, errors.New("reasoner is required")
	}
	if cfg.MaxIterations < 0 {
		return nil, fmt.Errorf("max iterations must not be negative, got %d", cfg.MaxIterations)
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Instructions == "" {
		cfg.Instructions = ResponseInstructions
	}

	c := &Controller{
		registry:    reg,
		interpreter: NewInterpreter(reg),
		classifier:  classifier,
		reasoner:    r,
		config:      cfg,
		logger:      slog.Default(),
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithReasoner returns a controller that shares the registry, classifier and
// configuration of c but asks r for proposals.
func (c *Controller) WithReasoner(r reasoner.Reasoner) *Controller {
	if r == nil {
		return c
	}
	cp := *c
	cp.reasoner = r
	return &cp
}

// WithClassifier returns a controller like c that triages with cl.
func (c *Controller) WithClassifier(cl Classifier) *Controller {
	if cl == nil {
		return c
	}
	cp := *c
	cp.classifier = cl
	return &cp
}

// Config returns the effective configuration.
func (c *Controller) Config() Config {
	return c.config
}

// Start triages e and, when it warrants a response, runs the tool loop until
// the session pauses for review or ends.
//
// The returned session is non-nil whenever the email was valid, also when an
// error is returned: a failed classification or reasoner ends the session as
// StatusFailed, and hitting the iteration cap ends it as StatusMaxIterations
// together with ErrMaxIterationsExceeded.
func (c *Controller) Start(ctx context.Context, e email.Email) (*Session, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid email: %w", err)
	}

	now := c.now()
	s := &Session{
		ID:        c.newID(),
		Email:     e,
		Status:    StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	logger := logging.WithSession(c.logger, s.ID)

	ctx, span := instrumentation.StartSessionSpan(ctx, s.ID)
	defer endSessionSpan(span, s)

	classification, err := c.classifier.Classify(ctx, e)
	if err != nil {
		err = fmt.Errorf("failed to classify email: %w", err)
		instrumentation.SetSpanError(span, err)
		c.fail(ctx, s, err)
		return s, err
	}
	s.Classification = classification
	c.metrics.RecordClassification(ctx, string(classification), e.From)
	instrumentation.AddSpanEvent(span, "classified", instrumentation.NewSpanAttributeBuilder().
		WithClassification(string(classification)).Build()...)
	logger.Info("Email triaged",
		logging.Classification(string(classification)),
		logging.SenderHash(e.From))

	switch classification {
	case email.ClassificationIgnore:
		c.finish(ctx, s, StatusIgnored)
		return s, nil

	case email.ClassificationNotify:
		if !c.config.NotifyReview {
			c.finish(ctx, s, StatusNotified)
			return s, nil
		}
		s.Pending = &Review{Kind: ReviewNotification, Record: -1}
		c.pause(ctx, s)
		return s, nil

	case email.ClassificationRespond:
		c.appendMessage(s, reasoner.Message{Role: reasoner.RoleUser, Content: emailPrompt(e)})
		return c.run(ctx, s)
	}

	err = fmt.Errorf("classifier returned unknown classification %q", classification)
	c.fail(ctx, s, err)
	return s, err
}

// Resume applies d to a paused session and continues the loop.
//
// Sessions that are not paused are left untouched: ErrSessionClosed is
// returned for ended sessions and ErrNotPaused otherwise. A decision that
// does not fit the pending review returns ErrInvalidDecision and the session
// stays paused.
func (c *Controller) Resume(ctx context.Context, s *Session, d Decision) (*Session, error) {
	if s == nil {
		return nil, errors.New("session is required")
	}
	if s.Status.Terminal() {
		return s, fmt.Errorf("session %s is %s: %w", s.ID, s.Status, ErrSessionClosed)
	}
	if !s.Paused() {
		return s, fmt.Errorf("session %s: %w", s.ID, ErrNotPaused)
	}
	if err := d.Validate(s.Pending); err != nil {
		return s, err
	}

	ctx, span := instrumentation.StartSessionSpan(ctx, s.ID,
		instrumentation.NewSpanAttributeBuilder().WithDecision(string(d.Kind)).Build()...)
	defer endSessionSpan(span, s)

	review := s.Pending
	s.Pending = nil
	s.Status = StatusRunning
	s.UpdatedAt = c.now()
	c.metrics.DecrementPausedSessions(ctx)
	c.metrics.RecordReviewDecision(ctx, string(d.Kind))

	event := instrumentation.ReviewEvent{
		SessionID: s.ID,
		Decision:  string(d.Kind),
		Detail:    d.Reason + d.Feedback,
	}
	if review.Call != nil {
		event.CallID = review.Call.ID
		event.Tool = review.Call.Name
	}
	c.audit.LogReviewDecision(event)
	logging.WithSession(c.logger, s.ID).Info("Review decision applied",
		logging.Decision(string(d.Kind)),
		logging.Tool(event.Tool))

	if review.Kind == ReviewNotification {
		return c.resumeNotification(ctx, s, d)
	}
	return c.resumeToolCall(ctx, s, review, d)
}

func (c *Controller) resumeNotification(ctx context.Context, s *Session, d Decision) (*Session, error) {
	content := emailPrompt(s.Email)
	c.learn(ctx, s, preferences.Entry{
		Namespace: preferences.NamespaceTriage,
		Decision:  string(d.Kind),
		Note:      notificationNote(s.Email, d),
	})
	switch d.Kind {
	case DecisionReject:
		c.finish(ctx, s, StatusNotified)
		return s, nil
	case DecisionFeedback:
		content += "\n\nThe user wants to respond to this email and added: " + d.Feedback
	}
	c.appendMessage(s, reasoner.Message{Role: reasoner.RoleUser, Content: content})
	return c.run(ctx, s)
}

func (c *Controller) resumeToolCall(ctx context.Context, s *Session, review *Review, d Decision) (*Session, error) {
	idx := review.Record
	if idx < 0 || idx >= len(s.Calls) || review.Call == nil {
		err := fmt.Errorf("pending review of session %s references no call", s.ID)
		c.fail(ctx, s, err)
		return s, err
	}
	call := *review.Call
	s.Calls[idx].Decision = d.Kind

	switch d.Kind {
	case DecisionApprove:
		t, err := c.registry.Resolve(call.Name)
		if err != nil {
			c.rejectRecord(s, idx, err.Error())
			break
		}
		if c.execute(ctx, s, idx, t, call, "") {
			c.finish(ctx, s, StatusCompleted)
			return s, nil
		}

	case DecisionEdit:
		edited := call.Clone()
		edited.Arguments = cloneArgs(d.Arguments)
		t, err := c.registry.Validate(edited)
		if err != nil {
			c.metrics.RecordToolCall(ctx, instrumentation.ToolLabel(call.Name, true), instrumentation.StatusRejected, 0)
			c.rejectRecord(s, idx, err.Error())
			break
		}
		c.learn(ctx, s, preferences.Entry{
			Namespace: c.namespaceFor(call.Name),
			Tool:      call.Name,
			Decision:  string(d.Kind),
			Note:      preferences.EditNote(call.Name, call.Arguments, edited.Arguments),
		})
		if c.execute(ctx, s, idx, t, edited, "The user edited the arguments before execution.") {
			c.finish(ctx, s, StatusCompleted)
			return s, nil
		}

	case DecisionReject:
		msg := "The user rejected this tool call."
		if d.Reason != "" {
			msg += " Reason: " + d.Reason
		}
		s.Calls[idx].Disposition = DispositionReviewRejected
		s.Calls[idx].Reason = d.Reason
		c.appendMessage(s, reasoner.Message{Role: reasoner.RoleTool, Content: msg, CallID: call.ID})

	case DecisionFeedback:
		c.learn(ctx, s, preferences.Entry{
			Namespace: c.namespaceFor(call.Name),
			Tool:      call.Name,
			Decision:  string(d.Kind),
			Note:      preferences.FeedbackNote(call.Name, d.Feedback),
		})
		s.Calls[idx].Disposition = DispositionFeedback
		s.Calls[idx].Reason = d.Feedback
		c.appendMessage(s, reasoner.Message{
			Role:    reasoner.RoleTool,
			Content: "The user did not run this tool call and gave feedback: " + d.Feedback,
			CallID:  call.ID,
		})
	}

	return c.run(ctx, s)
}

// Abandon ends a session that has not finished yet. A pending call stays
// unexecuted.
func (c *Controller) Abandon(ctx context.Context, s *Session, reason string) error {
	if s == nil {
		return errors.New("session is required")
	}
	if s.Status.Terminal() {
		return fmt.Errorf("session %s is %s: %w", s.ID, s.Status, ErrSessionClosed)
	}
	if s.Paused() {
		c.metrics.DecrementPausedSessions(ctx)
		if r := s.Pending; r.Record >= 0 && r.Record < len(s.Calls) {
			s.Calls[r.Record].Reason = "session abandoned"
		}
	}
	s.Pending = nil
	s.Error = reason
	c.audit.LogReviewDecision(instrumentation.ReviewEvent{SessionID: s.ID, Decision: "abandon", Detail: reason})
	c.finish(ctx, s, StatusAbandoned)
	return nil
}

// run is the propose, interpret, execute loop. It returns when the session
// pauses or ends.
func (c *Controller) run(ctx context.Context, s *Session) (*Session, error) {
	logger := logging.WithSession(c.logger, s.ID)

	for {
		if s.Iterations >= c.config.MaxIterations {
			err := fmt.Errorf("session %s stopped after %d iterations: %w", s.ID, s.Iterations, ErrMaxIterationsExceeded)
			s.Error = err.Error()
			logger.Warn("Iteration cap reached", logging.Iteration(s.Iterations))
			c.finish(ctx, s, StatusMaxIterations)
			return s, err
		}
		s.Iterations++
		c.metrics.RecordIteration(ctx)

		proposal, err := c.reasoner.Propose(ctx, c.request(ctx, s))
		if err != nil {
			err = fmt.Errorf("reasoner failed in iteration %d: %w", s.Iterations, err)
			c.fail(ctx, s, err)
			return s, err
		}

		if !proposal.IsToolCall() {
			logger.Debug("Reasoner answered without a tool call", logging.Iteration(s.Iterations))
			c.appendMessage(s, reasoner.Message{Role: reasoner.RoleAssistant, Content: proposal.Text})
			c.appendMessage(s, reasoner.Message{Role: reasoner.RoleUser, Content: nudgeMessage})
			continue
		}

		call := proposal.Call.Clone()
		if call.ID == "" {
			call.ID = c.newID()
		}
		proposed := call.Clone()
		c.appendMessage(s, reasoner.Message{Role: reasoner.RoleAssistant, Content: proposal.Text, Call: &proposed})

		verdict := c.interpreter.Interpret(call)
		logger.Debug("Tool call interpreted",
			logging.Tool(call.Name),
			logging.CallID(call.ID),
			logging.Iteration(s.Iterations),
			slog.String("action", verdict.Action.String()))

		switch verdict.Action {
		case ActionReject:
			_, registered := c.registry.Lookup(call.Name)
			c.metrics.RecordToolCall(ctx, instrumentation.ToolLabel(call.Name, registered), instrumentation.StatusRejected, 0)
			idx := c.record(s, CallRecord{Call: call, Disposition: DispositionRejected, Iteration: s.Iterations})
			c.rejectRecord(s, idx, verdict.Reason())

		case ActionReview:
			c.metrics.RecordToolCall(ctx, call.Name, instrumentation.StatusReview, 0)
			idx := c.record(s, CallRecord{Call: call, Disposition: DispositionPending, Iteration: s.Iterations})
			pending := call.Clone()
			s.Pending = &Review{
				Kind:        ReviewToolCall,
				Call:        &pending,
				Description: verdict.Tool.Description,
				Record:      idx,
			}
			c.pause(ctx, s)
			return s, nil

		case ActionExecute:
			idx := c.record(s, CallRecord{Call: call, Iteration: s.Iterations})
			if c.execute(ctx, s, idx, verdict.Tool, call, "") {
				c.finish(ctx, s, StatusCompleted)
				return s, nil
			}
		}
	}
}

// execute runs call and records its result on s.Calls[idx]. It reports
// whether the terminal tool completed successfully.
func (c *Controller) execute(ctx context.Context, s *Session, idx int, t tool.Tool, call tool.Call, note string) bool {
	ctx, span := instrumentation.StartAgentToolSpan(ctx, t.Name,
		instrumentation.NewSpanAttributeBuilder().
			WithSession(s.ID).
			WithCall(call.ID).
			WithIteration(s.Iterations).
			Build()...)
	defer span.End()

	invocation := instrumentation.NewToolInvocation(t.Name).
		WithSource(instrumentation.SourceAgent).
		WithSession(s.ID, call.ID).
		WithSender(s.Email.From).
		WithSpanContext(ctx)

	output, err := runExecutor(ctx, t, call.Arguments)

	result := tool.Result{CallID: call.ID, Output: output, Success: err == nil}
	status := instrumentation.StatusSuccess
	if err != nil {
		execErr := &tool.ExecutionError{Tool: t.Name, Err: err}
		result.Output = "Error: " + execErr.Error()
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, execErr)
		invocation.CompleteWithError(execErr)
		s.Calls[idx].Disposition = DispositionFailed
	} else {
		instrumentation.SetSpanSuccess(span)
		invocation.CompleteSuccess()
		s.Calls[idx].Disposition = DispositionExecuted
	}
	if note != "" {
		result.Output = note + " " + result.Output
	}

	c.audit.LogToolInvocation(invocation)
	c.metrics.RecordToolCall(ctx, t.Name, status, invocation.Duration)

	executed := call.Clone()
	s.Calls[idx].Executed = &executed
	s.Calls[idx].Result = &result
	c.appendMessage(s, reasoner.Message{Role: reasoner.RoleTool, Content: result.Output, CallID: call.ID})

	logging.WithTool(logging.WithSession(c.logger, s.ID), t.Name).Info("Tool executed",
		logging.CallID(call.ID),
		logging.Status(status),
		slog.Duration(logging.KeyDuration, invocation.Duration))

	return err == nil && t.Terminal
}

// runExecutor calls the executor and turns a panic into an error.
func runExecutor(ctx context.Context, t tool.Tool, args map[string]any) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			output = ""
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if t.Executor == nil {
		return "", fmt.Errorf("tool %s has no executor", t.Name)
	}
	return t.Executor.Execute(ctx, cloneArgs(args))
}

func (c *Controller) request(ctx context.Context, s *Session) reasoner.Request {
	messages := make([]reasoner.Message, len(s.Messages))
	copy(messages, s.Messages)
	return reasoner.Request{
		Instructions: c.instructions(ctx, s),
		Messages:     messages,
		Tools:        c.registry.Specs(),
	}
}

// instructions appends the learned response and calendar preferences to the
// configured instructions.
func (c *Controller) instructions(ctx context.Context, s *Session) string {
	if c.prefs == nil {
		return c.config.Instructions
	}
	entries, err := c.prefs.List(ctx, preferences.NamespaceResponse, preferences.NamespaceCalendar)
	if err != nil {
		logging.WithSession(c.logger, s.ID).Warn("Failed to list preferences", logging.Err(err))
		return c.config.Instructions
	}
	if block := preferences.Format(entries); block != "" {
		return c.config.Instructions + "\n\n" + block
	}
	return c.config.Instructions
}

func (c *Controller) namespaceFor(toolName string) preferences.Namespace {
	if ns, ok := c.topics[toolName]; ok {
		return ns
	}
	return preferences.NamespaceResponse
}

// learn records e when preferences are enabled and e carries a note. A store
// error is logged and does not affect the session.
func (c *Controller) learn(ctx context.Context, s *Session, e preferences.Entry) {
	if c.prefs == nil || e.Note == "" {
		return
	}
	e.SessionID = s.ID
	e.RecordedAt = c.now().UTC()
	logger := logging.WithSession(c.logger, s.ID)
	if err := c.prefs.Record(ctx, e); err != nil {
		logger.Warn("Failed to record preference", logging.Err(err))
		return
	}
	c.metrics.RecordPreference(ctx, string(e.Namespace))
	instrumentation.AddSpanEvent(trace.SpanFromContext(ctx), "preference learned",
		instrumentation.NewSpanAttributeBuilder().WithNamespace(string(e.Namespace)).Build()...)
	logger.Info("Preference learned",
		logging.Tool(e.Tool),
		logging.Decision(e.Decision),
		slog.String("namespace", string(e.Namespace)))
}

// endSessionSpan tags the session span with the status the run ended in.
func endSessionSpan(span trace.Span, s *Session) {
	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithOutcome(string(s.Status)).Build()...)
	span.End()
}

func notificationNote(e email.Email, d Decision) string {
	subject := fmt.Sprintf("%q from %s", e.Subject, e.From)
	switch d.Kind {
	case DecisionReject:
		if d.Reason != "" {
			return fmt.Sprintf("The user needed no response to %s: %s", subject, d.Reason)
		}
		return fmt.Sprintf("The user needed no response to %s.", subject)
	case DecisionFeedback:
		return fmt.Sprintf("The user wanted to respond to %s: %s", subject, d.Feedback)
	}
	return fmt.Sprintf("The user wanted to respond to %s.", subject)
}

func (c *Controller) record(s *Session, r CallRecord) int {
	s.Calls = append(s.Calls, r)
	return len(s.Calls) - 1
}

// rejectRecord marks the call as rejected and feeds the reason back to the
// reasoner.
func (c *Controller) rejectRecord(s *Session, idx int, reason string) {
	s.Calls[idx].Disposition = DispositionRejected
	s.Calls[idx].Reason = reason
	c.appendMessage(s, reasoner.Message{
		Role:    reasoner.RoleTool,
		Content: "Error: " + reason,
		CallID:  s.Calls[idx].Call.ID,
	})
}

func (c *Controller) appendMessage(s *Session, m reasoner.Message) {
	s.Messages = append(s.Messages, m)
	s.UpdatedAt = c.now()
}

func (c *Controller) pause(ctx context.Context, s *Session) {
	s.Status = StatusPaused
	s.UpdatedAt = c.now()
	c.metrics.IncrementPausedSessions(ctx)
	c.metrics.RecordSession(ctx, string(StatusPaused))

	attrs := []any{logging.Iteration(s.Iterations), slog.String("review", string(s.Pending.Kind))}
	if s.Pending.Call != nil {
		attrs = append(attrs, logging.Tool(s.Pending.Call.Name), logging.CallID(s.Pending.Call.ID))
	}
	logging.WithSession(c.logger, s.ID).Info("Session paused for review", attrs...)
}

func (c *Controller) finish(ctx context.Context, s *Session, status Status) {
	s.Status = status
	s.UpdatedAt = c.now()
	c.metrics.RecordSession(ctx, string(status))
	attrs := []any{logging.Status(string(status)), logging.Iteration(s.Iterations)}
	if traceID := instrumentation.GetTraceID(ctx); traceID != "" {
		attrs = append(attrs, slog.String("trace_id", traceID))
	}
	logging.WithSession(c.logger, s.ID).Info("Session ended", attrs...)
}

func (c *Controller) fail(ctx context.Context, s *Session, err error) {
	s.Error = err.Error()
	logging.WithSession(c.logger, s.ID).Error("Session failed", logging.Err(err),
		slog.String("trace", instrumentation.SpanContextString(ctx)))
	c.finish(ctx, s, StatusFailed)
}

func emailPrompt(e email.Email) string {
	return "Respond to the email below.\n\n" + e.Format()
}

func cloneArgs(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}
