package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/assistant"
	"github.com/teemow/inboxagent/internal/instrumentation"
	"github.com/teemow/inboxagent/internal/preferences"
	"github.com/teemow/inboxagent/internal/scenario"
	"github.com/teemow/inboxagent/internal/tools/email_tools"
)

// scenarioAssistant is an assistant driven by a scenario's scripted turns.
type scenarioAssistant struct {
	*assistant.Assistant
	outbox   *email_tools.MemoryOutbox
	prefs    *preferences.MemoryStore
	prefPath string
	provider *instrumentation.Provider
}

func (sa *scenarioAssistant) close(ctx context.Context) {
	if err := sa.provider.Shutdown(ctx); err != nil {
		slog.Warn("failed to shut down instrumentation", "error", err)
	}
}

// newScenarioAssistant builds an assistant from the config file and sc. Sent
// emails stay in memory so they can be printed. Preferences come from
// prefPath, or from preferences.file in the config, or else from seed.
func newScenarioAssistant(ctx context.Context, sc *scenario.Scenario, prefPath string, seed []preferences.Entry) (*scenarioAssistant, error) {
	cfg, err := assistant.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if prefPath == "" {
		prefPath = cfg.Preferences.File
	}
	prefs := preferences.NewMemoryStore(cfg.Preferences.Limit, seed...)
	if prefPath != "" {
		prefs, err = scenario.LoadPreferences(prefPath, cfg.Preferences.Limit)
		if err != nil {
			return nil, err
		}
	}

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}

	outbox := email_tools.NewMemoryOutbox()
	a, err := assistant.New(ctx, cfg, assistant.Options{
		Reasoner:    sc.Reasoner(),
		Triage:      sc.TriageReasoner(),
		Outbox:      outbox,
		Preferences: prefs,
		Logger:      slog.Default(),
		Metrics:     provider.Metrics(),
		Audit:       provider.Audit(),
	})
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, err
	}
	return &scenarioAssistant{Assistant: a, outbox: outbox, prefs: prefs, prefPath: prefPath, provider: provider}, nil
}

// driveSession resumes s until it ends or no decision is left. Invalid
// prompted decisions are reported and asked again; invalid scripted or
// explicit decisions are returned as errors.
func driveSession(ctx context.Context, a *assistant.Assistant, s *agent.Session, rv *reviewer) (*agent.Session, error) {
	var err error
	for s != nil && s.Paused() {
		fmt.Fprint(rv.out, renderReview(s))

		fromPrompt := rv.explicit == nil && rv.applied >= len(rv.scenario.Decisions)
		d, ok, derr := rv.next(s.Pending)
		if derr != nil {
			return s, derr
		}
		if !ok {
			return s, nil
		}

		next, rerr := a.Resume(ctx, s, d)
		if errors.Is(rerr, agent.ErrInvalidDecision) {
			if fromPrompt {
				fmt.Fprintf(rv.out, "%s %v\n", statusFailed.Render("Invalid decision:"), rerr)
				continue
			}
			return s, rerr
		}
		s, err = next, rerr
		if err != nil {
			return s, err
		}
	}
	return s, err
}

// finishSession prints the outcome, writes the preferences file when one is
// used and saves the session when savePath is set. A session still waiting
// for review without a save path is an error.
func finishSession(out io.Writer, sa *scenarioAssistant, sc *scenario.Scenario, s *agent.Session, applied int, savePath string) error {
	fmt.Fprint(out, renderSummary(s, sa.outbox.Sent()))
	if learned := learnedIn(sa.prefs, s.ID); len(learned) > 0 {
		fmt.Fprint(out, renderLearned(learned))
	}

	var carried []preferences.Entry
	if sa.prefPath != "" {
		if err := scenario.SavePreferences(sa.prefPath, sa.prefs); err != nil {
			return err
		}
	} else {
		carried = sa.prefs.Entries()
	}

	if savePath != "" {
		if err := scenario.SaveSession(savePath, sc, s, applied, carried...); err != nil {
			return err
		}
		if s.Paused() {
			fmt.Fprintf(out, "%s\n", helpStyle.Render(fmt.Sprintf(
				"Session saved to %s. Continue with: inboxagent resume %s --decision approve", savePath, savePath)))
		}
		return nil
	}
	if s.Paused() {
		return fmt.Errorf("session %s is waiting for a review decision; use --interactive or --save", s.ID)
	}
	return nil
}

// learnedIn returns the preferences recorded by session id.
func learnedIn(store *preferences.MemoryStore, id string) []preferences.Entry {
	var out []preferences.Entry
	for _, e := range store.Entries() {
		if e.SessionID == id {
			out = append(out, e)
		}
	}
	return out
}
