package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/scenario"
)

type resumeOptions struct {
	decision    string
	args        string
	reason      string
	feedback    string
	savePath    string
	preferences string
	interactive bool
}

func newResumeCmd() *cobra.Command {
	var opts resumeOptions

	cmd := &cobra.Command{
		Use:   "resume SESSION_FILE",
		Short: "Apply a review decision to a saved session",
		Long: `Resume loads a session written by "inboxagent run --save", applies a
review decision to its pending call and continues the response loop.

The decision comes from --decision, or from the scenario's remaining
scripted decisions, or, with --interactive, from a prompt.

  approve                  run the call as proposed
  edit --args JSON         run the call with replaced arguments
  reject [--reason TEXT]   skip the call
  feedback --feedback TEXT skip the call and pass TEXT to the reasoner

The session is written back to the file, or to --save. Preferences
learned by "run" travel in the session file unless --preferences (or
preferences.file from the config) names a file for them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runResume(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.decision, "decision", "", "Review decision: approve, edit, reject or feedback")
	cmd.Flags().StringVar(&opts.args, "args", "", "Replacement arguments for edit, as a JSON object")
	cmd.Flags().StringVar(&opts.reason, "reason", "", "Reason for reject")
	cmd.Flags().StringVar(&opts.feedback, "feedback", "", "Feedback text")
	cmd.Flags().StringVar(&opts.savePath, "save", "", "Write the session to this file instead of SESSION_FILE")
	cmd.Flags().StringVar(&opts.preferences, "preferences", "", "Load and save learned preferences in this YAML file")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Prompt for review decisions")

	return cmd
}

// decisionFromFlags builds the --decision decision, or returns nil when the
// flag is not set.
func decisionFromFlags(opts resumeOptions) (*agent.Decision, error) {
	if opts.decision == "" {
		return nil, nil
	}
	kind, err := parseDecisionAnswer(opts.decision)
	if err != nil {
		return nil, err
	}

	var d agent.Decision
	switch kind {
	case agent.DecisionApprove:
		d = agent.Approve()
	case agent.DecisionEdit:
		args, err := parseArgsJSON(opts.args)
		if err != nil {
			return nil, err
		}
		d = agent.Edit(args)
	case agent.DecisionReject:
		d = agent.Reject(opts.reason)
	case agent.DecisionFeedback:
		d = agent.RespondWithFeedback(opts.feedback)
	}
	return &d, nil
}

func runResume(ctx context.Context, in io.Reader, out io.Writer, path string, opts resumeOptions) error {
	configureLogging(slog.LevelWarn)

	explicit, err := decisionFromFlags(opts)
	if err != nil {
		return err
	}

	saved, err := scenario.LoadSession(path)
	if err != nil {
		return err
	}
	sc := &saved.Scenario
	s := &saved.Session

	sa, err := newScenarioAssistant(ctx, sc, opts.preferences, saved.Preferences)
	if err != nil {
		return err
	}
	defer sa.close(context.Background())

	if s.Status.Terminal() {
		return fmt.Errorf("session %s: %w", s.ID, agent.ErrSessionClosed)
	}
	if !s.Paused() {
		return fmt.Errorf("session %s: %w", s.ID, agent.ErrNotPaused)
	}

	rv := &reviewer{
		explicit:    explicit,
		scenario:    sc,
		applied:     saved.Applied,
		interactive: opts.interactive,
		in:          bufio.NewReader(in),
		out:         out,
	}
	s, err = driveSession(ctx, sa.Assistant, s, rv)

	savePath := opts.savePath
	if savePath == "" {
		savePath = path
	}
	if ferr := finishSession(out, sa, sc, s, rv.applied, savePath); ferr != nil && err == nil {
		err = ferr
	}
	return err
}
