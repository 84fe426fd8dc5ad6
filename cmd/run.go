package cmd

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxagent/internal/scenario"
)

type runOptions struct {
	savePath    string
	preferences string
	interactive bool
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run SCENARIO",
		Short: "Process the email of a scenario file",
		Long: `Run triages the email of a scenario file and replays its scripted turns
through the response loop.

Tool calls that need review are settled with the scenario's scripted
decisions first. When they run out, --interactive prompts for a decision
and --save writes the paused session to a file for "inboxagent resume".

Emails sent by write_email are kept in memory and printed at the end.
Preferences learned from edits and feedback are printed too, and kept in
--preferences (or preferences.file from the config) when set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runScenario(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.savePath, "save", "", "Write the session to this file")
	cmd.Flags().StringVar(&opts.preferences, "preferences", "", "Load and save learned preferences in this YAML file")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Prompt for review decisions the scenario does not script")

	return cmd
}

func runScenario(ctx context.Context, in io.Reader, out io.Writer, path string, opts runOptions) error {
	configureLogging(slog.LevelWarn)

	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}

	sa, err := newScenarioAssistant(ctx, sc, opts.preferences, nil)
	if err != nil {
		return err
	}
	defer sa.close(context.Background())

	s, err := sa.Process(ctx, sc.Email)
	if s == nil {
		return err
	}

	rv := &reviewer{
		scenario:    sc,
		interactive: opts.interactive,
		in:          bufio.NewReader(in),
		out:         out,
	}
	if err == nil {
		s, err = driveSession(ctx, sa.Assistant, s, rv)
	}

	if ferr := finishSession(out, sa, sc, s, rv.applied, opts.savePath); ferr != nil && err == nil {
		err = ferr
	}
	return err
}
