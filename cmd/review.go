package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/preferences"
	"github.com/teemow/inboxagent/internal/scenario"
	"github.com/teemow/inboxagent/internal/tools/email_tools"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	statusDone    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusPaused  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusFailed  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusNeutral = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func styleForStatus(status agent.Status) lipgloss.Style {
	switch status {
	case agent.StatusCompleted:
		return statusDone
	case agent.StatusPaused, agent.StatusRunning:
		return statusPaused
	case agent.StatusFailed, agent.StatusMaxIterations:
		return statusFailed
	default:
		return statusNeutral
	}
}

// renderReview draws the pending review of a paused session.
func renderReview(s *agent.Session) string {
	r := s.Pending
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Session:"), s.ID)
	fmt.Fprintf(&b, "%s %s <%s>\n", labelStyle.Render("Email:"), s.Email.Subject, s.Email.From)

	if r.Kind == agent.ReviewNotification {
		fmt.Fprintf(&b, "\nThis email was classified as %s.\n", s.Classification)
		b.WriteString("Approve or give feedback to respond to it, reject to leave it.\n")
	} else {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Tool:"), r.Call.Name)
		if r.Description != "" {
			fmt.Fprintf(&b, "%s\n", helpStyle.Render(r.Description))
		}
		b.WriteString(labelStyle.Render("Arguments:") + "\n")
		b.WriteString(formatArguments(r.Call.Arguments))
	}

	return titleStyle.Render("Review required") + "\n" + panelStyle.Render(strings.TrimRight(b.String(), "\n")) + "\n"
}

func formatArguments(args map[string]any) string {
	if len(args) == 0 {
		return "  (none)\n"
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %v\n", k, args[k])
	}
	return b.String()
}

// renderSummary prints the outcome of a session and the emails it sent.
func renderSummary(s *agent.Session, sent []email_tools.OutgoingEmail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Session:"), s.ID)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Classification:"), s.Classification)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Status:"), styleForStatus(s.Status).Render(string(s.Status)))
	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("Iterations:"), s.Iterations)
	if s.Error != "" {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Error:"), s.Error)
	}

	if len(s.Calls) > 0 {
		b.WriteString(labelStyle.Render("Calls:") + "\n")
		for i, rec := range s.Calls {
			line := fmt.Sprintf("  %d. %s %s", i+1, rec.Call.Name, rec.Disposition)
			if rec.Decision != "" {
				line += fmt.Sprintf(" (%s)", rec.Decision)
			}
			if rec.Reason != "" {
				line += ": " + rec.Reason
			}
			b.WriteString(line + "\n")
		}
	}

	for _, e := range sent {
		fmt.Fprintf(&b, "%s to %s: %s\n", labelStyle.Render("Sent:"), e.To, e.Subject)
	}

	return titleStyle.Render("Result") + "\n" + panelStyle.Render(strings.TrimRight(b.String(), "\n")) + "\n"
}

// renderLearned lists preferences learned during the session.
func renderLearned(entries []preferences.Entry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("["+string(e.Namespace)+"]"), e.Note)
	}
	return titleStyle.Render("Learned preferences") + "\n" + panelStyle.Render(strings.TrimRight(b.String(), "\n")) + "\n"
}

// errNoDecision is returned when interactive input ends before a decision.
var errNoDecision = errors.New("no review decision given")

// reviewer supplies decisions for paused sessions: first an explicit one,
// then the scenario's scripted decisions, then, when interactive, prompts.
type reviewer struct {
	explicit    *agent.Decision
	scenario    *scenario.Scenario
	applied     int
	interactive bool
	in          *bufio.Reader
	out         io.Writer
}

// next returns the decision for the pending review. ok is false when no
// decision is available and the session should stay paused.
func (rv *reviewer) next(review *agent.Review) (d agent.Decision, ok bool, err error) {
	if rv.explicit != nil {
		d, rv.explicit = *rv.explicit, nil
		return d, true, nil
	}
	if d, ok := rv.scenario.Decision(rv.applied); ok {
		rv.applied++
		fmt.Fprintf(rv.out, "%s %s\n", helpStyle.Render("Scripted decision:"), d.Summary())
		return d, true, nil
	}
	if !rv.interactive {
		return agent.Decision{}, false, nil
	}
	d, err = promptDecision(rv.in, rv.out, review)
	if err != nil {
		return agent.Decision{}, false, err
	}
	return d, true, nil
}

// promptDecision asks for a decision on one line, plus a follow-up line for
// edit, reject and feedback.
func promptDecision(in *bufio.Reader, out io.Writer, review *agent.Review) (agent.Decision, error) {
	choices := make([]string, 0, 4)
	for _, k := range review.Allowed() {
		choices = append(choices, decisionChoice(k))
	}
	fmt.Fprintf(out, "Decision %s: ", strings.Join(choices, ", "))

	answer, err := readLine(in)
	if err != nil {
		return agent.Decision{}, err
	}
	kind, err := parseDecisionAnswer(answer)
	if err != nil {
		return agent.Decision{}, err
	}

	switch kind {
	case agent.DecisionEdit:
		fmt.Fprint(out, "New arguments (JSON object): ")
		line, err := readLine(in)
		if err != nil {
			return agent.Decision{}, err
		}
		args, err := parseArgsJSON(line)
		if err != nil {
			return agent.Decision{}, err
		}
		return agent.Edit(args), nil
	case agent.DecisionReject:
		fmt.Fprint(out, "Reason (optional): ")
		line, err := readLine(in)
		if err != nil && !errors.Is(err, errNoDecision) {
			return agent.Decision{}, err
		}
		return agent.Reject(line), nil
	case agent.DecisionFeedback:
		fmt.Fprint(out, "Feedback: ")
		line, err := readLine(in)
		if err != nil {
			return agent.Decision{}, err
		}
		return agent.RespondWithFeedback(line), nil
	}
	return agent.Approve(), nil
}

func decisionChoice(k agent.DecisionKind) string {
	switch k {
	case agent.DecisionApprove:
		return "[a]pprove"
	case agent.DecisionEdit:
		return "[e]dit"
	case agent.DecisionReject:
		return "[r]eject"
	}
	return "[f]eedback"
}

// parseDecisionAnswer accepts the one-letter shortcuts and every spelling
// agent.ParseDecisionKind accepts.
func parseDecisionAnswer(answer string) (agent.DecisionKind, error) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "a", "y", "yes":
		return agent.DecisionApprove, nil
	case "e":
		return agent.DecisionEdit, nil
	case "r", "n", "no":
		return agent.DecisionReject, nil
	case "f":
		return agent.DecisionFeedback, nil
	}
	return agent.ParseDecisionKind(answer)
}

func parseArgsJSON(s string) (map[string]any, error) {
	var args map[string]any
	if err := json.Unmarshal([]byte(s), &args); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	return args, nil
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", errNoDecision
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
