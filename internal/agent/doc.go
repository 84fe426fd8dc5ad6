// Package agent implements the triage, tool dispatch and human review loop
// that handles a single email.
//
// A Controller classifies the email and, when a response is warranted,
// repeatedly asks a reasoner for the next action. Each proposed tool call is
// checked by the Interpreter: malformed or unknown calls are rejected and
// reported back to the reasoner, auto-executable tools run immediately, and
// tools that require review pause the Session. A paused Session is a plain
// value: it can be stored, serialised and resumed later with a Decision.
//
// The loop ends when the terminal tool (Done) has executed, when the
// iteration cap is reached, or when the reasoner fails. It never ends
// implicitly.
//
//	ctrl, err := agent.NewController(registry, classifier, reasoner, agent.Config{MaxIterations: 10})
//	session, err := ctrl.Start(ctx, e)
//	for err == nil && session.Status == agent.StatusPaused {
//		session, err = ctrl.Resume(ctx, session, agent.Approve())
//	}
package agent
