package assistant_tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/email"
	"github.com/teemow/inboxagent/internal/reasoner"
	"github.com/teemow/inboxagent/internal/server"
	"github.com/teemow/inboxagent/internal/tools/common"
)

func processEmailTool() mcp.Tool {
	return mcp.NewTool(ProcessEmailToolName,
		mcp.WithDescription("Triage an email and run the assistant on it. The assistant's actions are "+
			"given as scripted turns. Returns the session; a session with status 'paused' waits for "+
			"assistant_review."),
		mcp.WithString("from",
			mcp.Required(),
			mcp.Description("Sender address"),
		),
		mcp.WithString("to",
			mcp.Description("Recipient address"),
		),
		mcp.WithString("subject",
			mcp.Description("Email subject"),
		),
		mcp.WithString("body",
			mcp.Description("Email body"),
		),
		mcp.WithString("thread_id",
			mcp.Description("Thread the email belongs to"),
		),
		mcp.WithString("turns",
			mcp.Required(),
			mcp.Description("Scripted reasoner turns as a JSON or YAML list. Each turn is either "+
				"{\"tool\": name, \"args\": {...}} or {\"text\": \"...\"}"),
		),
		mcp.WithString("triage",
			mcp.Description("Answer to the triage prompt (ignore, notify or respond). Keyword rules decide when omitted."),
			mcp.Enum(string(email.ClassificationIgnore), string(email.ClassificationNotify), string(email.ClassificationRespond)),
		),
	)
}

func handleProcessEmail(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		e := email.Email{
			From:     common.StringArg(args, "from"),
			To:       common.StringArg(args, "to"),
			Subject:  common.StringArg(args, "subject"),
			Body:     common.StringArg(args, "body"),
			ThreadID: common.StringArg(args, "thread_id"),
		}
		if err := e.Validate(); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid email: %v", err)), nil
		}

		turns, err := parseTurns(args["turns"])
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var triageReasoner reasoner.Reasoner
		if raw := common.StringArg(args, "triage"); raw != "" {
			c, err := email.ParseClassification(raw)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			triageReasoner = reasoner.Static{Answer: reasoner.Proposal{Text: string(c)}}
		}

		r := reasoner.NewScripted(turns...)
		s, err := sc.Assistant().ProcessWithTriage(ctx, e, r, triageReasoner)
		if s == nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to process email: %v", err)), nil
		}
		sc.Sessions().Put(s, r)

		return jsonResult(newSessionResult(s, err))
	}
}

func reviewTool() mcp.Tool {
	return mcp.NewTool(ReviewToolName,
		mcp.WithDescription("Answer the pending review of a paused session and continue it."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("ID of the paused session"),
		),
		mcp.WithString("decision",
			mcp.Required(),
			mcp.Description("approve, edit, reject or respond_with_feedback. Edit is not available for notification reviews."),
			mcp.Enum(string(agent.DecisionApprove), string(agent.DecisionEdit), string(agent.DecisionReject), string(agent.DecisionFeedback)),
		),
		mcp.WithObject("arguments",
			mcp.Description("Replacement arguments for edit"),
		),
		mcp.WithString("reason",
			mcp.Description("Why the call is rejected"),
		),
		mcp.WithString("feedback",
			mcp.Description("Feedback for respond_with_feedback"),
		),
	)
}

func handleReview(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		sessionID, err := common.RequiredStringArg(args, "session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		kind, err := agent.ParseDecisionKind(common.StringArg(args, "decision"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		editArgs, err := parseArguments(args["arguments"])
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		d := agent.Decision{
			Kind:      kind,
			Arguments: editArgs,
			Reason:    common.StringArg(args, "reason"),
			Feedback:  common.StringArg(args, "feedback"),
		}

		s, r, err := sc.Sessions().Acquire(sessionID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Session %s: %v", sessionID, err)), nil
		}
		defer sc.Sessions().Release(sessionID)

		s, err = sc.Assistant().ResumeWith(ctx, s, d, r)
		switch {
		case errors.Is(err, agent.ErrInvalidDecision), errors.Is(err, agent.ErrNotPaused), errors.Is(err, agent.ErrSessionClosed):
			return mcp.NewToolResultError(err.Error()), nil
		case s == nil:
			return mcp.NewToolResultError(fmt.Sprintf("Failed to resume session: %v", err)), nil
		}

		return jsonResult(newSessionResult(s, err))
	}
}

func abandonSessionTool() mcp.Tool {
	return mcp.NewTool(AbandonSessionToolName,
		mcp.WithDescription("Abandon an open session. A pending tool call is never executed."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("ID of the session to abandon"),
		),
		mcp.WithString("reason",
			mcp.Description("Why the session is abandoned"),
		),
	)
}

func handleAbandonSession(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		sessionID, err := common.RequiredStringArg(args, "session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		reason := common.StringArg(args, "reason")
		if reason == "" {
			reason = "abandoned by client"
		}

		s, _, err := sc.Sessions().Acquire(sessionID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Session %s: %v", sessionID, err)), nil
		}
		defer sc.Sessions().Release(sessionID)

		if err := sc.Assistant().Abandon(ctx, s, reason); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(newSessionResult(s, nil))
	}
}
