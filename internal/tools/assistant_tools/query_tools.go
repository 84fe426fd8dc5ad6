package assistant_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/server"
	"github.com/teemow/inboxagent/internal/tools/common"
)

func getSessionTool() mcp.Tool {
	return mcp.NewTool(GetSessionToolName,
		mcp.WithDescription("Get the full state of a session: email, classification, conversation, "+
			"proposed calls with their dispositions and the pending review."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("ID of the session"),
		),
	)
}

func handleGetSession(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := common.RequiredStringArg(request.GetArguments(), "session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var result *mcp.CallToolResult
		err = sc.Sessions().View(sessionID, func(s *agent.Session) error {
			result, err = jsonResult(s)
			return err
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Session %s: %v", sessionID, err)), nil
		}
		return result, nil
	}
}

func listSessionsTool() mcp.Tool {
	return mcp.NewTool(ListSessionsToolName,
		mcp.WithDescription("List the sessions kept by the server, oldest first."),
		mcp.WithString("status",
			mcp.Description("Only list sessions with this status, e.g. paused"),
		),
	)
}

func handleListSessions(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status := strings.ToLower(common.StringArg(request.GetArguments(), "status"))

		sessions := sc.Sessions().List()
		if status != "" {
			filtered := sessions[:0]
			for _, sum := range sessions {
				if string(sum.Status) == status {
					filtered = append(filtered, sum)
				}
			}
			sessions = filtered
		}

		return jsonResult(map[string]any{
			"sessions": sessions,
			"count":    len(sessions),
		})
	}
}

// toolDescription describes a tool the agent can call.
type toolDescription struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Policy      string `json:"policy"`
	Terminal    bool   `json:"terminal,omitempty"`
	InputSchema any    `json:"input_schema"`
}

func listToolsTool() mcp.Tool {
	return mcp.NewTool(ListToolsToolName,
		mcp.WithDescription("List the tools the assistant can call with their review policy and input schema. "+
			"Use these names and arguments in assistant_process_email turns."),
	)
}

func handleListTools(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		registered := sc.Assistant().Registry().List()
		out := make([]toolDescription, 0, len(registered))
		for _, t := range registered {
			out = append(out, toolDescription{
				Name:        t.Name,
				Description: t.Description,
				Policy:      t.Policy.String(),
				Terminal:    t.Terminal,
				InputSchema: t.MCPTool("").InputSchema,
			})
		}
		return jsonResult(out)
	}
}
