package assistant_tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/email"
	"github.com/teemow/inboxagent/internal/reasoner"
	"github.com/teemow/inboxagent/internal/server"
	"github.com/teemow/inboxagent/internal/tools/common"
)

// Tool names.
const (
	ProcessEmailToolName   = "assistant_process_email"
	ReviewToolName         = "assistant_review"
	GetSessionToolName     = "assistant_get_session"
	ListSessionsToolName   = "assistant_list_sessions"
	AbandonSessionToolName = "assistant_abandon_session"
	ListToolsToolName      = "assistant_list_tools"
)

// RegisterAssistantTools registers the assistant tools with the MCP server.
// In read-only mode only the inspection tools are registered.
func RegisterAssistantTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if s == nil || sc == nil {
		return fmt.Errorf("mcp server and server context are required")
	}

	s.AddTool(getSessionTool(), common.InstrumentedToolHandler(GetSessionToolName, sc, handleGetSession(sc)))
	s.AddTool(listSessionsTool(), common.InstrumentedToolHandler(ListSessionsToolName, sc, handleListSessions(sc)))
	s.AddTool(listToolsTool(), common.InstrumentedToolHandler(ListToolsToolName, sc, handleListTools(sc)))

	if readOnly {
		return nil
	}

	s.AddTool(processEmailTool(), common.InstrumentedToolHandler(ProcessEmailToolName, sc, handleProcessEmail(sc)))
	s.AddTool(reviewTool(), common.InstrumentedToolHandler(ReviewToolName, sc, handleReview(sc)))
	s.AddTool(abandonSessionTool(), common.InstrumentedToolHandler(AbandonSessionToolName, sc, handleAbandonSession(sc)))

	return nil
}

// sessionResult is what the session-changing tools return.
type sessionResult struct {
	SessionID      string               `json:"session_id"`
	Status         agent.Status         `json:"status"`
	Classification email.Classification `json:"classification,omitempty"`
	Iterations     int                  `json:"iterations"`
	Pending        *agent.Review        `json:"pending,omitempty"`
	Calls          []agent.CallRecord   `json:"calls,omitempty"`
	Error          string               `json:"error,omitempty"`
}

func newSessionResult(s *agent.Session, err error) sessionResult {
	res := sessionResult{
		SessionID:      s.ID,
		Status:         s.Status,
		Classification: s.Classification,
		Iterations:     s.Iterations,
		Pending:        s.Pending,
		Calls:          s.Calls,
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// parseTurns accepts the turns either as a JSON array or as a JSON or YAML
// document holding one.
func parseTurns(raw any) ([]reasoner.Turn, error) {
	var data []byte
	switch v := raw.(type) {
	case nil:
		return nil, fmt.Errorf("turns is required")
	case string:
		data = []byte(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("invalid turns: %w", err)
		}
		data = encoded
	}

	var turns []reasoner.Turn
	if err := yaml.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("invalid turns: %w", err)
	}
	if len(turns) == 0 {
		return nil, fmt.Errorf("turns must contain at least one turn")
	}
	for i, turn := range turns {
		if err := turn.Validate(); err != nil {
			return nil, fmt.Errorf("turn %d: %w", i+1, err)
		}
	}
	return turns, nil
}

// parseArguments accepts edited arguments as an object or a JSON string.
func parseArguments(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		var args map[string]any
		if err := json.Unmarshal([]byte(v), &args); err != nil {
			return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
		}
		return args, nil
	}
	return nil, fmt.Errorf("arguments must be an object, got %T", raw)
}
