package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/preferences"
	"github.com/teemow/inboxagent/internal/server"
)

const (
	ConfigURI          = "assistant://config"
	PreferencesURI     = "assistant://preferences"
	SessionsURI        = "assistant://sessions"
	sessionURIPrefix   = SessionsURI + "/"
	SessionURITemplate = sessionURIPrefix + "{id}"
)

// RegisterAssistantResources registers the configuration and session
// resources.
func RegisterAssistantResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if s == nil || sc == nil {
		return fmt.Errorf("mcp server and server context are required")
	}

	configResource := mcp.NewResource(
		ConfigURI,
		"Assistant Configuration",
		mcp.WithResourceDescription("Iteration cap, calendar backend and the review policy of every tool"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(configResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleConfig(request, sc)
	})

	preferencesResource := mcp.NewResource(
		PreferencesURI,
		"Learned Preferences",
		mcp.WithResourceDescription("Preferences learned from review edits and feedback"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(preferencesResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handlePreferences(ctx, request, sc)
	})

	sessionsResource := mcp.NewResource(
		SessionsURI,
		"Sessions",
		mcp.WithResourceDescription("Summaries of the sessions kept by the server"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(sessionsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonContents(request.Params.URI, sc.Sessions().List())
	})

	sessionTemplate := mcp.NewResourceTemplate(
		SessionURITemplate,
		"Session",
		mcp.WithTemplateDescription("Full state of one session"),
		mcp.WithTemplateMIMEType("application/json"),
	)
	s.AddResourceTemplate(sessionTemplate, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleSession(request, sc)
	})

	return nil
}

type toolPolicy struct {
	Name     string `json:"name"`
	Policy   string `json:"policy"`
	Terminal bool   `json:"terminal,omitempty"`
}

type configView struct {
	MaxIterations   int          `json:"max_iterations"`
	NotifyReview    bool         `json:"notify_review"`
	CalendarBackend string       `json:"calendar_backend"`
	WorkingHours    string       `json:"working_hours"`
	Timezone        string       `json:"timezone"`
	SessionTTL      string       `json:"session_ttl"`
	Tools           []toolPolicy `json:"tools"`
}

func handleConfig(request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	a := sc.Assistant()
	if a == nil {
		return nil, fmt.Errorf("no assistant configured")
	}
	cfg := a.Config()

	view := configView{
		MaxIterations:   cfg.MaxIterations,
		NotifyReview:    cfg.NotifyReview,
		CalendarBackend: cfg.Calendar.Backend,
		WorkingHours:    cfg.Calendar.WorkingHours,
		Timezone:        cfg.Calendar.Timezone,
		SessionTTL:      sc.Sessions().TTL().String(),
	}
	for _, t := range a.Registry().List() {
		view.Tools = append(view.Tools, toolPolicy{Name: t.Name, Policy: t.Policy.String(), Terminal: t.Terminal})
	}
	return jsonContents(request.Params.URI, view)
}

func handlePreferences(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	a := sc.Assistant()
	if a == nil {
		return nil, fmt.Errorf("no assistant configured")
	}
	entries := []preferences.Entry{}
	if store := a.Preferences(); store != nil {
		listed, err := store.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list preferences: %w", err)
		}
		entries = append(entries, listed...)
	}
	return jsonContents(request.Params.URI, entries)
}

func handleSession(request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	id, ok := strings.CutPrefix(request.Params.URI, sessionURIPrefix)
	if !ok || id == "" {
		return nil, fmt.Errorf("invalid session URI %q", request.Params.URI)
	}

	var contents []mcp.ResourceContents
	err := sc.Sessions().View(id, func(s *agent.Session) error {
		var err error
		contents, err = jsonContents(request.Params.URI, s)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	return contents, nil
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
