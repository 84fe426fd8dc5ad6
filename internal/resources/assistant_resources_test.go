package resources

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/assistant"
	"github.com/teemow/inboxagent/internal/email"
	"github.com/teemow/inboxagent/internal/preferences"
	"github.com/teemow/inboxagent/internal/reasoner"
	"github.com/teemow/inboxagent/internal/server"
)

func newServerContext(t *testing.T) *server.ServerContext {
	t.Helper()
	a, err := assistant.New(context.Background(), assistant.DefaultConfig(), assistant.Options{})
	require.NoError(t, err)
	sc := server.NewServerContext(context.Background(), a, server.NewSessionStore(time.Hour, nil, nil))
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func readRequest(uri string) mcp.ReadResourceRequest {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	return req
}

func decode(t *testing.T, contents []mcp.ResourceContents, v any) {
	t.Helper()
	require.Len(t, contents, 1)
	tc, ok := contents[0].(*mcp.TextResourceContents)
	require.True(t, ok, "expected text contents, got %T", contents[0])
	assert.Equal(t, "application/json", tc.MIMEType)
	require.NoError(t, json.Unmarshal([]byte(tc.Text), v))
}

func TestRegisterAssistantResources(t *testing.T) {
	sc := newServerContext(t)
	s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithResourceCapabilities(false, false))

	require.NoError(t, RegisterAssistantResources(s, sc))
	assert.Error(t, RegisterAssistantResources(nil, sc))
	assert.Error(t, RegisterAssistantResources(s, nil))
}

func TestConfigResource(t *testing.T) {
	sc := newServerContext(t)

	contents, err := handleConfig(readRequest(ConfigURI), sc)
	require.NoError(t, err)

	var view configView
	decode(t, contents, &view)
	assert.Equal(t, agent.DefaultMaxIterations, view.MaxIterations)
	assert.Equal(t, assistant.BackendMemory, view.CalendarBackend)
	assert.Equal(t, "1h0m0s", view.SessionTTL)

	policies := map[string]string{}
	for _, tp := range view.Tools {
		policies[tp.Name] = tp.Policy
	}
	assert.Equal(t, "review", policies["write_email"])
	assert.Equal(t, "auto", policies["check_calendar_availability"])
}

func TestSessionResource(t *testing.T) {
	sc := newServerContext(t)

	r := reasoner.NewScripted(reasoner.Turn{
		Tool: "write_email",
		Args: map[string]any{"to": "alice@example.com", "subject": "Re: Report", "content": "Friday."},
	})
	s, err := sc.Assistant().ProcessWith(context.Background(), email.Email{
		From:    "alice@example.com",
		To:      "me@example.com",
		Subject: "Report",
		Body:    "Could you please send me the report?",
	}, r)
	require.NoError(t, err)
	require.True(t, s.Paused())
	sc.Sessions().Put(s, r)

	contents, err := handleSession(readRequest(sessionURIPrefix+s.ID), sc)
	require.NoError(t, err)
	var got agent.Session
	decode(t, contents, &got)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, agent.StatusPaused, got.Status)

	contents, err = jsonContents(SessionsURI, sc.Sessions().List())
	require.NoError(t, err)
	var list []server.SessionSummary
	decode(t, contents, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "write_email", list[0].PendingTool)

	_, err = handleSession(readRequest(sessionURIPrefix+"missing"), sc)
	assert.ErrorIs(t, err, server.ErrSessionNotFound)

	_, err = handleSession(readRequest("assistant://other/x"), sc)
	assert.Error(t, err)
}

func TestPreferencesResource(t *testing.T) {
	sc := newServerContext(t)

	contents, err := handlePreferences(context.Background(), readRequest(PreferencesURI), sc)
	require.NoError(t, err)
	var empty []preferences.Entry
	decode(t, contents, &empty)
	assert.Empty(t, empty)

	require.NoError(t, sc.Assistant().Preferences().Record(context.Background(), preferences.Entry{
		Namespace: preferences.NamespaceResponse,
		Tool:      "write_email",
		Decision:  "edit",
		Note:      "sign emails with Bob",
	}))

	contents, err = handlePreferences(context.Background(), readRequest(PreferencesURI), sc)
	require.NoError(t, err)
	var entries []preferences.Entry
	decode(t, contents, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, "sign emails with Bob", entries[0].Note)
	assert.Equal(t, preferences.NamespaceResponse, entries[0].Namespace)
}
