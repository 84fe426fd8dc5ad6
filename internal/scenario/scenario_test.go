package scenario

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/assistant"
	"github.com/teemow/inboxagent/internal/preferences"
	"github.com/teemow/inboxagent/internal/reasoner"
)

const scheduleSync = `
name: schedule sync
email:
  from: alice@example.com
  to: me@example.com
  subject: Schedule sync
  body: Can we meet on June 1st?
triage: respond
turns:
  - tool: check_calendar_availability
    args:
      date: "2024-06-01"
  - tool: schedule_meeting
    args:
      attendees: [alice@example.com]
      date: "2024-06-01"
      time: "10:00"
      duration: 30
  - tool: Done
decisions:
  - kind: approve
`

func TestParse(t *testing.T) {
	sc, err := Parse([]byte(scheduleSync))
	require.NoError(t, err)

	assert.Equal(t, "schedule sync", sc.Name)
	assert.Equal(t, "Schedule sync", sc.Email.Subject)
	require.Len(t, sc.Turns, 3)
	assert.Equal(t, "schedule_meeting", sc.Turns[1].Tool)
	assert.Equal(t, 30, sc.Turns[1].Args["duration"])

	d, ok := sc.Decision(0)
	require.True(t, ok)
	assert.Equal(t, agent.DecisionApprove, d.Kind)
	_, ok = sc.Decision(1)
	assert.False(t, ok)

	p, err := sc.TriageReasoner().Propose(context.Background(), reasoner.Request{})
	require.NoError(t, err)
	assert.Equal(t, "respond", p.Text)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"not yaml":      "email: [",
		"empty email":   "email: {from: a@b.c}\n",
		"bad triage":    "email: {from: a@b.c, subject: hi}\ntriage: maybe\n",
		"empty turn":    "email: {from: a@b.c, subject: hi}\nturns:\n  - {}\n",
		"tool and text": "email: {from: a@b.c, subject: hi}\nturns:\n  - {tool: Done, text: bye}\n",
		"bad decision":  "email: {from: a@b.c, subject: hi}\ndecisions:\n  - kind: later\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestScenario_DrivesAssistant(t *testing.T) {
	sc, err := Parse([]byte(scheduleSync))
	require.NoError(t, err)

	a, err := assistant.New(context.Background(), assistant.DefaultConfig(), assistant.Options{
		Reasoner: sc.Reasoner(),
		Triage:   sc.TriageReasoner(),
	})
	require.NoError(t, err)

	s, err := a.Process(context.Background(), sc.Email)
	require.NoError(t, err)
	require.True(t, s.Paused())

	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, SaveSession(path, sc, s, 0))

	saved, err := LoadSession(path)
	require.NoError(t, err)
	assert.Equal(t, s.ID, saved.Session.ID)
	assert.True(t, saved.Session.Paused())
	assert.Equal(t, "schedule_meeting", saved.Session.Pending.Call.Name)

	d, ok := saved.Scenario.Decision(saved.Applied)
	require.True(t, ok)
	out, err := a.ResumeWith(context.Background(), &saved.Session, d, saved.Scenario.Reasoner())
	require.NoError(t, err)
	assert.Equal(t, agent.StatusCompleted, out.Status)
	assert.Len(t, out.Executed(), 3)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadSession(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("applied: 0\n"), 0o600))
	_, err = LoadSession(empty)
	assert.Error(t, err)

	assert.Error(t, SaveSession(empty, nil, nil, 0))
}

func TestPreferences_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")

	store, err := LoadPreferences(path, 0)
	require.NoError(t, err, "a missing file is an empty store")
	assert.Zero(t, store.Len())

	ctx := context.Background()
	require.NoError(t, store.Record(ctx, preferences.Entry{
		Namespace: preferences.NamespaceResponse,
		Tool:      "write_email",
		Decision:  "edit",
		Note:      "sign emails with Bob",
	}))
	require.NoError(t, store.Record(ctx, preferences.Entry{
		Namespace: preferences.NamespaceTriage,
		Decision:  "reject",
		Note:      "CI emails need no response",
	}))
	require.NoError(t, SavePreferences(path, store))

	loaded, err := LoadPreferences(path, 1)
	require.NoError(t, err)
	entries := loaded.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "sign emails with Bob", entries[0].Note)
	assert.Equal(t, "write_email", entries[0].Tool)
	assert.Equal(t, preferences.NamespaceTriage, entries[1].Namespace)

	assert.Error(t, SavePreferences(path, nil))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("entries:\n  - namespace: mood\n    note: x\n"), 0o600))
	_, err = LoadPreferences(bad, 0)
	assert.ErrorIs(t, err, preferences.ErrInvalidEntry)
}

func TestSaveSession_KeepsPreferences(t *testing.T) {
	sc, err := Parse([]byte(scheduleSync))
	require.NoError(t, err)
	s := &agent.Session{ID: "s-1", Email: sc.Email, Status: agent.StatusPaused}

	path := filepath.Join(t.TempDir(), "session.yaml")
	entry := preferences.Entry{Namespace: preferences.NamespaceCalendar, Decision: "feedback", Note: "mornings only"}
	require.NoError(t, SaveSession(path, sc, s, 1, entry))

	saved, err := LoadSession(path)
	require.NoError(t, err)
	require.Len(t, saved.Preferences, 1)
	assert.Equal(t, "mornings only", saved.Preferences[0].Note)
	assert.Equal(t, 1, saved.Applied)
}
