package preferences

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RecordAndList(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(0)

	require.NoError(t, m.Record(ctx, Entry{Namespace: NamespaceResponse, Tool: "write_email", Decision: "edit", Note: "sign with Bob"}))
	require.NoError(t, m.Record(ctx, Entry{Namespace: NamespaceCalendar, Tool: "schedule_meeting", Decision: "feedback", Note: "prefer 30 minutes"}))
	require.NoError(t, m.Record(ctx, Entry{Namespace: NamespaceTriage, Decision: "reject", Note: "ignore CI mails"}))

	all, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.False(t, all[0].RecordedAt.IsZero())

	loop, err := m.List(ctx, NamespaceResponse, NamespaceCalendar)
	require.NoError(t, err)
	require.Len(t, loop, 2)
	assert.Equal(t, "sign with Bob", loop[0].Note)
	assert.Equal(t, "prefer 30 minutes", loop[1].Note)

	assert.Equal(t, 3, m.Len())
	assert.Len(t, m.Entries(), 3)
}

func TestMemoryStore_RejectsInvalidEntries(t *testing.T) {
	m := NewMemoryStore(0)
	assert.ErrorIs(t, m.Record(context.Background(), Entry{Namespace: "mood", Note: "x"}), ErrInvalidEntry)
	assert.ErrorIs(t, m.Record(context.Background(), Entry{Namespace: NamespaceResponse, Note: "  "}), ErrInvalidEntry)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Record(ctx, Entry{Namespace: NamespaceResponse, Note: "x"}), context.Canceled)
	_, err := m.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, m.Len())
}

func TestMemoryStore_LimitPerNamespace(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(2)
	for i := 0; i < 4; i++ {
		require.NoError(t, m.Record(ctx, Entry{Namespace: NamespaceResponse, Note: fmt.Sprintf("note %d", i)}))
	}
	require.NoError(t, m.Record(ctx, Entry{Namespace: NamespaceTriage, Note: "triage"}))

	response, err := m.List(ctx, NamespaceResponse)
	require.NoError(t, err)
	require.Len(t, response, 2)
	assert.Equal(t, "note 2", response[0].Note)
	assert.Equal(t, "note 3", response[1].Note)
	assert.Equal(t, 3, m.Len())
}

func TestNewMemoryStore_Seed(t *testing.T) {
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	m := NewMemoryStore(0,
		Entry{Namespace: NamespaceResponse, Note: "kept", RecordedAt: at},
		Entry{Namespace: "unknown", Note: "dropped"},
	)
	entries := m.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, at, entries[0].RecordedAt)
}

func TestFormat(t *testing.T) {
	assert.Empty(t, Format(nil))

	out := Format([]Entry{
		{Namespace: NamespaceResponse, Note: "sign with Bob"},
		{Namespace: NamespaceCalendar, Note: "no meetings before 10:00"},
	})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "- [response] sign with Bob", lines[1])
	assert.Equal(t, "- [calendar] no meetings before 10:00", lines[2])
}

func TestEditNote(t *testing.T) {
	before := map[string]any{"to": "alice@example.com", "subject": "Re: sync", "content": "Sure."}
	after := map[string]any{"to": "alice@example.com", "subject": "Re: sync", "content": "Sure, see you Tuesday. Bob", "cc": "carol@example.com"}

	note := EditNote("write_email", before, after)
	assert.Equal(t, `When using write_email the user set cc to "carol@example.com"; changed content from "Sure." to "Sure, see you Tuesday. Bob".`, note)

	assert.Empty(t, EditNote("write_email", before, before))
	assert.Contains(t, EditNote("write_email", before, map[string]any{"to": "alice@example.com"}), "removed content")

	long := strings.Repeat("x", 200)
	assert.Contains(t, EditNote("write_email", nil, map[string]any{"content": long}), strings.Repeat("x", 80)+"...")
}

func TestFeedbackNote(t *testing.T) {
	assert.Equal(t, "Feedback on schedule_meeting: keep it to 30 minutes", FeedbackNote("schedule_meeting", " keep it to 30 minutes "))
	assert.Empty(t, FeedbackNote("schedule_meeting", " "))
}
