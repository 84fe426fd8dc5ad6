package email_tools

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxagent/internal/tool"
)

type failingOutbox struct{}

func (failingOutbox) Send(context.Context, OutgoingEmail) (string, error) {
	return "", errors.New("smtp unavailable")
}

func TestRegister(t *testing.T) {
	reg := tool.NewRegistry()
	require.NoError(t, Register(reg, NewMemoryOutbox()))

	for _, name := range []string{TriageEmailName, WriteEmailName, DoneName} {
		_, err := reg.Resolve(name)
		assert.NoError(t, err, name)
	}

	done, _ := reg.Resolve(DoneName)
	assert.True(t, done.Terminal)

	write, _ := reg.Resolve(WriteEmailName)
	assert.Equal(t, tool.PolicyReview, write.Policy)

	assert.Error(t, Register(tool.NewRegistry(), nil))
	assert.ErrorIs(t, Register(reg, NewMemoryOutbox()), tool.ErrDuplicateTool)
}

func TestWriteEmail(t *testing.T) {
	outbox := NewMemoryOutbox()
	out, err := WriteEmail(outbox).Execute(context.Background(), map[string]any{
		"to":      "x@x.com",
		"subject": "Re: Schedule sync",
		"content": "Works for me.",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Email sent to x@x.com")

	sent := outbox.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Re: Schedule sync", sent[0].Subject)
	assert.NotEmpty(t, sent[0].ID)
	assert.False(t, sent[0].SentAt.IsZero())
}

func TestWriteEmail_Failure(t *testing.T) {
	_, err := WriteEmail(failingOutbox{}).Execute(context.Background(), map[string]any{
		"to": "x@x.com", "subject": "s", "content": "c",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp unavailable")
}

func TestWriteEmailSpec_RejectsMissingFields(t *testing.T) {
	spec := WriteEmailSpec()
	err := spec.Schema.Validate(spec.Name, map[string]any{"to": "x@x.com"})
	assert.ErrorIs(t, err, tool.ErrSchemaViolation)
}

func TestTriageEmail(t *testing.T) {
	out, err := TriageEmail().Execute(context.Background(), map[string]any{
		"classification": "respond",
		"reasoning":      "direct question",
	})
	require.NoError(t, err)
	assert.Equal(t, "Classification decision: respond (direct question)", out)

	_, err = TriageEmail().Execute(context.Background(), map[string]any{"classification": "archive"})
	assert.Error(t, err)
}

func TestTriageEmailSpec_Enum(t *testing.T) {
	spec := TriageEmailSpec()
	assert.NoError(t, spec.Schema.Validate(spec.Name, map[string]any{"classification": "notify"}))
	assert.ErrorIs(t, spec.Schema.Validate(spec.Name, map[string]any{"classification": "later"}), tool.ErrSchemaViolation)
}

func TestDone(t *testing.T) {
	out, err := Done().Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestMemoryOutbox_RequiresRecipient(t *testing.T) {
	_, err := NewMemoryOutbox().Send(context.Background(), OutgoingEmail{Subject: "x"})
	assert.Error(t, err)
}

func TestLoggingOutbox(t *testing.T) {
	var buf bytes.Buffer
	outbox := NewLoggingOutbox(slog.New(slog.NewTextHandler(&buf, nil)))

	id, err := outbox.Send(context.Background(), OutgoingEmail{To: "alice@example.com", Subject: "Re: Report"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Len(t, outbox.Sent(), 1)
	assert.Contains(t, buf.String(), "Email sent")
	assert.Contains(t, buf.String(), "operation=send_email")
	assert.Contains(t, buf.String(), "recipient=user:")
	assert.NotContains(t, buf.String(), "alice@example.com")

	buf.Reset()
	_, err = outbox.Send(context.Background(), OutgoingEmail{})
	assert.Error(t, err)
	assert.Empty(t, buf.String())
}
