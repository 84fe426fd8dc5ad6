package email_tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/inboxagent/internal/logging"
)

// OutgoingEmail is a message produced by write_email.
type OutgoingEmail struct {
	ID      string    `json:"id"`
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
}

// Outbox delivers outgoing emails.
type Outbox interface {
	Send(ctx context.Context, msg OutgoingEmail) (string, error)
}

// MemoryOutbox records sent emails in memory. It is safe for concurrent use.
type MemoryOutbox struct {
	mu   sync.Mutex
	sent []OutgoingEmail
	now  func() time.Time
}

// NewMemoryOutbox creates an empty outbox.
func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{now: time.Now}
}

// Send stores msg and returns its id.
func (o *MemoryOutbox) Send(ctx context.Context, msg OutgoingEmail) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if msg.To == "" {
		return "", fmt.Errorf("recipient is required")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.SentAt = o.now()
	o.sent = append(o.sent, msg)
	return msg.ID, nil
}

// Sent returns a copy of all sent emails in send order.
func (o *MemoryOutbox) Sent() []OutgoingEmail {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]OutgoingEmail(nil), o.sent...)
}

// LoggingOutbox is a MemoryOutbox that also logs every email it sends.
type LoggingOutbox struct {
	*MemoryOutbox
	logger *slog.Logger
}

// NewLoggingOutbox creates an empty outbox logging to logger, or to the
// default logger when logger is nil.
func NewLoggingOutbox(logger *slog.Logger) *LoggingOutbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingOutbox{MemoryOutbox: NewMemoryOutbox(), logger: logger}
}

// Send stores msg and logs it with the recipient hashed.
func (o *LoggingOutbox) Send(ctx context.Context, msg OutgoingEmail) (string, error) {
	id, err := o.MemoryOutbox.Send(ctx, msg)
	if err != nil {
		return "", err
	}
	logging.WithOperation(o.logger, "send_email").Info("Email sent",
		slog.String("email_id", id),
		slog.String("recipient", logging.AnonymizeEmail(msg.To)))
	return id, nil
}
