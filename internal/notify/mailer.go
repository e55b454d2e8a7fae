// Package notify delivers transactional e-mail without blocking callers.
//
// Dispatcher.Send wraps each message in a background task; delivery failures
// and a full queue are logged and never reported to the caller.
package notify

import (
	"context"
	"log/slog"

	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
)

// Message is one outgoing e-mail.
type Message struct {
	To      string `json:"to"`
	ToName  string `json:"to_name,omitempty"`
	Subject string `json:"subject"`
	HTML    string `json:"-"`
	// ReplyTo directs replies somewhere other than the sender address.
	ReplyTo string `json:"reply_to,omitempty"`
}

// Mailer delivers a message synchronously.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of sending them. It is used
// when no e-mail provider is configured.
type LogMailer struct {
	logger *slog.Logger
}

var _ Mailer = (*LogMailer)(nil)

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger.With(slog.String("component", "log_mailer"))}
}

// Send implements Mailer
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	logger.FromContextOrDefault(ctx, m.logger).Info("e-mail not sent: no provider configured",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.Int("body_bytes", len(msg.HTML)))
	return nil
}
