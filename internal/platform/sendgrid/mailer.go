// Package sendgrid delivers notify.Message values through the SendGrid v3 mail API.
package sendgrid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sg "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/phrazzld/pantognostis-api/internal/config"
	"github.com/phrazzld/pantognostis-api/internal/notify"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
)

const (
	defaultHost  = "https://api.sendgrid.com"
	sendEndpoint = "/v3/mail/send"
)

// ErrMissingAPIKey is returned when the mailer is built without credentials.
var ErrMissingAPIKey = errors.New("sendgrid API key is required")

// Mailer implements notify.Mailer.
type Mailer struct {
	apiKey   string
	host     string
	fromAddr string
	fromName string
	logger   *slog.Logger
}

var _ notify.Mailer = (*Mailer)(nil)

// NewMailer creates a SendGrid mailer from the e-mail configuration.
func NewMailer(cfg config.EmailConfig, logger *slog.Logger) (*Mailer, error) {
	if strings.TrimSpace(cfg.SendGridAPIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	host := strings.TrimRight(cfg.SendGridHost, "/")
	if host == "" {
		host = defaultHost
	}
	return &Mailer{
		apiKey:   cfg.SendGridAPIKey,
		host:     host,
		fromAddr: cfg.FromAddress,
		fromName: cfg.FromName,
		logger:   logger.With(slog.String("component", "sendgrid_mailer")),
	}, nil
}

// Send implements notify.Mailer
func (m *Mailer) Send(ctx context.Context, msg notify.Message) error {
	log := logger.FromContextOrDefault(ctx, m.logger)

	from := mail.NewEmail(m.fromName, m.fromAddr)
	to := mail.NewEmail(msg.ToName, msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, "", msg.HTML)
	if msg.ReplyTo != "" {
		message.SetReplyTo(mail.NewEmail("", msg.ReplyTo))
	}

	request := sg.GetRequest(m.apiKey, sendEndpoint, m.host)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(message)

	response, err := sg.MakeRequestWithContext(ctx, request)
	if err != nil {
		log.Error("sendgrid request failed",
			slog.String("error", err.Error()),
			slog.String("subject", msg.Subject))
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if response.StatusCode >= 300 {
		log.Error("sendgrid rejected message",
			slog.Int("status", response.StatusCode),
			slog.String("subject", msg.Subject))
		return fmt.Errorf("sendgrid rejected message: status %d", response.StatusCode)
	}

	log.Debug("e-mail delivered",
		slog.Int("status", response.StatusCode),
		slog.String("subject", msg.Subject))
	return nil
}
