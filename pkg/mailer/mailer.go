package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Message is one outbound email.
type Message struct {
	ToName    string
	ToAddress string
	Subject   string
	BodyHTML  string
}

// Mailer delivers notification emails.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SendGrid sends mail through the SendGrid v3 API.
type SendGrid struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

// NewSendGrid creates a SendGrid-backed mailer.
func NewSendGrid(apiKey, fromName, fromAddress string) *SendGrid {
	return &SendGrid{
		client: sendgrid.NewSendClient(apiKey),
		from:   sgmail.NewEmail(fromName, fromAddress),
	}
}

// Send delivers one message, failing on any non-2xx API response.
func (m *SendGrid) Send(ctx context.Context, msg Message) error {
	to := sgmail.NewEmail(msg.ToName, msg.ToAddress)
	mail := sgmail.NewSingleEmail(m.from, msg.Subject, to, "", msg.BodyHTML)
	resp, err := m.client.SendWithContext(ctx, mail)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// Console logs messages instead of sending them. Used when no API key is
// configured (local development).
type Console struct {
	logger *zap.Logger
}

// NewConsole creates a log-only mailer.
func NewConsole(logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{logger: logger}
}

// Send logs the message.
func (m *Console) Send(_ context.Context, msg Message) error {
	m.logger.Info("email (console mailer)",
		zap.String("to", msg.ToAddress),
		zap.String("subject", msg.Subject),
	)
	return nil
}
