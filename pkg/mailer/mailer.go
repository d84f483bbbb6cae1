package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"appointments/pkg/logger"
	"appointments/pkg/model"

	"github.com/wneessen/go-mail"
)

const ConfirmationSubject = "Your Appointment Confirmation"

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<h2>Hello {{.Name}},</h2>
<p>Your appointment has been successfully booked.</p>
<p><strong>Date &amp; Time:</strong> {{.Datetime}}</p>
<p><strong>Phone:</strong> {{.Phone}}</p>
<p>Thank you!</p>
`))

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	FromName string
	Timeout  time.Duration
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPMailer sends booking confirmations through an authenticated SMTP relay.
type SMTPMailer struct {
	sender   sender
	from     string
	fromName string
	log      *logger.Logger
}

func NewSMTPMailer(cfg Config, log *logger.Logger) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	log.Info("SMTP mailer configured", "host", cfg.Host, "port", cfg.Port, "from", cfg.Username)

	return &SMTPMailer{
		sender:   client,
		from:     cfg.Username,
		fromName: cfg.FromName,
		log:      log,
	}, nil
}

// RenderConfirmation returns the HTML body of a confirmation. Values are
// escaped.
func RenderConfirmation(c model.BookingConfirmed) (string, error) {
	var buf bytes.Buffer
	if err := confirmationTemplate.Execute(&buf, c); err != nil {
		return "", fmt.Errorf("failed to render confirmation: %w", err)
	}
	return buf.String(), nil
}

func (m *SMTPMailer) SendConfirmation(ctx context.Context, to string, c model.BookingConfirmed) error {
	body, err := RenderConfirmation(c)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(m.fromName, m.from); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(ConfirmationSubject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	if err := m.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send confirmation: %w", err)
	}

	m.log.Debug("Confirmation email sent", "datetime", c.Datetime)
	return nil
}
