// Package notify sends transactional email.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Mailer sends one HTML message.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPConfig holds the SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPMailer delivers mail through an SMTP relay with gomail.
type SMTPMailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogMailer logs messages instead of sending them.
type LogMailer struct {
	logger zerolog.Logger
}

func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With().Str("component", "mailer").Logger()}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.logger.Info().Str("to", to).Str("subject", subject).Int("bytes", len(htmlBody)).Msg("mail not sent, smtp disabled")
	return nil
}

var certificateReadyTmpl = template.Must(template.New("certificate_ready").Parse(`<p>Dear {{.Name}},</p>
<p>Thank you for supporting <strong>{{.Project}}</strong>. Your certificate is ready.</p>
<p><a href="{{.URL}}">Download your certificate</a></p>`))

// CertificateReady renders the subject and body of the certificate notification.
func CertificateReady(name, project, url string) (string, string, error) {
	var buf bytes.Buffer
	err := certificateReadyTmpl.Execute(&buf, struct{ Name, Project, URL string }{name, project, url})
	if err != nil {
		return "", "", err
	}
	return "Your certificate for " + project, buf.String(), nil
}
