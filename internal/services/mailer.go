package services

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"
)

const verificationSubject = "Activate your account"

// SMTPMailer delivers verification emails over SMTP
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	logger *slog.Logger
}

func NewSMTPMailer(host string, port int, user, password, from string, logger *slog.Logger) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
		logger: logger,
	}
}

func (m *SMTPMailer) SendVerification(ctx context.Context, to, link string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", verificationSubject)
	msg.SetBody("text/html", verificationBody(link))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}
	m.logger.Info("verification mail sent", "to", to)
	return nil
}

// LogMailer writes the verification link to the log instead of sending it.
// Used when no SMTP host is configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendVerification(_ context.Context, to, link string) error {
	m.logger.Warn("smtp not configured, verification link logged", "to", to, "link", link)
	return nil
}

func verificationBody(link string) string {
	return fmt.Sprintf(`Please verify your account by clicking on the link <a href="%s">here</a>.`, link)
}
