// Package mailer sends transactional mail over SMTP.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Mailer delivers a plain-text message to one recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

var _ Mailer = (*SMTPMailer)(nil)

type SMTPMailer struct {
	logger    *slog.Logger
	addr      string
	fromName  string
	fromEmail string
}

func NewSMTPMailer(host, port, fromName, fromEmail string, logger *slog.Logger) *SMTPMailer {
	return &SMTPMailer{
		logger:    logger,
		addr:      host + ":" + port,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := buildMessage(m.fromName, m.fromEmail, to, subject, body)
	if err := smtp.SendMail(m.addr, nil, m.fromEmail, []string{to}, msg); err != nil {
		m.logger.ErrorContext(ctx, "Failed to send mail",
			slog.String("to", to), slog.Any("error", err))
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	m.logger.InfoContext(ctx, "Mail sent", slog.String("to", to), slog.String("subject", subject))
	return nil
}

func buildMessage(fromName, fromEmail, to, subject, body string) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s <%s>\r\n", fromName, fromEmail)
	fmt.Fprintf(&sb, "To: %s\r\n", to)
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	return []byte(sb.String())
}
