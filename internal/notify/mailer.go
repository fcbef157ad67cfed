package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Mailer delivers a rendered notification email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPConfig configures the SMTP mailer.
type SMTPConfig struct {
	Addr     string // host:port
	From     string
	FromName string
	Username string
	Password string
}

// SMTPMailer sends mail through a plain SMTP endpoint.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer creates an SMTP-backed mailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	var auth smtp.Auth
	if m.cfg.Username != "" {
		host := m.cfg.Addr
		if idx := strings.LastIndex(host, ":"); idx != -1 {
			host = host[:idx]
		}

		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, host)
	}

	msg := fmt.Sprintf(
		"From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n",
		m.cfg.FromName, m.cfg.From, to, subject, htmlBody,
	)

	return smtp.SendMail(m.cfg.Addr, auth, m.cfg.From, []string{to}, []byte(msg))
}

// LogMailer logs notifications instead of delivering them, for deployments
// without an SMTP endpoint.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a logging mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, to, subject, _ string) error {
	m.logger.Info("notification email (not delivered)",
		zap.String("to", to),
		zap.String("subject", subject),
	)

	return nil
}
