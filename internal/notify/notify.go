// Package notify adapts outbound notification delivery behind a single
// send contract. The order engine treats delivery as fire-and-forget:
// failures are logged and swallowed, never rolled back into the operation
// that triggered them.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Sink delivers a textual message to an email or SMS address.
type Sink interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPConfig configures the mail sink.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SMTPSink sends mail through a plain SMTP relay.
type SMTPSink struct {
	cfg SMTPConfig
}

// NewSMTP creates a mail sink for the given relay.
func NewSMTP(cfg SMTPConfig) *SMTPSink {
	return &SMTPSink{cfg: cfg}
}

func (s *SMTPSink) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

// LogSink writes notifications to the structured log instead of sending
// them. Used in development and as a fallback when no relay is configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLog creates a log-only sink.
func NewLog(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(ctx context.Context, to, subject, body string) error {
	s.logger.InfoContext(ctx, "notification",
		"to", to,
		"subject", subject,
		"body", body,
	)
	return nil
}
