// Package email sends transactional notifications over SMTP.
package email

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"toolshelf/internal/config"
	"toolshelf/internal/middleware"
)

// Sender delivers a rendered message to a recipient. Implementations must be
// safe for concurrent use.
type Sender interface {
	Send(to []string, subject, htmlBody, textBody string) error
	IsEnabled() bool
}

// Service sends mail through the configured SMTP relay. When SMTP is not
// configured the service is a no-op, so environments without a relay still
// run the full review flow.
type Service struct {
	cfg     *config.Config
	enabled bool
	send    func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewService creates a Service; delivery is disabled unless SMTP_HOST and
// SMTP_FROM are both set.
func NewService(cfg *config.Config) *Service {
	s := &Service{
		cfg:     cfg,
		enabled: cfg.IsEmailEnabled(),
		send:    smtp.SendMail,
	}

	if s.enabled {
		middleware.Logger.Info("email notifications enabled",
			slog.String("smtp_host", cfg.SMTPHost),
			slog.Int("smtp_port", cfg.SMTPPort),
		)
	} else {
		middleware.Logger.Info("email notifications disabled, SMTP not configured")
	}

	return s
}

// IsEnabled reports whether messages will actually be delivered.
func (s *Service) IsEnabled() bool {
	return s.enabled
}

// Send delivers a multipart/alternative message. Disabled services and empty
// recipient lists return nil.
func (s *Service) Send(to []string, subject, htmlBody, textBody string) error {
	if !s.enabled || len(to) == 0 {
		return nil
	}

	from := s.cfg.SMTPFrom
	if s.cfg.SMTPFromName != "" {
		from = fmt.Sprintf("%s <%s>", s.cfg.SMTPFromName, s.cfg.SMTPFrom)
	}

	msg := buildMIME(from, to, subject, htmlBody, textBody)

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" && s.cfg.SMTPPassword != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}

	if err := s.send(addr, auth, s.cfg.SMTPFrom, to, []byte(msg)); err != nil {
		middleware.EmailSendFailures.Inc()
		return fmt.Errorf("send email %q: %w", subject, err)
	}
	return nil
}

// buildMIME assembles a multipart/alternative body with plain-text and HTML
// parts.
func buildMIME(from string, to []string, subject, htmlBody, textBody string) string {
	const boundary = "ToolshelfBoundary42817"

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(to, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary))
	msg.WriteString("\r\n")

	if textBody != "" {
		msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(textBody)
		msg.WriteString("\r\n")
	}

	if htmlBody != "" {
		msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(htmlBody)
		msg.WriteString("\r\n")
	}

	msg.WriteString(fmt.Sprintf("--%s--\r\n", boundary))
	return msg.String()
}
