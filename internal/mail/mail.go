// Package mail sends plain-text notifications over SMTP.
package mail

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"association-admin-api/internal/config"
)

var ErrNotConfigured = errors.New("SMTP not configured")

type Sender interface {
	Send(to []string, subject, body string) error
}

// Mailer sends through SMTP. In dev mode, or when SMTP is not configured,
// messages are logged instead of sent.
type Mailer struct {
	cfg config.SMTP
	dev bool
	log *zap.Logger
}

func New(cfg config.SMTP, dev bool, log *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, dev: dev, log: log}
}

func (m *Mailer) configured() bool {
	return m.cfg.Host != "" && m.cfg.From != ""
}

func (m *Mailer) Send(to []string, subject, body string) error {
	if len(to) == 0 {
		return nil
	}
	if m.dev || !m.configured() {
		m.log.Info("mail (not sent)",
			zap.Strings("to", to), zap.String("subject", subject), zap.String("body", body))
		if !m.dev {
			return ErrNotConfigured
		}
		return nil
	}

	msg := Build(m.cfg.From, to, subject, body)
	addr := m.cfg.Host + ":" + m.cfg.Port
	if m.cfg.Port == "465" {
		return m.sendImplicitTLS(addr, to, msg)
	}

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, to, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}

// sendImplicitTLS connects over TLS directly (port 465/SMTPS).
func (m *Mailer) sendImplicitTLS(addr string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.cfg.Host})
	if err != nil {
		return fmt.Errorf("TLS dial: %w", err)
	}
	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer c.Close()

	if m.cfg.User != "" {
		if err := c.Auth(smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := c.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt to %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}
	return c.Quit()
}

// Build renders the RFC 5322 message.
func Build(from string, to []string, subject, body string) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	return []byte(sb.String())
}
