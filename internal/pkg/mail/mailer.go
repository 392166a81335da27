package mail

import (
	"fmt"
	"log"
	"net/smtp"

	"github.com/tlcshift/ShiftMarket/internal/pkg/config"
)

// Mailer sends transactional email via SMTP. A nil-safe zero config makes
// every send a logged no-op, which keeps dev environments working without
// an SMTP server.
type Mailer struct {
	host     string
	port     string
	username string
	password string
	sender   string
	name     string
}

// NewMailer builds a mailer from settings.
func NewMailer(settings *config.Settings) *Mailer {
	sender := settings.SMTPSender
	if sender == "" {
		sender = "no-reply@localhost"
		log.Printf("mail: SMTP_SENDER not set, using default sender %s", sender)
	}
	return &Mailer{
		host:     settings.SMTPHost,
		port:     settings.SMTPPort,
		username: settings.SMTPUsername,
		password: settings.SMTPPassword,
		sender:   sender,
		name:     settings.SenderName,
	}
}

// Send delivers one HTML email. Callers treat failures as non-fatal; the
// error is returned for the audit log only.
func (m *Mailer) Send(to, subject, body string) error {
	if m.host == "" {
		log.Printf("mail: SMTP not configured, skipping send to %s (%s)", to, subject)
		return nil
	}

	var auth smtp.Auth
	if m.username != "" && m.password != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	msg := []byte(
		fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\n", m.name, m.sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	err := smtp.SendMail(addr, auth, m.sender, []string{to}, msg)
	if err != nil {
		log.Printf("mail: SMTP send error: %v", err)
	} else {
		log.Printf("mail: sent to %s via %s", to, addr)
	}
	return err
}

// Sender returns the configured from address.
func (m *Mailer) Sender() string {
	return m.sender
}

// SenderName returns the configured display name.
func (m *Mailer) SenderName() string {
	return m.name
}
