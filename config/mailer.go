package config

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail/v2"
)

// Mailer sends HTML mail through the configured SMTP relay.
type Mailer struct {
	smtp SMTPConfig
}

func NewMailer(smtp SMTPConfig) *Mailer {
	return &Mailer{smtp: smtp}
}

// Enabled reports whether SMTP_HOST and SMTP_FROM are set.
func (m *Mailer) Enabled() bool {
	return m != nil && m.smtp.Host != "" && m.smtp.From != ""
}

func (m *Mailer) SendMail(to []string, subject, html string) error {
	if len(to) == 0 {
		return nil
	}
	if !m.Enabled() {
		return fmt.Errorf("smtp not configured (SMTP_HOST/SMTP_FROM)")
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.smtp.From)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	d := mail.NewDialer(m.smtp.Host, m.smtp.Port, m.smtp.User, m.smtp.Pass)

	// STARTTLS is mandatory on 587 (Gmail/Office365).
	d.StartTLSPolicy = mail.MandatoryStartTLS

	d.TLSConfig = &tls.Config{
		ServerName:         m.smtp.Host,
		InsecureSkipVerify: m.smtp.SkipTLSVerify, // dev only: SMTP_SKIP_TLS_VERIFY=1
	}

	return d.DialAndSend(msg)
}
