package smtp

import (
	"fmt"
	"net/smtp"
	"net/textproto"

	"github.com/jordan-wright/email"
	"github.com/otp-identity-api/internal/config"
)

// Mailer sends emails.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

type mailer struct {
	addr     string
	host     string
	from     string
	username string
	password string
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		addr:     fmt.Sprintf("%s:%s", cfg.SMTPHost, cfg.SMTPPort),
		host:     cfg.SMTPHost,
		from:     fmt.Sprintf("%s <%s>", cfg.SMTPSenderName, cfg.SMTPFrom),
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

func (m *mailer) SendEmail(to, subject, body string) error {
	e := &email.Email{
		To:      []string{to},
		From:    m.from,
		Subject: subject,
		Text:    []byte(body),
		Headers: textproto.MIMEHeader{},
	}

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	return e.Send(m.addr, auth)
}
