package ban

import (
	"fmt"
	"net/smtp"

	"github.com/PeterGeers/myadmin/internal/config"
	"github.com/jordan-wright/email"
)

// Mailer sends HTML alerts over SMTP.
type Mailer struct {
	cfg config.Mail
}

// NewMailer returns a nil Notifier when mail is not configured.
func NewMailer(cfg config.Mail) Notifier {
	if !cfg.Enabled() {
		return nil
	}
	return &Mailer{cfg: cfg}
}

func (m *Mailer) Send(subject, html string) error {
	e := email.NewEmail()
	e.From = m.cfg.From
	e.To = []string{m.cfg.To}
	e.Subject = subject
	e.HTML = []byte(html)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}
	if err := e.Send(addr, auth); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
