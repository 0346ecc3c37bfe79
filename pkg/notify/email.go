package notify

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

// SMTPConfig holds the mail relay settings for breach notifications.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// EmailNotifier sends SLA breach notifications to the on-call response
// team. Delivery of student-facing notifications lives in the external
// notification system; this adapter only covers operator alerting.
type EmailNotifier struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewEmailNotifier(cfg SMTPConfig) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (n *EmailNotifier) SendBreach(alertID, severity string, deadline time.Time) error {
	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", n.cfg.To...)
	m.SetHeader("Subject", fmt.Sprintf("[SLA BREACH] crisis alert %s (%s)", alertID, severity))
	m.SetBody("text/plain", fmt.Sprintf(
		"Crisis alert %s with severity %s is still unacknowledged past its response deadline (%s).\n"+
			"Immediate attention required.\n",
		alertID, severity, deadline.Format(time.RFC3339),
	))

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send breach email: %w", err)
	}
	return nil
}
