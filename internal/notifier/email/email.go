// Package email sends notifications by email, either over SMTP with
// STARTTLS or through the SendGrid API.
package email

import (
	"errors"
	"strings"

	"slotwatch/internal/notifier"
	logx "slotwatch/pkg/logx"
)

const (
	DefaultSMTPHost = "smtp.gmail.com"
	DefaultSMTPPort = 587
	DefaultSubject  = "Appointment Available"
)

type Config struct {
	From     string
	To       string
	Password string
	SMTPHost string
	SMTPPort int

	// SendGridAPIKey selects the SendGrid provider instead of SMTP.
	SendGridAPIKey string
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.From) != "" || strings.TrimSpace(c.To) != "" ||
		strings.TrimSpace(c.Password) != "" || strings.TrimSpace(c.SendGridAPIKey) != ""
}

func (c Config) UseSendGrid() bool { return strings.TrimSpace(c.SendGridAPIKey) != "" }

func (c Config) Validate() error {
	if strings.TrimSpace(c.From) == "" || strings.TrimSpace(c.To) == "" {
		return errors.New("email: from and to addresses are required")
	}
	if !c.UseSendGrid() && strings.TrimSpace(c.Password) == "" {
		return errors.New("email: password is required for smtp")
	}
	return nil
}

// New picks the provider from the config.
func New(cfg Config, log logx.Logger) (notifier.Channel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.UseSendGrid() {
		return NewSendGrid(cfg, log), nil
	}
	return NewSMTP(cfg, log)
}

func subjectOf(m notifier.Message) string {
	if s := strings.TrimSpace(m.Subject); s != "" {
		return s
	}
	return DefaultSubject
}
