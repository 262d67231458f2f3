package email

import (
	"context"
	"fmt"
	"strings"

	gomail "github.com/wneessen/go-mail"

	"slotwatch/internal/notifier"
	logx "slotwatch/pkg/logx"
)

type smtpSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

type SMTP struct {
	cfg    Config
	sender smtpSender
	log    logx.Logger
}

// NewSMTP authenticates as the sender address and requires STARTTLS.
func NewSMTP(cfg Config, log logx.Logger) (*SMTP, error) {
	host := strings.TrimSpace(cfg.SMTPHost)
	if host == "" {
		host = DefaultSMTPHost
	}
	port := cfg.SMTPPort
	if port <= 0 {
		port = DefaultSMTPPort
	}
	c, err := gomail.NewClient(host,
		gomail.WithPort(port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.From),
		gomail.WithPassword(cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("email: smtp client: %w", err)
	}
	return &SMTP{cfg: cfg, sender: c, log: log}, nil
}

func (s *SMTP) Name() string { return "email" }

func (s *SMTP) Send(ctx context.Context, m notifier.Message) error {
	if strings.TrimSpace(m.Body) == "" {
		return notifier.ErrEmptyMessage
	}
	msg, err := buildMsg(s.cfg, m)
	if err != nil {
		return err
	}
	if err := s.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("email: smtp send: %w", err)
	}
	s.log.Debug("email sent", logx.String("provider", "smtp"))
	return nil
}

func buildMsg(cfg Config, m notifier.Message) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(cfg.From); err != nil {
		return nil, fmt.Errorf("email: from: %w", err)
	}
	if err := msg.To(cfg.To); err != nil {
		return nil, fmt.Errorf("email: to: %w", err)
	}
	msg.Subject(subjectOf(m))
	msg.SetBodyString(gomail.TypeTextPlain, m.Body)
	return msg, nil
}
