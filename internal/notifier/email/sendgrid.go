package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"slotwatch/internal/notifier"
	logx "slotwatch/pkg/logx"
)

type sendGridSender interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

type SendGrid struct {
	cfg    Config
	client sendGridSender
	log    logx.Logger
}

func NewSendGrid(cfg Config, log logx.Logger) *SendGrid {
	return &SendGrid{cfg: cfg, client: sendgrid.NewSendClient(cfg.SendGridAPIKey), log: log}
}

func (s *SendGrid) Name() string { return "email" }

func (s *SendGrid) Send(ctx context.Context, m notifier.Message) error {
	if strings.TrimSpace(m.Body) == "" {
		return notifier.ErrEmptyMessage
	}
	from := sgmail.NewEmail("", s.cfg.From)
	to := sgmail.NewEmail("", s.cfg.To)
	msg := sgmail.NewSingleEmailPlainText(from, subjectOf(m), to, m.Body)

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("email: sendgrid send: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("email: sendgrid status %d: %s", resp.StatusCode, truncate(resp.Body, 200))
	}
	s.log.Debug("email sent", logx.String("provider", "sendgrid"), logx.Int("status", resp.StatusCode))
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
