// Package telegram sends notifications to a Telegram chat through a bot.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"slotwatch/internal/notifier"
	logx "slotwatch/pkg/logx"
)

const textLimit = 4000

type Config struct {
	Token    string
	ChatID   int64
	ThreadID int

	// APIURL overrides the Bot API endpoint (tests, local Bot API servers).
	APIURL string
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Token) != "" || c.ChatID != 0
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Token) == "" {
		return errors.New("telegram: bot token is required")
	}
	if c.ChatID == 0 {
		return errors.New("telegram: chat id is required")
	}
	return nil
}

type Channel struct {
	cfg Config
	bot *tele.Bot
	log logx.Logger
}

var _ notifier.Channel = (*Channel)(nil)

// New builds a send-only bot. It does not poll for updates and does not
// contact Telegram until the first Send.
func New(cfg Config, log logx.Logger) (*Channel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     strings.TrimSpace(cfg.APIURL),
		Token:   strings.TrimSpace(cfg.Token),
		Offline: true,
		Client:  &http.Client{Timeout: 8 * time.Second},
		OnError: func(err error, _ tele.Context) {
			log.Warn("telebot error", logx.Err(err))
		},
	})
	if err != nil {
		return nil, err
	}
	return &Channel{cfg: cfg, bot: b, log: log}, nil
}

func (c *Channel) Name() string { return "telegram" }

func (c *Channel) Send(ctx context.Context, m notifier.Message) error {
	if strings.TrimSpace(m.Body) == "" {
		return notifier.ErrEmptyMessage
	}
	chat := &tele.Chat{ID: c.cfg.ChatID}
	for _, chunk := range splitText(m.Body, textLimit) {
		if err := ctx.Err(); err != nil {
			return err
		}
		opt := &tele.SendOptions{
			DisableWebPagePreview: true,
			ThreadID:              c.cfg.ThreadID,
		}
		if _, err := c.bot.Send(chat, chunk, opt); err != nil {
			return err
		}
	}
	c.log.Debug("telegram message sent", logx.Int64("chat_id", c.cfg.ChatID))
	return nil
}

// splitText splits long messages into chunks Telegram accepts, preferring
// newline boundaries.
func splitText(s string, limit int) []string {
	if limit <= 0 {
		limit = textLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := start + limit
		if end > len(rs) {
			end = len(rs)
		}
		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				// avoid extremely small chunks
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}

		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))

		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}
