// Package sms sends notifications as text messages through Twilio.
package sms

import (
	"context"
	"errors"
	"strings"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"slotwatch/internal/notifier"
	logx "slotwatch/pkg/logx"
)

// Config holds the Twilio account and the sender/recipient numbers.
type Config struct {
	AccountSID string
	AuthToken  string
	From       string
	To         string
}

// Enabled reports whether any SMS setting is present.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.AccountSID) != "" || strings.TrimSpace(c.AuthToken) != "" ||
		strings.TrimSpace(c.From) != "" || strings.TrimSpace(c.To) != ""
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.To) == "" || strings.TrimSpace(c.From) == "" {
		return errors.New("sms: to and from numbers are required")
	}
	if strings.TrimSpace(c.AccountSID) == "" || strings.TrimSpace(c.AuthToken) == "" {
		return errors.New("sms: account sid and auth token are required")
	}
	return nil
}

// messageCreator is the subset of the Twilio API used here.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

type Channel struct {
	cfg Config
	api messageCreator
	log logx.Logger
}

var _ notifier.Channel = (*Channel)(nil)

func New(cfg Config, log logx.Logger) (*Channel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newChannel(cfg, client.Api, log), nil
}

func newChannel(cfg Config, api messageCreator, log logx.Logger) *Channel {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Channel{cfg: cfg, api: api, log: log}
}

func (c *Channel) Name() string { return "sms" }

// Send creates one message. The Twilio client has no context support, so
// the call runs aside and is abandoned when ctx ends.
func (c *Channel) Send(ctx context.Context, m notifier.Message) error {
	if strings.TrimSpace(m.Body) == "" {
		return notifier.ErrEmptyMessage
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(c.cfg.To)
	params.SetFrom(c.cfg.From)
	params.SetBody(m.Body)

	type result struct {
		msg *openapi.ApiV2010Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		msg, err := c.api.CreateMessage(params)
		done <- result{msg: msg, err: err}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case r := <-done:
		if r.err != nil {
			return r.err
		}
		sid := ""
		if r.msg != nil && r.msg.Sid != nil {
			sid = *r.msg.Sid
		}
		c.log.Debug("sms accepted", logx.String("sid", sid))
		return nil
	}
}
