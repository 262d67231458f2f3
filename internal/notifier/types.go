package notifier

import (
	"context"
	"errors"
	"time"
)

var ErrEmptyMessage = errors.New("notification message is empty")

// Message is a channel-agnostic notification. Channels that have no notion
// of a subject (SMS, Telegram) only send Body.
type Message struct {
	Subject string
	Body    string
}

// Channel is one delivery mechanism.
type Channel interface {
	Name() string
	Send(ctx context.Context, m Message) error
}

// Config controls pacing of channel sends.
type Config struct {
	RatePerSec  int
	SendTimeout time.Duration
}

// ChannelError ties a send failure to the channel that produced it.
type ChannelError struct {
	Channel string
	Err     error
}

func (e *ChannelError) Error() string { return e.Channel + ": " + e.Err.Error() }
func (e *ChannelError) Unwrap() error { return e.Err }
