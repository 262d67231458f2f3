package notifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	logx "slotwatch/pkg/logx"

	"golang.org/x/time/rate"
)

const (
	DefaultRatePerSec  = 1
	DefaultSendTimeout = 10 * time.Second
)

// Service fans a notification out to every configured channel.
//
// It is safe for concurrent use, although the watcher calls it from a single
// goroutine.
type Service struct {
	mu       sync.Mutex
	log      logx.Logger
	cfg      Config
	limiter  *rate.Limiter
	channels []Channel
}

func New(cfg Config, log logx.Logger, channels ...Channel) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = DefaultRatePerSec
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	s := &Service{
		log: log,
		cfg: cfg,
		// Token bucket: burst = rate per sec, so a handful of new slots go out without waiting.
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
	for _, ch := range channels {
		if ch != nil {
			s.channels = append(s.channels, ch)
		}
	}
	return s
}

// Channels returns the names of the configured channels.
func (s *Service) Channels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.channels))
	for _, ch := range s.channels {
		out = append(out, ch.Name())
	}
	return out
}

// Notify logs the message and sends it to every channel. Channel failures
// do not stop the remaining channels; they are joined into the returned
// error as *ChannelError values.
func (s *Service) Notify(ctx context.Context, m Message) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(m.Body) == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	channels := append([]Channel(nil), s.channels...)
	lim := s.limiter
	timeout := s.cfg.SendTimeout
	log := s.log
	s.mu.Unlock()

	log.Info("🔔 notification", logx.String("message", m.Body))

	var errs []error
	for _, ch := range channels {
		if err := lim.Wait(ctx); err != nil {
			errs = append(errs, &ChannelError{Channel: ch.Name(), Err: err})
			break
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		err := ch.Send(callCtx, m)
		cancel()
		if err != nil {
			log.Warn("notification send failed", logx.String("channel", ch.Name()), logx.Err(err))
			errs = append(errs, &ChannelError{Channel: ch.Name(), Err: err})
			continue
		}
		log.Info("notification sent", logx.String("channel", ch.Name()))
	}
	return errors.Join(errs...)
}
