package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"slotwatch/internal/config"
	"slotwatch/internal/notifier"
	"slotwatch/internal/notifier/email"
	"slotwatch/internal/notifier/sms"
	"slotwatch/internal/notifier/telegram"
	"slotwatch/internal/slot"
	"slotwatch/internal/ttp"
	"slotwatch/internal/watcher"
	logx "slotwatch/pkg/logx"
)

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapClientConfig(cfg *config.Config) (ttp.Config, error) {
	timeout, err := config.ParseDurationOrDefault("api.timeout", cfg.API.Timeout, ttp.DefaultTimeout)
	if err != nil {
		return ttp.Config{}, err
	}
	ttl, err := config.ParseDurationOrDefault("api.location_ttl", cfg.API.LocationTTL, ttp.DefaultLocationTTL)
	if err != nil {
		return ttp.Config{}, err
	}
	return ttp.Config{
		SlotsURL:     cfg.API.SlotsURL,
		LocationsURL: cfg.API.LocationsURL,
		Timeout:      timeout,
		Limit:        cfg.API.Limit,
		Minimum:      cfg.API.Minimum,
		LocationTTL:  ttl,
	}, nil
}

func mapWatchConfig(cfg *config.Config) (watcher.Config, error) {
	check, err := config.ParseDurationOrDefault("watch.check_interval", cfg.Watch.CheckInterval, watcher.DefaultCheckInterval)
	if err != nil {
		return watcher.Config{}, err
	}
	errIv, err := config.ParseDurationOrDefault("watch.error_interval", cfg.Watch.ErrorInterval, watcher.DefaultErrorInterval)
	if err != nil {
		return watcher.Config{}, err
	}
	within, err := config.ParseDurationOrDefault("watch.notify_within", cfg.Watch.NotifyWithin, 0)
	if err != nil {
		return watcher.Config{}, err
	}
	wc := watcher.Config{CheckInterval: check, ErrorInterval: errIv, NotifyWithin: within}
	if tz := strings.TrimSpace(cfg.Watch.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return watcher.Config{}, fmt.Errorf("watch.timezone: invalid %q: %w", tz, err)
		}
		wc.Display = loc
	}
	return wc, nil
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	timeout, err := config.ParseDurationOrDefault("notifier.send_timeout", cfg.Notifier.SendTimeout, notifier.DefaultSendTimeout)
	if err != nil {
		return notifier.Config{}, err
	}
	return notifier.Config{RatePerSec: cfg.Notifier.RatePerSec, SendTimeout: timeout}, nil
}

// buildChannels constructs every channel whose settings are present.
// A channel with partial settings is a configuration error.
func buildChannels(cfg *config.Config, log logx.Logger) ([]notifier.Channel, error) {
	var (
		out  []notifier.Channel
		errs []error
	)

	smsCfg := sms.Config{
		AccountSID: cfg.SMS.AccountSID,
		AuthToken:  cfg.SMS.AuthToken,
		From:       cfg.SMS.From,
		To:         cfg.SMS.To,
	}
	if smsCfg.Enabled() {
		if ch, err := sms.New(smsCfg, log.With(logx.String("channel", "sms"))); err != nil {
			errs = append(errs, err)
		} else {
			out = append(out, ch)
		}
	}

	mailCfg := email.Config{
		From:           cfg.Email.From,
		To:             cfg.Email.To,
		Password:       cfg.Email.Password,
		SMTPHost:       cfg.Email.SMTPHost,
		SMTPPort:       cfg.Email.SMTPPort,
		SendGridAPIKey: cfg.Email.SendGridAPIKey,
	}
	if mailCfg.Enabled() {
		if ch, err := email.New(mailCfg, log.With(logx.String("channel", "email"))); err != nil {
			errs = append(errs, err)
		} else {
			out = append(out, ch)
		}
	}

	tgCfg := telegram.Config{
		Token:    cfg.Telegram.Token,
		ChatID:   cfg.Telegram.ChatID,
		ThreadID: cfg.Telegram.ThreadID,
	}
	if tgCfg.Enabled() {
		if ch, err := telegram.New(tgCfg, log.With(logx.String("channel", "telegram"))); err != nil {
			errs = append(errs, err)
		} else {
			out = append(out, ch)
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalid, errors.Join(errs...))
	}
	return out, nil
}

type cityResolver interface {
	Cities(ctx context.Context) ([]string, error)
	LookupCity(ctx context.Context, city string) (slot.Location, error)
}

// resolveLocations returns the configured locations followed by the
// resolved cities, in order, without duplicate ids.
func resolveLocations(ctx context.Context, cfg *config.Config, r cityResolver, log logx.Logger) ([]slot.Location, error) {
	out := make([]slot.Location, 0, len(cfg.Locations)+len(cfg.Cities))
	seen := map[int]struct{}{}
	add := func(l slot.Location) bool {
		if _, dup := seen[l.ID]; dup {
			return false
		}
		seen[l.ID] = struct{}{}
		out = append(out, l)
		return true
	}

	for _, l := range cfg.Locations {
		add(slot.Location{ID: l.ID, Name: strings.TrimSpace(l.Name)})
	}
	if len(cfg.Cities) > 0 {
		avail, err := r.Cities(ctx)
		if err != nil {
			return nil, fmt.Errorf("list cities: %w", err)
		}
		log.Info("available cities", logx.Int("count", len(avail)), logx.Strings("cities", avail))
	}
	for _, city := range cfg.Cities {
		loc, err := r.LookupCity(ctx, city)
		if err != nil {
			if errors.Is(err, ttp.ErrUnknownCity) {
				return nil, fmt.Errorf("%w: cities: %w", config.ErrInvalid, err)
			}
			return nil, fmt.Errorf("resolve city %q: %w", city, err)
		}
		if add(loc) {
			log.Info("city resolved", logx.String("city", city), logx.Int("location", loc.ID), logx.String("name", loc.Name))
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no locations to monitor", config.ErrInvalid)
	}
	return out, nil
}
