package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalid = errors.New("invalid config")

// Validate reports every problem at once. Channel credentials are checked
// only for completeness here; the channel constructors own the details.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalid)
	}
	var problems []string
	add := func(format string, args ...any) { problems = append(problems, fmt.Sprintf(format, args...)) }

	slots := strings.TrimSpace(cfg.API.SlotsURL)
	switch {
	case slots == "":
		add("api.slots_url is required")
	case !strings.Contains(slots, "{location}"):
		add("api.slots_url must contain {location}")
	}

	for _, f := range []struct {
		path, raw string
		required  bool
	}{
		{"api.timeout", cfg.API.Timeout, false},
		{"api.location_ttl", cfg.API.LocationTTL, false},
		{"watch.check_interval", cfg.Watch.CheckInterval, true},
		{"watch.error_interval", cfg.Watch.ErrorInterval, true},
		{"watch.notify_within", cfg.Watch.NotifyWithin, false},
		{"notifier.send_timeout", cfg.Notifier.SendTimeout, false},
	} {
		d, err := ParseDurationField(f.path, f.raw)
		if err != nil {
			add("%s", err.Error())
			continue
		}
		if f.required && d <= 0 {
			add("%s must be > 0", f.path)
		}
	}

	if tz := strings.TrimSpace(cfg.Watch.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			add("watch.timezone: %v", err)
		}
	}

	if len(cfg.Locations) == 0 && len(cfg.Cities) == 0 {
		add("at least one location or city is required")
	}
	ids := map[int]struct{}{}
	for i, l := range cfg.Locations {
		if l.ID <= 0 {
			add("locations[%d]: id must be > 0", i)
			continue
		}
		if _, dup := ids[l.ID]; dup {
			add("locations[%d]: duplicate id %d", i, l.ID)
		}
		ids[l.ID] = struct{}{}
	}

	if cfg.API.Limit < 0 || cfg.API.Minimum < 0 {
		add("api.limit and api.minimum must be >= 0")
	}
	if cfg.Notifier.RatePerSec < 0 {
		add("notifier.rate_per_sec must be >= 0")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
