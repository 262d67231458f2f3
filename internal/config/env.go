package config

import (
	"fmt"
	"strconv"
	"strings"
)

// LookupFunc mirrors os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// applyEnv overlays environment variables on cfg. Unset or empty variables
// leave the current value alone.
func applyEnv(cfg *Config, lookup LookupFunc) error {
	get := func(k string) (string, bool) {
		v, ok := lookup(k)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}
	str := func(k string, dst *string) {
		if v, ok := get(k); ok {
			*dst = v
		}
	}
	var errs []string
	integer := func(k string, dst *int) {
		if v, ok := get(k); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: not an integer: %q", k, v))
				return
			}
			*dst = n
		}
	}
	dur := func(k string, dst *string) {
		if v, ok := get(k); ok {
			d, err := secondsOrDuration(k, v)
			if err != nil {
				errs = append(errs, err.Error())
				return
			}
			*dst = d
		}
	}
	boolean := func(k string, dst *bool) {
		if v, ok := get(k); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: not a boolean: %q", k, v))
				return
			}
			*dst = b
		}
	}

	// API
	str("API_URL", &cfg.API.SlotsURL)
	str("LOCATIONS_URL", &cfg.API.LocationsURL)
	dur("REQUEST_TIMEOUT", &cfg.API.Timeout)
	integer("SLOT_LIMIT", &cfg.API.Limit)
	integer("SLOT_MINIMUM", &cfg.API.Minimum)

	if v, ok := get("LOCATIONS"); ok {
		locs, err := ParseLocations(v)
		if err != nil {
			errs = append(errs, "LOCATIONS: "+err.Error())
		} else {
			cfg.Locations = locs
		}
	}
	if v, ok := get("CITIES"); ok {
		cfg.Cities = splitList(v)
	}

	// Loop
	dur("CHECK_INTERVAL", &cfg.Watch.CheckInterval)
	dur("ERROR_INTERVAL", &cfg.Watch.ErrorInterval)
	dur("NOTIFY_WITHIN", &cfg.Watch.NotifyWithin)
	str("TIMEZONE", &cfg.Watch.Timezone)

	// Notifier
	integer("NOTIFY_RATE_PER_SEC", &cfg.Notifier.RatePerSec)
	dur("NOTIFY_TIMEOUT", &cfg.Notifier.SendTimeout)

	// SMS (Twilio)
	str("ACCOUNT_SID", &cfg.SMS.AccountSID)
	str("AUTH_TOKEN", &cfg.SMS.AuthToken)
	str("FROM_NUMBER", &cfg.SMS.From)
	str("TO_NUMBER", &cfg.SMS.To)

	// Email
	str("FROM_EMAIL", &cfg.Email.From)
	str("TO_EMAIL", &cfg.Email.To)
	str("PASSWORD", &cfg.Email.Password)
	str("SMTP_SERVER", &cfg.Email.SMTPHost)
	integer("SMTP_PORT", &cfg.Email.SMTPPort)
	str("SENDGRID_API_KEY", &cfg.Email.SendGridAPIKey)

	// Telegram
	str("TELEGRAM_TOKEN", &cfg.Telegram.Token)
	if v, ok := get("TELEGRAM_CHAT_ID"); ok {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("TELEGRAM_CHAT_ID: not an integer: %q", v))
		} else {
			cfg.Telegram.ChatID = id
		}
	}
	integer("TELEGRAM_THREAD_ID", &cfg.Telegram.ThreadID)

	// Logging
	str("LOG_LEVEL", &cfg.Logging.Level)
	boolean("LOG_CONSOLE", &cfg.Logging.Console)
	if v, ok := get("LOG_FILE"); ok {
		cfg.Logging.File = LoggingFile{Enabled: true, Path: v}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(errs, "; "))
	}
	return nil
}

// ParseLocations parses "id:name,id:name". The name part is optional.
func ParseLocations(raw string) ([]LocationConfig, error) {
	var out []LocationConfig
	for _, item := range splitList(raw) {
		idPart, name, _ := strings.Cut(item, ":")
		id, err := strconv.Atoi(strings.TrimSpace(idPart))
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid location id in %q", item)
		}
		out = append(out, LocationConfig{ID: id, Name: strings.TrimSpace(name)})
	}
	return out, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
