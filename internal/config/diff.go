package config

import (
	"strings"

	logx "slotwatch/pkg/logx"
)

// LoggingChanged reports whether the logging section differs.
func LoggingChanged(oldCfg, newCfg *Config) bool {
	if oldCfg == nil || newCfg == nil {
		return oldCfg != newCfg
	}
	a, b := oldCfg.Logging, newCfg.Logging
	return !strings.EqualFold(strings.TrimSpace(a.Level), strings.TrimSpace(b.Level)) ||
		a.Console != b.Console ||
		a.File.Enabled != b.File.Enabled ||
		strings.TrimSpace(a.File.Path) != strings.TrimSpace(b.File.Path)
}

// Summary returns safe structured fields describing cfg. Secrets are
// reduced to "set" flags.
func Summary(cfg *Config) []logx.Field {
	if cfg == nil {
		return nil
	}
	return []logx.Field{
		logx.Int("locations", len(cfg.Locations)),
		logx.Int("cities", len(cfg.Cities)),
		logx.String("check_interval", cfg.Watch.CheckInterval),
		logx.String("error_interval", cfg.Watch.ErrorInterval),
		logx.String("timezone", cfg.Watch.Timezone),
		logx.Bool("sms", cfg.SMS.AccountSID != "" || cfg.SMS.To != ""),
		logx.Bool("email", cfg.Email.From != "" || cfg.Email.To != ""),
		logx.Bool("email.sendgrid", cfg.Email.SendGridAPIKey != ""),
		logx.Bool("telegram", cfg.Telegram.Token != ""),
		logx.String("log.level", cfg.Logging.Level),
	}
}
