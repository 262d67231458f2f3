package config

// Config is the on-disk / environment configuration.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "15m") in
// files. Environment variables additionally accept plain seconds.
type Config struct {
	API       APIConfig        `json:"api"`
	Locations []LocationConfig `json:"locations,omitempty"`

	// Cities are resolved to locations through the locations endpoint at
	// startup. They are merged with Locations.
	Cities []string `json:"cities,omitempty"`

	Watch    WatchConfig    `json:"watch"`
	Notifier NotifierConfig `json:"notifier"`
	SMS      SMSConfig      `json:"sms"`
	Email    EmailConfig    `json:"email"`
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
}

// APIConfig points at the remote scheduling API.
//
// SlotsURL is a template: {location}, {limit} and {minimum} are substituted
// per request.
type APIConfig struct {
	SlotsURL     string `json:"slots_url"`
	LocationsURL string `json:"locations_url,omitempty"`
	Timeout      string `json:"timeout,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Minimum      int    `json:"minimum,omitempty"`
	LocationTTL  string `json:"location_ttl,omitempty"`
}

type LocationConfig struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// WatchConfig controls the polling loop.
//
// Defaults:
//   - check_interval: "15m"
//   - error_interval: "1m"
//   - notify_within: "0s" (no horizon)
//   - timezone: "America/Chicago"
type WatchConfig struct {
	CheckInterval string `json:"check_interval"`
	ErrorInterval string `json:"error_interval"`
	NotifyWithin  string `json:"notify_within,omitempty"`
	Timezone      string `json:"timezone,omitempty"`
}

type NotifierConfig struct {
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
	SendTimeout string `json:"send_timeout,omitempty"`
}

// SMSConfig holds Twilio credentials. Never log AuthToken.
type SMSConfig struct {
	AccountSID string `json:"account_sid,omitempty"`
	AuthToken  string `json:"auth_token,omitempty"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
}

// EmailConfig selects SMTP (default) or SendGrid when an API key is set.
// Never log Password or SendGridAPIKey.
type EmailConfig struct {
	From           string `json:"from,omitempty"`
	To             string `json:"to,omitempty"`
	Password       string `json:"password,omitempty"`
	SMTPHost       string `json:"smtp_host,omitempty"`
	SMTPPort       int    `json:"smtp_port,omitempty"`
	SendGridAPIKey string `json:"sendgrid_api_key,omitempty"`
}

type TelegramConfig struct {
	Token    string `json:"token,omitempty"`
	ChatID   int64  `json:"chat_id,omitempty"`
	ThreadID int    `json:"thread_id,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// Defaults returns the built-in configuration every source is layered on.
func Defaults() Config {
	return Config{
		API: APIConfig{
			SlotsURL:     "https://ttp.cbp.dhs.gov/schedulerapi/slots?orderBy=soonest&limit={limit}&locationId={location}&minimum={minimum}",
			LocationsURL: "https://ttp.cbp.dhs.gov/schedulerapi/locations/?temporary=false&inviteOnly=false&operational=true&serviceName=Global+Entry",
			Timeout:      "10s",
			Limit:        5,
			Minimum:      1,
			LocationTTL:  "360h",
		},
		Watch: WatchConfig{
			CheckInterval: "15m",
			ErrorInterval: "1m",
			Timezone:      "America/Chicago",
		},
		Notifier: NotifierConfig{
			RatePerSec:  1,
			SendTimeout: "10s",
		},
		Email: EmailConfig{
			SMTPHost: "smtp.gmail.com",
			SMTPPort: 587,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}
