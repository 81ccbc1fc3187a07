package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
	_ "time/tzdata" // timezone names must resolve in minimal containers

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pfrederiksen/meetup-events/internal/event"
	"github.com/pfrederiksen/meetup-events/internal/logger"
	"github.com/pfrederiksen/meetup-events/internal/notifier"
	"github.com/pfrederiksen/meetup-events/internal/scraper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MEETUP"

// DefaultConfigFile is read when no config file is given and it exists.
const DefaultConfigFile = "config.json"

// Config holds all configuration for the application.
type Config struct {
	// Browserless configures the headless rendering service.
	Browserless scraper.Config `mapstructure:"browserless"`
	// Groups lists the Meetup groups to scrape and their sales reps.
	Groups []event.Group `mapstructure:"groups"`
	// RepEmails maps sales rep names to email addresses.
	RepEmails map[string]string `mapstructure:"rep_emails"`
	// Timezone is the IANA zone of event clock times and of "today".
	Timezone string `mapstructure:"timezone" default:"UTC"`

	Fetch   FetchConfig   `mapstructure:"fetch"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Log     logger.Config `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`

	Slack          SlackConfig          `mapstructure:"slack"`
	Telegram       TelegramConfig       `mapstructure:"telegram"`
	Twitter        TwitterConfig        `mapstructure:"twitter"`
	GoogleSheets   GoogleSheetsConfig   `mapstructure:"google_sheets"`
	Calendar       CalendarConfig       `mapstructure:"calendar"`
	GoogleCalendar GoogleCalendarConfig `mapstructure:"google_calendar"`
	CalDAV         CalDAVConfig         `mapstructure:"caldav"`
}

// FetchConfig bounds group fetching.
type FetchConfig struct {
	Concurrency int `mapstructure:"concurrency" default:"4"`
}

// Ledger backends.
const (
	BackendFile = "file"
	BackendGist = "gist"
)

// LedgerConfig selects where the ledger lives.
type LedgerConfig struct {
	Backend     string        `mapstructure:"backend" default:"file"`
	Path        string        `mapstructure:"path" default:"meetup_events.csv"`
	LockPath    string        `mapstructure:"lock_path"` // defaults to Path + ".lock"
	LockTimeout time.Duration `mapstructure:"lock_timeout" default:"30s"`
	GistID      string        `mapstructure:"gist_id"`
	GithubToken string        `mapstructure:"github_token"`
}

// LockFile returns the lock file path.
func (c LedgerConfig) LockFile() string {
	if c.LockPath != "" {
		return c.LockPath
	}
	if c.Backend == BackendGist {
		return filepath.Join(os.TempDir(), "meetup-events-"+c.GistID+".lock")
	}
	return c.Path + ".lock"
}

// MetricsConfig controls the metrics textfile export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"` // empty disables
}

// SlackConfig configures the Slack webhook notifier.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	MaxEvents  int    `mapstructure:"max_events" default:"10"`
}

// TelegramConfig configures the Telegram notifier.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// TwitterConfig configures the Twitter notifier.
type TwitterConfig struct {
	Enabled                     bool `mapstructure:"enabled"`
	notifier.TwitterCredentials `mapstructure:",squash"`
}

// GoogleSheetsConfig configures the sheet mirror.
type GoogleSheetsConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	CredentialsPath string `mapstructure:"credentials_path" default:"service_account.json"`
	WorksheetName   string `mapstructure:"worksheet_name" default:"Events"`
}

// CalendarConfig configures ICS output.
type CalendarConfig struct {
	Enabled              bool    `mapstructure:"enabled"`
	OutputDir            string  `mapstructure:"output_dir" default:"calendars"`
	DefaultDurationHours float64 `mapstructure:"default_duration_hours" default:"2"`
	ExportPath           string  `mapstructure:"export_path" default:"calendars/all_events.ics"`
	StatePath            string  `mapstructure:"state_path" default:"calendars/export_state.json"`
}

// GoogleCalendarConfig configures Google Calendar sync.
type GoogleCalendarConfig struct {
	Enabled              bool    `mapstructure:"enabled"`
	CalendarID           string  `mapstructure:"calendar_id" default:"primary"`
	CredentialsPath      string  `mapstructure:"credentials_path" default:"credentials.json"`
	TokenPath            string  `mapstructure:"token_path" default:"token.json"`
	TokenKey             string  `mapstructure:"token_key"` // seals the token file when set
	DefaultDurationHours float64 `mapstructure:"default_duration_hours" default:"2"`
	SendInvites          bool    `mapstructure:"send_invites" default:"true"`
	StatePath            string  `mapstructure:"state_path" default:"google_calendar_state.json"`
}

// CalDAVConfig configures CalDAV sync.
type CalDAVConfig struct {
	Enabled              bool    `mapstructure:"enabled"`
	Endpoint             string  `mapstructure:"endpoint"`
	Username             string  `mapstructure:"username"`
	Password             string  `mapstructure:"password"`
	CalendarName         string  `mapstructure:"calendar_name"`
	DefaultDurationHours float64 `mapstructure:"default_duration_hours" default:"2"`
	StatePath            string  `mapstructure:"state_path" default:"caldav_state.json"`
}

// Hours converts a configured hour count to a duration.
func Hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

// Load reads configuration. configFile may be empty, in which case
// config.json in dir is used when present. A .env file in dir is loaded
// into the environment first; variables already set win.
func Load(dir, configFile string) (*Config, error) {
	if dir == "" {
		dir = "."
	}
	// A missing .env is normal in production.
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The prefix must be set before keys are bound.
	bindValues(v, Config{}, "")

	if configFile == "" {
		candidate := filepath.Join(dir, DefaultConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		jsonStringHook,
		mapstructure.StringToTimeDurationHookFunc(),
	)))
	if err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// bindValues walks the struct and registers every key with viper so
// AutomaticEnv can find it, using the 'default' tag as the default value.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		if strings.HasSuffix(tag, ",squash") {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), prefix)
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Duration(0)) {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		if def, ok := field.Tag.Lookup("default"); ok {
			v.SetDefault(key, def)
			continue
		}
		_ = v.BindEnv(key)
	}
}

// jsonStringHook lets list and map settings arrive as JSON strings, which is
// how they are passed through environment variables.
func jsonStringHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	if to.Kind() != reflect.Slice && to.Kind() != reflect.Map {
		return data, nil
	}
	s := strings.TrimSpace(data.(string))
	if s == "" {
		return reflect.Zero(to).Interface(), nil
	}
	if !strings.HasPrefix(s, "[") && !strings.HasPrefix(s, "{") {
		return data, nil
	}

	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("parsing JSON value: %w", err)
	}
	return out, nil
}

// Location loads the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate checks everything a scraping run needs.
func (c *Config) Validate() error {
	var errs []error
	if c.Browserless.APIKey == "" {
		errs = append(errs, errors.New("browserless.api_key is required"))
	}
	if len(c.Groups) == 0 {
		errs = append(errs, errors.New("at least one group is required"))
	}
	for i, g := range c.Groups {
		if strings.TrimSpace(g.URL) == "" {
			errs = append(errs, fmt.Errorf("groups[%d]: url is required", i))
		}
	}
	if c.Fetch.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("fetch.concurrency must be at least 1, got %d", c.Fetch.Concurrency))
	}
	if err := c.ValidateBase(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateBase checks the settings shared by every command: timezone,
// logging, the ledger backend and the enabled integrations.
func (c *Config) ValidateBase() error {
	var errs []error

	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	switch c.Ledger.Backend {
	case BackendFile:
		if c.Ledger.Path == "" {
			errs = append(errs, errors.New("ledger.path is required"))
		}
	case BackendGist:
		if c.Ledger.GistID == "" || c.Ledger.GithubToken == "" {
			errs = append(errs, errors.New("ledger.gist_id and ledger.github_token are required for the gist backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ledger.backend %q (must be %s or %s)", c.Ledger.Backend, BackendFile, BackendGist))
	}

	if c.Slack.Enabled && c.Slack.WebhookURL == "" {
		errs = append(errs, errors.New("slack.webhook_url is required when slack is enabled"))
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		errs = append(errs, errors.New("telegram.bot_token and telegram.chat_id are required when telegram is enabled"))
	}
	if c.Twitter.Enabled {
		creds := c.Twitter.TwitterCredentials
		if creds.APIKey == "" || creds.APISecret == "" || creds.AccessToken == "" || creds.AccessSecret == "" {
			errs = append(errs, errors.New("all twitter credentials are required when twitter is enabled"))
		}
	}
	if c.GoogleSheets.Enabled && c.GoogleSheets.SpreadsheetID == "" {
		errs = append(errs, errors.New("google_sheets.spreadsheet_id is required when google_sheets is enabled"))
	}
	if c.CalDAV.Enabled && c.CalDAV.Endpoint == "" {
		errs = append(errs, errors.New("caldav.endpoint is required when caldav is enabled"))
	}

	return errors.Join(errs...)
}

// RepEmailsByRep maps each configured sales rep, spelled as in Groups, to
// their email. Viper lowercases map keys read from config files, so reps are
// matched case-insensitively.
func (c *Config) RepEmailsByRep() map[string]string {
	lowered := make(map[string]string, len(c.RepEmails))
	out := make(map[string]string, len(c.RepEmails))
	for name, email := range c.RepEmails {
		lowered[strings.ToLower(name)] = email
		out[name] = email
	}
	for _, g := range c.Groups {
		if email, ok := lowered[strings.ToLower(g.SalesRep)]; ok {
			out[g.SalesRep] = email
		}
	}
	return out
}
