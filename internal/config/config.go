package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	appLog "linecal/internal/log"
)

// Defaults applied by Normalize for unset or invalid values.
const (
	DefaultTimezone       = "Asia/Tokyo"
	DefaultICSPath        = "data/timetree.ics"
	DefaultMemoMaxLength  = 180
	DefaultMessageDelayMs = 250
	DefaultSchedule       = "0 8 * * *"
)

// ICSSource describes where the calendar payload comes from. Exactly one
// of Path or URL is used; URL wins when both are set.
type ICSSource struct {
	// Path is a local ICS file.
	Path string `yaml:"path" json:"path"`
	// URL is a remote ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
}

// Config is the top-level application configuration. It is constructed
// once at the process boundary and threaded as a parameter into every
// component; nothing below cmd/ reads the environment.
type Config struct {
	// Timezone is the IANA display timezone (e.g. "Asia/Tokyo"). Every
	// date/datetime coercion in the pipeline happens in this zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// ICS is the calendar source.
	ICS ICSSource `yaml:"ics" json:"ics"`

	// CacheDir holds the HTTP cache for remote ICS sources.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// Schedule is a cron expression used only in daemon mode.
	Schedule string `yaml:"schedule" json:"schedule"`

	// ShowMemo / ShowLinks toggle the memo and link lines in event blocks.
	ShowMemo  *bool `yaml:"show_memo,omitempty" json:"show_memo,omitempty"`
	ShowLinks *bool `yaml:"show_links,omitempty" json:"show_links,omitempty"`

	// MemoMaxLength caps the shaped memo text. Zero or negative disables
	// truncation; nil means the default of 180.
	MemoMaxLength *int `yaml:"memo_max_length,omitempty" json:"memo_max_length,omitempty"`

	// MessageDelayMs is the pacing delay between consecutive sends.
	MessageDelayMs *int `yaml:"message_delay_ms,omitempty" json:"message_delay_ms,omitempty"`

	// UseBroadcast selects broadcast delivery instead of targeted push.
	UseBroadcast bool `yaml:"use_broadcast" json:"use_broadcast"`

	// Delivery credentials. Never written to the config file; populated
	// from the environment by ApplyEnv.
	ChannelAccessToken string `yaml:"-" json:"-"`
	To                 string `yaml:"-" json:"-"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone: DefaultTimezone,
		ICS:      ICSSource{Path: DefaultICSPath},
		CacheDir: "./var/ics-cache",
		Schedule: DefaultSchedule,
	}
}

// Normalize fills in missing/zero values with the documented defaults so
// that partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.ICS.Path == "" && c.ICS.URL == "" {
		c.ICS.Path = DefaultICSPath
	}
	if c.CacheDir == "" {
		c.CacheDir = "./var/ics-cache"
	}
	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}
	if c.ShowMemo == nil {
		c.ShowMemo = boolPtr(true)
	}
	if c.ShowLinks == nil {
		c.ShowLinks = boolPtr(true)
	}
	if c.MemoMaxLength == nil {
		c.MemoMaxLength = intPtr(DefaultMemoMaxLength)
	}
	if c.MessageDelayMs == nil || *c.MessageDelayMs < 0 {
		c.MessageDelayMs = intPtr(DefaultMessageDelayMs)
	}
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return nil, errors.New("timezone is empty")
	}
	return time.LoadLocation(c.Timezone)
}

// envOverrides mirrors the environment variables the original deployment
// used. Numeric values are read as strings and parsed leniently so that a
// malformed override falls back to the config value instead of aborting.
type envOverrides struct {
	ChannelAccessToken string `envconfig:"LINE_CHANNEL_ACCESS_TOKEN"`
	To                 string `envconfig:"LINE_TO"`
	UseBroadcast       string `envconfig:"USE_BROADCAST"`
	MemoMaxLength      string `envconfig:"MEMO_MAX_LENGTH"`
	MessageDelayMs     string `envconfig:"MESSAGE_DELAY_MS"`
}

// ApplyEnv overlays environment-provided credentials and runtime switches
// onto the configuration. It never fails the run: unparseable numeric
// overrides are logged and ignored.
func (c *Config) ApplyEnv() {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		appLog.Warn("env overlay failed; keeping config values", "err", err)
		return
	}

	if v := strings.TrimSpace(env.ChannelAccessToken); v != "" {
		c.ChannelAccessToken = v
	}
	if v := strings.TrimSpace(env.To); v != "" {
		c.To = v
	}
	if env.UseBroadcast != "" {
		c.UseBroadcast = truthy(env.UseBroadcast)
	}
	if env.MemoMaxLength != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(env.MemoMaxLength)); err == nil {
			c.MemoMaxLength = intPtr(n)
		} else {
			appLog.Warn("ignoring non-numeric MEMO_MAX_LENGTH", "value", env.MemoMaxLength)
		}
	}
	if env.MessageDelayMs != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(env.MessageDelayMs)); err == nil && n >= 0 {
			c.MessageDelayMs = intPtr(n)
		} else {
			appLog.Warn("ignoring invalid MESSAGE_DELAY_MS", "value", env.MessageDelayMs)
		}
	}
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, write a default config with 0600 perms
//     and return the defaults.
//   - Otherwise read YAML, unmarshal, and normalize defaults.
//
// Environment overlays are NOT applied here; callers invoke ApplyEnv
// explicitly at the process boundary.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			cfg.Normalize()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".linecal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }
