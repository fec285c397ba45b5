package config

// Viper configuration loader: reads config.yaml from the user config
// directory or the working directory, then applies REMINDERS_* environment
// variables and command line flags.

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cromulus/reminders-cli-sub001/filter"
)

// Config holds all application configuration loaded from config.yaml
type Config struct {
	Logging struct {
		Level string `mapstructure:"level"` // "debug", "info", "warn", "error"
	} `mapstructure:"logging"`

	Server struct {
		Addr  string `mapstructure:"addr"`
		Token string `mapstructure:"token"` // empty disables bearer auth
	} `mapstructure:"server"`

	Store struct {
		Path string `mapstructure:"path"` // SQLite database file
	} `mapstructure:"store"`

	Webhooks struct {
		File    string        `mapstructure:"file"`
		Timeout time.Duration `mapstructure:"timeout"`
		Workers int           `mapstructure:"workers"` // 0 = unbounded
	} `mapstructure:"webhooks"`

	Detector struct {
		FetchTimeout time.Duration `mapstructure:"fetchTimeout"`
		Debounce     time.Duration `mapstructure:"debounce"`
		PollInterval time.Duration `mapstructure:"pollInterval"` // 0 disables polling
	} `mapstructure:"detector"`

	Filter struct {
		WeekStart     string `mapstructure:"weekStart"`
		ShortcutsFile string `mapstructure:"shortcutsFile"`
	} `mapstructure:"filter"`
}

// flagKeys maps command line flag names to config keys.
var flagKeys = map[string]string{
	"log-level":     "logging.level",
	"addr":          "server.addr",
	"token":         "server.token",
	"db":            "store.path",
	"webhooks-file": "webhooks.file",
}

// LoadConfig loads configuration from config.yaml.
// Priority order (highest first): flags → REMINDERS_* environment → config
// file → defaults. A --config flag in flags names the file explicitly;
// otherwise the user config dir and then the current directory are searched.
// flags may be nil.
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	viper.Reset()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if explicit := lookupString(flags, "config"); explicit != "" {
		viper.SetConfigFile(explicit)
	} else {
		if pm, err := getPathManager(); err == nil {
			viper.AddConfigPath(pm.ConfigDir())
		}
		viper.AddConfigPath(".")
	}

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Debug("no config.yaml found, using defaults")
		} else {
			slog.Error("error reading config file", "error", err)
			return nil, err
		}
	} else {
		slog.Debug("loaded configuration", "file", viper.ConfigFileUsed())
	}

	viper.SetEnvPrefix("REMINDERS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := bindFlags(flags); err != nil {
		slog.Warn("failed to bind command line flags", "error", err)
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		slog.Error("failed to unmarshal config", "error", err)
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("logging.level", "info")

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.token", "")

	viper.SetDefault("store.path", defaultPath((*PathManager).DatabaseFile, "reminders.db"))

	viper.SetDefault("webhooks.file", defaultPath((*PathManager).WebhooksFile, "webhooks.json"))
	viper.SetDefault("webhooks.timeout", "5s")
	viper.SetDefault("webhooks.workers", 0)

	viper.SetDefault("detector.fetchTimeout", "5s")
	viper.SetDefault("detector.debounce", "250ms")
	viper.SetDefault("detector.pollInterval", "30s")

	viper.SetDefault("filter.weekStart", "sunday")
	viper.SetDefault("filter.shortcutsFile", defaultPath((*PathManager).ShortcutsFile, "shortcuts.yaml"))
}

// defaultPath resolves a path through the PathManager, falling back to a
// file in the working directory when paths are unavailable.
func defaultPath(get func(*PathManager) string, fallback string) string {
	pm, err := getPathManager()
	if err != nil {
		return filepath.Join(".", fallback)
	}
	return get(pm)
}

// bindFlags binds the flags present in flags to their config keys.
func bindFlags(flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}

func lookupString(flags *pflag.FlagSet, name string) string {
	if flags == nil || flags.Lookup(name) == nil {
		return ""
	}
	v, err := flags.GetString(name)
	if err != nil {
		return ""
	}
	return v
}

// Validate rejects values the application cannot run with.
func (c *Config) Validate() error {
	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := filter.ParseWeekday(c.Filter.WeekStart); err != nil {
		return fmt.Errorf("filter.weekStart: %w", err)
	}
	if c.Webhooks.Workers < 0 {
		return fmt.Errorf("webhooks.workers must be >= 0, got %d", c.Webhooks.Workers)
	}
	if c.Webhooks.Timeout <= 0 {
		return fmt.Errorf("webhooks.timeout must be positive, got %s", c.Webhooks.Timeout)
	}
	if c.Detector.FetchTimeout <= 0 {
		return fmt.Errorf("detector.fetchTimeout must be positive, got %s", c.Detector.FetchTimeout)
	}
	if c.Detector.Debounce < 0 || c.Detector.PollInterval < 0 {
		return fmt.Errorf("detector durations must not be negative")
	}
	return nil
}

// WeekStart returns the configured first day of the week.
func (c *Config) WeekStart() time.Weekday {
	day, err := filter.ParseWeekday(c.Filter.WeekStart)
	if err != nil {
		return time.Sunday
	}
	return day
}

// ParseLogLevel converts a level name to an slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging.level: unknown level %q", s)
	}
}

// redacted replaces secret values in Settings.
const redacted = "********"

// Settings returns the effective value of every configuration key as merged
// by the last LoadConfig: defaults, config file, environment and flags.
// Keys are lower-cased the way viper stores them; the server token is
// masked.
func Settings() map[string]string {
	out := make(map[string]string)
	for _, key := range viper.AllKeys() {
		v := viper.GetString(key)
		if key == "server.token" && v != "" {
			v = redacted
		}
		out[key] = v
	}
	return out
}

// FileUsed returns the config file the last LoadConfig read, empty when
// only defaults, environment and flags applied.
func FileUsed() string {
	return viper.ConfigFileUsed()
}
