package bootstrap

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/cromulus/reminders-cli-sub001/config"
)

// LoadConfig loads the application configuration.
// Returns an error if configuration loading fails.
func LoadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.LoadConfig(flags)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

// InitLogging installs the default slog logger at the configured level,
// writing text records to stderr.
func InitLogging(cfg *config.Config) slog.Level {
	return initLoggingTo(os.Stderr, cfg)
}

func initLoggingTo(w io.Writer, cfg *config.Config) slog.Level {
	level, err := config.ParseLogLevel(cfg.Logging.Level)
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	if err != nil {
		slog.Warn("invalid log level, using info", "level", cfg.Logging.Level)
	}
	return level
}
