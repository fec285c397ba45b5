package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/pflag"

	"github.com/cromulus/reminders-cli-sub001/config"
	"github.com/cromulus/reminders-cli-sub001/filter"
	"github.com/cromulus/reminders-cli-sub001/store/sqlitestore"
	"github.com/cromulus/reminders-cli-sub001/webhook"
)

var timeNow = time.Now

// BootstrapResult contains all initialized application components.
type BootstrapResult struct {
	Cfg        *config.Config
	LogLevel   slog.Level
	Store      *sqlitestore.Store
	Shortcuts  *filter.Shortcuts
	Env        func() filter.Env
	Registry   *webhook.Registry
	Dispatcher *webhook.Dispatcher
}

// Bootstrap orchestrates the application initialization sequence shared by
// every command: paths, configuration, logging, filters, store, webhooks.
func Bootstrap(flags *pflag.FlagSet) (*BootstrapResult, error) {
	// Phase 1: Paths
	if err := config.InitPaths(); err != nil {
		return nil, err
	}

	// Phase 2: Configuration and logging
	cfg, err := LoadConfig(flags)
	if err != nil {
		return nil, err
	}
	logLevel := InitLogging(cfg)

	// Phase 3: Filter language
	shortcuts, env, err := InitFilters(cfg)
	if err != nil {
		return nil, err
	}

	// Phase 4: Store
	s, err := InitStores(cfg)
	if err != nil {
		return nil, err
	}

	// Phase 5: Webhooks
	registry, dispatcher := InitWebhooks(cfg, env)

	slog.Debug("bootstrap complete",
		"store", cfg.Store.Path,
		"webhooks", cfg.Webhooks.File,
		"subscriptions", len(registry.List()))

	return &BootstrapResult{
		Cfg:        cfg,
		LogLevel:   logLevel,
		Store:      s,
		Shortcuts:  shortcuts,
		Env:        env,
		Registry:   registry,
		Dispatcher: dispatcher,
	}, nil
}

// Close waits for in-flight webhook deliveries and releases the store.
func (r *BootstrapResult) Close() error {
	r.Dispatcher.Close()
	var errs []error
	if err := r.Registry.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close webhook registry: %w", err))
	}
	if err := r.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close reminder store: %w", err))
	}
	return errors.Join(errs...)
}
