package bootstrap

import (
	"fmt"

	"github.com/cromulus/reminders-cli-sub001/config"
	"github.com/cromulus/reminders-cli-sub001/filter"
	"github.com/cromulus/reminders-cli-sub001/webhook"
)

// InitFilters loads filter shortcuts and builds the evaluation environment
// factory for the configured week start.
func InitFilters(cfg *config.Config) (*filter.Shortcuts, func() filter.Env, error) {
	shortcuts, err := config.LoadShortcuts(cfg.Filter.ShortcutsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load filter shortcuts: %w", err)
	}
	resolver := filter.NewDateResolver(cfg.WeekStart())
	env := func() filter.Env {
		return filter.Env{Now: timeNow(), Dates: resolver}
	}
	return shortcuts, env, nil
}

// InitWebhooks loads the subscription registry and creates the dispatcher.
func InitWebhooks(cfg *config.Config, env func() filter.Env) (*webhook.Registry, *webhook.Dispatcher) {
	registry := webhook.NewRegistry(cfg.Webhooks.File)
	dispatcher := webhook.NewDispatcher(registry, webhook.Options{
		Timeout:    cfg.Webhooks.Timeout,
		MaxWorkers: cfg.Webhooks.Workers,
		Env:        env,
	})
	return registry, dispatcher
}
