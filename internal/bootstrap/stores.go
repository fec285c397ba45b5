package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cromulus/reminders-cli-sub001/config"
	"github.com/cromulus/reminders-cli-sub001/store/sqlitestore"
)

// InitStores opens the reminders database named by the configuration,
// creating its directory when needed.
func InitStores(cfg *config.Config) (*sqlitestore.Store, error) {
	//nolint:gosec // G301: 0755 is appropriate for data directory
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	s, err := sqlitestore.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("initialize reminder store: %w", err)
	}
	return s, nil
}
