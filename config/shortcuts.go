package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cromulus/reminders-cli-sub001/filter"
)

// shortcutsFileData is the YAML structure of shortcuts.yaml.
type shortcutsFileData struct {
	Shortcuts map[string]string `yaml:"shortcuts"`
}

// LoadShortcuts returns the default filter shortcuts with the entries of
// the YAML file at path layered on top. A missing file yields the defaults.
func LoadShortcuts(path string) (*filter.Shortcuts, error) {
	if path == "" {
		return filter.DefaultShortcuts, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return filter.DefaultShortcuts, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading shortcuts.yaml: %w", err)
	}

	var sf shortcutsFileData
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing shortcuts.yaml: %w", err)
	}

	// every user expansion must parse on its own
	for name, expansion := range sf.Shortcuts {
		if _, err := filter.ParseFilterWith(expansion, nil); err != nil {
			return nil, fmt.Errorf("shortcut %q: %w", name, err)
		}
	}

	merged, err := filter.DefaultShortcuts.Merge(sf.Shortcuts)
	if err != nil {
		return nil, fmt.Errorf("shortcuts.yaml: %w", err)
	}
	slog.Debug("loaded filter shortcuts", "file", path, "custom", len(sf.Shortcuts))
	return merged, nil
}
