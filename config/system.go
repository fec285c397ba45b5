package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
)

//go:embed config_sample.yaml
var defaultConfig string

//go:embed shortcuts_sample.yaml
var defaultShortcuts string

// SampleFile is a file that BootstrapSystem can write.
type SampleFile struct {
	Name    string
	Path    string
	Content string
}

// SampleFiles lists the files BootstrapSystem writes, in order.
func SampleFiles() []SampleFile {
	pm := mustGetPathManager()
	return []SampleFile{
		{Name: "config.yaml", Path: pm.ConfigFile(), Content: defaultConfig},
		{Name: "shortcuts.yaml", Path: pm.ShortcutsFile(), Content: defaultShortcuts},
	}
}

// BootstrapSystem creates the config and data directories and writes the
// selected sample files. Existing files are kept unless overwrite is set.
// It returns the paths it wrote.
func BootstrapSystem(files []SampleFile, overwrite bool) ([]string, error) {
	if err := EnsureDirs(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	var created []string
	for _, f := range files {
		if !overwrite {
			if _, err := os.Stat(f.Path); err == nil {
				continue
			} else if !errors.Is(err, os.ErrNotExist) {
				return created, fmt.Errorf("stat %s: %w", f.Path, err)
			}
		}
		//nolint:gosec // G306: 0644 is appropriate for config file
		if err := os.WriteFile(f.Path, []byte(f.Content), 0644); err != nil {
			return created, fmt.Errorf("write default %s: %w", f.Name, err)
		}
		created = append(created, f.Path)
	}
	return created, nil
}
