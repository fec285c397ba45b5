package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

const appDirName = "reminders"

var (
	// ErrNoHome indicates that the user's home directory could not be determined
	ErrNoHome = errors.New("unable to determine home directory")

	// ErrPathManagerInit indicates that the PathManager failed to initialize
	ErrPathManagerInit = errors.New("failed to initialize path manager")
)

// PathManager resolves every file the application reads or writes.
type PathManager struct {
	configDir string // config.yaml, shortcuts.yaml, webhooks.json
	dataDir   string // reminders.db
}

// newPathManager creates and initializes a new PathManager
func newPathManager() (*PathManager, error) {
	configDir, err := getUserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("get config directory: %w", err)
	}

	dataDir, err := getUserDataDir()
	if err != nil {
		return nil, fmt.Errorf("get data directory: %w", err)
	}

	return &PathManager{configDir: configDir, dataDir: dataDir}, nil
}

// getUserConfigDir returns the platform-appropriate user config directory
func getUserConfigDir() (string, error) {
	// XDG_CONFIG_HOME wins on every platform
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, appDirName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", ErrNoHome
	}

	switch runtime.GOOS {
	case "darwin":
		// prefer ~/.config when the user already has one
		dotConfigDir := filepath.Join(homeDir, ".config")
		if info, err := os.Stat(dotConfigDir); err == nil && info.IsDir() {
			return filepath.Join(dotConfigDir, appDirName), nil
		}
		return filepath.Join(homeDir, "Library", "Application Support", appDirName), nil

	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appDirName), nil
		}
		return filepath.Join(homeDir, "AppData", "Roaming", appDirName), nil

	default:
		return filepath.Join(homeDir, ".config", appDirName), nil
	}
}

// getUserDataDir returns the platform-appropriate user data directory
func getUserDataDir() (string, error) {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, appDirName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", ErrNoHome
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", appDirName), nil

	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, appDirName), nil
		}
		return filepath.Join(homeDir, "AppData", "Local", appDirName), nil

	default:
		return filepath.Join(homeDir, ".local", "share", appDirName), nil
	}
}

// ConfigDir returns the user config directory
func (pm *PathManager) ConfigDir() string {
	return pm.configDir
}

// DataDir returns the user data directory
func (pm *PathManager) DataDir() string {
	return pm.dataDir
}

// ConfigFile returns the path to the user config file
func (pm *PathManager) ConfigFile() string {
	return filepath.Join(pm.configDir, "config.yaml")
}

// ShortcutsFile returns the path to the user-defined filter shortcuts
func (pm *PathManager) ShortcutsFile() string {
	return filepath.Join(pm.configDir, "shortcuts.yaml")
}

// WebhooksFile returns the default webhook subscription file
func (pm *PathManager) WebhooksFile() string {
	return filepath.Join(pm.configDir, "webhooks.json")
}

// DatabaseFile returns the default reminders database
func (pm *PathManager) DatabaseFile() string {
	return filepath.Join(pm.dataDir, "reminders.db")
}

// EnsureDirs creates all necessary directories with appropriate permissions
func (pm *PathManager) EnsureDirs() error {
	//nolint:gosec // G301: 0755 is appropriate for config directory
	if err := os.MkdirAll(pm.configDir, 0755); err != nil {
		return fmt.Errorf("create config directory %s: %w", pm.configDir, err)
	}
	//nolint:gosec // G301: 0755 is appropriate for data directory
	if err := os.MkdirAll(pm.dataDir, 0755); err != nil {
		return fmt.Errorf("create data directory %s: %w", pm.dataDir, err)
	}
	return nil
}

// Package-level singleton with lazy initialization
var (
	pathManager     *PathManager
	pathManagerOnce sync.Once
	pathManagerErr  error
	pathManagerMu   sync.RWMutex // Protects pathManager for reset operations
)

// getPathManager returns the global PathManager, initializing it on first call
func getPathManager() (*PathManager, error) {
	pathManagerMu.RLock()
	if pathManager != nil {
		defer pathManagerMu.RUnlock()
		return pathManager, pathManagerErr
	}
	pathManagerMu.RUnlock()

	pathManagerMu.Lock()
	defer pathManagerMu.Unlock()

	if pathManager != nil {
		return pathManager, pathManagerErr
	}

	pathManagerOnce.Do(func() {
		pathManager, pathManagerErr = newPathManager()
	})
	return pathManager, pathManagerErr
}

// InitPaths initializes the path manager. Must be called early in application startup.
func InitPaths() error {
	_, err := getPathManager()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPathManagerInit, err)
	}
	return nil
}

// ResetPathManager resets the path manager singleton for testing purposes.
func ResetPathManager() {
	pathManagerMu.Lock()
	defer pathManagerMu.Unlock()
	pathManager = nil
	pathManagerErr = nil
	pathManagerOnce = sync.Once{}
}

// mustGetPathManager returns the global PathManager or panics if not initialized.
func mustGetPathManager() *PathManager {
	pm, err := getPathManager()
	if err != nil {
		panic(fmt.Sprintf("path manager not initialized: %v (call InitPaths() first)", err))
	}
	return pm
}

// Exported accessors panic if InitPaths() has not been called successfully.

// GetConfigDir returns the user config directory
func GetConfigDir() string {
	return mustGetPathManager().ConfigDir()
}

// GetDataDir returns the user data directory
func GetDataDir() string {
	return mustGetPathManager().DataDir()
}

// GetConfigFile returns the path to the user config file
func GetConfigFile() string {
	return mustGetPathManager().ConfigFile()
}

// GetShortcutsFile returns the path to shortcuts.yaml
func GetShortcutsFile() string {
	return mustGetPathManager().ShortcutsFile()
}

// GetWebhooksFile returns the default webhook subscription file
func GetWebhooksFile() string {
	return mustGetPathManager().WebhooksFile()
}

// GetDatabaseFile returns the default database path
func GetDatabaseFile() string {
	return mustGetPathManager().DatabaseFile()
}

// EnsureDirs creates all necessary directories with appropriate permissions
func EnsureDirs() error {
	return mustGetPathManager().EnsureDirs()
}
