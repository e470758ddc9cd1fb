// Package paths resolves where ProcessFlow keeps its configuration file and
// its store.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user application directories.
const AppName = "processflow"

// ConfigFileName is the configuration file inside the config directory.
const ConfigFileName = "config.yaml"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "PROCESSFLOW_CONFIG_DIR"
	EnvDataDir   = "PROCESSFLOW_DATA_DIR"
)

// platformDir holds platform lookups so tests can replace them.
var platformDir = struct {
	goos          string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the per-user configuration directory.
//
//	Linux:   $XDG_CONFIG_HOME/processflow (fallback ~/.config/processflow)
//	macOS:   ~/Library/Application Support/processflow
//	Windows: %APPDATA%/processflow
func DefaultConfigDir() (string, error) {
	return appDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the per-user data directory holding processflow.db
// and the media directory.
//
//	Linux:   $XDG_DATA_HOME/processflow (fallback ~/.local/share/processflow)
//	macOS:   ~/Library/Application Support/processflow
//	Windows: %APPDATA%/processflow
func DefaultDataDir() (string, error) {
	return appDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// appDir applies the XDG convention on Linux and os.UserConfigDir elsewhere.
func appDir(xdgVar, homeRelative string) (string, error) {
	if platformDir.goos != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, homeRelative, AppName), nil
}

// ResolveConfigDir picks the configuration directory: flag, then
// PROCESSFLOW_CONFIG_DIR, then DefaultConfigDir.
func ResolveConfigDir(flag string) (string, error) {
	return firstAbs(DefaultConfigDir, flag, os.Getenv(EnvConfigDir))
}

// ResolveDataDir picks the data directory: flag, then the data_dir config
// value, then PROCESSFLOW_DATA_DIR, then DefaultDataDir.
func ResolveDataDir(flag, configValue string) (string, error) {
	return firstAbs(DefaultDataDir, flag, configValue, os.Getenv(EnvDataDir))
}

// ConfigFile returns the configuration file path inside configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}

func firstAbs(fallback func() (string, error), candidates ...string) (string, error) {
	for _, c := range candidates {
		if c != "" {
			return filepath.Abs(c)
		}
	}
	return fallback()
}
