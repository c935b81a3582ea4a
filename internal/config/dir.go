// Package config resolves the trajectory configuration directory and settings file.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// appName names the per-user configuration directory.
const appName = "trajectory"

// Dir returns the trajectory configuration directory.
//
// Resolution:
//   - $TRAJECTORY_CONFIG_HOME if set
//   - $XDG_CONFIG_HOME/trajectory if set
//   - %AppData%/trajectory on Windows
//   - ~/.config/trajectory on macOS and Linux
func Dir() string {
	if dir := os.Getenv("TRAJECTORY_CONFIG_HOME"); dir != "" {
		return dir
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appName)
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// File returns the path of the settings file inside Dir.
// Returns an empty string when no configuration directory can be resolved.
func File() string {
	dir := Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}
