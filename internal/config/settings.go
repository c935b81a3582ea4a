package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ShadowDirName is the reserved directory at the project root that holds the
// shadow history. It is excluded from the project's own version control.
const ShadowDirName = ".trajectory"

// Defaults applied before any settings file is read.
const (
	DefaultDebounce   = 2 * time.Second
	DefaultSessionGap = time.Hour
	DefaultLogLevel   = "info"
)

// DefaultIgnorePatterns are editor scratch files that never deserve a snapshot.
var DefaultIgnorePatterns = []string{"*.swp", "*.swx", "*~", "4913", "*.tmp", ".#*"}

// Duration is a time.Duration that reads Go duration strings ("2s", "90m") from YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Settings holds the tunables of the recorder.
type Settings struct {
	// Debounce is the quiescence interval before a modified file is snapshotted.
	Debounce Duration `yaml:"debounce"`
	// SessionGap is the idle time that separates two sessions.
	SessionGap Duration `yaml:"session_gap"`
	// IgnorePatterns are basename globs the watcher never snapshots.
	IgnorePatterns []string `yaml:"ignore_patterns"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Defaults returns settings with every field at its default.
func Defaults() Settings {
	return Settings{
		Debounce:       Duration(DefaultDebounce),
		SessionGap:     Duration(DefaultSessionGap),
		IgnorePatterns: append([]string(nil), DefaultIgnorePatterns...),
		LogLevel:       DefaultLogLevel,
	}
}

// Load reads settings files in order, each one overlaying the previous.
// Missing files are skipped; empty paths are ignored.
func Load(paths ...string) (Settings, error) {
	settings := Defaults()
	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return Settings{}, fmt.Errorf("reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return Settings{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// LoadForProject reads the user settings file, then the project-local
// settings file inside the shadow directory.
// Resolution order: project-local → user global → built-in defaults.
func LoadForProject(root string) (Settings, error) {
	var local string
	if root != "" {
		local = filepath.Join(root, ShadowDirName, "config.yaml")
	}
	return Load(File(), local)
}

// Validate rejects settings the recorder cannot run with.
func (s Settings) Validate() error {
	if s.Debounce <= 0 {
		return errors.New("debounce must be positive")
	}
	if s.SessionGap <= 0 {
		return errors.New("session_gap must be positive")
	}
	if _, err := ParseLevel(s.LogLevel); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured log level, falling back to info.
func (s Settings) SlogLevel() slog.Level {
	level, err := ParseLevel(s.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}
