package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// SettingsFileName is the name of the persisted settings file
const SettingsFileName = "settings.yaml"

// Settings holds user choices that survive a restart
type Settings struct {
	// LastModel is the label of the most recently selected model.
	LastModel string `mapstructure:"lastModel"`
}

// SettingsStore reads and writes Settings under a directory
type SettingsStore struct {
	path string
}

// NewSettingsStore returns a store rooted at dir
func NewSettingsStore(dir string) *SettingsStore {
	return &SettingsStore{path: filepath.Join(dir, SettingsFileName)}
}

// DefaultSettingsDir returns the per-user settings directory
func DefaultSettingsDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(dir, "goodspeed"), nil
}

// Load returns the saved settings, or zero settings when none were saved yet
func (s *SettingsStore) Load() (Settings, error) {
	var settings Settings
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return settings, nil
	}

	v := viper.New()
	v.SetConfigFile(s.path)
	if err := v.ReadInConfig(); err != nil {
		return settings, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := v.Unmarshal(&settings); err != nil {
		return settings, fmt.Errorf("failed to parse settings: %w", err)
	}
	return settings, nil
}

// Save writes settings to disk
func (s *SettingsStore) Save(settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(s.path)
	v.Set("lastModel", settings.LastModel)
	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
