// Package settings manages persistent user settings for the confpush CLI.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Settings holds persistent user preferences
type Settings struct {
	// DefaultHost is offered at the host prompt ("host:port")
	DefaultHost string `json:"default_host,omitempty"`

	// JobsFile is a YAML job manifest used instead of the built-in jobs
	JobsFile string `json:"jobs_file,omitempty"`

	// AuditLog overrides the audit log location
	AuditLog string `json:"audit_log,omitempty"`

	// KnownHosts is an OpenSSH known_hosts file for host key verification
	KnownHosts string `json:"known_hosts,omitempty"`
}

// configDir is ~/.confpush, or the working directory if HOME is unknown.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".confpush")
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	return filepath.Join(configDir(), "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path. A missing file yields empty
// settings.
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing settings %s: %w", path, err)
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// AuditLogPath returns the audit log location (with fallback)
func (s *Settings) AuditLogPath() string {
	if s.AuditLog != "" {
		return s.AuditLog
	}
	return filepath.Join(configDir(), "audit.log")
}

// Keys lists the setting names accepted by Get and Set, in display order.
func Keys() []string {
	return []string{"default_host", "jobs_file", "audit_log", "known_hosts"}
}

// Get returns a setting by name.
func (s *Settings) Get(key string) (string, error) {
	switch key {
	case "default_host", "host":
		return s.DefaultHost, nil
	case "jobs_file", "jobs":
		return s.JobsFile, nil
	case "audit_log":
		return s.AuditLog, nil
	case "known_hosts":
		return s.KnownHosts, nil
	}
	return "", unknownKey(key)
}

// Set assigns a setting by name.
func (s *Settings) Set(key, value string) error {
	switch key {
	case "default_host", "host":
		if value != "" && strings.Count(value, ":") != 1 {
			return fmt.Errorf("default_host must be host:port, got %q", value)
		}
		s.DefaultHost = value
	case "jobs_file", "jobs":
		s.JobsFile = value
	case "audit_log":
		s.AuditLog = value
	case "known_hosts":
		s.KnownHosts = value
	default:
		return unknownKey(key)
	}
	return nil
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown setting: %s (valid: %s)", key, strings.Join(Keys(), ", "))
}
