package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Load reads, defaults and validates a settings file.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	return Parse(data)
}

// Parse decodes settings from YAML, fills in defaults for everything the
// document leaves out, and validates the result.
func Parse(data []byte) (*Settings, error) {
	settings := Default()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	applyDefaults(settings)

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate checks the settings against their struct constraints.
func (s *Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// applyDefaults fills fields the YAML document zeroed out. Unmarshalling
// into Default() covers omitted sections, but an explicitly empty section
// overwrites the seeded values and needs backfilling.
func applyDefaults(s *Settings) {
	d := Default()
	if s.Logging.Level == "" {
		s.Logging.Level = d.Logging.Level
	}
	if s.Logging.Format == "" {
		s.Logging.Format = d.Logging.Format
	}
	if s.Bridge.DefaultTimeout == 0 {
		s.Bridge.DefaultTimeout = d.Bridge.DefaultTimeout
	}
	if s.Bridge.MaxConcurrent == 0 {
		s.Bridge.MaxConcurrent = d.Bridge.MaxConcurrent
	}
	if s.Breaker.FailureThreshold == 0 {
		s.Breaker.FailureThreshold = d.Breaker.FailureThreshold
	}
	if s.Breaker.RecoveryTimeout == 0 {
		s.Breaker.RecoveryTimeout = d.Breaker.RecoveryTimeout
	}
	if s.Profiles == nil {
		s.Profiles = d.Profiles
	}
}
