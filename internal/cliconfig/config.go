package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// DefaultStrategy is the name the CLI registers its strategy under.
const DefaultStrategy = "walrepl"

// Config holds CLI configuration for walrepl.
type Config struct {
	Strategy string
	Schema   string
	Script   string

	PageSize      int
	MaxFrames     int
	MaxBatchBytes int

	FaultFile     string
	DebounceDelay time.Duration

	BackoffInitial time.Duration
	BackoffMax     time.Duration

	StateDir string
	Status   bool
	LogLevel string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Strategy:       DefaultStrategy,
		Schema:         "main",
		MaxBatchBytes:  4 << 20, // 4MB
		DebounceDelay:  100 * time.Millisecond,
		BackoffInitial: 10 * time.Millisecond,
		BackoffMax:     500 * time.Millisecond,
		StateDir:       "", // Derived from $HOME during Validate
		Status:         true,
		LogLevel:       "info",
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Script == "" {
		return fmt.Errorf("script is required")
	}
	if c.Strategy == "" {
		return fmt.Errorf("strategy name is required")
	}
	if c.Schema == "" {
		c.Schema = "main"
	}

	if c.PageSize < 0 {
		return fmt.Errorf("page size must not be negative")
	}
	if c.MaxFrames < 0 || c.MaxBatchBytes < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	if c.BackoffInitial <= 0 || c.BackoffMax < c.BackoffInitial {
		return fmt.Errorf("backoff must be positive and backoff-max at least backoff-initial")
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	if c.StateDir == "" && c.Status {
		if h, err := os.UserHomeDir(); err == nil {
			c.StateDir = filepath.Join(h, ".walrepl")
		} else {
			c.StateDir = "."
		}
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
